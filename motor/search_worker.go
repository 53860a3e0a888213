package motor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/pb33f/frameseq/motor/model"
)

// workBatch is a range of global frame indices, end exclusive
type workBatch struct {
	startIndex int
	endIndex   int
}

// createWorkBatches divides frames into batches for workers
func createWorkBatches(totalFrames int, opts SearchOptions) []workBatch {
	var batches []workBatch

	opts = opts.withDefaults()
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = (totalFrames + opts.WorkerCount - 1) / opts.WorkerCount
	}
	if chunkSize < 1 {
		chunkSize = 1
	}

	for start := 0; start < totalFrames; start += chunkSize {
		end := start + chunkSize
		if end > totalFrames {
			end = totalFrames
		}
		batches = append(batches, workBatch{startIndex: start, endIndex: end})
	}

	return batches
}

// searchReaders holds one reader per file for a single worker. Batches are
// ascending, so compressed files are mostly read forward.
type searchReaders struct {
	readers map[string]*FrameFile
}

func (r *searchReaders) get(index *Index) (*FrameFile, error) {
	if reader, ok := r.readers[index.FilePath]; ok {
		return reader, nil
	}
	reader, err := OpenFrameFileWithIndex(index.FilePath, index)
	if err != nil {
		return nil, err
	}
	r.readers[index.FilePath] = reader
	return reader, nil
}

func (r *searchReaders) close() {
	for _, reader := range r.readers {
		reader.Close()
	}
}

func worker(ctx context.Context,
	workQueue <-chan workBatch,
	results chan<- []SearchResult,
	searcher *FrameSearcher,
	pattern compiledPattern,
	opts SearchOptions) {

	readers := &searchReaders{readers: make(map[string]*FrameFile)}
	defer readers.close()

	for {
		select {
		case <-ctx.Done():
			return

		case batch, ok := <-workQueue:
			if !ok {
				return
			}

			batchResults := make([]SearchResult, 0, 8)

			for i := batch.startIndex; i < batch.endIndex; i++ {
				if ctx.Err() != nil {
					return
				}
				result := searchFrame(searcher, readers, i, pattern, opts)
				if result != nil {
					batchResults = append(batchResults, *result)
				}
				atomic.AddInt64(&searcher.stats.framesSearched, 1)
			}

			if len(batchResults) > 0 {
				select {
				case results <- batchResults:
					atomic.AddInt64(&searcher.stats.matchesFound, int64(len(batchResults)))
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// searchFrame checks one frame; the stream name is matched from the index
// before the frame itself is read
func searchFrame(s *FrameSearcher,
	readers *searchReaders,
	index int,
	pattern compiledPattern,
	opts SearchOptions) *SearchResult {

	file, local := s.locate(index)
	idx := s.indexes[file]
	meta := idx.Frames[local]

	if opts.Stream != model.StreamNone && meta.Stream != opts.Stream {
		return nil
	}

	result := &SearchResult{Index: index, Path: idx.FilePath, Local: local, Stream: meta.Stream}

	if matches(meta.Stream.String(), pattern) {
		result.Field = "stream"
		return result
	}

	reader, err := readers.get(idx)
	if err != nil {
		result.Error = err
		return result
	}
	if err := reader.Seek(local); err != nil {
		result.Error = err
		return result
	}
	frame, err := reader.Next()
	if err != nil {
		result.Error = fmt.Errorf("frame %d of %s: %w", local, idx.FilePath, err)
		return result
	}
	atomic.AddInt64(&s.stats.bytesSearched, meta.Length)

	if field := searchItems(frame, pattern, opts.SearchValues); field != "" {
		result.Field = field
		return result
	}
	return nil
}

// searchItems returns the first matching field of frame, names and types before values
func searchItems(frame *model.Frame, pattern compiledPattern, values bool) string {
	for _, item := range frame.Items {
		if matches(item.Name, pattern) || matches(item.Type, pattern) {
			return "items." + item.Name
		}
	}
	if !values {
		return ""
	}
	for _, item := range frame.Items {
		if len(item.Value) > 0 && matches(string(item.Value), pattern) {
			return "items." + item.Name + ".value"
		}
	}
	return ""
}
