package motor

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pb33f/frameseq/motor/model"
)

// SearchOptions configures search behavior
type SearchOptions struct {
	Mode         SearchMode   // plaintext or regex
	IgnoreCase   bool         // case-insensitive match
	SearchValues bool         // also search raw item values (default: false)
	Stream       model.Stream // only frames of this stream, StreamNone for all
	WorkerCount  int          // default: runtime.NumCPU()
	ChunkSize    int          // frames per work batch (default: 0 = auto-partition)
}

// DefaultSearchOptions provides sensible defaults
var DefaultSearchOptions = SearchOptions{
	Mode:        PlainText,
	WorkerCount: runtime.NumCPU(),
}

// withDefaults replaces non-positive worker counts with one per CPU and
// non-positive chunk sizes with auto-partition
func (o SearchOptions) withDefaults() SearchOptions {
	if o.WorkerCount < 1 {
		o.WorkerCount = runtime.NumCPU()
	}
	if o.ChunkSize < 0 {
		o.ChunkSize = 0
	}
	return o
}

// SearchResult represents a single matching frame
type SearchResult struct {
	Index  int    // global index in the sequence
	Path   string // file holding the frame
	Local  int    // index within that file
	Stream model.Stream
	Field  string // which field matched: "stream", "items.Geometry", "items.Waveform.value"
	Error  error  // non-fatal error reading this frame (search continues)
}

// SearchStats tracks search performance metrics
type SearchStats struct {
	FramesSearched int64
	MatchesFound   int64
	BytesSearched  int64 // encoded bytes of frames that had to be read
	SearchDuration time.Duration
}

type searchAtomicStats struct {
	framesSearched int64
	matchesFound   int64
	bytesSearched  int64
	searchDuration int64 // nanoseconds
}

// FrameSearcher searches every frame of a sequence of fully indexed files.
// Frames are numbered the same way a FrameSequence numbers them.
type FrameSearcher struct {
	indexes []*Index
	offsets []int // global index of the first frame of each file
	total   int
	stats   searchAtomicStats
}

// NewSearcher builds a searcher over complete indexes, in sequence order
func NewSearcher(indexes []*Index) (*FrameSearcher, error) {
	s := &FrameSearcher{
		indexes: indexes,
		offsets: make([]int, len(indexes)),
	}
	for i, idx := range indexes {
		if idx == nil || !idx.Complete {
			return nil, fmt.Errorf("index %d is not complete", i)
		}
		s.offsets[i] = s.total
		s.total += idx.TotalFrames
	}
	return s, nil
}

// TotalFrames returns the number of frames covered by the searcher
func (s *FrameSearcher) TotalFrames() int {
	return s.total
}

// locate maps a global index to a file and a local index. Empty files share
// their offset with the next file, the last file at that offset is the one
// holding the frame.
func (s *FrameSearcher) locate(index int) (int, int) {
	file := sort.Search(len(s.offsets), func(i int) bool {
		return s.offsets[i] > index
	}) - 1
	return file, index - s.offsets[file]
}

// Search executes a search and streams results via channel. Results of one
// batch arrive together; batches arrive in no particular order.
func (s *FrameSearcher) Search(ctx context.Context, pattern string, opts SearchOptions) (<-chan []SearchResult, error) {
	opts = opts.withDefaults()

	compiledPattern, err := compilePattern(pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	if s.total == 0 {
		emptyResults := make(chan []SearchResult)
		close(emptyResults)
		return emptyResults, nil
	}

	batches := createWorkBatches(s.total, opts)

	workQueue := make(chan workBatch, opts.WorkerCount*2)
	results := make(chan []SearchResult, opts.WorkerCount)

	startTime := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < opts.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, workQueue, results, s, compiledPattern, opts)
		}()
	}

	// producer
	go func() {
		defer close(workQueue)

		for _, batch := range batches {
			select {
			case workQueue <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()

	// collector
	go func() {
		wg.Wait()
		atomic.StoreInt64(&s.stats.searchDuration, int64(time.Since(startTime)))
		close(results)
	}()

	return results, nil
}

// Collect drains a result channel into one slice ordered by frame index
func Collect(results <-chan []SearchResult) []SearchResult {
	var all []SearchResult
	for batch := range results {
		all = append(all, batch...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Index < all[j].Index
	})
	return all
}

// Stats returns current search statistics
func (s *FrameSearcher) Stats() SearchStats {
	return SearchStats{
		FramesSearched: atomic.LoadInt64(&s.stats.framesSearched),
		MatchesFound:   atomic.LoadInt64(&s.stats.matchesFound),
		BytesSearched:  atomic.LoadInt64(&s.stats.bytesSearched),
		SearchDuration: time.Duration(atomic.LoadInt64(&s.stats.searchDuration)),
	}
}
