package motor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/pb33f/frameseq/motor/model"
	"golang.org/x/sync/errgroup"
)

const indexVersion = 1

func newIndex(path string, compression Compression, fileSize int64) *Index {
	return &Index{
		FilePath:     path,
		FileSize:     fileSize,
		Compression:  compression,
		IndexVersion: indexVersion,
		Frames:       make([]*FrameMetadata, 0),
		StreamCounts: make(map[model.Stream]int),
	}
}

// ScanFile reads a frame file end to end and returns its complete index.
func ScanFile(ctx context.Context, path string) (*Index, error) {
	reader, err := OpenFrameFile(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return scanReader(ctx, reader)
}

func scanReader(ctx context.Context, reader *FrameFile) (*Index, error) {
	for {
		// check between frames, a scan of a large file can take a while
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if _, err := reader.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to build index: %w", err)
		}
	}
	return reader.Index(), nil
}

// ScanFiles indexes paths concurrently; the result is in path order.
// workers < 1 uses one worker per CPU.
func ScanFiles(ctx context.Context, paths []string, workers int) ([]*Index, error) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	indexes := make([]*Index, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			idx, err := ScanFile(ctx, path)
			if err != nil {
				return fmt.Errorf("scan %s: %w", path, err)
			}
			indexes[i] = idx
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return indexes, nil
}

// TotalFrames sums frame counts of complete indexes
func TotalFrames(indexes []*Index) int {
	total := 0
	for _, idx := range indexes {
		total += idx.TotalFrames
	}
	return total
}
