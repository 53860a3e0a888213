package motor

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/pb33f/frameseq/motor/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWorkBatches_AutoPartition(t *testing.T) {
	opts := SearchOptions{
		WorkerCount: 10,
		ChunkSize:   0, // auto-partition
	}

	tests := []struct {
		name            string
		totalFrames     int
		expectedBatches int
	}{
		{"1000 frames, 10 workers", 1000, 10},
		{"500 frames, 10 workers", 500, 10},
		{"15 frames, 10 workers", 15, 8}, // 15/10 rounds up to chunks of 2
		{"3 frames, 10 workers", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := createWorkBatches(tt.totalFrames, opts)
			assert.Len(t, batches, tt.expectedBatches)

			totalCovered := 0
			for _, batch := range batches {
				totalCovered += batch.endIndex - batch.startIndex
			}
			assert.Equal(t, tt.totalFrames, totalCovered)

			for i := 1; i < len(batches); i++ {
				assert.Equal(t, batches[i-1].endIndex, batches[i].startIndex)
			}
		})
	}
}

func TestCreateWorkBatches_ManualChunkSize(t *testing.T) {
	tests := []struct {
		name            string
		totalFrames     int
		chunkSize       int
		expectedBatches int
	}{
		{"1000 frames, chunk 250", 1000, 250, 4},
		{"1000 frames, chunk 300", 1000, 300, 4}, // last batch smaller
		{"100 frames, chunk 1000", 100, 1000, 1}, // chunk bigger than total
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := SearchOptions{
				WorkerCount: runtime.NumCPU(),
				ChunkSize:   tt.chunkSize,
			}

			batches := createWorkBatches(tt.totalFrames, opts)
			require.Len(t, batches, tt.expectedBatches)
			assert.Equal(t, 0, batches[0].startIndex)
			assert.Equal(t, tt.totalFrames, batches[len(batches)-1].endIndex)
		})
	}
}

func TestCreateWorkBatches_NonPositiveOptions(t *testing.T) {
	tests := []struct {
		name            string
		opts            SearchOptions
		expectedBatches int
	}{
		{"negative chunk falls back to auto", SearchOptions{WorkerCount: 4, ChunkSize: -1}, 4},
		{"negative workers use every CPU", SearchOptions{WorkerCount: -2, ChunkSize: 25}, 4},
		{"zero workers use every CPU", SearchOptions{ChunkSize: 50}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := createWorkBatches(100, tt.opts)
			require.Len(t, batches, tt.expectedBatches)
			assert.Equal(t, 100, batches[len(batches)-1].endIndex)
		})
	}

	// auto partition never yields empty batches, even with more workers than CPUs
	batches := createWorkBatches(3, SearchOptions{WorkerCount: -1, ChunkSize: -10})
	for _, batch := range batches {
		assert.Greater(t, batch.endIndex, batch.startIndex)
	}
}

func TestSearchItems(t *testing.T) {
	frame := &model.Frame{
		Stream: model.DetectorStatus,
		Items: []model.Item{
			{Name: "FrameHeader", Type: "FrameHeader", Value: json.RawMessage(`{"run":1}`)},
			{Name: "DetectorStatus", Type: "Payload", Value: json.RawMessage(`{"trigger":"SMT8"}`)},
		},
	}

	compile := func(p string) compiledPattern {
		cp, err := compilePattern(p, SearchOptions{Mode: PlainText})
		require.NoError(t, err)
		return cp
	}

	assert.Equal(t, "items.DetectorStatus", searchItems(frame, compile("Status"), false))
	assert.Equal(t, "items.DetectorStatus", searchItems(frame, compile("Payload"), false))
	assert.Equal(t, "", searchItems(frame, compile("SMT8"), false), "values are opt-in")
	assert.Equal(t, "items.DetectorStatus.value", searchItems(frame, compile("SMT8"), true))
	assert.Equal(t, "items.FrameHeader.value", searchItems(frame, compile(`"run"`), true))
	assert.Equal(t, "", searchItems(frame, compile("nothing"), true))
}
