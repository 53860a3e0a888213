package motor

import (
	"context"
	"fmt"

	"github.com/pb33f/frameseq/motor/model"
)

// FrameSequence presents frames spread across many files as one indexed
// sequence. Frames are read on a background worker ahead of the caller.
type FrameSequence struct {
	engine *engine
}

var _ Sequence = (*FrameSequence)(nil)

func NewFrameSequence(options SequenceOptions) *FrameSequence {
	return &FrameSequence{engine: newEngine(options)}
}

// OpenFrameSequence creates a sequence over paths, in order
func OpenFrameSequence(paths []string, options SequenceOptions) (*FrameSequence, error) {
	seq := NewFrameSequence(options)
	for _, path := range paths {
		if err := seq.AddFile(path); err != nil {
			seq.Stop()
			return nil, err
		}
	}
	return seq, nil
}

func (s *FrameSequence) AddFile(path string) error {
	return s.engine.addFile(path)
}

func (s *FrameSequence) Close() error {
	return s.engine.close()
}

func (s *FrameSequence) CloseLastFile() error {
	return s.engine.closeLastFile()
}

func (s *FrameSequence) Rewind() {
	s.engine.rewind()
}

func (s *FrameSequence) More(ctx context.Context) bool {
	return s.engine.more(ctx)
}

func (s *FrameSequence) Pop(ctx context.Context, filter model.Stream) (*model.Frame, error) {
	return s.engine.pop(ctx, filter)
}

func (s *FrameSequence) Seek(index int) {
	s.engine.seek(index)
}

// At returns frame index of the sequence. The read position ends up right after it.
func (s *FrameSequence) At(ctx context.Context, index int) (*model.Frame, error) {
	if index < 0 {
		return nil, fmt.Errorf("frame %d: %w", index, ErrNoFrame)
	}
	s.engine.seek(index)
	frame, err := s.engine.pop(ctx, model.StreamNone)
	if err != nil {
		if isNoFrame(err) {
			return nil, fmt.Errorf("frame %d: %w", index, ErrNoFrame)
		}
		return nil, err
	}
	return frame, nil
}

func (s *FrameSequence) GetMixedFrames() ([]*model.Frame, error) {
	return s.engine.mixedFrames()
}

func (s *FrameSequence) GetCurrentGroup() (model.FrameGroup, error) {
	return s.engine.currentGroup()
}

func (s *FrameSequence) GetPaths() []string {
	return s.engine.files.GetPaths()
}

func (s *FrameSequence) GetFrameno() int {
	return s.engine.frameno()
}

func (s *FrameSequence) GetSize() int {
	return s.engine.files.GetSize()
}

func (s *FrameSequence) GetCurSize() int {
	return s.engine.files.GetCurSize()
}

func (s *FrameSequence) GetStream() model.Stream {
	return s.engine.currentStream()
}

func (s *FrameSequence) Stats() SequenceStats {
	return s.engine.snapshot()
}

// Stop closes the sequence and shuts its worker down; it cannot be used afterwards
func (s *FrameSequence) Stop() error {
	return s.engine.stop()
}

// Clone returns an independent sequence over the same files, positioned where
// s is, sharing a snapshot of its cache. No reads are in flight on the copy.
func (s *FrameSequence) Clone() (*FrameSequence, error) {
	e, err := s.engine.clone()
	if err != nil {
		return nil, err
	}
	return &FrameSequence{engine: e}, nil
}
