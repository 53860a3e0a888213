package motor

import (
	"context"

	"github.com/pb33f/frameseq/motor/model"
)

// Sequence is the main interface for reading frames spread over many files.
// It provides ordered and random access while reads happen on a background
// worker ahead of the caller.
type Sequence interface {
	// AddFile appends a backing file; its frames follow all frames already added
	AddFile(path string) error

	// Close drops every file and clears cached and in-flight reads. The sequence stays usable.
	Close() error

	// CloseLastFile drops only the most recently added file
	CloseLastFile() error

	// Rewind cancels in-flight reads and restarts from frame 0, keeping the cache
	Rewind()

	// More reports whether a frame exists at the next index
	More(ctx context.Context) bool

	// Pop returns the next frame, skipping frames that do not match filter
	// unless filter is model.StreamNone
	Pop(ctx context.Context, filter model.Stream) (*model.Frame, error)

	// Seek moves the read position so the next Pop returns frame index
	Seek(index int)

	// At returns the frame at index (Seek then Pop)
	At(ctx context.Context, index int) (*model.Frame, error)

	// GetMixedFrames returns the context frames of the last popped frame
	GetMixedFrames() ([]*model.Frame, error)

	// GetCurrentGroup returns the context frames and the last popped frame
	GetCurrentGroup() (model.FrameGroup, error)

	GetPaths() []string

	// GetFrameno returns the index of the last popped frame, -1 before the first pop
	GetFrameno() int

	// GetSize returns the total number of frames, or SizeUnknown until every file was scanned
	GetSize() int

	// GetCurSize returns the number of frames in files whose size is known so far
	GetCurSize() int

	// GetStream returns the stream of the last popped frame
	GetStream() model.Stream

	// Stats returns current sequence statistics
	Stats() SequenceStats

	// Stop closes the sequence and shuts down its worker
	Stop() error
}

// FrameReader reads frames from one backing file, front to back, with seeking.
// A reader is used by one goroutine at a time.
type FrameReader interface {
	Path() string

	// Next reads the frame at Position and advances; io.EOF at the end of the file
	Next() (*model.Frame, error)

	// Current returns the frame last returned by Next together with the frames it depends on
	Current() (model.FrameGroup, error)

	// Seek positions the reader so that the next call to Next returns local frame n
	Seek(n int) error

	// Position returns the local index of the frame the next Next call returns
	Position() int

	// More reports whether another frame can be read
	More() bool

	// Size returns the frame count, SizeUnknown until the file was read to its end
	Size() int

	Rewind() error

	// RareFrames returns the latest frame of each rare stream seen so far
	RareFrames() ([]*model.Frame, error)

	Index() *Index

	Close() error
}

// FrameMixer tracks the latest frame of every stream and decides which of them
// a frame needs as context.
type FrameMixer interface {
	// Mix merges frame into the evolving context
	Mix(frame *model.Frame)

	// Dependencies returns the context frames a frame of stream s needs, in dependency order
	Dependencies(s model.Stream) []*model.Frame

	// Reset forgets all context
	Reset()
}

// Cache holds frame groups by global index. Implementations must be safe for
// concurrent use, the sequence reads from it while its worker writes.
type Cache interface {
	// Get retrieves a group; ok is false for indices never stored or already evicted
	Get(index int) (model.FrameGroup, bool)

	// Put stores a group
	Put(index int, group model.FrameGroup)

	Contains(index int) bool

	// Clear removes all groups
	Clear()

	// Size returns the span of the current window
	Size() int

	// MaxWindow returns the largest span the cache keeps
	MaxWindow() int

	// Window returns the current [first, last) range
	Window() (int, int)

	// Clone returns an independent snapshot
	Clone() Cache
}
