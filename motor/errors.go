package motor

import "errors"

var (
	// ErrNoFrame means the requested index lies past the end of every file.
	ErrNoFrame = errors.New("no frame at index")

	// ErrNotCached means the group for the current frame has left the cache window.
	// Either the caller held on to a frame for too long or the cache window is too small.
	ErrNotCached = errors.New("frame group no longer cached")

	ErrWorkerClosed  = errors.New("worker closed")
	ErrTaskCancelled = errors.New("task cancelled before it started")

	// ErrFrameTooLarge guards against corrupt files producing unbounded lines.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")

	ErrNoFiles = errors.New("no files in sequence")
)
