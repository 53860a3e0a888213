package motor

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pb33f/frameseq/motor/model"
)

type fileEntry struct {
	path      string
	reader    FrameReader
	sizeKnown bool
	size      int
	// rare-stream frames seen last in this file, inherited by the files after it
	lastRare []*model.Frame
}

// FileGroup maps global frame indices onto an ordered list of backing files.
// Files whose length is not known yet are scanned on demand. All methods are
// safe for concurrent use.
type FileGroup struct {
	mu       sync.Mutex
	files    []*fileEntry
	open     OpenFunc
	newMixer func() FrameMixer
	mixer    FrameMixer // reset by every GetFrame, guarded by mu
}

func NewFileGroup(open OpenFunc, newMixer func() FrameMixer) *FileGroup {
	return &FileGroup{
		open:     open,
		newMixer: newMixer,
		mixer:    newMixer(),
	}
}

func (g *FileGroup) Add(path string) error {
	reader, err := g.open(path)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.files = append(g.files, newFileEntry(path, reader))
	return nil
}

func newFileEntry(path string, reader FrameReader) *fileEntry {
	entry := &fileEntry{path: path, reader: reader}
	// readers opened on a complete index already know their size
	if size := reader.Size(); size != SizeUnknown {
		if rare, err := reader.RareFrames(); err == nil {
			entry.sizeKnown = true
			entry.size = size
			entry.lastRare = rare
		}
	}
	return entry
}

// RemoveLast closes and drops the most recently added file
func (g *FileGroup) RemoveLast() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.files) == 0 {
		return ErrNoFiles
	}
	last := g.files[len(g.files)-1]
	g.files = g.files[:len(g.files)-1]
	return last.reader.Close()
}

// Clear closes and drops every file
func (g *FileGroup) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var firstErr error
	for _, f := range g.files {
		if err := f.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.files = nil
	return firstErr
}

func (g *FileGroup) GetPaths() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	paths := make([]string, len(g.files))
	for i, f := range g.files {
		paths[i] = f.path
	}
	return paths
}

func (g *FileGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.files)
}

// GetSize returns the total frame count once every file was scanned, SizeUnknown before
func (g *FileGroup) GetSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	total := 0
	for _, f := range g.files {
		if !f.sizeKnown {
			return SizeUnknown
		}
		total += f.size
	}
	return total
}

// GetCurSize returns the frame count of the files scanned so far
func (g *FileGroup) GetCurSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	total := 0
	for _, f := range g.files {
		if f.sizeKnown {
			total += f.size
		}
	}
	return total
}

// GetFrame returns the frame at the global index with its context frames, or
// an empty group when index is past the last file.
func (g *FileGroup) GetFrame(index int) (model.FrameGroup, error) {
	if index < 0 {
		return nil, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	mixer := g.mixer
	mixer.Reset()
	remaining := index

	for _, f := range g.files {
		if f.sizeKnown {
			if remaining < f.size {
				if err := f.reader.Seek(remaining); err != nil {
					return nil, err
				}
				if _, err := f.reader.Next(); err != nil {
					return nil, fmt.Errorf("read frame %d of %s: %w", remaining, f.path, err)
				}
				return f.readCurrent(mixer)
			}
			f.inherit(mixer)
			remaining -= f.size
			continue
		}

		// the frame just read can be served without rewinding
		if remaining < f.reader.Position()-1 {
			if err := f.reader.Rewind(); err != nil {
				return nil, err
			}
		}

		found, err := f.scanTo(remaining)
		if err != nil {
			return nil, err
		}
		if found {
			return f.readCurrent(mixer)
		}

		if err := f.markKnown(); err != nil {
			return nil, err
		}
		f.inherit(mixer)
		remaining -= f.size
	}

	return nil, nil
}

// scanTo reads forward one frame at a time until local is the current frame.
// found is false when the file ended first.
func (f *fileEntry) scanTo(local int) (bool, error) {
	for f.reader.Position() <= local {
		if _, err := f.reader.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

func (f *fileEntry) readCurrent(mixer FrameMixer) (model.FrameGroup, error) {
	group, err := f.reader.Current()
	if err != nil {
		return nil, err
	}
	return mixGroup(mixer, group), nil
}

func (f *fileEntry) markKnown() error {
	rare, err := f.reader.RareFrames()
	if err != nil {
		return fmt.Errorf("collect context of %s: %w", f.path, err)
	}
	f.sizeKnown = true
	f.size = f.reader.Size()
	if f.size == SizeUnknown {
		// reader reached EOF through Next, so the size must be known by now
		f.size = f.reader.Position()
	}
	f.lastRare = rare
	return nil
}

func (f *fileEntry) inherit(mixer FrameMixer) {
	for _, frame := range f.lastRare {
		mixer.Mix(frame)
	}
}

// Clone reopens every file. Sizes, inherited context and complete indexes are shared.
func (g *FileGroup) Clone() (*FileGroup, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	clone := NewFileGroup(g.open, g.newMixer)
	for _, f := range g.files {
		reader, err := g.reopen(f)
		if err != nil {
			clone.Clear()
			return nil, fmt.Errorf("failed to clone %s: %w", f.path, err)
		}
		clone.files = append(clone.files, &fileEntry{
			path:      f.path,
			reader:    reader,
			sizeKnown: f.sizeKnown,
			size:      f.size,
			lastRare:  f.lastRare,
		})
	}
	return clone, nil
}

func (g *FileGroup) reopen(f *fileEntry) (FrameReader, error) {
	if idx := f.reader.Index(); idx != nil && idx.Complete {
		if _, ok := f.reader.(*FrameFile); ok {
			return OpenFrameFileWithIndex(f.path, idx)
		}
	}
	return g.open(f.path)
}
