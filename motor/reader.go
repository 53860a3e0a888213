package motor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pb33f/frameseq/motor/compression"
	"github.com/pb33f/frameseq/motor/model"
)

// decoded context frames kept per file; dependencies are re-read constantly
// while the frequent frames that need them are not
const dependencyCacheSize = 128

// FrameFile reads a newline-delimited JSON frame file, optionally gzip or
// zstd compressed. It indexes frames as it meets them, so seeking backwards
// into plain files is a byte seek and dependencies are looked up by offset.
type FrameFile struct {
	path        string
	compression Compression

	file   *os.File      // sequential handle
	decomp io.ReadCloser // wraps file
	lines  *lineReader

	randomAccess *os.File // ReadAt handle for dependency lookups in plain files

	position   int
	current    *model.Frame
	currentPos int

	index     *Index
	hash      *xxhash.Digest
	latest    map[model.Stream]int // latest local index per stream among indexed frames
	openedAt  time.Time
	depFrames *lru.Cache[int, *model.Frame]
}

// OpenFrameFile opens path for reading; compression is chosen from the extension
func OpenFrameFile(path string) (*FrameFile, error) {
	return OpenFrameFileWithIndex(path, nil)
}

// OpenFrameFileWithIndex reuses a complete index built by an earlier reader of
// the same file. Incomplete indexes are ignored.
func OpenFrameFileWithIndex(path string, index *Index) (*FrameFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("provided path is a directory, not a file: %s", path)
	}

	codec := CompressionFromPath(path)
	decomp, err := compression.NewReader(codec, file)
	if err != nil {
		file.Close()
		return nil, err
	}

	depFrames, err := lru.New[int, *model.Frame](dependencyCacheSize)
	if err != nil {
		decomp.Close()
		file.Close()
		return nil, err
	}

	f := &FrameFile{
		path:        path,
		compression: codec,
		file:        file,
		decomp:      decomp,
		lines:       newLineReader(decomp, 0),
		currentPos:  -1,
		hash:        xxhash.New(),
		latest:      make(map[model.Stream]int),
		openedAt:    time.Now(),
		depFrames:   depFrames,
	}

	if index != nil && index.Complete && index.FilePath == path {
		f.index = index
		for i, meta := range index.Frames {
			f.latest[meta.Stream] = i
		}
	} else {
		f.index = newIndex(path, codec, info.Size())
	}

	return f, nil
}

func (f *FrameFile) Path() string {
	return f.path
}

func (f *FrameFile) Index() *Index {
	return f.index
}

func (f *FrameFile) Position() int {
	return f.position
}

func (f *FrameFile) Size() int {
	if f.index.Complete {
		return f.index.TotalFrames
	}
	return SizeUnknown
}

func (f *FrameFile) More() bool {
	if f.position < len(f.index.Frames) {
		return true
	}
	if f.index.Complete {
		return false
	}
	if f.lines.more() {
		return true
	}
	f.markComplete()
	return false
}

func (f *FrameFile) Next() (*model.Frame, error) {
	return f.advance(true)
}

// advance reads the line at position. Frames already indexed are only decoded
// when decode is set; new frames are always decoded to be indexed.
func (f *FrameFile) advance(decode bool) (*model.Frame, error) {
	line, start, err := f.lines.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			f.markComplete()
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame %d of %s: %w", f.position, f.path, err)
	}

	n := f.position
	indexed := n < len(f.index.Frames)

	var frame *model.Frame
	if decode || !indexed {
		frame, err = decodeFrame(line, f.index)
		if err != nil {
			return nil, fmt.Errorf("frame %d of %s: %w", n, f.path, err)
		}
	}
	if !indexed {
		f.indexFrame(frame, start, line)
	}

	f.position++
	if frame != nil {
		f.current = frame
		f.currentPos = n
		if frame.Stream != model.Physics {
			f.depFrames.Add(n, frame)
		}
	}
	return frame, nil
}

func (f *FrameFile) indexFrame(frame *model.Frame, offset int64, line []byte) {
	n := len(f.index.Frames)

	var deps []int
	for _, s := range model.AllStreams {
		if s.Order() >= frame.Stream.Order() {
			break
		}
		if local, ok := f.latest[s]; ok {
			deps = append(deps, local)
		}
	}

	f.index.Frames = append(f.index.Frames, &FrameMetadata{
		Offset:    offset,
		Length:    int64(len(line)),
		Stream:    frame.Stream,
		ItemCount: len(frame.Items),
		Deps:      deps,
	})
	f.index.StreamCounts[frame.Stream]++
	f.latest[frame.Stream] = n
	f.hash.Write(line)
}

func (f *FrameFile) markComplete() {
	if f.index.Complete || f.position != len(f.index.Frames) {
		return
	}
	f.index.Complete = true
	f.index.TotalFrames = len(f.index.Frames)
	f.index.ContentSize = f.lines.offset
	f.index.FileHash = fmt.Sprintf("%x", f.hash.Sum64())
	f.index.BuildTime = time.Since(f.openedAt)
}

func (f *FrameFile) Current() (model.FrameGroup, error) {
	if f.current == nil {
		return nil, fmt.Errorf("no current frame in %s", f.path)
	}

	meta := f.index.Frames[f.currentPos]
	group := make(model.FrameGroup, 0, len(meta.Deps)+1)
	for _, local := range meta.Deps {
		dep, err := f.frameAt(local)
		if err != nil {
			return nil, fmt.Errorf("dependency %d of frame %d: %w", local, f.currentPos, err)
		}
		group = append(group, dep)
	}
	return append(group, f.current), nil
}

// frameAt loads an indexed frame without moving the sequential position
func (f *FrameFile) frameAt(local int) (*model.Frame, error) {
	if frame, ok := f.depFrames.Get(local); ok {
		return frame, nil
	}
	if local == f.currentPos && f.current != nil {
		return f.current, nil
	}

	meta := f.index.Frames[local]

	var line []byte
	var err error
	if f.compression == CompressionNone {
		line, err = f.readAt(meta)
	} else {
		line, err = f.scanTo(local)
	}
	if err != nil {
		return nil, err
	}

	frame, err := decodeFrame(line, f.index)
	if err != nil {
		return nil, fmt.Errorf("frame %d of %s: %w", local, f.path, err)
	}
	f.depFrames.Add(local, frame)
	return frame, nil
}

func (f *FrameFile) readAt(meta *FrameMetadata) ([]byte, error) {
	if meta.Length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, meta.Length)
	}
	if f.randomAccess == nil {
		ra, err := os.Open(f.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		f.randomAccess = ra
	}

	buf := make([]byte, meta.Length)
	n, err := f.randomAccess.ReadAt(buf, meta.Offset)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == meta.Length) {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	return buf, nil
}

// scanTo decompresses a private stream up to local; compressed files cannot seek
func (f *FrameFile) scanTo(local int) ([]byte, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	decomp, err := compression.NewReader(f.compression, file)
	if err != nil {
		return nil, err
	}
	defer decomp.Close()

	lines := newLineReader(decomp, 0)
	for i := 0; ; i++ {
		line, _, err := lines.next()
		if err != nil {
			return nil, fmt.Errorf("scan to frame %d of %s: %w", local, f.path, err)
		}
		if i == local {
			return line, nil
		}
	}
}

func (f *FrameFile) Seek(n int) error {
	if n < 0 {
		return fmt.Errorf("seek to negative frame %d", n)
	}
	if n == f.position {
		return nil
	}

	if f.compression == CompressionNone {
		// byte seek as far as the index reaches, scan the rest
		target := min(n, len(f.index.Frames))
		if target != f.position {
			offset := f.indexedEnd()
			if target < len(f.index.Frames) {
				offset = f.index.Frames[target].Offset
			}
			if _, err := f.file.Seek(offset, io.SeekStart); err != nil {
				return fmt.Errorf("seek failed: %w", err)
			}
			f.lines.reset(f.decomp, offset)
			f.position = target
		}
	} else if n < f.position {
		if err := f.Rewind(); err != nil {
			return err
		}
	}
	for f.position < n {
		if _, err := f.advance(false); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("seek to frame %d of %s: %w", n, f.path, ErrNoFrame)
			}
			return err
		}
	}
	return nil
}

func (f *FrameFile) indexedEnd() int64 {
	if len(f.index.Frames) == 0 {
		return 0
	}
	last := f.index.Frames[len(f.index.Frames)-1]
	return last.Offset + last.Length
}

func (f *FrameFile) Rewind() error {
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind failed: %w", err)
	}

	if f.compression != CompressionNone {
		if err := f.decomp.Close(); err != nil {
			return fmt.Errorf("rewind failed: %w", err)
		}
		decomp, err := compression.NewReader(f.compression, f.file)
		if err != nil {
			return err
		}
		f.decomp = decomp
	}

	f.lines.reset(f.decomp, 0)
	f.position = 0
	f.current = nil
	f.currentPos = -1
	return nil
}

func (f *FrameFile) RareFrames() ([]*model.Frame, error) {
	var frames []*model.Frame
	for _, s := range model.AllStreams {
		if !s.IsRare() {
			continue
		}
		local, ok := f.latest[s]
		if !ok {
			continue
		}
		frame, err := f.frameAt(local)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// Close releases both file handles
func (f *FrameFile) Close() error {
	var firstErr error
	if f.decomp != nil {
		if err := f.decomp.Close(); err != nil {
			firstErr = err
		}
	}
	if err := f.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if f.randomAccess != nil {
		if err := f.randomAccess.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		f.randomAccess = nil
	}
	return firstErr
}
