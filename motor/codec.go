package motor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pb33f/frameseq/motor/compression"
	"github.com/pb33f/frameseq/motor/model"
)

const (
	// MaxFrameSize is the largest single frame line accepted.
	// This prevents OOM from corrupted files that lose their line breaks.
	MaxFrameSize = 64 * 1024 * 1024 // 64MB
)

// Compression of a frame file, chosen by file extension.
type Compression = compression.Compression

const (
	CompressionNone = compression.None
	CompressionGzip = compression.Gzip
	CompressionZstd = compression.Zstd
)

// CompressionFromPath maps .gz to gzip and .zst/.zstd to zstd
func CompressionFromPath(path string) Compression {
	return compression.FromPath(path)
}

// decodeFrame parses one line; item names and types are interned into idx
func decodeFrame(line []byte, idx *Index) (*model.Frame, error) {
	var frame model.Frame
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	if frame.Stream == model.StreamNone {
		return nil, fmt.Errorf("decode failed: %w: frame without stream", model.ErrUnknownStream)
	}
	if idx != nil {
		for i := range frame.Items {
			frame.Items[i].Name = idx.Intern(frame.Items[i].Name)
			frame.Items[i].Type = idx.Intern(frame.Items[i].Type)
		}
	}
	return &frame, nil
}

// lineReader yields non-blank lines and tracks the offset of each one within
// the decompressed stream.
type lineReader struct {
	reader *bufio.Reader
	offset int64
}

func newLineReader(r io.Reader, offset int64) *lineReader {
	return &lineReader{reader: bufio.NewReaderSize(r, 64*1024), offset: offset}
}

func (l *lineReader) reset(r io.Reader, offset int64) {
	l.reader.Reset(r)
	l.offset = offset
}

// next returns the next non-blank line including its newline, and its start offset
func (l *lineReader) next() ([]byte, int64, error) {
	for {
		start := l.offset
		line, err := l.readLine()
		if err != nil {
			return nil, start, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return line, start, nil
	}
}

func (l *lineReader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := l.reader.ReadSlice('\n')
		l.offset += int64(len(chunk))
		line = append(line, chunk...)
		if len(line) > MaxFrameSize {
			return nil, fmt.Errorf("%w: line at offset %d", ErrFrameTooLarge, l.offset-int64(len(line)))
		}

		switch err {
		case nil:
			return line, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if len(line) == 0 {
				return nil, io.EOF
			}
			// last line without a trailing newline
			return line, nil
		default:
			return nil, err
		}
	}
}

// more skips whitespace and reports whether another line follows
func (l *lineReader) more() bool {
	for {
		b, err := l.reader.Peek(1)
		if err != nil {
			return false
		}
		switch b[0] {
		case ' ', '\n', '\r', '\t':
			_, _ = l.reader.ReadByte()
			l.offset++
		default:
			return true
		}
	}
}
