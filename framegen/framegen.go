package framegen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/pb33f/frameseq/motor/compression"
	"github.com/pb33f/frameseq/motor/model"
)

// HeaderItem is the name of the item every generated frame starts with
const HeaderItem = "FrameHeader"

// GenerateOptions configures frame file generation
type GenerateOptions struct {
	FrameCount      int    // number of frames when Layout is empty
	Layout          string // explicit stream codes, one per frame, e.g. "GCDQPQP"
	OmitContext     bool   // skip the leading context frames, files then rely on earlier files
	EventsPerDAQ    int    // max physics frames following each DAQ frame (default: 3)
	RecalibrateRate float64
	DictionaryPath  string
	MaxPayloadDepth int
	MaxPayloadNodes int
	Seed            int64  // 0 = use time
	Extension       string // file extension for Generate, selects compression
}

var DefaultGenerateOptions = GenerateOptions{
	FrameCount:      20,
	EventsPerDAQ:    3,
	RecalibrateRate: 0.02,
	MaxPayloadDepth: 2,
	MaxPayloadNodes: 6,
	Extension:       ".frames",
}

// GenerateResult describes a generated file
type GenerateResult struct {
	FilePath     string
	TotalFrames  int
	Streams      []model.Stream // stream of every frame, in order
	StreamCounts map[model.Stream]int
}

func (o GenerateOptions) withDefaults() GenerateOptions {
	if o.EventsPerDAQ <= 0 {
		o.EventsPerDAQ = DefaultGenerateOptions.EventsPerDAQ
	}
	if o.MaxPayloadDepth == 0 {
		o.MaxPayloadDepth = DefaultGenerateOptions.MaxPayloadDepth
	}
	if o.MaxPayloadNodes == 0 {
		o.MaxPayloadNodes = DefaultGenerateOptions.MaxPayloadNodes
	}
	if o.Extension == "" {
		o.Extension = DefaultGenerateOptions.Extension
	}
	return o
}

// Generate writes a frame file to a new temp file
func Generate(opts GenerateOptions) (*GenerateResult, error) {
	opts = opts.withDefaults()

	tmp, err := os.CreateTemp("", "framegen-*"+opts.Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()

	result, err := GenerateToFile(path, opts)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return result, nil
}

// GenerateToFile writes a frame file to path, compressed according to its
// extension. The file is replaced atomically.
func GenerateToFile(path string, opts GenerateOptions) (*GenerateResult, error) {
	frames, err := GenerateInMemory(opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteFrames(&buf, path, frames); err != nil {
		return nil, err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return nil, fmt.Errorf("failed to write frames: %w", err)
	}

	result := &GenerateResult{
		FilePath:     path,
		TotalFrames:  len(frames),
		StreamCounts: make(map[model.Stream]int),
	}
	for _, frame := range frames {
		result.Streams = append(result.Streams, frame.Stream)
		result.StreamCounts[frame.Stream]++
	}
	return result, nil
}

// GenerateInMemory creates frames without writing them anywhere
func GenerateInMemory(opts GenerateOptions) ([]*model.Frame, error) {
	opts = opts.withDefaults()

	// local rng, the global one is left alone
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	dict, err := LoadDictionary(opts.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionary: %w", err)
	}

	streams, err := plan(opts, rng)
	if err != nil {
		return nil, err
	}

	frameGen := NewFrameGenerator(dict, NewPayloadGenerator(dict, opts.MaxPayloadDepth, opts.MaxPayloadNodes, rng), rng)
	frames := make([]*model.Frame, 0, len(streams))
	for i, stream := range streams {
		frame, err := frameGen.GenerateFrame(i, stream)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// plan decides the stream of every frame
func plan(opts GenerateOptions, rng *rand.Rand) ([]model.Stream, error) {
	if opts.Layout != "" {
		streams := make([]model.Stream, 0, len(opts.Layout))
		for _, code := range strings.Split(opts.Layout, "") {
			stream, err := model.ParseStream(code)
			if err != nil {
				return nil, fmt.Errorf("invalid layout %q: %w", opts.Layout, err)
			}
			if stream == model.StreamNone {
				return nil, fmt.Errorf("invalid layout %q: %w", opts.Layout, model.ErrUnknownStream)
			}
			streams = append(streams, stream)
		}
		return streams, nil
	}

	count := opts.FrameCount
	streams := make([]model.Stream, 0, count)
	if !opts.OmitContext {
		for _, s := range []model.Stream{model.TrayInfo, model.Geometry, model.Calibration, model.DetectorStatus} {
			if len(streams) < count {
				streams = append(streams, s)
			}
		}
	}

	for len(streams) < count {
		if opts.RecalibrateRate > 0 && rng.Float64() < opts.RecalibrateRate {
			streams = append(streams, model.Calibration)
			continue
		}
		streams = append(streams, model.DAQ)
		events := rng.Intn(opts.EventsPerDAQ) + 1
		for i := 0; i < events && len(streams) < count; i++ {
			streams = append(streams, model.Physics)
		}
	}
	return streams, nil
}

// WriteFrames encodes frames as newline-delimited JSON, compressed according to
// the extension of name (.gz, .zst, .zstd)
func WriteFrames(w io.Writer, name string, frames []*model.Frame) error {
	out, err := compression.NewWriter(compression.FromPath(name), w)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for i, frame := range frames {
		if err := enc.Encode(frame); err != nil {
			out.Close()
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush frames: %w", err)
	}
	return nil
}
