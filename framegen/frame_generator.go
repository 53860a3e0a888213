package framegen

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/pb33f/frameseq/motor/model"
)

// FrameGenerator creates frames of a given stream with a header item and random payload items
type FrameGenerator struct {
	dict       *Dictionary
	payloadGen *PayloadGenerator
	rng        *rand.Rand
	run        int
	event      int
}

func NewFrameGenerator(dict *Dictionary, payloadGen *PayloadGenerator, rng *rand.Rand) *FrameGenerator {
	return &FrameGenerator{
		dict:       dict,
		payloadGen: payloadGen,
		rng:        rng,
		run:        rng.Intn(100000) + 100000,
	}
}

// header items carry the position of the frame so tests can tell frames apart
type frameHeader struct {
	Run    int    `json:"run"`
	Frame  int    `json:"frame"`
	Stream string `json:"stream"`
	Event  int    `json:"event,omitempty"`
}

// GenerateFrame creates frame number index of the output
func (fg *FrameGenerator) GenerateFrame(index int, stream model.Stream) (*model.Frame, error) {
	header := frameHeader{Run: fg.run, Frame: index, Stream: stream.Code()}
	if stream == model.DAQ {
		fg.event++
	}
	if stream == model.DAQ || stream == model.Physics {
		header.Event = fg.event
	}

	frame := &model.Frame{Stream: stream}
	if err := fg.add(frame, HeaderItem, "FrameHeader", header); err != nil {
		return nil, err
	}

	for name, value := range fg.streamItems(stream) {
		if err := fg.add(frame, name, "Payload", value); err != nil {
			return nil, err
		}
	}

	extra := fg.rng.Intn(3)
	for i := 0; i < extra; i++ {
		name := fmt.Sprintf("%s_%d", fg.dict.RandomWord(fg.rng), i)
		if err := fg.add(frame, name, "Object", fg.payloadGen.Object(0)); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func (fg *FrameGenerator) add(frame *model.Frame, name, typ string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", name, err)
	}
	frame.Items = append(frame.Items, model.Item{Name: name, Type: typ, Value: data})
	return nil
}

// streamItems returns the fixed items every frame of a stream carries
func (fg *FrameGenerator) streamItems(stream model.Stream) map[string]any {
	switch stream {
	case model.TrayInfo:
		return map[string]any{"TrayInfo": map[string]any{"tray": fg.rng.Intn(8), "host": fg.dict.RandomWord(fg.rng)}}
	case model.Geometry:
		return map[string]any{"Geometry": map[string]any{"strings": 86, "doms": 5160, "spacing": 125.0}}
	case model.Calibration:
		return map[string]any{"Calibration": map[string]any{"gain": 1e7 * (0.9 + fg.rng.Float64()*0.2), "temperature": -30 + fg.rng.Float64()*10}}
	case model.DetectorStatus:
		return map[string]any{"DetectorStatus": map[string]any{"enabled": 5000 + fg.rng.Intn(160), "trigger": "SMT8"}}
	case model.Simulation:
		return map[string]any{"SimulationInfo": map[string]any{"generator": fg.dict.RandomWord(fg.rng), "seed": fg.rng.Int63()}}
	case model.DAQ:
		return map[string]any{"Waveform": fg.payloadGen.Samples(16)}
	case model.Physics:
		return map[string]any{"Reconstruction": map[string]any{
			"energy":  fg.rng.ExpFloat64() * 1000,
			"zenith":  fg.rng.Float64() * 3.14159,
			"azimuth": fg.rng.Float64() * 6.28318,
		}}
	default:
		return nil
	}
}
