package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStream is returned when a stream name or code cannot be parsed.
var ErrUnknownStream = errors.New("unknown stream")

// Stream is the category tag carried by every frame.
// Values are declared in dependency order: a frame depends on the most recent
// frame of every stream declared before its own.
type Stream int

const (
	// StreamNone is the wildcard; it never appears on a frame read from disk.
	StreamNone Stream = iota
	TrayInfo
	Geometry
	Calibration
	DetectorStatus
	Simulation
	DAQ
	Physics
)

// AllStreams lists every concrete stream in dependency order.
var AllStreams = []Stream{TrayInfo, Geometry, Calibration, DetectorStatus, Simulation, DAQ, Physics}

var streamNames = [...]string{
	StreamNone:     "None",
	TrayInfo:       "TrayInfo",
	Geometry:       "Geometry",
	Calibration:    "Calibration",
	DetectorStatus: "DetectorStatus",
	Simulation:     "Simulation",
	DAQ:            "DAQ",
	Physics:        "Physics",
}

var streamCodes = [...]string{
	StreamNone:     "N",
	TrayInfo:       "I",
	Geometry:       "G",
	Calibration:    "C",
	DetectorStatus: "D",
	Simulation:     "S",
	DAQ:            "Q",
	Physics:        "P",
}

// String returns the long name of the stream
func (s Stream) String() string {
	if !s.valid() {
		return fmt.Sprintf("Stream(%d)", int(s))
	}
	return streamNames[s]
}

// Code returns the one-letter code of the stream
func (s Stream) Code() string {
	if !s.valid() {
		return "?"
	}
	return streamCodes[s]
}

// Order returns the dependency rank of the stream. Higher ranks depend on lower ones.
func (s Stream) Order() int {
	return int(s)
}

// IsRare reports whether frames of this stream are context that later frames
// inherit, and that therefore carries forward across file boundaries.
func (s Stream) IsRare() bool {
	switch s {
	case TrayInfo, Geometry, Calibration, DetectorStatus, Simulation:
		return true
	default:
		return false
	}
}

func (s Stream) valid() bool {
	return s >= StreamNone && s <= Physics
}

// ParseStream accepts a long name or a one-letter code, case-insensitive.
func ParseStream(s string) (Stream, error) {
	trimmed := strings.TrimSpace(s)
	for i := range streamNames {
		if strings.EqualFold(trimmed, streamNames[i]) || strings.EqualFold(trimmed, streamCodes[i]) {
			return Stream(i), nil
		}
	}
	return StreamNone, fmt.Errorf("%w: %q", ErrUnknownStream, s)
}

func (s Stream) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStream, int(s))
	}
	return []byte(streamNames[s]), nil
}

func (s *Stream) UnmarshalText(text []byte) error {
	parsed, err := ParseStream(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
