package motor

import "github.com/pb33f/frameseq/motor/model"

// DefaultMixer keeps the most recent frame of every stream.
type DefaultMixer struct {
	latest map[model.Stream]*model.Frame
}

func NewMixer() *DefaultMixer {
	return &DefaultMixer{latest: make(map[model.Stream]*model.Frame)}
}

func (m *DefaultMixer) Mix(frame *model.Frame) {
	if frame == nil || frame.Stream == model.StreamNone {
		return
	}
	m.latest[frame.Stream] = frame
}

// Dependencies returns the latest frame of every stream ordered before s
func (m *DefaultMixer) Dependencies(s model.Stream) []*model.Frame {
	var deps []*model.Frame
	for _, stream := range model.AllStreams {
		if stream.Order() >= s.Order() {
			break
		}
		if frame, ok := m.latest[stream]; ok {
			deps = append(deps, frame)
		}
	}
	return deps
}

func (m *DefaultMixer) Reset() {
	clear(m.latest)
}

// mixGroup merges inherited context with a group read from one file. Frames
// from the file win over inherited frames of the same stream.
func mixGroup(mixer FrameMixer, group model.FrameGroup) model.FrameGroup {
	primary := group.Primary()
	if primary == nil {
		return group
	}
	for _, dep := range group.Dependencies() {
		mixer.Mix(dep)
	}
	deps := mixer.Dependencies(primary.Stream)
	mixed := make(model.FrameGroup, 0, len(deps)+1)
	mixed = append(mixed, deps...)
	return append(mixed, primary)
}
