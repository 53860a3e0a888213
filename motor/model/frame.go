package model

import "encoding/json"

// Item is one named, typed value stored in a frame.
type Item struct {
	// Name of the item, unique within its frame
	Name string `json:"name"`

	// Type is the producer's type tag for Value
	Type string `json:"type"`

	// Value is kept raw; frames are never interpreted by the sequence engine.
	Value json.RawMessage `json:"value,omitempty"`
}

// Frame is an ordered, named collection of items belonging to one stream.
type Frame struct {
	// Stream the frame belongs to
	Stream Stream `json:"stream"`

	// Items in the order they were written
	Items []Item `json:"items"`
}

// Get returns the item with the given name
func (f *Frame) Get(name string) (Item, bool) {
	for _, item := range f.Items {
		if item.Name == name {
			return item, true
		}
	}
	return Item{}, false
}

// Names returns item names in frame order
func (f *Frame) Names() []string {
	names := make([]string, len(f.Items))
	for i, item := range f.Items {
		names[i] = item.Name
	}
	return names
}

func (f *Frame) Len() int {
	return len(f.Items)
}

// FrameGroup is a primary frame together with the context frames it needs.
// Dependency frames come first, the primary frame is always last.
type FrameGroup []*Frame

// Primary returns the requested frame, or nil for an empty group
func (g FrameGroup) Primary() *Frame {
	if len(g) == 0 {
		return nil
	}
	return g[len(g)-1]
}

// Dependencies returns the context frames that precede the primary frame
func (g FrameGroup) Dependencies() []*Frame {
	if len(g) < 2 {
		return nil
	}
	return g[:len(g)-1]
}

func (g FrameGroup) Empty() bool {
	return len(g) == 0
}
