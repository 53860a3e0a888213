package motor

import (
	"sync"

	"github.com/pb33f/frameseq/motor/model"
)

var _ Cache = (*FrameCache)(nil)

type cacheSlot struct {
	group  model.FrameGroup
	filled bool
}

// FrameCache is a bounded sliding window over contiguous frame indices.
// The window [first, first+len(slots)) never has gaps; slots that were never
// filled are placeholders. When the span grows past maxWindow the edge
// opposite the growth is evicted.
type FrameCache struct {
	mu        sync.RWMutex
	first     int
	slots     []cacheSlot
	maxWindow int
}

func NewFrameCache(maxWindow int) *FrameCache {
	if maxWindow < 1 {
		maxWindow = 1
	}
	return &FrameCache{maxWindow: maxWindow}
}

func (c *FrameCache) Put(index int, group model.FrameGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot := cacheSlot{group: group, filled: true}

	if len(c.slots) == 0 {
		c.first = index
		c.slots = append(c.slots[:0], slot)
		return
	}

	lo, hi := c.first, c.first+len(c.slots)
	switch {
	case index >= lo && index < hi:
		c.slots[index-lo] = slot
		return

	case index == hi:
		// sequential reads land here, keep it allocation-light
		c.slots = append(c.slots, slot)
		if over := len(c.slots) - c.maxWindow; over > 0 {
			c.slots = c.slots[over:]
			c.first += over
		}
		return

	case index < lo:
		lo = index
		if hi-lo > c.maxWindow {
			hi = lo + c.maxWindow
		}

	default:
		hi = index + 1
		if hi-lo > c.maxWindow {
			lo = hi - c.maxWindow
		}
	}

	slots := make([]cacheSlot, hi-lo)
	oldHi := c.first + len(c.slots)
	for i := max(lo, c.first); i < min(hi, oldHi); i++ {
		slots[i-lo] = c.slots[i-c.first]
	}
	slots[index-lo] = slot

	c.first = lo
	c.slots = slots
}

// Get returns the group stored at index. ok is false for indices outside the
// window and for placeholders, so a stored empty group is distinguishable
// from one that was never fetched or has been evicted.
func (c *FrameCache) Get(index int) (model.FrameGroup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < c.first || index >= c.first+len(c.slots) {
		return nil, false
	}
	slot := c.slots[index-c.first]
	return slot.group, slot.filled
}

func (c *FrameCache) Contains(index int) bool {
	_, ok := c.Get(index)
	return ok
}

// Window returns the current [first, last) range
func (c *FrameCache) Window() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.first, c.first + len(c.slots)
}

func (c *FrameCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}

func (c *FrameCache) MaxWindow() int {
	return c.maxWindow
}

func (c *FrameCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.first = 0
	c.slots = nil
}

// Clone returns an independent snapshot; frame groups are shared, they are never mutated.
func (c *FrameCache) Clone() Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &FrameCache{
		first:     c.first,
		maxWindow: c.maxWindow,
	}
	if len(c.slots) > 0 {
		clone.slots = make([]cacheSlot, len(c.slots))
		copy(clone.slots, c.slots)
	}
	return clone
}
