package motor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pb33f/frameseq/motor/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGroup(streams ...model.Stream) model.FrameGroup {
	group := make(model.FrameGroup, len(streams))
	for i, s := range streams {
		group[i] = &model.Frame{Stream: s}
	}
	return group
}

func TestFrameCache_PutGet(t *testing.T) {
	cache := NewFrameCache(10)

	group := testGroup(model.Geometry, model.Physics)
	cache.Put(3, group)

	got, ok := cache.Get(3)
	require.True(t, ok)
	if diff := cmp.Diff(group, got); diff != "" {
		t.Errorf("group mismatch (-want +got):\n%s", diff)
	}

	_, ok = cache.Get(4)
	assert.False(t, ok)
	_, ok = cache.Get(2)
	assert.False(t, ok)
}

func TestFrameCache_SequentialEviction(t *testing.T) {
	cache := NewFrameCache(3)
	for i := 0; i < 5; i++ {
		cache.Put(i, testGroup(model.Physics))
	}

	first, last := cache.Window()
	assert.Equal(t, 2, first)
	assert.Equal(t, 5, last)
	assert.Equal(t, 3, cache.Size())

	assert.False(t, cache.Contains(0))
	assert.False(t, cache.Contains(1))
	for i := 2; i < 5; i++ {
		assert.True(t, cache.Contains(i), "index %d", i)
	}
}

func TestFrameCache_PlaceholdersAreMisses(t *testing.T) {
	cache := NewFrameCache(10)
	cache.Put(0, testGroup(model.DAQ))
	cache.Put(4, testGroup(model.Physics))

	first, last := cache.Window()
	assert.Equal(t, 0, first)
	assert.Equal(t, 5, last)

	for i := 1; i < 4; i++ {
		_, ok := cache.Get(i)
		assert.False(t, ok, "gap %d must not be a hit", i)
	}
	assert.True(t, cache.Contains(0))
	assert.True(t, cache.Contains(4))
}

func TestFrameCache_GrowthForwardEvictsFront(t *testing.T) {
	cache := NewFrameCache(5)
	cache.Put(0, testGroup(model.Geometry))
	cache.Put(1, testGroup(model.DAQ))
	cache.Put(7, testGroup(model.Physics))

	first, last := cache.Window()
	assert.Equal(t, 3, first)
	assert.Equal(t, 8, last)
	assert.False(t, cache.Contains(0))
	assert.False(t, cache.Contains(1))
	assert.True(t, cache.Contains(7))
}

func TestFrameCache_GrowthBackwardEvictsBack(t *testing.T) {
	cache := NewFrameCache(5)
	cache.Put(10, testGroup(model.DAQ))
	cache.Put(11, testGroup(model.Physics))
	cache.Put(14, testGroup(model.Physics))
	cache.Put(8, testGroup(model.Geometry))

	first, last := cache.Window()
	assert.Equal(t, 8, first)
	assert.Equal(t, 13, last)
	assert.True(t, cache.Contains(8))
	assert.True(t, cache.Contains(10))
	assert.True(t, cache.Contains(11))
	assert.False(t, cache.Contains(14))
}

func TestFrameCache_JumpFarAway(t *testing.T) {
	cache := NewFrameCache(4)
	for i := 0; i < 4; i++ {
		cache.Put(i, testGroup(model.Physics))
	}
	cache.Put(100, testGroup(model.DAQ))

	first, last := cache.Window()
	assert.Equal(t, 97, first)
	assert.Equal(t, 101, last)
	for i := 0; i < 4; i++ {
		assert.False(t, cache.Contains(i))
	}
	assert.True(t, cache.Contains(100))
}

func TestFrameCache_Overwrite(t *testing.T) {
	cache := NewFrameCache(4)
	cache.Put(2, testGroup(model.DAQ))
	cache.Put(2, testGroup(model.Physics))

	got, ok := cache.Get(2)
	require.True(t, ok)
	assert.Equal(t, model.Physics, got.Primary().Stream)
	assert.Equal(t, 1, cache.Size())
}

func TestFrameCache_ClearAndClone(t *testing.T) {
	cache := NewFrameCache(4)
	cache.Put(0, testGroup(model.DAQ))
	cache.Put(1, testGroup(model.Physics))

	clone := cache.Clone()
	cache.Clear()

	assert.Equal(t, 0, cache.Size())
	assert.False(t, cache.Contains(0))

	assert.Equal(t, 2, clone.Size())
	assert.True(t, clone.Contains(1))
	assert.Equal(t, 4, clone.MaxWindow())

	clone.Put(2, testGroup(model.Physics))
	assert.False(t, cache.Contains(2))
}

func TestFrameCache_MinimumWindow(t *testing.T) {
	cache := NewFrameCache(0)
	assert.Equal(t, 1, cache.MaxWindow())

	cache.Put(5, testGroup(model.Physics))
	cache.Put(6, testGroup(model.Physics))
	assert.False(t, cache.Contains(5))
	assert.True(t, cache.Contains(6))
}

func TestFrameCache_ImplementsCache(t *testing.T) {
	var c Cache = NewFrameCache(2)
	c.Put(0, testGroup(model.Physics))
	_, ok := c.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Size())
	c.Clear()
	assert.Equal(t, 0, c.Size())
}
