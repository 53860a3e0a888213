package motor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pb33f/frameseq/motor/model"
)

const (
	// SizeUnknown is reported for a frame count that has not been discovered yet.
	SizeUnknown = -1

	DefaultPrefetchWindow = 10
	DefaultCacheWindow    = 1000
	DefaultQueueDepth     = 256
)

// FrameMetadata describes one frame of a file without holding its items.
type FrameMetadata struct {
	Offset    int64
	Length    int64
	Stream    model.Stream
	ItemCount int
	// Deps are the local indices of the context frames this frame depends on,
	// in dependency order.
	Deps []int
}

type Index struct {
	FilePath     string
	FileSize     int64 // bytes on disk
	ContentSize  int64 // bytes after decompression, known once Complete
	FileHash     string
	Compression  Compression
	IndexVersion int
	Frames       []*FrameMetadata
	TotalFrames  int
	StreamCounts map[model.Stream]int
	Complete     bool
	BuildTime    time.Duration
	stringShards [256]*stringTableShard
	shardInit    sync.Mutex
}

type stringTableShard struct {
	table map[string]string
	mu    sync.RWMutex
}

// uses 256 shards with xxhash distribution; item names and types repeat on every
// frame, so decoded frames share their strings
func (idx *Index) Intern(s string) string {
	if s == "" {
		return ""
	}

	h := xxhash.Sum64String(s)
	shardIdx := h % 256
	shard := idx.shard(shardIdx)

	shard.mu.RLock()
	if interned, exists := shard.table[s]; exists {
		shard.mu.RUnlock()
		return interned
	}
	shard.mu.RUnlock()

	// double-checked locking: check without write lock first, then with write lock to prevent race
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if interned, exists := shard.table[s]; exists {
		return interned
	}

	shard.table[s] = s
	return s
}

func (idx *Index) shard(shardIdx uint64) *stringTableShard {
	idx.shardInit.Lock()
	defer idx.shardInit.Unlock()
	if idx.stringShards[shardIdx] == nil {
		idx.stringShards[shardIdx] = &stringTableShard{
			table: make(map[string]string),
		}
	}
	return idx.stringShards[shardIdx]
}

// SequenceStats is a snapshot of engine counters.
type SequenceStats struct {
	ID               string
	CacheHits        int64
	CacheMisses      int64
	PendingHits      int64
	SyncReads        int64
	Prefetches       int64
	CancelledTasks   int64
	ReadErrors       int64
	FramesReturned   int64
	FramesFiltered   int64
	AverageReadTime  time.Duration
	CacheWindowFirst int
	CacheWindowLast  int
	CacheCapacity    int
}

// OpenFunc opens the reader for one backing file.
type OpenFunc func(path string) (FrameReader, error)

type SequenceOptions struct {
	// CacheWindow bounds the number of contiguous indices held in memory
	CacheWindow int
	// PrefetchWindow is how many indices ahead are queued after each pop, 0 disables prefetching
	PrefetchWindow int
	// QueueDepth is the capacity of the worker task channel
	QueueDepth int
	Logger     *slog.Logger
	// Opener defaults to OpenFrameFile
	Opener OpenFunc
	// NewMixer defaults to NewMixer
	NewMixer func() FrameMixer
	// NewCache builds the cache for a window of CacheWindow indices, defaults to NewFrameCache
	NewCache func(window int) Cache
}

func DefaultSequenceOptions() SequenceOptions {
	return SequenceOptions{
		CacheWindow:    DefaultCacheWindow,
		PrefetchWindow: DefaultPrefetchWindow,
		QueueDepth:     DefaultQueueDepth,
	}
}

func (o SequenceOptions) withDefaults() SequenceOptions {
	if o.CacheWindow <= 0 {
		o.CacheWindow = DefaultCacheWindow
	}
	if o.PrefetchWindow < 0 {
		o.PrefetchWindow = 0
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = DefaultQueueDepth
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Opener == nil {
		o.Opener = func(path string) (FrameReader, error) {
			return OpenFrameFile(path)
		}
	}
	if o.NewMixer == nil {
		o.NewMixer = func() FrameMixer { return NewMixer() }
	}
	if o.NewCache == nil {
		o.NewCache = func(window int) Cache { return NewFrameCache(window) }
	}
	return o
}
