package motor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pb33f/frameseq/motor/model"
)

type atomicStats struct {
	cacheHits      int64
	cacheMisses    int64
	pendingHits    int64
	syncReads      int64
	prefetches     int64
	cancelledTasks int64
	readErrors     int64
	framesReturned int64
	framesFiltered int64
	reads          int64
	totalReadNs    int64
}

// engine owns the read position, the cache, the pending reads and the single
// worker that performs all file I/O. Public operations hold mu for their whole
// duration, including while waiting on the worker; worker tasks only touch the
// cache and the file group, which lock themselves.
type engine struct {
	mu sync.Mutex

	id      string
	options SequenceOptions
	logger  *slog.Logger

	files   *FileGroup
	cache   Cache
	worker  *Worker[model.FrameGroup]
	pending map[int]*Future[model.FrameGroup]

	next    int
	current int
	stream  model.Stream

	stats atomicStats
}

func newEngine(options SequenceOptions) *engine {
	options = options.withDefaults()
	return newEngineWith(options,
		NewFileGroup(options.Opener, options.NewMixer),
		options.NewCache(options.CacheWindow))
}

func newEngineWith(options SequenceOptions, files *FileGroup, cache Cache) *engine {
	id := uuid.NewString()
	return &engine{
		id:      id,
		options: options,
		logger:  options.Logger.With("sequence", id),
		files:   files,
		cache:   cache,
		worker:  NewWorker[model.FrameGroup](options.QueueDepth),
		pending: make(map[int]*Future[model.FrameGroup]),
		current: -1,
	}
}

func (e *engine) addFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// reads that ran off the end before this file existed must not be reused
	if len(e.pending) > 0 {
		e.cancel()
		if err := e.worker.Sync(context.Background()); err != nil {
			return err
		}
		clear(e.pending)
	}

	if err := e.files.Add(path); err != nil {
		return err
	}
	e.logger.Debug("file added", "path", path, "files", e.files.Len())
	return nil
}

// read runs on the worker goroutine
func (e *engine) read(index int) (model.FrameGroup, error) {
	start := time.Now()
	group, err := e.files.GetFrame(index)
	atomic.AddInt64(&e.stats.reads, 1)
	atomic.AddInt64(&e.stats.totalReadNs, int64(time.Since(start)))
	if err != nil {
		atomic.AddInt64(&e.stats.readErrors, 1)
		return nil, err
	}
	// empty groups are not cached, a file added later may fill the index
	if !group.Empty() {
		e.cache.Put(index, group)
	}
	return group, nil
}

func (e *engine) submit(index int) *Future[model.FrameGroup] {
	future := e.worker.Submit(func() (model.FrameGroup, error) {
		return e.read(index)
	})
	e.pending[index] = future
	return future
}

// fetch resolves index from the cache, then from an in-flight read, and
// finally through a new read queued behind any prefetches.
func (e *engine) fetch(ctx context.Context, index int) (model.FrameGroup, error) {
	if group, ok := e.cache.Get(index); ok {
		atomic.AddInt64(&e.stats.cacheHits, 1)
		return group, nil
	}
	atomic.AddInt64(&e.stats.cacheMisses, 1)

	future, ok := e.pending[index]
	if ok {
		atomic.AddInt64(&e.stats.pendingHits, 1)
	} else {
		atomic.AddInt64(&e.stats.syncReads, 1)
		future = e.submit(index)
	}

	group, err := future.Wait(ctx)
	if ctx.Err() != nil && !future.Done() {
		// the read keeps running, a later call picks it up from pending
		return nil, err
	}
	delete(e.pending, index)
	if err != nil {
		return nil, fmt.Errorf("read frame %d: %w", index, err)
	}
	return group, nil
}

// prefetch queues reads for up to PrefetchWindow indices starting at from,
// stopping at the total size once it is known.
func (e *engine) prefetch(from int) {
	e.prune()
	size := e.files.GetSize()
	for i := from; i < from+e.options.PrefetchWindow; i++ {
		if size != SizeUnknown && i >= size {
			break
		}
		e.prefetchOne(i)
	}
}

func (e *engine) prefetchOne(index int) {
	if _, ok := e.pending[index]; ok {
		return
	}
	if e.cache.Contains(index) {
		return
	}
	atomic.AddInt64(&e.stats.prefetches, 1)
	e.submit(index)
}

// prune drops finished reads from the pending table; their results are in the cache
func (e *engine) prune() {
	for index, future := range e.pending {
		if future.Done() {
			delete(e.pending, index)
		}
	}
}

func (e *engine) more(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	group, err := e.fetch(ctx, e.next)
	if err != nil {
		e.logger.Warn("failed to read frame", "index", e.next, "error", err)
		return false
	}
	return !group.Empty()
}

func (e *engine) pop(ctx context.Context, filter model.Stream) (*model.Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		index := e.next
		group, err := e.fetch(ctx, index)
		if err != nil {
			return nil, err
		}
		if group.Empty() {
			return nil, fmt.Errorf("pop frame %d: %w", index, ErrNoFrame)
		}
		e.next++

		primary := group.Primary()
		if filter != model.StreamNone && primary.Stream != filter {
			atomic.AddInt64(&e.stats.framesFiltered, 1)
			continue
		}

		e.current = index
		e.stream = primary.Stream
		atomic.AddInt64(&e.stats.framesReturned, 1)
		e.prefetch(e.next)
		return primary, nil
	}
}

func (e *engine) seek(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 {
		index = 0
	}
	e.next = index
	e.prune()

	// only explore as far as the files scanned so far reach
	for i := index; i < index+e.options.PrefetchWindow; i++ {
		if i > e.files.GetCurSize() {
			break
		}
		e.prefetchOne(i)
	}
}

func (e *engine) rewind() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancel()
	e.next = 0
	e.current = -1
	e.stream = model.StreamNone
	e.prefetch(0)
	e.logger.Debug("sequence rewound")
}

func (e *engine) cancel() {
	cancelled := e.worker.CancelPending()
	atomic.AddInt64(&e.stats.cancelledTasks, int64(cancelled))
	e.prune()
	if cancelled > 0 {
		e.logger.Debug("cancelled pending reads", "count", cancelled)
	}
}

// reset cancels queued reads and waits for the running one, so nothing lands
// in the cache after it was cleared
func (e *engine) reset() error {
	e.cancel()
	if err := e.worker.Sync(context.Background()); err != nil {
		return err
	}
	e.cache.Clear()
	clear(e.pending)
	return nil
}

func (e *engine) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeLocked()
}

func (e *engine) closeLocked() error {
	if err := e.reset(); err != nil {
		return err
	}
	e.next = 0
	e.current = -1
	e.stream = model.StreamNone
	if err := e.files.Clear(); err != nil {
		return fmt.Errorf("failed to close files: %w", err)
	}
	e.logger.Debug("sequence closed")
	return nil
}

func (e *engine) closeLastFile() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.reset(); err != nil {
		return err
	}
	if err := e.files.RemoveLast(); err != nil {
		return err
	}
	e.logger.Debug("last file closed", "files", e.files.Len())
	return nil
}

func (e *engine) stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.closeLocked()
	e.worker.Close()
	return err
}

func (e *engine) currentGroup() (model.FrameGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current < 0 {
		return nil, fmt.Errorf("no frame popped yet: %w", ErrNoFrame)
	}
	group, ok := e.cache.Get(e.current)
	if !ok {
		first, last := e.cache.Window()
		return nil, fmt.Errorf("frame %d outside cache window [%d, %d): %w", e.current, first, last, ErrNotCached)
	}
	return group, nil
}

func (e *engine) mixedFrames() ([]*model.Frame, error) {
	group, err := e.currentGroup()
	if err != nil {
		return nil, err
	}
	return group.Dependencies(), nil
}

func (e *engine) frameno() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *engine) currentStream() model.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream
}

func (e *engine) snapshot() SequenceStats {
	stats := SequenceStats{
		ID:             e.id,
		CacheHits:      atomic.LoadInt64(&e.stats.cacheHits),
		CacheMisses:    atomic.LoadInt64(&e.stats.cacheMisses),
		PendingHits:    atomic.LoadInt64(&e.stats.pendingHits),
		SyncReads:      atomic.LoadInt64(&e.stats.syncReads),
		Prefetches:     atomic.LoadInt64(&e.stats.prefetches),
		CancelledTasks: atomic.LoadInt64(&e.stats.cancelledTasks),
		ReadErrors:     atomic.LoadInt64(&e.stats.readErrors),
		FramesReturned: atomic.LoadInt64(&e.stats.framesReturned),
		FramesFiltered: atomic.LoadInt64(&e.stats.framesFiltered),
	}
	if reads := atomic.LoadInt64(&e.stats.reads); reads > 0 {
		stats.AverageReadTime = time.Duration(atomic.LoadInt64(&e.stats.totalReadNs) / reads)
	}
	stats.CacheWindowFirst, stats.CacheWindowLast = e.cache.Window()
	stats.CacheCapacity = e.cache.MaxWindow()
	return stats
}

// clone copies files, cache and position; the copy starts with an idle worker
// and nothing pending
func (e *engine) clone() (*engine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	files, err := e.files.Clone()
	if err != nil {
		return nil, err
	}
	c := newEngineWith(e.options, files, e.cache.Clone())
	c.next = e.next
	c.current = e.current
	c.stream = e.stream
	return c, nil
}

func isNoFrame(err error) bool {
	return errors.Is(err, ErrNoFrame)
}
