package motor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pb33f/frameseq/motor/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSequence(t *testing.T, paths []string, mutate ...func(*SequenceOptions)) *FrameSequence {
	t.Helper()
	opts := DefaultSequenceOptions()
	opts.Logger = slog.New(slog.DiscardHandler)
	for _, m := range mutate {
		m(&opts)
	}
	seq, err := OpenFrameSequence(paths, opts)
	require.NoError(t, err)
	t.Cleanup(func() { seq.Stop() })
	return seq
}

func drain(t *testing.T, seq *FrameSequence, filter model.Stream) []*model.Frame {
	t.Helper()
	ctx := context.Background()
	var frames []*model.Frame
	for seq.More(ctx) {
		frame, err := seq.Pop(ctx, filter)
		if errors.Is(err, ErrNoFrame) {
			// filtered pops can run off the end
			break
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
	return frames
}

func TestFrameSequence_DrainCountsEveryFile(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	total := 0
	for i, n := range []int{13, 1, 27, 8} {
		path, result, err := generateRun(dir, "run-"+string(rune('a'+i))+".frames", n, int64(i+1))
		require.NoError(t, err)
		paths = append(paths, path)
		total += result.TotalFrames
	}

	seq := openTestSequence(t, paths)
	frames := drain(t, seq, model.StreamNone)

	assert.Len(t, frames, total)
	assert.Equal(t, total, seq.GetSize())
	assert.Equal(t, total-1, seq.GetFrameno())
}

func TestFrameSequence_TwoFilesOfFive(t *testing.T) {
	for _, c := range compressions {
		t.Run(c.name, func(t *testing.T) {
			paths, err := generateTwoFileRun(t.TempDir(), c.ext)
			require.NoError(t, err)
			ctx := context.Background()

			seq := openTestSequence(t, paths)
			assert.Equal(t, SizeUnknown, seq.GetSize())
			assert.Equal(t, paths, seq.GetPaths())

			frames := drain(t, seq, model.StreamNone)
			require.Len(t, frames, 10)
			assert.Equal(t, 10, seq.GetSize())
			assert.Equal(t, 10, seq.GetCurSize())

			frame, err := seq.At(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, model.DAQ, frame.Stream)
			assert.Equal(t, frames[7], frame)
			assert.Equal(t, 7, seq.GetFrameno())

			// third frame of the second file, context from the first
			deps, err := seq.GetMixedFrames()
			require.NoError(t, err)
			assert.Equal(t,
				[]model.Stream{model.Geometry, model.Calibration, model.DetectorStatus},
				streamsOf(deps))
			if diff := cmp.Diff(frames[0:3], deps); diff != "" {
				t.Errorf("carried context mismatch (-want +got):\n%s", diff)
			}

			group, err := seq.GetCurrentGroup()
			require.NoError(t, err)
			assert.Equal(t, frame, group.Primary())
			assert.Len(t, group, 4)
		})
	}
}

func TestFrameSequence_SizeUnknownUntilScanned(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)

	seq := openTestSequence(t, paths, func(o *SequenceOptions) { o.PrefetchWindow = 0 })
	ctx := context.Background()

	assert.Equal(t, SizeUnknown, seq.GetSize())
	assert.Equal(t, 0, seq.GetCurSize())

	_, err = seq.Pop(ctx, model.StreamNone)
	require.NoError(t, err)
	assert.Equal(t, SizeUnknown, seq.GetSize())

	frame, err := seq.At(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, model.Physics, frame.Stream)
	assert.Equal(t, 5, seq.GetCurSize(), "the first file was scanned to reach the second")

	assert.False(t, seq.More(ctx))
	assert.Equal(t, 10, seq.GetSize())
}

func TestFrameSequence_SeekMatchesSequentialPops(t *testing.T) {
	dir := t.TempDir()
	first, _, err := generateRun(dir, "a.frames.zst", 30, 5)
	require.NoError(t, err)
	second, _, err := generateRun(dir, "b.frames", 25, 6)
	require.NoError(t, err)
	paths := []string{first, second}
	ctx := context.Background()

	for _, n := range []int{0, 4, 29, 30, 31, 54} {
		sequential := openTestSequence(t, paths)
		var want *model.Frame
		for i := 0; i <= n; i++ {
			want, err = sequential.Pop(ctx, model.StreamNone)
			require.NoError(t, err)
		}
		wantDeps, err := sequential.GetMixedFrames()
		require.NoError(t, err)

		random := openTestSequence(t, paths)
		random.Seek(n)
		got, err := random.Pop(ctx, model.StreamNone)
		require.NoError(t, err)
		gotDeps, err := random.GetMixedFrames()
		require.NoError(t, err)

		assert.Equal(t, want, got, "frame %d", n)
		assert.Equal(t, wantDeps, gotDeps, "context of frame %d", n)
		assert.Equal(t, n, random.GetFrameno())
	}
}

func TestFrameSequence_StreamFilter(t *testing.T) {
	dir := t.TempDir()
	first, _, err := generateRun(dir, "a.frames", 40, 21)
	require.NoError(t, err)
	second, err := generateTestFrames(dir, "b.frames.gz", "QPQPCPQQP", 22)
	require.NoError(t, err)
	paths := []string{first, second}
	ctx := context.Background()

	all := drain(t, openTestSequence(t, paths), model.StreamNone)
	wantPhysics := 0
	for _, f := range all {
		if f.Stream == model.Physics {
			wantPhysics++
		}
	}
	require.Positive(t, wantPhysics)

	seq := openTestSequence(t, paths)
	got := 0
	for {
		frame, err := seq.Pop(ctx, model.Physics)
		if errors.Is(err, ErrNoFrame) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, model.Physics, frame.Stream)
		assert.Equal(t, model.Physics, seq.GetStream())
		assert.Equal(t, model.Physics, all[seq.GetFrameno()].Stream)
		got++
	}
	assert.Equal(t, wantPhysics, got)

	stats := seq.Stats()
	assert.Equal(t, int64(wantPhysics), stats.FramesReturned)
	assert.Equal(t, int64(len(all)-wantPhysics), stats.FramesFiltered)
}

func TestFrameSequence_RewindReplays(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), ".zst")
	require.NoError(t, err)
	ctx := context.Background()

	seq := openTestSequence(t, paths)
	first, err := seq.Pop(ctx, model.StreamNone)
	require.NoError(t, err)
	drain(t, seq, model.StreamNone)

	seq.Rewind()
	assert.Equal(t, -1, seq.GetFrameno())
	assert.Equal(t, model.StreamNone, seq.GetStream())

	again, err := seq.Pop(ctx, model.StreamNone)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 0, seq.GetFrameno())

	// the cache survives a rewind, frame 0 came straight from it
	assert.Positive(t, seq.Stats().CacheHits)
}

func TestFrameSequence_PopPastEnd(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	seq := openTestSequence(t, paths)
	drain(t, seq, model.StreamNone)

	assert.False(t, seq.More(ctx))
	_, err = seq.Pop(ctx, model.StreamNone)
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.Equal(t, 9, seq.GetFrameno(), "a failed pop leaves the current frame alone")

	_, err = seq.At(ctx, 10)
	assert.ErrorIs(t, err, ErrNoFrame)
	_, err = seq.At(ctx, -3)
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestFrameSequence_NothingPoppedYet(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)

	seq := openTestSequence(t, paths)
	assert.Equal(t, -1, seq.GetFrameno())
	_, err = seq.GetMixedFrames()
	assert.ErrorIs(t, err, ErrNoFrame)
	_, err = seq.GetCurrentGroup()
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestFrameSequence_EvictedGroupIsNotCached(t *testing.T) {
	path, _, err := generateRun(t.TempDir(), "a.frames", 30, 8)
	require.NoError(t, err)
	ctx := context.Background()

	seq := openTestSequence(t, []string{path}, func(o *SequenceOptions) {
		o.CacheWindow = 4
		o.PrefetchWindow = 2
	})

	_, err = seq.At(ctx, 2)
	require.NoError(t, err)
	_, err = seq.GetCurrentGroup()
	require.NoError(t, err)

	// a read far ahead slides the window past the current frame
	seq.engine.mu.Lock()
	_, err = seq.engine.fetch(ctx, 20)
	seq.engine.mu.Unlock()
	require.NoError(t, err)

	_, err = seq.GetMixedFrames()
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestFrameSequence_MoreLogsAndReturnsFalseOnReadError(t *testing.T) {
	var logs bytes.Buffer
	boom := errors.New("disk on fire")

	seq := openTestSequence(t, nil, func(o *SequenceOptions) {
		o.Logger = slog.New(slog.NewTextHandler(&logs, nil))
		o.Opener = func(path string) (FrameReader, error) {
			return &failingReader{path: path, err: boom}, nil
		}
	})
	require.NoError(t, seq.AddFile("broken.frames"))
	ctx := context.Background()

	assert.False(t, seq.More(ctx))
	assert.Contains(t, logs.String(), "failed to read frame")
	assert.Contains(t, logs.String(), "disk on fire")

	_, err := seq.Pop(ctx, model.StreamNone)
	assert.ErrorIs(t, err, boom)
	assert.Positive(t, seq.Stats().ReadErrors)
}

func TestFrameSequence_PopHonoursContext(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)
	seq := openTestSequence(t, paths)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = seq.Pop(ctx, model.StreamNone)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, -1, seq.GetFrameno())

	frame, err := seq.Pop(context.Background(), model.StreamNone)
	require.NoError(t, err)
	assert.Equal(t, model.Geometry, frame.Stream)
}

func TestFrameSequence_AbandonedReadIsPickedUpLater(t *testing.T) {
	release := make(chan struct{})
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)

	seq := openTestSequence(t, nil, func(o *SequenceOptions) {
		o.PrefetchWindow = 0
		o.Opener = func(path string) (FrameReader, error) {
			reader, err := OpenFrameFile(path)
			if err != nil {
				return nil, err
			}
			return &slowReader{FrameReader: reader, release: release}, nil
		}
	})
	require.NoError(t, seq.AddFile(paths[0]))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = seq.Pop(ctx, model.StreamNone)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	frame, err := seq.Pop(context.Background(), model.StreamNone)
	require.NoError(t, err)
	assert.Equal(t, model.Geometry, frame.Stream)

	// the second pop found the abandoned read either still pending or already cached
	assert.Equal(t, int64(1), seq.Stats().SyncReads)
}

func TestFrameSequence_PrefetchFillsCache(t *testing.T) {
	path, _, err := generateRun(t.TempDir(), "a.frames", 50, 12)
	require.NoError(t, err)
	ctx := context.Background()

	seq := openTestSequence(t, []string{path})
	_, err = seq.Pop(ctx, model.StreamNone)
	require.NoError(t, err)

	require.NoError(t, seq.engine.worker.Sync(ctx))
	for i := 1; i <= DefaultPrefetchWindow; i++ {
		assert.True(t, seq.engine.cache.Contains(i), "index %d prefetched", i)
	}
	assert.False(t, seq.engine.cache.Contains(DefaultPrefetchWindow+1))

	for i := 1; i <= DefaultPrefetchWindow; i++ {
		_, err := seq.Pop(ctx, model.StreamNone)
		require.NoError(t, err)
	}
	stats := seq.Stats()
	assert.Equal(t, int64(1), stats.SyncReads)
	assert.GreaterOrEqual(t, stats.CacheHits, int64(DefaultPrefetchWindow))
	assert.Equal(t, int64(DefaultPrefetchWindow+1), stats.FramesReturned)
}

func TestFrameSequence_SeekPrefetchStopsAtKnownSize(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)

	seq := openTestSequence(t, paths)
	seq.Seek(3)
	require.NoError(t, seq.engine.worker.Sync(context.Background()))

	// nothing was scanned yet, so the known size is 0 and index 3 lies beyond it
	assert.Equal(t, int64(0), seq.Stats().Prefetches)

	seq.Seek(0)
	require.NoError(t, seq.engine.worker.Sync(context.Background()))
	assert.Equal(t, int64(1), seq.Stats().Prefetches, "index 0 never exceeds the known size")
}

func TestFrameSequence_CloseKeepsSequenceUsable(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), ".gz")
	require.NoError(t, err)
	ctx := context.Background()

	seq := openTestSequence(t, paths)
	drain(t, seq, model.StreamNone)

	require.NoError(t, seq.Close())
	assert.Empty(t, seq.GetPaths())
	assert.Equal(t, -1, seq.GetFrameno())
	assert.Equal(t, 0, seq.engine.cache.Size())
	assert.False(t, seq.More(ctx))

	require.NoError(t, seq.AddFile(paths[1]))
	frame, err := seq.Pop(ctx, model.StreamNone)
	require.NoError(t, err)
	assert.Equal(t, model.DAQ, frame.Stream)
	deps, err := seq.GetMixedFrames()
	require.NoError(t, err)
	assert.Empty(t, deps, "no context is inherited from files that were closed")
}

func TestFrameSequence_CloseLastFile(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	seq := openTestSequence(t, paths)
	require.NoError(t, seq.CloseLastFile())
	assert.Equal(t, paths[:1], seq.GetPaths())

	frames := drain(t, seq, model.StreamNone)
	assert.Len(t, frames, 5)
	assert.Equal(t, 5, seq.GetSize())

	require.NoError(t, seq.CloseLastFile())
	assert.ErrorIs(t, seq.CloseLastFile(), ErrNoFiles)
	assert.False(t, seq.More(ctx))
}

func TestFrameSequence_AddFileAfterDrain(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	seq := openTestSequence(t, paths[:1])
	assert.Len(t, drain(t, seq, model.StreamNone), 5)

	// the empty result for index 5 was never cached
	require.NoError(t, seq.AddFile(paths[1]))
	assert.True(t, seq.More(ctx))
	frame, err := seq.Pop(ctx, model.StreamNone)
	require.NoError(t, err)
	assert.Equal(t, model.DAQ, frame.Stream)
	assert.Equal(t, 5, seq.GetFrameno())
}

func TestFrameSequence_Clone(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), ".zst")
	require.NoError(t, err)
	ctx := context.Background()

	seq := openTestSequence(t, paths)
	for i := 0; i < 6; i++ {
		_, err := seq.Pop(ctx, model.StreamNone)
		require.NoError(t, err)
	}

	clone, err := seq.Clone()
	require.NoError(t, err)
	defer clone.Stop()

	assert.Equal(t, seq.GetFrameno(), clone.GetFrameno())
	assert.Equal(t, seq.GetStream(), clone.GetStream())
	assert.Empty(t, clone.engine.pending, "a copy starts with nothing in flight")
	assert.NotEqual(t, seq.Stats().ID, clone.Stats().ID)

	want, err := seq.GetCurrentGroup()
	require.NoError(t, err)
	got, err := clone.GetCurrentGroup()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	rest := drain(t, clone, model.StreamNone)
	assert.Len(t, rest, 4)

	// the original is unaffected
	assert.Equal(t, 5, seq.GetFrameno())
	frame, err := seq.Pop(ctx, model.StreamNone)
	require.NoError(t, err)
	assert.Equal(t, rest[0], frame)
}

func TestFrameSequence_StopIsFinal(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)

	opts := DefaultSequenceOptions()
	opts.Logger = slog.New(slog.DiscardHandler)
	seq, err := OpenFrameSequence(paths, opts)
	require.NoError(t, err)

	require.NoError(t, seq.Stop())
	require.NoError(t, seq.AddFile(paths[0]))
	_, err = seq.Pop(context.Background(), model.StreamNone)
	assert.ErrorIs(t, err, ErrWorkerClosed)
	seq.engine.files.Clear()
}

func TestOpenFrameSequence_MissingFile(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)

	_, err = OpenFrameSequence(append(paths, paths[0]+".missing"), DefaultSequenceOptions())
	assert.Error(t, err)
}

// failingReader fails every read
type failingReader struct {
	path string
	err  error
}

func (r *failingReader) Path() string                        { return r.path }
func (r *failingReader) Next() (*model.Frame, error)         { return nil, r.err }
func (r *failingReader) Current() (model.FrameGroup, error)  { return nil, r.err }
func (r *failingReader) Seek(int) error                      { return r.err }
func (r *failingReader) Position() int                       { return 0 }
func (r *failingReader) More() bool                          { return true }
func (r *failingReader) Size() int                           { return SizeUnknown }
func (r *failingReader) Rewind() error                       { return nil }
func (r *failingReader) RareFrames() ([]*model.Frame, error) { return nil, nil }
func (r *failingReader) Index() *Index                       { return nil }
func (r *failingReader) Close() error                        { return nil }

// slowReader blocks every Next until release is closed
type slowReader struct {
	FrameReader
	release chan struct{}
}

func (r *slowReader) Next() (*model.Frame, error) {
	<-r.release
	return r.FrameReader.Next()
}

// readGate holds every Next of the readers sharing it while it is shut
type readGate struct {
	mu   sync.Mutex
	shut chan struct{}
}

func (g *readGate) hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shut == nil {
		g.shut = make(chan struct{})
	}
}

func (g *readGate) open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shut != nil {
		close(g.shut)
		g.shut = nil
	}
}

func (g *readGate) wait() {
	g.mu.Lock()
	shut := g.shut
	g.mu.Unlock()
	if shut != nil {
		<-shut
	}
}

type gatedReader struct {
	FrameReader
	gate *readGate
}

func (r *gatedReader) Next() (*model.Frame, error) {
	r.gate.wait()
	return r.FrameReader.Next()
}

// openGatedSequence returns a sequence whose worker is stuck reading index 0
// with the rest of a five frame prefetch window queued behind it.
func openGatedSequence(t *testing.T) (*FrameSequence, *readGate, []string) {
	t.Helper()
	gate := &readGate{}
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)

	seq := openTestSequence(t, paths, func(o *SequenceOptions) {
		o.PrefetchWindow = 5
		o.Opener = func(path string) (FrameReader, error) {
			reader, err := OpenFrameFile(path)
			if err != nil {
				return nil, err
			}
			return &gatedReader{FrameReader: reader, gate: gate}, nil
		}
	})
	t.Cleanup(gate.open)

	gate.hold()
	seq.Rewind()
	require.Eventually(t, func() bool {
		return seq.engine.worker.Size() == 4
	}, time.Second, time.Millisecond)
	return seq, gate, paths
}

func TestFrameSequence_RewindCancelsQueuedPrefetches(t *testing.T) {
	seq, gate, _ := openGatedSequence(t)
	assert.Zero(t, seq.Stats().CancelledTasks)

	seq.Rewind()
	assert.GreaterOrEqual(t, seq.Stats().CancelledTasks, int64(4))

	gate.open()
	ctx := context.Background()
	frame, err := seq.Pop(ctx, model.StreamNone)
	require.NoError(t, err)
	assert.Equal(t, model.Geometry, frame.Stream)
	assert.Equal(t, 0, seq.GetFrameno())

	frames := drain(t, seq, model.StreamNone)
	assert.Len(t, frames, 9)
	assert.Zero(t, seq.Stats().ReadErrors)
}

func TestFrameSequence_CloseDiscardsQueuedPrefetches(t *testing.T) {
	tests := []struct {
		name  string
		close func(*FrameSequence) error
		// frames left once the close returns
		remaining int
	}{
		{name: "close", close: (*FrameSequence).Close, remaining: 0},
		{name: "close last file", close: (*FrameSequence).CloseLastFile, remaining: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, gate, _ := openGatedSequence(t)

			done := make(chan error, 1)
			go func() { done <- tt.close(seq) }()

			// the queue only empties while index 0 is stuck if the close cancelled it
			require.Eventually(t, func() bool {
				return seq.engine.worker.IsEmpty()
			}, time.Second, time.Millisecond)
			gate.open()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("close did not return")
			}
			assert.GreaterOrEqual(t, seq.Stats().CancelledTasks, int64(4))
			assert.Zero(t, seq.engine.cache.Size())

			frames := drain(t, seq, model.StreamNone)
			assert.Len(t, frames, tt.remaining)
			if tt.remaining > 0 {
				assert.Equal(t, model.Geometry, frames[0].Stream)
			}
		})
	}
}

// countingCache records how often the engine stores a group
type countingCache struct {
	*FrameCache
	puts atomic.Int64
}

func (c *countingCache) Put(index int, group model.FrameGroup) {
	c.puts.Add(1)
	c.FrameCache.Put(index, group)
}

func TestFrameSequence_CustomCache(t *testing.T) {
	paths, err := generateTwoFileRun(t.TempDir(), "")
	require.NoError(t, err)

	var cache *countingCache
	seq := openTestSequence(t, paths, func(o *SequenceOptions) {
		o.CacheWindow = 3
		o.NewCache = func(window int) Cache {
			cache = &countingCache{FrameCache: NewFrameCache(window)}
			return cache
		}
	})
	require.NotNil(t, cache)

	frames := drain(t, seq, model.StreamNone)
	assert.Len(t, frames, 10)
	assert.GreaterOrEqual(t, cache.puts.Load(), int64(10))
	assert.LessOrEqual(t, cache.Size(), 3)

	stats := seq.Stats()
	assert.Equal(t, 3, stats.CacheCapacity)
}
