package motor

import (
	"context"
	"errors"
	"sync"
)

// Future is the one-shot result of a task submitted to a Worker.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the task finished or ctx is done. Abandoning a wait does
// not stop the task.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done reports whether the result is available without blocking
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[T]) Ready() <-chan struct{} {
	return f.done
}

type task[T any] struct {
	run    func() (T, error)
	future *Future[T]
}

// Worker runs submitted tasks one at a time, in submission order, on a single goroutine.
type Worker[T any] struct {
	tasks chan task[T]
	quit  chan struct{}
	wg    sync.WaitGroup

	mu       sync.RWMutex // guards closed against in-flight Submit calls
	closed   bool
	quitOnce sync.Once
}

// NewWorker starts the worker goroutine. queueDepth bounds the number of
// queued tasks; Submit blocks while the queue is full.
func NewWorker[T any](queueDepth int) *Worker[T] {
	if queueDepth < 1 {
		queueDepth = 1
	}
	w := &Worker[T]{
		tasks: make(chan task[T], queueDepth),
		quit:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Worker[T]) loop() {
	defer w.wg.Done()
	for {
		// quit wins over queued tasks
		select {
		case <-w.quit:
			return
		default:
		}

		select {
		case <-w.quit:
			return
		case t := <-w.tasks:
			t.future.resolve(t.run())
		}
	}
}

// Submit queues fn and returns its future. After Close the future is already
// failed with ErrWorkerClosed.
func (w *Worker[T]) Submit(fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	var zero T

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		f.resolve(zero, ErrWorkerClosed)
		return f
	}

	select {
	case w.tasks <- task[T]{run: fn, future: f}:
	case <-w.quit:
		f.resolve(zero, ErrWorkerClosed)
	}
	return f
}

// CancelPending drops every queued task that has not started yet and fails its
// future with ErrTaskCancelled. The running task, if any, is left alone.
func (w *Worker[T]) CancelPending() int {
	var zero T
	cancelled := 0
	for {
		select {
		case t := <-w.tasks:
			t.future.resolve(zero, ErrTaskCancelled)
			cancelled++
		default:
			return cancelled
		}
	}
}

// Sync waits until every task submitted before the call has run.
func (w *Worker[T]) Sync(ctx context.Context) error {
	var zero T
	barrier := w.Submit(func() (T, error) { return zero, nil })
	_, err := barrier.Wait(ctx)
	if errors.Is(err, ErrWorkerClosed) {
		return nil
	}
	return err
}

// Size returns the number of queued tasks. Advisory only.
func (w *Worker[T]) Size() int {
	return len(w.tasks)
}

func (w *Worker[T]) IsEmpty() bool {
	return w.Size() == 0
}

// Close stops the worker after the running task finishes, then fails every
// task still queued with ErrWorkerClosed. Safe to call more than once.
func (w *Worker[T]) Close() {
	w.quitOnce.Do(func() { close(w.quit) })

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.wg.Wait()

	var zero T
	for {
		select {
		case t := <-w.tasks:
			t.future.resolve(zero, ErrWorkerClosed)
		default:
			return
		}
	}
}
