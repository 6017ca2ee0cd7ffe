package services

import (
	"context"
	"sync"

	"github.com/amine-amaach/uafacade/services/models"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// Future is the pending result of an asynchronous property operation.
type Future[T any] struct {
	id     string
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	value  T
	err    error
}

func newFuture[T any](cancel context.CancelFunc) *Future[T] {
	id, err := nanoid.New()
	if err != nil {
		id = ""
	}
	return &Future[T]{
		id:     id,
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Go runs fn on the dispatcher and returns its future. fn receives a context
// derived from ctx that is cancelled by Future.Cancel.
func Go[T any](ctx context.Context, d *Dispatcher, fn func(context.Context) (T, error)) *Future[T] {
	runCtx, cancel := context.WithCancel(ctx)
	f := newFuture[T](cancel)
	task := func() {
		if err := runCtx.Err(); err != nil {
			var zero T
			f.complete(zero, &models.ServiceError{Op: "dispatch", Err: err})
			return
		}
		f.complete(fn(runCtx))
	}
	if err := d.submit(task); err != nil {
		var zero T
		f.complete(zero, &models.ServiceError{Op: "dispatch", Err: err})
	}
	return f
}

// Completed returns a future that is already resolved.
func Completed[T any](value T, err error) *Future[T] {
	f := newFuture[T](func() {})
	f.complete(value, err)
	return f
}

func (f *Future[T]) complete(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
		f.cancel()
	})
}

// ID identifies the future in logs.
func (f *Future[T]) ID() string { return f.id }

// Done is closed when the future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Cancel aborts the pending request. It is a no-op once the future completed.
func (f *Future[T]) Cancel() { f.cancel() }

// Poll returns the result without blocking; ok is false while pending.
func (f *Future[T]) Poll() (value T, err error, ok bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Await blocks until the future completes or ctx is done. It is the only
// place where the synchronous API waits on the asynchronous one.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		f.Cancel()
		// the task may have finished while we were cancelling
		select {
		case <-f.done:
			return f.value, f.err
		default:
		}
		var zero T
		return zero, &models.ServiceError{Op: "await", Err: ctx.Err()}
	}
}
