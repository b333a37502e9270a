package libemit

import (
	"context"
	"sync"
)

// Future is a computation already in progress. Its value or failure is observed
// with Wait. A Future is started when it is created and cannot be cancelled.
type Future[R any] struct {
	done     chan struct{}
	doneOnce sync.Once
	value    R
	err      error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// Go runs fn in its own goroutine and returns the Future for its outcome.
// A panic inside fn rejects the Future with ErrListenerPanic.
func Go[R any](fn func() (R, error)) *Future[R] {
	f := newFuture[R]()

	go func() {
		var (
			value R
			err   error
		)

		defer func() {
			if r := recover(); r != nil {
				var zero R
				f.settle(zero, recoveredError(r))
				return
			}
			f.settle(value, err)
		}()

		value, err = fn()
	}()

	return f
}

// Resolve returns a Future already completed with v.
func Resolve[R any](v R) *Future[R] {
	f := newFuture[R]()
	f.settle(v, nil)
	return f
}

// Reject returns a Future already failed with err.
func Reject[R any](err error) *Future[R] {
	f := newFuture[R]()
	var zero R
	f.settle(zero, err)
	return f
}

func (f *Future[R]) settle(value R, err error) {
	f.doneOnce.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed once the Future has completed.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the Future completes or ctx is done. Giving up on ctx does
// not stop the underlying computation.
func (f *Future[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
