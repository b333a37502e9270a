// Package libemit implements a typed event emitter whose listeners may answer
// synchronously or with a Future, and whose emitters can be bound together so
// that removing one releases the listeners that depended on it.
package libemit

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// EventRemove is the reserved key an emitter fires when Remove is called.
// BindTo relies on it, so applications should not reuse it for data events.
const EventRemove = "remove"

type (
	registration[A, R any] struct {
		listener *Listener[A, R]
		hook     *removeHook
		once     bool
		fired    atomic.Bool
	}

	pendingReply[R any] struct {
		position int
		future   *Future[R]
	}

	// Emitter maps event keys (of type K) to ordered listener registrations.
	// Listeners receive arguments of type A and reply with results of type R.
	// Emitters are meant to be created with New and embedded by pointer in the
	// types that expose events.
	Emitter[K ~string, A, R any] struct {
		id        string
		logger    logger
		listeners map[K][]*registration[A, R]
		bindings  []*binding[K, A, R]
		lock      sync.Mutex
	}
)

// New creates an empty Emitter.
func New[K ~string, A, R any](opts ...Option) *Emitter[K, A, R] {
	o := newOptions(opts...)
	id := uuid.NewString()

	l := o.logger.WithField("emitter", id)
	if o.name != "" {
		l = l.WithField("name", o.name)
	}

	return &Emitter[K, A, R]{
		id:        id,
		logger:    l,
		listeners: make(map[K][]*registration[A, R]),
	}
}

// ID identifies the emitter. BindTo matches targets by it.
func (e *Emitter[K, A, R]) ID() string {
	return e.id
}

// On registers listener for key. Registering the same listener again adds a
// second, independent registration. A nil listener is ignored.
func (e *Emitter[K, A, R]) On(key K, listener *Listener[A, R]) *Emitter[K, A, R] {
	if listener != nil {
		e.add(key, &registration[A, R]{listener: listener})
	}
	return e
}

// Once registers listener for the next emission of key only. The registration
// is consumed by that emission even when the listener fails.
func (e *Emitter[K, A, R]) Once(key K, listener *Listener[A, R]) *Emitter[K, A, R] {
	if listener != nil {
		e.add(key, &registration[A, R]{listener: listener, once: true})
	}
	return e
}

// Off removes every registration of listener under key, whether it was added
// with On or Once. Unknown keys and listeners are ignored.
func (e *Emitter[K, A, R]) Off(key K, listener *Listener[A, R]) *Emitter[K, A, R] {
	if listener == nil {
		return e
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.removeLocked(key, func(r *registration[A, R]) bool {
		return r.listener == listener
	})
	return e
}

// ListenerCount returns how many registrations key currently has.
func (e *Emitter[K, A, R]) ListenerCount(key K) int {
	e.lock.Lock()
	defer e.lock.Unlock()

	return len(e.listeners[key])
}

// Emit invokes every listener registered for key, in registration order, and
// waits for the Futures they replied with.
//
// Results of synchronous replies come first, in registration order, followed
// by the results of Futures, also in registration order, no matter which Future
// completed first. A synchronous failure stops the dispatch; a rejected Future
// fails the whole call. Either way no partial results are returned.
//
// ctx only bounds the wait: listeners and their Futures are never cancelled.
func (e *Emitter[K, A, R]) Emit(ctx context.Context, key K, args A) ([]R, error) {
	results, pending, err := e.dispatch(key, args)
	if err != nil {
		return nil, err
	}

	return e.await(ctx, key, results, pending)
}

// EmitAsync invokes the listeners for key before returning, like Emit, but
// hands back a Future instead of waiting for the listeners' Futures.
func (e *Emitter[K, A, R]) EmitAsync(key K, args A) *Future[[]R] {
	results, pending, err := e.dispatch(key, args)
	if err != nil {
		return Reject[[]R](err)
	}

	if len(pending) == 0 {
		return Resolve(results)
	}

	return Go(func() ([]R, error) {
		return e.await(context.Background(), key, results, pending)
	})
}

func (e *Emitter[K, A, R]) add(key K, r *registration[A, R]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners[key] = append(e.listeners[key], r)
}

// removeLocked drops the registrations under key that match, deleting the key
// once nothing is left. e.lock must be held.
func (e *Emitter[K, A, R]) removeLocked(key K, match func(*registration[A, R]) bool) {
	registrations, found := e.listeners[key]
	if !found {
		return
	}

	kept := make([]*registration[A, R], 0, len(registrations))
	for _, r := range registrations {
		if !match(r) {
			kept = append(kept, r)
		}
	}

	if len(kept) == 0 {
		delete(e.listeners, key)
		return
	}

	e.listeners[key] = kept
}

// dispatch runs the synchronous half of an emission over a snapshot of the
// registrations for key. The lock is not held while listeners run, so they may
// register, unregister or emit on this same emitter.
func (e *Emitter[K, A, R]) dispatch(key K, args A) ([]R, []pendingReply[R], error) {
	e.lock.Lock()
	snapshot := slices.Clone(e.listeners[key])
	e.lock.Unlock()

	var (
		results = make([]R, 0, len(snapshot))
		pending []pendingReply[R]
	)

	for position, r := range snapshot {
		// Concurrent emissions share registrations; only one of them gets to
		// fire a once listener.
		if r.once && !r.fired.CompareAndSwap(false, true) {
			continue
		}

		reply := r.invoke(args)

		if r.once {
			e.Off(key, r.listener)
		}

		if reply.err != nil {
			if errors.Is(reply.err, ErrListenerPanic) {
				e.logger.Warnf("listener #%d for %q panicked: %s", position, key, reply.err)
			}
			return nil, nil, wrapListenerError(reply.err, string(key), position)
		}

		if reply.IsPending() {
			pending = append(pending, pendingReply[R]{position: position, future: reply.pending})
		} else {
			results = append(results, reply.value)
		}
	}

	return results, pending, nil
}

// await resolves pending in parallel and appends their values to results in
// registration order. The first failure ends the wait.
func (e *Emitter[K, A, R]) await(
	ctx context.Context,
	key K,
	results []R,
	pending []pendingReply[R],
) ([]R, error) {
	if len(pending) == 0 {
		return results, nil
	}

	resolved := make([]R, len(pending))
	g, gCtx := errgroup.WithContext(ctx)

	for i, p := range pending {
		g.Go(func() error {
			select {
			case <-p.future.Done():
			case <-gCtx.Done():
				return withCause(ErrEmitAborted, gCtx.Err())
			}

			if p.future.err != nil {
				return wrapListenerError(p.future.err, string(key), p.position)
			}
			resolved[i] = p.future.value
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(results, resolved...), nil
}

func (r *registration[A, R]) invoke(args A) Reply[R] {
	if r.hook != nil {
		r.hook.fire()
		var zero R
		return Return(zero)
	}
	return r.listener.invoke(args)
}
