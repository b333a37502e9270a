package libemit

type (
	// Reply is what a listener hands back for one invocation: either a value,
	// a synchronous failure, or a Future still in progress.
	Reply[R any] struct {
		value   R
		err     error
		pending *Future[R]
	}

	// Listener wraps a callback so it can be registered and later removed by
	// identity. Registering the same *Listener twice yields two registrations.
	Listener[A, R any] struct {
		fn func(A) Reply[R]
	}
)

// Return replies with a value known at call time.
func Return[R any](v R) Reply[R] {
	return Reply[R]{value: v}
}

// Fail replies with a synchronous failure, which stops the emission.
func Fail[R any](err error) Reply[R] {
	return Reply[R]{err: err}
}

// Pending replies with a Future. A nil Future is treated as resolved with the
// zero value.
func Pending[R any](f *Future[R]) Reply[R] {
	if f == nil {
		var zero R
		f = Resolve(zero)
	}
	return Reply[R]{pending: f}
}

// Async starts fn right away and replies with its Future.
func Async[R any](fn func() (R, error)) Reply[R] {
	return Pending(Go(fn))
}

// IsPending reports whether the reply carries a Future.
func (r Reply[R]) IsPending() bool {
	return r.pending != nil
}

// NewListener wraps fn, which decides on every call whether to reply right away
// or with a Future.
func NewListener[A, R any](fn func(A) Reply[R]) *Listener[A, R] {
	return &Listener[A, R]{fn: fn}
}

// NewSyncListener adapts a plain function whose outcome is known on return.
func NewSyncListener[A, R any](fn func(A) (R, error)) *Listener[A, R] {
	return NewListener(func(args A) Reply[R] {
		v, err := fn(args)
		if err != nil {
			return Fail[R](err)
		}
		return Return(v)
	})
}

// NewAsyncListener adapts a function that is run in its own goroutine on every
// invocation.
func NewAsyncListener[A, R any](fn func(A) (R, error)) *Listener[A, R] {
	return NewListener(func(args A) Reply[R] {
		return Async(func() (R, error) {
			return fn(args)
		})
	})
}

// invoke calls the listener, turning a panic into a failed reply.
func (l *Listener[A, R]) invoke(args A) (reply Reply[R]) {
	defer func() {
		if r := recover(); r != nil {
			reply = Fail[R](recoveredError(r))
		}
	}()

	return l.fn(args)
}
