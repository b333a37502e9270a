package libemit

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrListenerPanic = errors.New("listener panicked")
	ErrEmitAborted   = errors.New("emit aborted while awaiting listeners")
)

// ListenerError reports which registration of an emission failed. It unwraps to
// the error the listener returned, panicked with or rejected its future with.
type ListenerError struct {
	err      error
	Key      string
	Position int
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener #%d for event %q failed: %s", e.Position, e.Key, e.err)
}

func (e *ListenerError) Unwrap() error { return e.err }

func wrapListenerError(err error, key string, position int) *ListenerError {
	if err == nil {
		return nil
	}
	return &ListenerError{
		err:      err,
		Key:      key,
		Position: position,
	}
}

// withCause keeps both sentinel and cause reachable through errors.Is.
func withCause(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return withCause(ErrListenerPanic, err)
	}
	return errors.Wrapf(ErrListenerPanic, "%v", r)
}
