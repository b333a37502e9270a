package libemit

import (
	"github.com/stretchr/testify/mock"
)

// mockListener records invocations through testify's mock so tests can set
// expectations on what a listener receives and returns.
type mockListener[A, R any] struct {
	mock.Mock
}

func (m *mockListener[A, R]) Call(args A) (R, error) {
	ret := m.MethodCalled("Call", args)

	var value R
	if v := ret.Get(0); v != nil {
		value = v.(R)
	}
	return value, ret.Error(1)
}

func (m *mockListener[A, R]) sync() *Listener[A, R] {
	return NewSyncListener(m.Call)
}

func (m *mockListener[A, R]) async() *Listener[A, R] {
	return NewAsyncListener(m.Call)
}
