package libemit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	roomEvent string

	// room exposes its own events and, by embedding, the emitter lifecycle.
	room struct {
		*Emitter[roomEvent, string, struct{}]
	}
)

const roomJoined roomEvent = "joined"

func newRoom() room {
	return room{Emitter: New[roomEvent, string, struct{}]()}
}

func TestBindToReleasesListenerWhenTargetIsRemoved(t *testing.T) {
	source := New[testEvent, string, string]()
	target := newRoom()
	l := &mockListener[string, string]{}
	l.On("Call", "x").Return("seen", nil)

	returned := source.BindTo(target, eventMsg, l.sync())
	assert.Same(t, source, returned)
	assert.Equal(t, 1, source.BindingCount())
	assert.Equal(t, 1, target.ListenerCount(EventRemove))

	results, err := source.Emit(context.Background(), eventMsg, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"seen"}, results)

	target.Remove()

	results, err = source.Emit(context.Background(), eventMsg, "x")
	require.NoError(t, err)
	assert.Empty(t, results)
	l.AssertNumberOfCalls(t, "Call", 1)

	assert.Zero(t, source.BindingCount())
	assert.Zero(t, source.ListenerCount(eventMsg))
	assert.Zero(t, target.ListenerCount(EventRemove))
}

func TestBindToOnlyReleasesItsOwnListener(t *testing.T) {
	source := New[testEvent, string, string]()
	doomed := New[testEvent, string, string]()
	survivor := New[testEvent, string, string]()

	bound := constant[string]("bound")
	kept := constant[string]("kept")
	plain := constant[string]("plain")

	source.
		BindTo(doomed, eventMsg, bound).
		BindTo(survivor, eventMsg, kept).
		On(eventMsg, plain)

	doomed.Remove()

	results, err := source.Emit(context.Background(), eventMsg, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"kept", "plain"}, results)
	assert.Equal(t, 1, source.BindingCount())
	assert.Equal(t, 1, survivor.ListenerCount(EventRemove))
}

func TestBindToSameTripleTwice(t *testing.T) {
	source := New[testEvent, string, string]()
	target := New[testEvent, string, string]()
	l := constant[string]("l")

	source.BindTo(target, eventMsg, l).BindTo(target, eventMsg, l)
	require.Equal(t, 2, source.BindingCount())
	require.Equal(t, 2, source.ListenerCount(eventMsg))

	target.Remove()

	assert.Zero(t, source.BindingCount())
	assert.Zero(t, source.ListenerCount(eventMsg))
	assert.Zero(t, target.ListenerCount(EventRemove))
}

func TestBindToIgnoresNilArguments(t *testing.T) {
	source := New[testEvent, string, string]()

	source.BindTo(nil, eventMsg, constant[string]("x"))
	source.BindTo(New[testEvent, string, string](), eventMsg, nil)

	assert.Zero(t, source.BindingCount())
	assert.Zero(t, source.ListenerCount(eventMsg))
}

func TestRemoveDetachesFromEveryTarget(t *testing.T) {
	source := New[testEvent, string, string]()
	targets := []room{newRoom(), newRoom(), newRoom()}
	l := constant[string]("l")

	for _, target := range targets {
		source.BindTo(target, eventMsg, l)
	}
	require.Equal(t, 3, source.BindingCount())

	source.Remove()

	assert.Zero(t, source.BindingCount())
	for _, target := range targets {
		assert.Zero(t, target.ListenerCount(EventRemove))
	}

	// The listeners themselves stay registered on source; only the lifecycle
	// link to the targets is gone.
	targets[0].Remove()
	results, err := source.Emit(context.Background(), eventMsg, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"l", "l", "l"}, results)
}

func TestRemoveNotifiesRemoveListeners(t *testing.T) {
	emitter := newRoom()
	var removed []string

	emitter.On(EventRemove, NewSyncListener(func(arg string) (struct{}, error) {
		removed = append(removed, "first:"+arg)
		return struct{}{}, nil
	}))
	emitter.Once(EventRemove, NewSyncListener(func(string) (struct{}, error) {
		removed = append(removed, "second")
		return struct{}{}, nil
	}))

	emitter.Remove()
	emitter.Remove()

	assert.Equal(t, []string{"first:", "second", "first:"}, removed)
}

func TestRemoveCascadesThroughChains(t *testing.T) {
	// a depends on b, b depends on c.
	a := New[testEvent, string, string]()
	b := New[testEvent, string, string]()
	c := New[testEvent, string, string]()

	a.BindTo(b, eventMsg, constant[string]("a"))
	b.BindTo(c, eventMsg, constant[string]("b"))
	b.On(EventRemove, NewSyncListener(func(string) (string, error) { return "", nil }))

	c.Remove()
	assert.Zero(t, b.ListenerCount(eventMsg))
	assert.Equal(t, 1, a.ListenerCount(eventMsg))

	b.Remove()
	assert.Zero(t, a.ListenerCount(eventMsg))
	assert.Zero(t, a.BindingCount())
}

func TestRemoveIsNotTerminal(t *testing.T) {
	emitter := New[testEvent, string, string]()
	emitter.Remove()

	emitter.On(eventMsg, constant[string]("still here"))
	results, err := emitter.Emit(context.Background(), eventMsg, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"still here"}, results)
}

func TestRemoveLogsDiscardedSyncFailure(t *testing.T) {
	var buf bytes.Buffer
	emitter := New[testEvent, string, string](WithLogger(NewWriterLogger(&buf)))

	emitter.On(EventRemove, NewSyncListener(func(string) (string, error) {
		return "", errors.New("cleanup failed")
	}))

	assert.NotPanics(t, emitter.Remove)
	assert.Contains(t, buf.String(), "ERROR")
	assert.Contains(t, buf.String(), "cleanup failed")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRemoveLogsDiscardedAsyncFailure(t *testing.T) {
	var buf syncBuffer
	emitter := New[testEvent, string, string](WithLogger(NewWriterLogger(&buf)))

	emitter.On(EventRemove, NewAsyncListener(func(string) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "", errors.New("late cleanup failed")
	}))

	emitter.Remove()

	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "late cleanup failed")
	}, time.Second, 5*time.Millisecond)
}

func TestBindToTargetOfAnotherType(t *testing.T) {
	target := newRoom()
	source := New[testEvent, int, int]()
	var joined []string

	target.On(roomJoined, NewSyncListener(func(who string) (struct{}, error) {
		joined = append(joined, who)
		return struct{}{}, nil
	}))
	source.BindTo(target, eventPing, NewSyncListener(func(n int) (int, error) { return n, nil }))

	_, err := target.Emit(context.Background(), roomJoined, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, joined)

	results, err := target.Emit(context.Background(), EventRemove, "")
	require.NoError(t, err)
	// The removal hook contributes a zero result like any other listener.
	assert.Equal(t, []struct{}{{}}, results)
	assert.Zero(t, source.ListenerCount(eventPing))
}
