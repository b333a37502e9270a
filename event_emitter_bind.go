package libemit

import "slices"

type (
	// Removable is anything whose removal can be observed through BindTo. Every
	// *Emitter satisfies it, and so does any type embedding one.
	Removable interface {
		ID() string
		onRemove(h *removeHook)
		offRemove(h *removeHook)
	}

	removeHook struct {
		fn func()
	}

	binding[K ~string, A, R any] struct {
		key      K
		target   Removable
		targetID string
		listener *Listener[A, R]
		hook     *removeHook
	}
)

func (h *removeHook) fire() {
	h.fn()
}

func (e *Emitter[K, A, R]) onRemove(h *removeHook) {
	e.add(K(EventRemove), &registration[A, R]{hook: h})
}

func (e *Emitter[K, A, R]) offRemove(h *removeHook) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.removeLocked(K(EventRemove), func(r *registration[A, R]) bool {
		return r.hook == h
	})
}

// BindTo registers listener for key on e for as long as target lives: when
// target is removed, listener is unregistered from e, the binding is forgotten
// and target drops its removal hook. A nil target or listener is ignored.
func (e *Emitter[K, A, R]) BindTo(target Removable, key K, listener *Listener[A, R]) *Emitter[K, A, R] {
	if target == nil || listener == nil {
		return e
	}

	e.On(key, listener)

	targetID := target.ID()
	hook := &removeHook{}
	hook.fn = func() {
		target.offRemove(hook)
		e.Off(key, listener)

		e.lock.Lock()
		idx := slices.IndexFunc(e.bindings, func(b *binding[K, A, R]) bool {
			return b.targetID == targetID && b.key == key && b.listener == listener
		})
		if idx != -1 {
			e.bindings = slices.Delete(e.bindings, idx, idx+1)
		}
		e.lock.Unlock()

		e.logger.Debugf("binding on %q released: %s was removed", key, targetID)
	}

	target.onRemove(hook)

	e.lock.Lock()
	e.bindings = append(e.bindings, &binding[K, A, R]{
		key:      key,
		target:   target,
		targetID: targetID,
		listener: listener,
		hook:     hook,
	})
	e.lock.Unlock()

	e.logger.Debugf("bound %q to the lifetime of %s", key, targetID)

	return e
}

// BindingCount returns how many bindings created by BindTo are still alive.
func (e *Emitter[K, A, R]) BindingCount() int {
	e.lock.Lock()
	defer e.lock.Unlock()

	return len(e.bindings)
}

// Remove fires EventRemove on e without waiting for it, then detaches e from
// every target it was bound to. A failure of that emission is logged, not
// returned. The emitter stays usable afterwards.
func (e *Emitter[K, A, R]) Remove() {
	var args A
	e.watchDiscarded(e.EmitAsync(K(EventRemove), args))

	e.lock.Lock()
	bindings := e.bindings
	e.bindings = nil
	e.lock.Unlock()

	for _, b := range bindings {
		b.target.offRemove(b.hook)
	}

	e.logger.Debugf("removed, %d binding(s) detached", len(bindings))
}

func (e *Emitter[K, A, R]) watchDiscarded(f *Future[[]R]) {
	select {
	case <-f.Done():
		e.reportDiscarded(f)
	default:
		go func() {
			<-f.Done()
			e.reportDiscarded(f)
		}()
	}
}

func (e *Emitter[K, A, R]) reportDiscarded(f *Future[[]R]) {
	if f.err != nil {
		e.logger.Errorf("unhandled failure of %q listeners: %s", EventRemove, f.err)
	}
}
