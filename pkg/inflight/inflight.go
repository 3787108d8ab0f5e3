package inflight

import (
	"sync"
)

// Listener is notified when the tracker becomes busy (true) or idle (false).
type Listener func(busy bool)

// Tracker counts outstanding network calls and notifies listeners on the
// 0->1 and 1->0 transitions only. Listeners must not call Begin or End.
type Tracker struct {
	notifyMu  sync.Mutex // orders notifications with the transitions they report
	mu        sync.Mutex
	count     int
	nextID    int
	listeners map[int]Listener
}

// New returns an idle tracker.
func New() *Tracker {
	return &Tracker{listeners: map[int]Listener{}}
}

// Begin marks one call as dispatched.
func (t *Tracker) Begin() {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	t.count++
	notify := t.count == 1
	ls := t.snapshot(notify)
	t.mu.Unlock()

	for _, l := range ls {
		l(true)
	}
}

// End marks one call as settled. Calling End without a matching Begin is a no-op.
func (t *Tracker) End() {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if t.count == 0 {
		t.mu.Unlock()
		return
	}
	t.count--
	notify := t.count == 0
	ls := t.snapshot(notify)
	t.mu.Unlock()

	for _, l := range ls {
		l(false)
	}
}

// Track runs fn between Begin and End. End runs even if fn panics.
func (t *Tracker) Track(fn func() error) error {
	t.Begin()
	defer t.End()
	return fn()
}

// Count returns the number of outstanding calls.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Busy reports whether at least one call is outstanding.
func (t *Tracker) Busy() bool { return t.Count() > 0 }

// Subscribe registers l and returns a function that removes it.
func (t *Tracker) Subscribe(l Listener) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// snapshot copies the listeners if notify is set. Callers hold t.mu.
func (t *Tracker) snapshot(notify bool) []Listener {
	if !notify || len(t.listeners) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(t.listeners))
	for _, l := range t.listeners {
		out = append(out, l)
	}
	return out
}
