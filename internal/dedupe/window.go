// ABOUTME: Time-windowed key set for reporting a recurring condition once per window
// ABOUTME: Size-bounded with oldest-first eviction; expired keys are pruned lazily

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type windowEntry struct {
	key    string
	marked time.Time
}

// Window remembers keys for a fixed duration. First reports whether a key is
// new to the current window. Keys are kept in mark order so both expiry and
// eviction pop from the front.
type Window struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a Window holding at most maxSize keys for ttl each.
func New(ttl time.Duration, maxSize int) *Window {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Window{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// First returns true if key has not been marked within the window, and marks
// it. A key already in the window is not refreshed, so it is reported again
// once its window ends.
func (w *Window) First(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.pruneLocked(now)

	if _, ok := w.seen[key]; ok {
		return false
	}

	if len(w.seen) >= w.maxSize {
		w.evictOldestLocked()
	}
	w.seen[key] = w.order.PushBack(windowEntry{key: key, marked: now})
	return true
}

// Len returns the number of keys currently in the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(w.now())
	return len(w.seen)
}

// pruneLocked drops expired keys. Must be called with mu held.
func (w *Window) pruneLocked(now time.Time) {
	for front := w.order.Front(); front != nil; front = w.order.Front() {
		entry := front.Value.(windowEntry)
		if now.Sub(entry.marked) < w.ttl {
			return
		}
		w.order.Remove(front)
		delete(w.seen, entry.key)
	}
}

// evictOldestLocked removes the oldest key. Must be called with mu held.
func (w *Window) evictOldestLocked() {
	front := w.order.Front()
	if front == nil {
		return
	}
	entry := front.Value.(windowEntry)
	w.order.Remove(front)
	delete(w.seen, entry.key)
}
