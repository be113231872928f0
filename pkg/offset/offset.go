// Package offset tracks the last-read byte offset of a watched file.
package offset

import (
	"sync/atomic"
)

// Tracker holds the read position of a single file.
// Only one goroutine advances the offset, but the offset may be
// read concurrently (e.g., by the status API).
type Tracker struct {
	path   string
	offset atomic.Int64
}

// New returns a tracker positioned at the given offset.
// Callers pass the file size at attach time so that the existing
// content of the file is never read.
func New(path string, initial int64) *Tracker {
	t := &Tracker{path: path}
	if initial > 0 {
		t.offset.Store(initial)
	}
	return t
}

func (t *Tracker) Path() string {
	return t.path
}

func (t *Tracker) Offset() int64 {
	return t.offset.Load()
}

// Unread returns the byte range [from, to) that has not been read yet,
// given the current size of the file.
// ok is false when the size is not strictly greater than the offset,
// which covers both "nothing new" and stale/out-of-order notifications.
func (t *Tracker) Unread(size int64) (from int64, to int64, ok bool) {
	cur := t.offset.Load()
	if size <= cur {
		return cur, cur, false
	}
	return cur, size, true
}

// Advance moves the offset forward to "to".
// It never moves backwards, and returns false if "to" is not ahead of
// the current offset.
func (t *Tracker) Advance(to int64) bool {
	for {
		cur := t.offset.Load()
		if to <= cur {
			return false
		}
		if t.offset.CompareAndSwap(cur, to) {
			return true
		}
	}
}
