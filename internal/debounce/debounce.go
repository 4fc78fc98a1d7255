// Package debounce runs an action once a stream of triggers settles.
package debounce

import (
	"sync"
	"time"
)

// Debouncer calls its action with the most recent value once no Trigger has
// arrived for the window. Only the latest scheduled check survives: older
// ones find a newer sequence number and do nothing.
type Debouncer[T any] struct {
	action func(T)

	mu      sync.Mutex
	window  time.Duration
	seq     uint64
	pending bool
	last    T
	timer   *time.Timer
}

// New returns a debouncer for action with the given window.
func New[T any](action func(T), window time.Duration) *Debouncer[T] {
	return &Debouncer[T]{action: action, window: window}
}

// Trigger records v and restarts the window.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	d.pending = true
	d.last = v
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq) })
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	v := d.last
	d.mu.Unlock()

	d.action(v)
}

// Cancel drops the pending call, if any. It reports whether one was pending.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	was := d.pending
	d.seq++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	return was
}

// Flush runs the pending call now, on the calling goroutine. It reports
// whether one was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	d.seq++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	v := d.last
	d.mu.Unlock()

	d.action(v)
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// SetWindow changes the window for subsequent triggers.
func (d *Debouncer[T]) SetWindow(window time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.window = window
}

// Window returns the current window.
func (d *Debouncer[T]) Window() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window
}
