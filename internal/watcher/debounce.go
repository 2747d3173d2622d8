package watcher

import (
	"sync"
	"time"
)

// Debouncer runs a function once a quiet period has passed with no further
// calls. Every call to Debounce restarts the quiet period.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	gen      uint64
	inflight sync.WaitGroup
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Debounce schedules fn after the quiet period, replacing any pending call.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		if gen != d.gen {
			// Superseded after the timer had already fired.
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.inflight.Add(1)
		d.mu.Unlock()

		defer d.inflight.Done()
		fn()
	})
}

// Pending reports whether a call is scheduled and has not started yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops any pending call. A call that already started is not
// interrupted.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Wait blocks until any call that already started has returned.
func (d *Debouncer) Wait() {
	d.inflight.Wait()
}

// DefaultQuietPeriod is the reference debounce window for profile directories.
const DefaultQuietPeriod = 300 * time.Millisecond
