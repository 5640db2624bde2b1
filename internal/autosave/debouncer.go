package autosave

import (
	"sync"
	"time"
)

// DefaultQuiet is the quiet period used when none is configured.
const DefaultQuiet = 500 * time.Millisecond

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. RealClock wraps time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock schedules callbacks on the runtime timer.
type RealClock struct{}

// AfterFunc implements Clock.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer owns the single pending autosave timer.
//
// Thread-safety: all methods are safe for concurrent use. The flush callback
// runs without the Debouncer's lock held, so it may take other locks (the
// runner's) freely. Callers holding such a lock may call NotifyChanged and
// Cancel, but must not call Flush.
type Debouncer struct {
	mu    sync.Mutex
	clock Clock
	quiet time.Duration
	flush func()

	timer Timer
	gen   uint64 // bumped on every schedule and cancel
}

// New returns a Debouncer calling flush after quiet with no further changes.
// A non-positive quiet uses DefaultQuiet; a nil clock uses RealClock.
func New(clock Clock, quiet time.Duration, flush func()) *Debouncer {
	if clock == nil {
		clock = RealClock{}
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{clock: clock, quiet: quiet, flush: flush}
}

// Quiet returns the configured quiet period.
func (d *Debouncer) Quiet() time.Duration {
	return d.quiet
}

// NotifyChanged (re)starts the quiet period. Any pending timer is stopped.
func (d *Debouncer) NotifyChanged() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.quiet, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		// Superseded or cancelled after the runtime already dispatched us.
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.flush()
}

// Cancel stops the pending timer without flushing.
// Returns true if a timer was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Flush runs the callback now if a timer was pending, and reports whether it did.
func (d *Debouncer) Flush() bool {
	if !d.Cancel() {
		return false
	}
	d.flush()
	return true
}

// Pending reports whether a flush is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
