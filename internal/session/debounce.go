package session

import (
	"sync"
	"time"

	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
)

// Debouncer coalesces bursts of snapshots. After Trigger goes quiet for the
// configured delay, the handler runs once with the last snapshot of the burst.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending *Snapshot
	handle  func(Snapshot)
	stopped bool
}

// NewDebouncer returns a debouncer that calls handle. A non-positive delay
// uses the default of 300ms.
func NewDebouncer(delay time.Duration, handle func(Snapshot)) *Debouncer {
	if delay <= 0 {
		delay = constants.DefaultDebounceDelay
	}
	return &Debouncer{delay: delay, handle: handle}
}

// Trigger records snap as the newest input and restarts the quiet period.
func (d *Debouncer) Trigger(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = &snap
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Flush runs the handler immediately for any pending snapshot.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}

// Stop cancels any pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	snap := d.pending
	d.pending = nil
	d.mu.Unlock()

	if snap != nil {
		d.handle(*snap)
	}
}
