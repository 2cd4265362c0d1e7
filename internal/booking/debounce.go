package booking

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of change notifications into a single
// refresh once the burst has been quiet for the configured interval.
// Every Trigger assigns a new sequence number; the run callback
// receives the number so callers can discard results of an older
// trigger that finish after a newer one (last-request-wins).
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	seq      uint64
	stopped  bool
	run      func(seq uint64)
}

// NewDebouncer returns a debouncer firing run after interval of
// quiescence. run is called on its own goroutine.
func NewDebouncer(interval time.Duration, run func(seq uint64)) *Debouncer {
	return &Debouncer{interval: interval, run: run}
}

// Trigger notes a change and (re)starts the quiet-period timer. Rapid
// consecutive triggers collapse into one run.
func (d *Debouncer) Trigger() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return d.seq
	}
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stale := seq != d.seq || d.stopped
		d.mu.Unlock()
		if stale {
			return
		}
		go d.run(seq)
	})
	return seq
}

// Latest returns the most recently assigned sequence number.
func (d *Debouncer) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// Stale reports whether seq belongs to a trigger that has been
// superseded by a newer one.
func (d *Debouncer) Stale(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq < d.seq
}

// Stop cancels any pending run. Triggers after Stop are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
