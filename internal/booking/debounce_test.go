package booking

import (
	"testing"
	"time"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	runs := make(chan uint64, 16)
	d := NewDebouncer(30*time.Millisecond, func(seq uint64) { runs <- seq })
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Trigger()
	}

	select {
	case seq := <-runs:
		if seq != 5 {
			t.Fatalf("run fired with seq %d, want 5", seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("debouncer never fired")
	}

	// The burst collapses into exactly one run.
	select {
	case seq := <-runs:
		t.Fatalf("unexpected second run with seq %d", seq)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerRestartsQuietPeriod(t *testing.T) {
	runs := make(chan uint64, 16)
	d := NewDebouncer(40*time.Millisecond, func(seq uint64) { runs <- seq })
	defer d.Stop()

	d.Trigger()
	time.Sleep(20 * time.Millisecond)
	d.Trigger() // inside the quiet period, timer restarts

	select {
	case seq := <-runs:
		if seq != 2 {
			t.Fatalf("run fired with seq %d, want 2", seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("debouncer never fired")
	}
	if got := d.Latest(); got != 2 {
		t.Fatalf("Latest() = %d, want 2", got)
	}
}

func TestDebouncerStale(t *testing.T) {
	d := NewDebouncer(time.Hour, func(uint64) {})
	defer d.Stop()

	first := d.Trigger()
	second := d.Trigger()

	if !d.Stale(first) {
		t.Errorf("superseded seq %d not reported stale", first)
	}
	if d.Stale(second) {
		t.Errorf("latest seq %d reported stale", second)
	}
}

func TestDebouncerStopCancelsPendingRun(t *testing.T) {
	runs := make(chan uint64, 1)
	d := NewDebouncer(30*time.Millisecond, func(seq uint64) { runs <- seq })

	d.Trigger()
	d.Stop()

	select {
	case seq := <-runs:
		t.Fatalf("run %d fired after Stop", seq)
	case <-time.After(100 * time.Millisecond):
	}

	if seq := d.Trigger(); seq != 1 {
		t.Fatalf("Trigger after Stop advanced seq to %d", seq)
	}
}
