package eventbus

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New()
	defer b.Close()

	first := b.Subscribe()
	second := b.Subscribe()

	b.Publish(Event{Kind: ReservationCreated, VehicleID: 7})

	for _, sub := range []<-chan Event{first, second} {
		select {
		case e := <-sub:
			if e.Kind != ReservationCreated || e.VehicleID != 7 {
				t.Fatalf("unexpected event %+v", e)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive the event")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	if _, ok := <-sub; ok {
		t.Fatalf("channel still open after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Kind: FleetUpdated})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New()
	defer b.Close()

	b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Kind: ReservationAdvanced, VehicleID: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Close()
	b.Close()

	if _, ok := <-sub; ok {
		t.Fatalf("channel still open after close")
	}
	if got := b.Subscribe(); got == nil {
		t.Fatalf("subscribe after close returned nil channel")
	}
}
