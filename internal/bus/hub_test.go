package bus

import "testing"

func TestSubscribeAndBroadcast(t *testing.T) {
	h := NewHub[string]("test", nil)
	_, ch := h.Subscribe(4)

	h.Broadcast("hello")

	select {
	case got := <-ch:
		if got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
	default:
		t.Fatal("expected a buffered event, got none")
	}
}

func TestBroadcastFanOut(t *testing.T) {
	h := NewHub[int]("test", nil)
	_, ch1 := h.Subscribe(1)
	_, ch2 := h.Subscribe(1)

	h.Broadcast(42)

	if got := <-ch1; got != 42 {
		t.Errorf("ch1 got %d, want 42", got)
	}
	if got := <-ch2; got != 42 {
		t.Errorf("ch2 got %d, want 42", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub[int]("test", nil)
	id, ch := h.Subscribe(1)

	h.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if h.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", h.SubscriberCount())
	}
}

func TestUnsubscribeUnknownIDIsNoop(t *testing.T) {
	h := NewHub[int]("test", nil)
	h.Unsubscribe(999) // must not panic
}

func TestBroadcastEvictsLaggingSubscriber(t *testing.T) {
	h := NewHub[int]("test", nil)
	_, slow := h.Subscribe(1)

	h.Broadcast(1) // fills the one-slot buffer
	h.Broadcast(2) // slow subscriber's channel is now full: evicted

	if h.SubscriberCount() != 0 {
		t.Errorf("expected lagging subscriber to be evicted, count = %d", h.SubscriberCount())
	}

	// the channel should have been drained of its first value, then closed.
	first, ok := <-slow
	if !ok || first != 1 {
		t.Errorf("expected buffered value 1 before close, got %d ok=%v", first, ok)
	}
	if _, ok := <-slow; ok {
		t.Error("evicted subscriber's channel should be closed")
	}
}

func TestSubscriberCount(t *testing.T) {
	h := NewHub[int]("test", nil)
	if h.SubscriberCount() != 0 {
		t.Fatal("fresh hub should have no subscribers")
	}
	id1, _ := h.Subscribe(1)
	h.Subscribe(1)
	if h.SubscriberCount() != 2 {
		t.Errorf("SubscriberCount() = %d, want 2", h.SubscriberCount())
	}
	h.Unsubscribe(id1)
	if h.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", h.SubscriberCount())
	}
}
