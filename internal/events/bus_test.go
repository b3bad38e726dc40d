package events

import "testing"

func TestPublishFansOut(t *testing.T) {
	bus := NewBus()

	a, unsubA := bus.Subscribe(EventOrderFilled, 1)
	b, unsubB := bus.Subscribe(EventOrderFilled, 1)
	defer unsubA()
	defer unsubB()

	bus.Publish(EventOrderFilled, "payload")

	for name, ch := range map[string]<-chan any{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got != "payload" {
				t.Fatalf("subscriber %s got %v", name, got)
			}
		default:
			t.Fatalf("subscriber %s received nothing", name)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderFilled, 1)
	defer unsub()

	bus.Publish(EventOrderFilled, 1)
	bus.Publish(EventOrderFilled, 2) // buffer full, dropped

	if got := <-ch; got != 1 {
		t.Fatalf("got %v, expected first payload", got)
	}
	select {
	case got := <-ch:
		t.Fatalf("second payload %v delivered despite full buffer", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderFilled, 1)

	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventOrderFilled, "late")
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderFilled, 1)
	defer unsub()

	bus.Publish(EventOrderFailed, "wrong topic")

	select {
	case got := <-ch:
		t.Fatalf("received payload %v from another topic", got)
	default:
	}
}
