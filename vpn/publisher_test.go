package vpn

import (
	"sync"
	"testing"
)

func TestPublisherDeliveryOrder(t *testing.T) {
	p := NewPublisher()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		p.Subscribe(func(State) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	p.Notify(State{Status: StatusConnected})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 5 {
		t.Fatalf("deliveries: got %d, want 5", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("delivery %d went to subscriber %d, want registration order", i, got)
		}
	}
}

func TestPublisherUnsubscribe(t *testing.T) {
	p := NewPublisher()

	var calls int
	h := p.Subscribe(func(State) { calls++ })
	p.Notify(State{Status: StatusConnecting})
	p.Unsubscribe(h)
	p.Notify(State{Status: StatusConnected})

	if calls != 1 {
		t.Errorf("calls after unsubscribe: got %d, want 1", calls)
	}
	if p.Len() != 0 {
		t.Errorf("remaining subscribers: got %d, want 0", p.Len())
	}
}

func TestPublisherSubscribeDuringNotify(t *testing.T) {
	p := NewPublisher()

	// A subscriber that registers another subscriber must not deadlock:
	// the lock is released before callbacks run.
	var late int
	p.Subscribe(func(State) {
		p.Subscribe(func(State) { late++ })
	})

	p.Notify(State{Status: StatusConnecting})
	if late != 0 {
		t.Errorf("late subscriber invoked for the notification it registered during: %d", late)
	}

	p.Notify(State{Status: StatusConnected})
	if late != 1 {
		t.Errorf("late subscriber calls: got %d, want 1", late)
	}
}

func TestPublisherPanickingSubscriber(t *testing.T) {
	p := NewPublisher()

	p.Subscribe(func(State) { panic("subscriber bug") })
	var reached bool
	p.Subscribe(func(State) { reached = true })

	p.Notify(State{Status: StatusConnected})
	if !reached {
		t.Error("panic in one subscriber starved the next one")
	}
}
