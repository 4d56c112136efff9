package vpn

import (
	"sort"
	"sync"

	"github.com/yllada/vpn-connector/common"
)

// Subscriber receives connection state snapshots. Callbacks may call back
// into the connector (e.g. trigger a disconnect): notifications are
// delivered without holding any connector lock, so reentrancy is safe.
type Subscriber func(State)

// SubscriberHandle identifies a registered subscriber for unsubscription.
type SubscriberHandle uint64

// Publisher fans connection state changes out to registered subscribers.
//
// Delivery guarantees: every subscriber observes the full ordered sequence
// of states with no gaps or coalescing, because Notify is only ever called
// from the connector's single event-processing goroutine, once per completed
// transition. A subscriber that panics does not block delivery to the
// remaining subscribers.
type Publisher struct {
	mu   sync.Mutex
	next SubscriberHandle
	subs map[SubscriberHandle]Subscriber
}

// NewPublisher creates an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[SubscriberHandle]Subscriber)}
}

// Subscribe registers a subscriber and returns its handle.
func (p *Publisher) Subscribe(s Subscriber) SubscriberHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	h := p.next
	p.subs[h] = s
	return h
}

// Unsubscribe removes a previously registered subscriber.
// Unknown handles are ignored.
func (p *Publisher) Unsubscribe(h SubscriberHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, h)
}

// Len returns the number of registered subscribers.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Notify delivers a state snapshot to every subscriber. The subscriber list
// is copied under the lock and the lock released before any callback runs,
// so a callback that subscribes, unsubscribes, or re-enters the connector
// cannot deadlock.
func (p *Publisher) Notify(s State) {
	p.mu.Lock()
	handles := make([]SubscriberHandle, 0, len(p.subs))
	for h := range p.subs {
		handles = append(handles, h)
	}
	// Registration order delivery keeps notifications deterministic.
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	callbacks := make([]Subscriber, len(handles))
	for i, h := range handles {
		callbacks[i] = p.subs[h]
	}
	p.mu.Unlock()

	for _, cb := range callbacks {
		invoke(cb, s)
	}
}

// invoke runs one callback, containing panics so a misbehaving subscriber
// cannot corrupt the state machine or starve other subscribers.
func invoke(cb Subscriber, s State) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("subscriber panicked during notification: %v", r)
		}
	}()
	cb(s)
}
