package counter

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
)

// subscriptionBuffer is the number of events a subscriber may lag behind
// before new events are dropped for it.
const subscriptionBuffer = 64

// Subscription receives the events of one counter, or of every counter if
// Contract is the zero address.
type Subscription struct {
	ID       uuid.UUID
	Contract common.Address
	C        <-chan *storage.Event

	ch     chan *storage.Event
	broker *Broker
	once   sync.Once
}

// Close stops the delivery of events and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.ID)
		s.broker.mu.Unlock()
		close(s.ch)
	})
}

// Broker fans out committed events to subscribers.
type Broker struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uuid.UUID]*Subscription)}
}

// Subscribe registers a new subscriber for contract.
func (b *Broker) Subscribe(contract common.Address) *Subscription {
	ch := make(chan *storage.Event, subscriptionBuffer)
	s := &Subscription{
		ID:       uuid.New(),
		Contract: contract,
		C:        ch,
		ch:       ch,
		broker:   b,
	}
	b.mu.Lock()
	b.subs[s.ID] = s
	b.mu.Unlock()
	return s
}

// Publish delivers events without blocking. Slow subscribers miss events.
func (b *Broker) Publish(events ...*storage.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ev := range events {
		for _, s := range b.subs {
			if s.Contract != (common.Address{}) && s.Contract != ev.Contract {
				continue
			}
			select {
			case s.ch <- ev:
			default:
				log.Warnw("dropping event for slow subscriber", "subscription", s.ID.String(), "event", ev.Name)
			}
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
