package jobs

import (
	"sync"

	"github.com/google/uuid"
)

type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is one progress notification. Terminal events carry the job's
// result or failure so subscribers need no follow-up read.
type Event struct {
	Type     EventType `json:"type"`
	Status   Status    `json:"status"`
	Progress int       `json:"pct"`
	Message  string    `json:"msg"`
	Result   *Result   `json:"result,omitempty"`
	Error    *Failure  `json:"error,omitempty"`
}

// Terminal reports whether the event closes the job's stream.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}

const subscriberBuffer = 32

// Broker fans job events out to in-process subscribers. Publishing holds the
// broker lock, so each subscriber observes events in publish order. A
// subscriber that falls more than subscriberBuffer events behind is dropped;
// dropped clients recover through the polling endpoint.
type Broker struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe registers for events on one job. The returned cancel func is
// safe to call more than once and must be called when the subscriber exits.
func (b *Broker) Subscribe(id uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	set, ok := b.subs[id]
	if !ok {
		set = make(map[chan Event]struct{})
		b.subs[id] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			b.remove(id, ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of the job. After a
// terminal event all subscriber channels for the job are closed.
func (b *Broker) Publish(id uuid.UUID, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[id] {
		select {
		case ch <- event:
		default:
			b.remove(id, ch)
		}
	}

	if event.Terminal() {
		for ch := range b.subs[id] {
			b.remove(id, ch)
		}
	}
}

// remove must be called with the broker lock held.
func (b *Broker) remove(id uuid.UUID, ch chan Event) {
	set, ok := b.subs[id]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(b.subs, id)
	}
}
