package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeKind distinguishes the two transitions a Sink reports.
type ChangeKind string

const (
	// Changed means the object at Path had a cstate (or equivalent)
	// transition; subscribers should re-read it.
	Changed ChangeKind = "changed"

	// Removed means the object at Path was garbage-collected and no
	// longer exists.
	Removed ChangeKind = "removed"
)

// Change is one notification delivered to subscribers.
type Change struct {
	ID        uuid.UUID // correlates this notification with log lines from the reconcile pass that raised it
	Kind      ChangeKind
	Path      string // e.g. "/nodes/alpha", "/resources/data/assignments/bravo"
	Timestamp time.Time
}

// Subscriber is a channel that receives Changes.
type Subscriber chan *Change

// Broker distributes Changes to every live Subscriber, decoupling the
// reconciler from whatever is listening (RPC long-pollers, a CLI watch
// command, a future replication hook).
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	changeCh    chan *Change
	stopCh      chan struct{}
}

// NewBroker returns a Broker that is not yet running; call Start.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		changeCh:    make(chan *Change, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop in a goroutine.
func (b *Broker) Start() {
	go b.run()
}

// Stop terminates the distribution loop. Subsequent Publish calls are
// no-ops.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe registers a new Subscriber with its own bounded buffer.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe deregisters sub and closes it.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish enqueues a Change for distribution.
func (b *Broker) Publish(c *Change) {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	select {
	case b.changeCh <- c:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case c := <-b.changeCh:
			b.broadcast(c)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(c *Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- c:
		default:
			// subscriber buffer full; drop rather than block the broker
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Sink is a per-object-path handle that the reconciler uses to notify
// about one observable entity, per spec §4.10.
type Sink struct {
	path   string
	broker *Broker
}

// NewSink returns a Sink bound to path, publishing through broker.
func NewSink(broker *Broker, path string) *Sink {
	return &Sink{path: path, broker: broker}
}

// NotifyChanged publishes a Changed notification for the Sink's path.
func (s *Sink) NotifyChanged() {
	s.broker.Publish(&Change{Kind: Changed, Path: s.path})
}

// NotifyRemoved publishes a Removed notification for the Sink's path.
func (s *Sink) NotifyRemoved() {
	s.broker.Publish(&Change{Kind: Removed, Path: s.path})
}
