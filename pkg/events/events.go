package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/hutch/pkg/types"
)

// Type classifies a lifecycle notification
type Type string

const (
	TypeRegistered   Type = "subsystem.registered"
	TypeTransition   Type = "subsystem.transition"
	TypeDeregistered Type = "subsystem.deregistered"
)

// Notification describes one observable lifecycle moment of a subsystem.
// It is a read-only fan-out copy; mutating it has no effect on the
// subsystem it describes.
type Notification struct {
	ID        string
	Type      Type
	Tag       types.Tag
	Name      string
	From      types.State
	To        types.State
	Timestamp time.Time
}

// Subscriber is a channel that receives notifications
type Subscriber chan Notification

// Broker manages notification subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan Notification
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new notification broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan Notification, 100), // Buffer up to 100 notifications
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish publishes a notification to all subscribers. The ID and
// timestamp are filled in if unset.
func (b *Broker) Publish(n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- n:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case n := <-b.eventCh:
			b.broadcast(n)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- n:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
