// Package fanout pushes store mutations to every live subscriber of a
// topic. Subscriptions are explicit handle objects registered in a single
// table behind one mutex; there is no ad-hoc listener bookkeeping anywhere
// else in the codebase.
package fanout

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType describes the incremental change carried by an event.
type EventType string

const (
	Added    EventType = "added"
	Modified EventType = "modified"
	Removed  EventType = "removed"
)

// Topic builders. Every stream a client can observe maps to exactly one of
// these.
func MessagesTopic(conversationID string) string { return "messages/" + conversationID }
func ConversationsTopic(userID string) string    { return "conversations/" + userID }
func PresenceTopic(userID string) string         { return "presence/" + userID }
func TypingTopic(conversationID string) string   { return "typing/" + conversationID }

// Event carries enough information to apply an incremental update without
// re-fetching the collection. Seq increases by one per topic in commit
// order.
type Event struct {
	Topic   string    `json:"topic"`
	Type    EventType `json:"type"`
	Seq     uint64    `json:"seq"`
	Payload any       `json:"payload"`
}

// Subscription is the handle owned by a single subscriber. Cancel is
// idempotent, deterministically stops delivery and releases the broker-side
// registration.
type Subscription struct {
	ID    string
	Topic string

	events chan Event
	broker *Broker
	once   sync.Once
}

// Events is the stream of change events. It is closed on Cancel and when
// the subscriber falls too far behind.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Cancel releases the subscription. No events are delivered afterwards.
func (s *Subscription) Cancel() {
	s.broker.remove(s)
}

const subscriptionBuffer = 64

// Broker is the in-process fanout engine. A mirror hook, when set, sees
// every locally published event so it can be relayed to other instances.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscription
	seqs   map[string]uint64
	mirror func(Event)
	logger *zap.Logger
}

func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		topics: make(map[string]map[string]*Subscription),
		seqs:   make(map[string]uint64),
		logger: logger,
	}
}

// SetMirror installs the cross-instance relay. Must be called before any
// Publish.
func (b *Broker) SetMirror(fn func(Event)) {
	b.mirror = fn
}

// Subscribe registers a new handle for the topic.
func (b *Broker) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		ID:     uuid.New().String(),
		Topic:  topic,
		events: make(chan Event, subscriptionBuffer),
		broker: b,
	}

	b.mu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]*Subscription)
		b.topics[topic] = subs
	}
	subs[sub.ID] = sub
	b.mu.Unlock()

	b.logger.Debug("subscription registered",
		zap.String("subscription_id", sub.ID),
		zap.String("topic", topic),
	)
	return sub
}

// Publish delivers an event to every subscriber of the topic and relays it
// to other instances via the mirror.
func (b *Broker) Publish(topic string, typ EventType, payload any) {
	ev := b.dispatch(topic, typ, payload)
	if b.mirror != nil {
		b.mirror(ev)
	}
}

// PublishLocal delivers without mirroring. Used by the bridge for events
// that originated on another instance.
func (b *Broker) PublishLocal(topic string, typ EventType, payload any) {
	b.dispatch(topic, typ, payload)
}

// dispatch assigns the per-topic sequence number and enqueues the event
// under the table lock, so no subscriber can observe updates out of commit
// order. A subscriber whose buffer is full is cancelled rather than skipped:
// a live stream either sees every event in order or stops.
func (b *Broker) dispatch(topic string, typ EventType, payload any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seqs[topic]++
	ev := Event{
		Topic:   topic,
		Type:    typ,
		Seq:     b.seqs[topic],
		Payload: payload,
	}

	for id, sub := range b.topics[topic] {
		select {
		case sub.events <- ev:
		default:
			b.logger.Warn("subscriber overflow, cancelling",
				zap.String("subscription_id", id),
				zap.String("topic", topic),
			)
			delete(b.topics[topic], id)
			sub.once.Do(func() { close(sub.events) })
		}
	}
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}

	return ev
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.topics[sub.Topic]; ok {
		if _, exists := subs[sub.ID]; exists {
			delete(subs, sub.ID)
		}
		if len(subs) == 0 {
			delete(b.topics, sub.Topic)
		}
	}
	sub.once.Do(func() { close(sub.events) })
}

// SubscriberCount reports the live registrations per topic, for monitoring.
func (b *Broker) SubscriberCount() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[string]int, len(b.topics))
	for topic, subs := range b.topics {
		counts[topic] = len(subs)
	}
	return counts
}
