// Package events delivers advisory pipeline notifications to optional subscribers.
// Publishing never blocks the caller on a slow subscriber and never fails.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Topic names an event stream
type Topic string

const (
	TopicPortfolioFetched Topic = "portfolio.fetched"
	TopicBehaviorAnalyzed Topic = "behavior.analyzed"
	TopicRiskCompleted    Topic = "risk.completed"
	TopicScoreCalculated  Topic = "score.calculated"
)

// Event is a single notification
type Event struct {
	Topic     Topic       `json:"topic"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Handler receives events synchronously on the publisher's goroutine
type Handler func(ctx context.Context, evt Event)

// Publisher is the capability components depend on
type Publisher interface {
	Publish(ctx context.Context, topic Topic, userID string, payload interface{})
}

type subscription struct {
	id      uint64
	handler Handler
	ch      chan Event
}

// Bus fans events out to handlers and buffered channels by topic
type Bus struct {
	mu      sync.RWMutex
	subs    map[Topic][]subscription
	nextID  uint64
	dropped uint64
	logger  *zap.Logger
	now     func() time.Time
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[Topic][]subscription),
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a handler and returns a function that removes it
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	return b.add(topic, subscription{handler: h})
}

// SubscribeChan returns a buffered channel receiving the topic's events.
// Events are dropped rather than blocking when the buffer is full.
func (b *Bus) SubscribeChan(topic Topic, buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)
	return ch, b.add(topic, subscription{ch: ch})
}

func (b *Bus) add(topic Topic, sub subscription) func() {
	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, sub.id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to every current subscriber of its topic
func (b *Bus) Publish(ctx context.Context, topic Topic, userID string, payload interface{}) {
	if b == nil {
		return
	}
	evt := Event{Topic: topic, UserID: userID, Timestamp: b.now(), Payload: payload}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		if s.ch != nil {
			select {
			case s.ch <- evt:
			default:
				atomic.AddUint64(&b.dropped, 1)
			}
			continue
		}
		b.invoke(ctx, s.handler, evt)
	}
}

func (b *Bus) invoke(ctx context.Context, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", string(evt.Topic)),
				zap.String("user_id", evt.UserID),
				zap.Any("panic", r))
		}
	}()
	h(ctx, evt)
}

// Dropped returns how many channel deliveries were skipped because a buffer was full
func (b *Bus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Topic, string, interface{}) {}
