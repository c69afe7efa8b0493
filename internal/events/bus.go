// Package events is an in-process publish/subscribe bus for catalog and
// store notifications.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	// EventRulesetReloaded is published after a new ruleset is installed.
	EventRulesetReloaded EventType = "ruleset_reloaded"
	// EventTemplatesReloaded is published after new template rows are installed.
	EventTemplatesReloaded EventType = "templates_reloaded"
	// EventReloadFailed is published when a changed file could not be loaded;
	// the previous snapshot stays in place.
	EventReloadFailed EventType = "reload_failed"
	// EventItemsWritten is published after the item file is rewritten.
	EventItemsWritten EventType = "items_written"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]any
}

type Subscriber func(Event)

// Bus delivers events asynchronously through one buffered channel per
// subscriber. Publish never blocks: when a subscriber's buffer is full the
// event is dropped for that subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	bufferSize  int
	logger      *zap.Logger
}

// NewBus creates a bus. A non-positive bufferSize defaults to 100.
func NewBus(bufferSize int, logger *zap.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe registers fn for eventType and returns a function that
// removes it. fn runs on its own goroutine; a panic in fn is logged and
// does not stop delivery.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)

	go func() {
		for event := range ch {
			b.deliver(fn, event)
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[eventType]
		for i, subCh := range subs {
			if subCh == ch {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

func (b *Bus) deliver(fn Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				zap.String("event", string(event.Type)),
				zap.Any("panic", r))
		}
	}()
	fn(event)
}

// Publish sends an event to every subscriber of eventType.
func (b *Bus) Publish(eventType EventType, data map[string]any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	for _, ch := range b.subscribers[eventType] {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped, subscriber buffer full", zap.String("event", string(eventType)))
		}
	}
}

// Close removes every subscriber and ends their delivery goroutines.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, eventType)
	}
}
