package events

import (
	"context"
	"sync"
	"time"

	"jobsync/internal/logger"
)

// ChangeReason tells subscribers which stage mutated the store
type ChangeReason string

const (
	ReasonUpsert  ChangeReason = "upsert"
	ReasonCleanup ChangeReason = "cleanup"
)

// StoreChange is emitted once per batch that created, updated or deleted records
type StoreChange struct {
	Source  string
	Reason  ChangeReason
	Created int
	Updated int
	Deleted int
	At      time.Time
}

// Empty reports whether the change touched nothing
func (c StoreChange) Empty() bool {
	return c.Created == 0 && c.Updated == 0 && c.Deleted == 0
}

// Handler reacts to a store change. Errors are logged by the bus.
type Handler func(ctx context.Context, change StoreChange) error

// Publisher emits store changes
type Publisher interface {
	Publish(ctx context.Context, change StoreChange)
}

// Bus dispatches store changes synchronously to every subscriber
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   logger.Logger
}

// NewBus creates an in-process event bus
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		handlers: make(map[string]Handler),
		logger:   log.With(logger.String("component", "event_bus")),
	}
}

// Subscribe registers a named handler, replacing any previous one with the same name
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = h
}

// Unsubscribe removes a handler
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, name)
}

// Publish delivers change to every handler. A failing or panicking handler
// does not affect the others or the publisher.
func (b *Bus) Publish(ctx context.Context, change StoreChange) {
	if change.Empty() {
		return
	}
	if change.At.IsZero() {
		change.At = time.Now()
	}

	b.mu.RLock()
	handlers := make(map[string]Handler, len(b.handlers))
	for name, h := range b.handlers {
		handlers[name] = h
	}
	b.mu.RUnlock()

	for name, h := range handlers {
		b.deliver(ctx, name, h, change)
	}
}

func (b *Bus) deliver(ctx context.Context, name string, h Handler, change StoreChange) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				logger.String("handler", name),
				logger.Any("panic", r))
		}
	}()

	if err := h(ctx, change); err != nil {
		b.logger.Warn("event handler failed",
			logger.String("handler", name),
			logger.String("source", change.Source),
			logger.String("reason", string(change.Reason)),
			logger.Error(err))
	}
}
