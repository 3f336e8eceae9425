package notify

import (
	"context"
	"log"
	"sync"
)

// Handler is the protocol for message handlers.
type Handler interface {
	Handle(ctx context.Context, message Message) error
}

// HandlerFunc is a function type that implements Handler.
type HandlerFunc func(ctx context.Context, message Message) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, message Message) error {
	return f(ctx, message)
}

// Middleware intercepts messages before/after publishing.
// Used for logging, telemetry, and filtering.
type Middleware interface {
	// Before is called before a message fans out.
	// Returns the (possibly modified) message, or nil to abort publishing.
	Before(ctx context.Context, message Message) (Message, error)

	// After is called after all subscribers have run.
	After(ctx context.Context, message Message, err error)
}

// GetMessageType returns the routing key for a message.
func GetMessageType(msg Message) string {
	switch msg.(type) {
	case *StageStarted:
		return "StageStarted"
	case *StageCompleted:
		return "StageCompleted"
	case *ValidationFlagged:
		return "ValidationFlagged"
	case *StakeholderRequested:
		return "StakeholderRequested"
	case *WorkflowCompleted:
		return "WorkflowCompleted"
	default:
		return "Unknown"
	}
}

// InMemoryBus is a thread-safe in-memory notification bus for
// single-process deployments.
//
// Events fan out to every subscriber of their type. Subscriber errors are
// logged and never propagate to the publisher: the pipeline does not stall
// because a notification sink misbehaves.
//
// Usage:
//
//	bus := NewInMemoryBus()
//	bus.Subscribe("StageCompleted", telemetryHandler)
//	bus.Publish(ctx, &StageCompleted{...})
type InMemoryBus struct {
	subscribers map[string][]HandlerFunc
	middleware  []Middleware
	mu          sync.RWMutex
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string][]HandlerFunc),
		middleware:  make([]Middleware, 0),
	}
}

// Publish publishes an event to all subscribers.
// Events are processed concurrently by all subscribers.
// Subscriber errors are logged but don't stop other subscribers.
func (b *InMemoryBus) Publish(ctx context.Context, event Message) error {
	eventType := GetMessageType(event)

	processed, err := b.runMiddlewareBefore(ctx, event)
	if err != nil {
		return err
	}
	if processed == nil {
		log.Printf("Event %s aborted by middleware", eventType)
		return nil
	}

	b.mu.RLock()
	subscribers := b.subscribers[eventType]
	subscribersCopy := make([]HandlerFunc, len(subscribers))
	copy(subscribersCopy, subscribers)
	b.mu.RUnlock()

	if len(subscribersCopy) == 0 {
		b.runMiddlewareAfter(ctx, event, nil)
		return nil
	}

	// Fan-out to all subscribers concurrently
	var wg sync.WaitGroup
	errors := make([]error, len(subscribersCopy))

	for i, handler := range subscribersCopy {
		wg.Add(1)
		go func(idx int, h HandlerFunc) {
			defer wg.Done()
			if err := h(ctx, processed); err != nil {
				errors[idx] = err
				log.Printf("Subscriber %d failed for %s: %v", idx, eventType, err)
			}
		}(i, handler)
	}

	wg.Wait()

	var firstError error
	for _, e := range errors {
		if e != nil {
			firstError = e
			break
		}
	}

	b.runMiddlewareAfter(ctx, event, firstError)
	return nil
}

// Subscribe subscribes to an event type.
// Returns an unsubscribe function for cleanup.
func (b *InMemoryBus) Subscribe(eventType string, handler HandlerFunc) func() {
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	idx := len(b.subscribers[eventType]) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[eventType]
		if idx < len(subs) {
			b.subscribers[eventType] = append(subs[:idx], subs[idx+1:]...)
		}
	}
}

// AddMiddleware adds middleware to the bus.
// Middleware is executed in registration order.
func (b *InMemoryBus) AddMiddleware(middleware Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.middleware = append(b.middleware, middleware)
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *InMemoryBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[eventType])
}

// Clear clears all subscribers and middleware. Useful for testing.
func (b *InMemoryBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers = make(map[string][]HandlerFunc)
	b.middleware = make([]Middleware, 0)
}

func (b *InMemoryBus) runMiddlewareBefore(ctx context.Context, message Message) (Message, error) {
	b.mu.RLock()
	middlewareCopy := make([]Middleware, len(b.middleware))
	copy(middlewareCopy, b.middleware)
	b.mu.RUnlock()

	current := message
	for _, mw := range middlewareCopy {
		result, err := mw.Before(ctx, current)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, nil
		}
		current = result
	}
	return current, nil
}

// runMiddlewareAfter runs the middleware after chain in reverse order.
func (b *InMemoryBus) runMiddlewareAfter(ctx context.Context, message Message, err error) {
	b.mu.RLock()
	middlewareCopy := make([]Middleware, len(b.middleware))
	copy(middlewareCopy, b.middleware)
	b.mu.RUnlock()

	for i := len(middlewareCopy) - 1; i >= 0; i-- {
		middlewareCopy[i].After(ctx, message, err)
	}
}

// LoggingMiddleware logs all message traffic.
type LoggingMiddleware struct{}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware() *LoggingMiddleware {
	return &LoggingMiddleware{}
}

// Before logs message receipt.
func (m *LoggingMiddleware) Before(ctx context.Context, message Message) (Message, error) {
	log.Printf("notify: %s %s", message.Category(), GetMessageType(message))
	return message, nil
}

// After logs message completion.
func (m *LoggingMiddleware) After(ctx context.Context, message Message, err error) {
	if err != nil {
		log.Printf("notify: %s failed: %v", GetMessageType(message), err)
	}
}
