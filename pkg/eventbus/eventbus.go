package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is any signal travelling through the bus.
type Event interface {
	Name() string
}

// Listener handles one event.
type Listener func(ctx context.Context, event Event) error

type subscription struct {
	id       uint64
	listener Listener
}

// Bus is a name-keyed publish/subscribe channel shared by the process.
type Bus struct {
	listeners map[string][]subscription
	nextID    uint64
	mu        sync.RWMutex
	logger    *zap.Logger
}

// New creates an empty bus.
func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]subscription),
		logger:    logger,
	}
}

// Subscribe registers listener for eventName and returns a function that
// removes it again. Calling the returned function more than once is a no-op.
func (b *Bus) Subscribe(eventName string, listener Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[eventName] = append(b.listeners[eventName], subscription{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventName, id) })
	}
}

func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.listeners[eventName]
	for i, s := range subs {
		if s.id == id {
			b.listeners[eventName] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.listeners[eventName]) == 0 {
		delete(b.listeners, eventName)
	}
}

func (b *Bus) snapshot(eventName string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := b.listeners[eventName]
	out := make([]subscription, len(subs))
	copy(out, subs)
	return out
}

// Publish delivers event to every listener in subscription order on the
// caller's goroutine. Listeners may subscribe or unsubscribe while handling.
func (b *Bus) Publish(ctx context.Context, event Event) {
	eventName := event.Name()
	for _, s := range b.snapshot(eventName) {
		if err := s.listener(ctx, event); err != nil {
			b.logger.Error("event listener failed",
				zap.String("event", eventName),
				zap.Error(err),
			)
		}
	}
}

// PublishAsync runs every listener in its own goroutine with a one minute
// budget. Used for slow consumers such as websocket fan-out.
func (b *Bus) PublishAsync(event Event) {
	eventName := event.Name()
	for _, s := range b.snapshot(eventName) {
		go func(l Listener) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if err := l(ctx, event); err != nil {
				b.logger.Error("async event listener failed",
					zap.String("event", eventName),
					zap.Error(err),
				)
			}
		}(s.listener)
	}
}
