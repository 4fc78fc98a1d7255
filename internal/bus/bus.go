// Package bus is a typed, synchronous publish/subscribe channel.
package bus

import "sync"

// Handler receives published values.
type Handler[T any] func(T)

// Subscription identifies a registered handler.
type Subscription struct {
	id uint64
}

type entry[T any] struct {
	id      uint64
	handler Handler[T]
}

// Bus delivers each published value to every handler, in subscription order,
// on the publishing goroutine. Handlers that do slow work should start their
// own goroutine.
type Bus[T any] struct {
	mu       sync.RWMutex
	next     uint64
	handlers []entry[T]
}

// New returns an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers h and returns a handle for Unsubscribe.
func (b *Bus[T]) Subscribe(h Handler[T]) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.handlers = append(b.handlers, entry[T]{id: b.next, handler: h})
	return Subscription{id: b.next}
}

// Unsubscribe removes the handler. It reports whether s was registered.
func (b *Bus[T]) Unsubscribe(s Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.handlers {
		if e.id == s.id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Publish calls every handler with v. Handlers may subscribe or unsubscribe
// during delivery; changes apply to the next Publish.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	handlers := make([]Handler[T], len(b.handlers))
	for i, e := range b.handlers {
		handlers[i] = e.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(v)
	}
}

// Len reports the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
