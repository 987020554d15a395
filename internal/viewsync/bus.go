package viewsync

import (
	"context"
	"sync"
)

const busBufferSize = 16

// Bus is an in-process broker. Publish never blocks; a subscriber whose
// buffer is full misses the event.
type Bus[T any] struct {
	subs map[chan T]struct{}
	mu   sync.RWMutex
	done chan struct{}
}

// NewBus returns an open bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{
		subs: make(map[chan T]struct{}),
		done: make(chan struct{}),
	}
}

// Shutdown closes every subscription. It is safe to call more than once.
func (b *Bus[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribe returns a channel receiving every later Publish until ctx is
// done or the bus shuts down.
func (b *Bus[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan T)
		close(ch)
		return ch
	default:
	}

	sub := make(chan T, busBufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
		}
	}()

	return sub
}

// Subscribers returns the number of live subscriptions.
func (b *Bus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers v to every subscriber without blocking.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	for sub := range b.subs {
		select {
		case sub <- v:
		default:
		}
	}
}
