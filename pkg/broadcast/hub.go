// Package broadcast fans published values out to every live subscriber.
//
// Delivery is lossless and ordered per subscriber: a slow reader never blocks
// Publish and never misses a value, its queue simply grows until it catches up.
package broadcast

import (
	"context"
	"sync"
)

type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[*subscriber[T]]struct{}
	closed bool
}

func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[*subscriber[T]]struct{})}
}

type subscriber[T any] struct {
	mu     sync.Mutex
	queue  []T
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) drain() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue
	s.queue = nil
	return q
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() { close(s.done) })
}

// Subscribe registers a new subscriber. Values published after Subscribe
// returns are delivered on the channel in publish order. The channel is
// closed once ctx is done or the hub is closed.
func (h *Hub[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T)
	s := &subscriber[T]{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(out)
		return out
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go h.pump(ctx, s, out)
	return out
}

func (h *Hub[T]) pump(ctx context.Context, s *subscriber[T], out chan<- T) {
	defer func() {
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
		close(out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			// flush what was queued before the hub closed
			for _, v := range s.drain() {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
			return
		case <-s.notify:
		}

		for _, v := range s.drain() {
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Publish enqueues v for every current subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for s := range h.subs {
		s.push(v)
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub[T]) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close stops the hub. Subscribers receive what was already queued and then
// see their channel closed.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.stop()
	}
}
