package foxglove

import "context"

// Hub is a generic broadcast fan-out: one publisher, many subscriber
// channels, each fed on a best-effort basis (a slow subscriber drops
// messages rather than blocking the publisher).
type Hub[T any] struct {
	broadcast  chan T
	register   chan chan T
	unregister chan chan T
	clients    map[chan T]struct{}
	clientBuf  int
}

// Option configures a Hub at construction time.
type Option[T any] func(*Hub[T])

func WithBroadcastBuffer[T any](size int) Option[T] {
	return func(h *Hub[T]) {
		if size > 0 {
			h.broadcast = make(chan T, size)
		}
	}
}

func WithClientBuffer[T any](size int) Option[T] {
	return func(h *Hub[T]) {
		if size > 0 {
			h.clientBuf = size
		}
	}
}

// NewHub creates a Hub ready to Run.
func NewHub[T any](opts ...Option[T]) *Hub[T] {
	h := &Hub[T]{
		broadcast:  make(chan T, 256),
		register:   make(chan chan T),
		unregister: make(chan chan T),
		clients:    make(map[chan T]struct{}),
		clientBuf:  100,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run drives the hub's event loop until ctx is cancelled, at which
// point every subscriber channel is closed.
func (h *Hub[T]) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for ch := range h.clients {
				close(ch)
			}
			return
		case ch := <-h.register:
			h.clients[ch] = struct{}{}
		case ch := <-h.unregister:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case msg := <-h.broadcast:
			for ch := range h.clients {
				select {
				case ch <- msg:
				default:
				}
			}
		}
	}
}

// Subscribe registers a new subscriber channel sized to the hub's
// default client buffer.
func (h *Hub[T]) Subscribe() chan T {
	return h.SubscribeWithBuffer(h.clientBuf)
}

func (h *Hub[T]) SubscribeWithBuffer(size int) chan T {
	if size <= 0 {
		size = h.clientBuf
	}
	ch := make(chan T, size)
	h.register <- ch
	return ch
}

// Unsubscribe removes and closes a previously subscribed channel.
func (h *Hub[T]) Unsubscribe(ch chan T) {
	h.unregister <- ch
}

// Publish broadcasts msg to every current subscriber.
func (h *Hub[T]) Publish(msg T) {
	h.broadcast <- msg
}
