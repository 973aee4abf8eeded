package bus

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned by a bus that has been closed.
var ErrClosed = errors.New("bus is closed")

// memoryBus delivers messages synchronously to subscribers in the same process.
type memoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	closed bool
}

type memorySubscription struct {
	bus     *memoryBus
	subject string
	// serializes handler calls when several goroutines publish at once
	mu      sync.Mutex
	handler Handler
}

// NewMemoryBus returns an in-process bus. Publish returns once every subscriber has handled the
// message, which keeps replays and tests deterministic.
func NewMemoryBus() Bus {
	return &memoryBus{subs: map[string][]*memorySubscription{}}
}

func (b *memoryBus) Publish(ctx context.Context, topic string, data []byte) error {
	subject, err := Subject(topic)
	if err != nil {
		return err
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]*memorySubscription(nil), b.subs[subject]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload := append([]byte(nil), data...)
		sub.mu.Lock()
		sub.handler(ctx, Message{Topic: topic, Data: payload})
		sub.mu.Unlock()
	}
	return nil
}

func (b *memoryBus) Subscribe(topic string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("nil handler")
	}
	subject, err := Subject(topic)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	sub := &memorySubscription{bus: b, subject: subject, handler: handler}
	b.subs[subject] = append(b.subs[subject], sub)
	return sub, nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = map[string][]*memorySubscription{}
	return nil
}

func (s *memorySubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subs[s.subject]
	for i, other := range subs {
		if other == s {
			s.bus.subs[s.subject] = append(subs[:i:i], subs[i+1:]...)
			return nil
		}
	}
	return nil
}
