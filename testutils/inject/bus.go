package inject

import (
	"context"

	"go.viam.com/navgoal/bus"
)

// Bus is an injected bus.
type Bus struct {
	bus.Bus
	PublishFunc   func(ctx context.Context, topic string, data []byte) error
	SubscribeFunc func(topic string, handler bus.Handler) (bus.Subscription, error)
	CloseFunc     func() error
}

// Publish calls the injected Publish or the real version.
func (b *Bus) Publish(ctx context.Context, topic string, data []byte) error {
	if b.PublishFunc == nil {
		return b.Bus.Publish(ctx, topic, data)
	}
	return b.PublishFunc(ctx, topic, data)
}

// Subscribe calls the injected Subscribe or the real version.
func (b *Bus) Subscribe(topic string, handler bus.Handler) (bus.Subscription, error) {
	if b.SubscribeFunc == nil {
		return b.Bus.Subscribe(topic, handler)
	}
	return b.SubscribeFunc(topic, handler)
}

// Close calls the injected Close or the real version.
func (b *Bus) Close() error {
	if b.CloseFunc == nil {
		return b.Bus.Close()
	}
	return b.CloseFunc()
}
