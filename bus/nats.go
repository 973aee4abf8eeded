package bus

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/navgoal/logging"
)

// NATSConfig configures a NATS backed bus.
type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
}

type natsBus struct {
	conn   *nats.Conn
	logger logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATSBus connects to a NATS server. The connection reconnects forever; disconnects are logged.
func NewNATSBus(cfg NATSConfig, logger logging.Logger) (Bus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Name == "" {
		cfg.Name = "navgoal"
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warnw("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infow("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("nats connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Warnw("nats async error", "subject", subject, "error", err)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to nats at %s", cfg.URL)
	}
	logger.Infow("nats connected", "url", conn.ConnectedUrl())

	ctx, cancel := context.WithCancel(context.Background())
	return &natsBus{conn: conn, logger: logger, ctx: ctx, cancel: cancel}, nil
}

func (b *natsBus) Publish(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, err := Subject(topic)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return errors.Wrapf(err, "cannot publish on %s", subject)
	}
	return nil
}

// Subscribe registers an async subscription. NATS delivers a subscription's messages one at a
// time, in order.
func (b *natsBus) Subscribe(topic string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("nil handler")
	}
	subject, err := Subject(topic)
	if err != nil {
		return nil, err
	}
	sub, err := b.conn.Subscribe(subject, func(m *nats.Msg) {
		handler(b.ctx, Message{Topic: topic, Data: m.Data})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot subscribe to %s", subject)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	b.logger.Debugw("subscribed", "topic", topic, "subject", subject)
	return sub, nil
}

// Close drains subscriptions and closes the connection.
func (b *natsBus) Close() error {
	b.cancel()
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var err error
	for _, sub := range subs {
		if !sub.IsValid() {
			continue
		}
		err = multierr.Combine(err, sub.Unsubscribe())
	}
	b.conn.Close()
	return err
}
