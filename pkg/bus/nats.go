package bus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBus bridges the mutation feed onto an external NATS server so
// tooling outside this process can follow along. It stays on core
// NATS: the feed is an announcement stream, nothing here needs
// persistence or queue groups.
type NATSBus struct {
	nc     *nats.Conn
	closed atomic.Bool
}

// NewNATSBus dials cfg.URL and keeps retrying forever once connected.
// A flapping server degrades the feed; it must not take the pipeline
// down.
func NewNATSBus(cfg Config) (*NATSBus, error) {
	url := cfg.URL
	if url == "" {
		url = DefaultConfig().URL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	nc, err := nats.Connect(url,
		nats.Name(cfg.Name),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &NATSBus{nc: nc}, nil
}

func (b *NATSBus) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return b.nc.Publish(subject, data)
}

func (b *NATSBus) Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	forward := func(msg *nats.Msg) {
		handler(&Message{Subject: msg.Subject, Data: msg.Data})
	}
	sub, err := b.nc.Subscribe(subject, forward)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	return natsSub{inner: sub}, nil
}

// Close drains the connection so queued publishes still flush before
// the socket drops.
func (b *NATSBus) Close() error {
	if b.closed.Swap(true) {
		return ErrClosed
	}
	return b.nc.Drain()
}

type natsSub struct {
	inner *nats.Subscription
}

func (s natsSub) Unsubscribe() error { return s.inner.Unsubscribe() }

func (s natsSub) Subject() string { return s.inner.Subject }
