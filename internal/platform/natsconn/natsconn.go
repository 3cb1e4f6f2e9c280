// Package natsconn provides the shared NATS connection factory and the
// JetStream stream bootstrap used by publishers and consumers.
package natsconn

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/example/devtube/internal/platform/config"
)

// Options configures the NATS connection behaviour.
// Zero values fall back to env vars or built-in defaults.
type Options struct {
	URL           string
	Name          string
	MaxReconnects int           // default from NATS_MAX_RECONNECTS or 5
	ReconnectWait time.Duration // default from NATS_RECONNECT_WAIT or 2s
}

// Connect establishes a NATS connection with the configured retry policy.
// On failure it returns an error so the caller can decide whether to run
// without events.
func Connect(opts Options) (*nats.Conn, error) {
	if opts.URL == "" {
		opts.URL = config.String("NATS_URL", "nats://nats:4222")
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = nonNegative(config.Int("NATS_MAX_RECONNECTS", 5), 5)
	}
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = positive(config.Duration("NATS_RECONNECT_WAIT", 2*time.Second), 2*time.Second)
	}

	natsOpts := []nats.Option{
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}

	nc, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s (max_reconnects=%d, wait=%s): %w",
			opts.URL, opts.MaxReconnects, opts.ReconnectWait, err)
	}
	return nc, nil
}

// EnsureStream creates the stream when it does not exist yet. An existing
// stream is left untouched.
func EnsureStream(js nats.JetStreamContext, name string, subjects ...string) error {
	if js == nil {
		return errors.New("nil jetstream context")
	}
	if _, err := js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", name, err)
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", name, err)
	}
	return nil
}

func nonNegative(v, fallback int) int {
	if v < 0 {
		return fallback
	}
	return v
}

func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
