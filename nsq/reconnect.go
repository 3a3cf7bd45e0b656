package nsq

import (
	"context"
	"time"
)

// ReconnectStrategy controls the delay Reconnector waits before each dial
// attempt after the first.
type ReconnectStrategy int

const (
	// ReconnectImmediate retries with no delay.
	ReconnectImmediate ReconnectStrategy = iota
	// ReconnectLinear waits base * attempts before each retry, where
	// attempts counts consecutive failures since the last successful
	// connect. This mirrors the backoff this package grew up with; it
	// grows linearly, not exponentially, despite the name attempts
	// sometimes get called by elsewhere.
	ReconnectLinear
)

// DialFunc establishes one Connection, the same signature as Connect.
type DialFunc func() (*Connection, error)

// Reconnector wraps a DialFunc with a retry loop: on dial failure it waits
// according to strategy and tries again, until ctx is done or a dial
// succeeds. A successful connect resets the attempt counter, so a later
// failure starts the backoff over from the beginning.
type Reconnector struct {
	dial     DialFunc
	strategy ReconnectStrategy
	base     time.Duration
	attempts int
}

// NewReconnector builds a Reconnector. base is only consulted for
// ReconnectLinear.
func NewReconnector(dial DialFunc, strategy ReconnectStrategy, base time.Duration) *Reconnector {
	return &Reconnector{dial: dial, strategy: strategy, base: base}
}

// Connect blocks until dial succeeds or ctx is cancelled, retrying with
// the configured strategy in between attempts.
func (r *Reconnector) Connect(ctx context.Context) (*Connection, error) {
	for {
		if r.attempts > 0 {
			if err := r.wait(ctx); err != nil {
				return nil, err
			}
		}

		conn, err := r.dial()
		if err == nil {
			r.attempts = 0
			return conn, nil
		}
		r.attempts++

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
}

func (r *Reconnector) wait(ctx context.Context) error {
	switch r.strategy {
	case ReconnectImmediate:
		return nil
	case ReconnectLinear:
		delay := r.base * time.Duration(r.attempts)
		if delay <= 0 {
			return nil
		}
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return nil
	}
}
