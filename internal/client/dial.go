package client

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func dialBackoff(timeout time.Duration) *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.1),
		backoff.WithMaxElapsedTime(timeout),
	)
}

// Dial connects to a stub, retrying until timeout, and performs the
// handshake.
func Dial(ctx context.Context, network, address string, timeout time.Duration) (*Conn, error) {
	var d net.Dialer
	nc, err := backoff.RetryWithData(func() (net.Conn, error) {
		return d.DialContext(ctx, network, address)
	}, backoff.WithContext(dialBackoff(timeout), ctx))
	if err != nil {
		return nil, err
	}

	c := NewConn(nc)
	if err := c.Handshake(); err != nil {
		nc.Close()
		return nil, err
	}
	return c, nil
}
