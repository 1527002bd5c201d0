// Package console provides the byte-level serial command line used by the
// measurement session, with abstraction for testing.
package console

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the transmitter does not accept a byte in time.
var ErrTimeout = errors.New("console: transmit timed out")

// Port is a byte-oriented serial line.
type Port interface {
	// SendByte blocks until the transmitter accepts b or ctx is done,
	// in which case it returns ctx.Err().
	SendByte(ctx context.Context, b byte) error

	// Pending returns the next received byte, if one is waiting.
	// It never blocks longer than the port's poll interval.
	Pending() (byte, bool, error)

	// Close releases the port.
	Close() error
}

// Send writes b with a bounded wait, mapping an expired wait to ErrTimeout.
// Cancellation of ctx itself is returned unchanged.
func Send(ctx context.Context, p Port, b byte, timeout time.Duration) error {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.SendByte(sctx, b)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("send %q: %w after %v", b, ErrTimeout, timeout)
	}
	return fmt.Errorf("send %q: %w", b, err)
}
