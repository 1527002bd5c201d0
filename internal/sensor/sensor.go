// Package sensor acquires raw ADC samples and turns them into measurements.
// The real sampler reads the Linux IIO subsystem.
// The fake sampler allows testing without hardware.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/sensor-station/internal/logic"
)

// DefaultAcquireTimeout bounds a single sample acquisition.
const DefaultAcquireTimeout = 200 * time.Millisecond

// ErrTimeout is returned when the converter does not complete within the
// acquisition timeout.
var ErrTimeout = errors.New("sensor: acquisition timed out")

// Sampler acquires one raw sample from a channel.
type Sampler interface {
	// Sample blocks until a conversion completes. Implementations should
	// return early when ctx is done, but Reader does not rely on it.
	Sample(ctx context.Context, ch logic.Channel) (logic.Raw, error)

	// Close releases converter resources.
	Close() error
}

// Reader converts channel reads into measurements with a bounded wait.
type Reader struct {
	sampler Sampler
	timeout time.Duration
}

// NewReader creates a Reader. A zero timeout selects DefaultAcquireTimeout.
func NewReader(s Sampler, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	return &Reader{sampler: s, timeout: timeout}
}

type sampleResult struct {
	raw logic.Raw
	err error
}

// Read acquires one sample from ch and converts it.
// A sampler that does not answer within the timeout yields ErrTimeout; its
// goroutine is abandoned and its eventual result discarded.
func (r *Reader) Read(ctx context.Context, ch logic.Channel) (logic.Measurement, error) {
	if !ch.Valid() {
		return logic.Measurement{}, fmt.Errorf("read: %w: %d", logic.ErrUnknownChannel, int(ch))
	}

	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan sampleResult, 1)
	go func() {
		raw, err := r.sampler.Sample(sctx, ch)
		done <- sampleResult{raw: raw, err: err}
	}()

	var res sampleResult
	select {
	case res = <-done:
	case <-sctx.Done():
		if err := ctx.Err(); err != nil {
			return logic.Measurement{}, err
		}
		return logic.Measurement{}, fmt.Errorf("read %s: %w after %v", ch, ErrTimeout, r.timeout)
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return logic.Measurement{}, fmt.Errorf("read %s: %w after %v", ch, ErrTimeout, r.timeout)
		}
		return logic.Measurement{}, fmt.Errorf("read %s: %w", ch, res.err)
	}

	m, err := logic.Convert(ch, res.raw)
	if err != nil {
		return logic.Measurement{}, fmt.Errorf("read %s: %w", ch, err)
	}
	return m, nil
}

// Close releases the underlying sampler.
func (r *Reader) Close() error {
	return r.sampler.Close()
}
