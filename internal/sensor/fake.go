package sensor

import (
	"context"
	"errors"
	"sync"

	"github.com/sweeney/sensor-station/internal/logic"
)

// FakeSampler is a test double that returns scripted raw values per channel.
type FakeSampler struct {
	mu sync.Mutex

	// Samples contains scripted raw values per channel.
	// Each Sample call consumes the next value; the last one repeats.
	Samples map[logic.Channel][]logic.Raw

	// index tracks the position in each channel's script.
	index map[logic.Channel]int

	// Calls records the channel of every Sample call.
	Calls []logic.Channel

	// SampleError, if set, will be returned by Sample.
	SampleError error

	// Stall makes Sample block until its context is done, like a
	// converter that never signals completion.
	Stall bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSampler creates a FakeSampler with the given scripts.
func NewFakeSampler(samples map[logic.Channel][]logic.Raw) *FakeSampler {
	return &FakeSampler{Samples: samples, index: make(map[logic.Channel]int)}
}

// Sample returns the next scripted value for ch.
func (f *FakeSampler) Sample(ctx context.Context, ch logic.Channel) (logic.Raw, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, ch)
	stall := f.Stall
	f.mu.Unlock()

	if stall {
		<-ctx.Done()
		return 0, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SampleError != nil {
		return 0, f.SampleError
	}

	script := f.Samples[ch]
	if len(script) == 0 {
		return 0, errors.New("no samples configured")
	}
	if f.index == nil {
		f.index = make(map[logic.Channel]int)
	}

	i := f.index[ch]
	raw := script[i]
	if i < len(script)-1 {
		f.index[ch]++
	}
	return raw, nil
}

// CallCount returns the number of Sample calls so far.
func (f *FakeSampler) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Close marks the sampler as closed.
func (f *FakeSampler) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
