package console

import (
	"bytes"
	"context"
	"strings"
	"sync"
)

// FakePort is a test double with a scripted receive queue and a captured
// transmit buffer.
type FakePort struct {
	mu sync.Mutex

	input  []byte
	output bytes.Buffer

	// SendError, if set, will be returned by SendByte.
	SendError error

	// PendingError, if set, will be returned by Pending.
	PendingError error

	// StallSend makes SendByte block until its context is done, like a
	// transmitter whose buffer never frees up.
	StallSend bool

	// PendingCalls counts Pending invocations.
	PendingCalls int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePort creates a FakePort with input queued for reception.
func NewFakePort(input ...byte) *FakePort {
	return &FakePort{input: append([]byte(nil), input...)}
}

// Feed queues bytes for reception.
func (f *FakePort) Feed(b ...byte) {
	f.mu.Lock()
	f.input = append(f.input, b...)
	f.mu.Unlock()
}

// SendByte appends b to the captured output.
func (f *FakePort) SendByte(ctx context.Context, b byte) error {
	f.mu.Lock()
	stall := f.StallSend
	sendErr := f.SendError
	f.mu.Unlock()

	if stall {
		<-ctx.Done()
		return ctx.Err()
	}
	if sendErr != nil {
		return sendErr
	}

	f.mu.Lock()
	f.output.WriteByte(b)
	f.mu.Unlock()
	return nil
}

// Pending pops the next queued byte.
func (f *FakePort) Pending() (byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.PendingCalls++
	if f.PendingError != nil {
		return 0, false, f.PendingError
	}
	if len(f.input) == 0 {
		return 0, false, nil
	}
	b := f.input[0]
	f.input = f.input[1:]
	return b, true, nil
}

// Output returns everything transmitted so far.
func (f *FakePort) Output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.output.String()
}

// Lines returns the transmitted output split on newlines, without the
// trailing empty element.
func (f *FakePort) Lines() []string {
	out := strings.Split(f.Output(), "\n")
	if len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// ResetOutput discards captured output.
func (f *FakePort) ResetOutput() {
	f.mu.Lock()
	f.output.Reset()
	f.mu.Unlock()
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
