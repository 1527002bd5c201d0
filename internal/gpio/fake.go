package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/sensor-station/internal/logic"
)

// Write is one observed pair of output values.
type Write struct {
	Green bool
	Red   bool
}

// FakeIndicator is a test double that records every output write.
type FakeIndicator struct {
	mu sync.Mutex

	// Writes contains every (green, red) pair driven, in order.
	Writes []Write

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeIndicator creates a FakeIndicator with both outputs off.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the outputs for level.
func (f *FakeIndicator) Set(level logic.Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	green, red := LevelOutputs(level)
	if green && red {
		return errors.New("both outputs asserted")
	}
	f.Writes = append(f.Writes, Write{Green: green, Red: red})
	return nil
}

// Last returns the most recent write and whether any write happened.
func (f *FakeIndicator) Last() (Write, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Writes) == 0 {
		return Write{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Count returns the number of recorded writes.
func (f *FakeIndicator) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset clears recorded writes.
func (f *FakeIndicator) Reset() {
	f.mu.Lock()
	f.Writes = nil
	f.Closed = false
	f.SetError = nil
	f.mu.Unlock()
}
