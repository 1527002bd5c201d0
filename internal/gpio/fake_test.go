package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/sensor-station/internal/logic"
)

func TestLevelOutputsExclusive(t *testing.T) {
	green, red := LevelOutputs(logic.LevelBelow)
	if !green || red {
		t.Errorf("BELOW: expected (true, false), got (%v, %v)", green, red)
	}

	green, red = LevelOutputs(logic.LevelAtOrAbove)
	if green || !red {
		t.Errorf("AT_OR_ABOVE: expected (false, true), got (%v, %v)", green, red)
	}

	// Anything unexpected falls back to the safe "below" pair.
	green, red = LevelOutputs(logic.Level(""))
	if !green || red {
		t.Errorf("empty level: expected (true, false), got (%v, %v)", green, red)
	}
}

func TestFakeIndicatorRecordsWrites(t *testing.T) {
	f := NewFakeIndicator()

	if _, ok := f.Last(); ok {
		t.Error("expected no writes initially")
	}

	levels := []logic.Level{logic.LevelBelow, logic.LevelAtOrAbove, logic.LevelAtOrAbove, logic.LevelBelow}
	for _, l := range levels {
		if err := f.Set(l); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if f.Count() != len(levels) {
		t.Fatalf("expected %d writes, got %d", len(levels), f.Count())
	}
	for i, w := range f.Writes {
		if w.Green == w.Red {
			t.Errorf("write %d: outputs not exclusive: %+v", i, w)
		}
	}

	last, _ := f.Last()
	if !last.Green || last.Red {
		t.Errorf("last write: expected green only, got %+v", last)
	}
}

func TestFakeIndicatorError(t *testing.T) {
	f := NewFakeIndicator()
	f.SetError = errors.New("simulated error")

	err := f.Set(logic.LevelBelow)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if f.Count() != 0 {
		t.Errorf("failed write should not be recorded, got %d", f.Count())
	}
}

func TestFakeIndicatorCloseAndReset(t *testing.T) {
	f := NewFakeIndicator()

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Set(logic.LevelAtOrAbove)
	f.Reset()
	if f.Closed || f.Count() != 0 {
		t.Errorf("reset should clear state, got closed=%v writes=%d", f.Closed, f.Count())
	}
}
