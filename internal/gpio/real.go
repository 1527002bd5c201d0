//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/sensor-station/internal/logic"
)

// RealIndicator drives LEDs on actual hardware using Linux GPIO character device.
type RealIndicator struct {
	chip  *gpiocdev.Chip
	green *gpiocdev.Line
	red   *gpiocdev.Line
}

// NewRealIndicator requests the two LED lines as outputs, both initially off.
func NewRealIndicator(chipName string, pinGreen, pinRed int) (*RealIndicator, error) {
	if chipName == "" {
		chipName = DefaultChip
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	greenLine, err := chip.RequestLine(pinGreen, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("sensor-station"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request green pin %d: %w", pinGreen, err)
	}

	redLine, err := chip.RequestLine(pinRed, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("sensor-station"))
	if err != nil {
		greenLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request red pin %d: %w", pinRed, err)
	}

	return &RealIndicator{
		chip:  chip,
		green: greenLine,
		red:   redLine,
	}, nil
}

// Set drives the LEDs for level. The line going low is written first so
// both LEDs are never lit at the same time.
func (r *RealIndicator) Set(level logic.Level) error {
	_, red := LevelOutputs(level)

	off, on := r.red, r.green
	offName, onName := "red", "green"
	if red {
		off, on = r.green, r.red
		offName, onName = "green", "red"
	}

	if err := off.SetValue(0); err != nil {
		return fmt.Errorf("clear %s pin: %w", offName, err)
	}
	if err := on.SetValue(1); err != nil {
		return fmt.Errorf("set %s pin: %w", onName, err)
	}
	return nil
}

// Close turns both LEDs off and releases GPIO resources.
// Lines are reconfigured as inputs before release so the pins float back
// to their boot state.
func (r *RealIndicator) Close() error {
	var errs []error

	lines := []struct {
		name string
		line *gpiocdev.Line
	}{{"green", r.green}, {"red", r.red}}

	for _, l := range lines {
		name, line := l.name, l.line
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s pin: %w", name, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
