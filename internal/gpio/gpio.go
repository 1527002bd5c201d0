// Package gpio drives the two indicator LEDs with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/sensor-station/internal/logic"

// Indicator drives the below/at-or-above output pair.
type Indicator interface {
	// Set drives the outputs for level. The two lines are never
	// asserted together, not even transiently.
	Set(level logic.Level) error

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultChip     = "gpiochip0"
	DefaultPinGreen = 17 // below threshold
	DefaultPinRed   = 27 // at or above threshold
)

// LevelOutputs returns the (green, red) line values for level.
// Exactly one of them is true.
func LevelOutputs(level logic.Level) (green, red bool) {
	if level == logic.LevelAtOrAbove {
		return false, true
	}
	return true, false
}
