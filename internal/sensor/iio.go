package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sweeney/sensor-station/internal/logic"
)

// DefaultIIODevice is the sysfs directory of the first IIO converter.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

// IIOSampler reads raw conversions from a Linux IIO ADC through sysfs.
// Each read of in_voltageN_raw triggers a one-shot conversion in the driver.
type IIOSampler struct {
	dir    string
	inputs map[logic.Channel]int
	shift  uint
}

// NewIIOSampler creates a sampler for the IIO device directory dir.
// inputs maps channels in menu order to ADC input indices. shift scales
// wider converters down to 10 bits (2 for a 12-bit ADC).
func NewIIOSampler(dir string, inputs []int, shift uint) (*IIOSampler, error) {
	if len(inputs) != len(logic.Channels) {
		return nil, fmt.Errorf("iio: need %d inputs, got %d", len(logic.Channels), len(inputs))
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("iio: open device: %w", err)
	}

	s := &IIOSampler{dir: dir, inputs: make(map[logic.Channel]int), shift: shift}
	for i, ch := range logic.Channels {
		if inputs[i] < 0 {
			return nil, fmt.Errorf("iio: negative input index %d for %s", inputs[i], ch)
		}
		s.inputs[ch] = inputs[i]
	}
	return s, nil
}

func (s *IIOSampler) path(ch logic.Channel) (string, error) {
	idx, ok := s.inputs[ch]
	if !ok {
		return "", fmt.Errorf("iio: %w: %d", logic.ErrUnknownChannel, int(ch))
	}
	return filepath.Join(s.dir, fmt.Sprintf("in_voltage%d_raw", idx)), nil
}

// Sample reads one conversion for ch.
func (s *IIOSampler) Sample(ctx context.Context, ch logic.Channel) (logic.Raw, error) {
	p, err := s.path(ch)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return 0, fmt.Errorf("iio: read %s: %w", p, err)
	}

	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("iio: parse %s: %w", p, err)
	}
	v >>= s.shift
	if v > uint64(logic.MaxRaw) {
		return 0, fmt.Errorf("iio: %s: %w: %d", p, logic.ErrRawOutOfRange, v)
	}
	return logic.Raw(v), nil
}

// Close is a no-op; sysfs files are opened per read.
func (s *IIOSampler) Close() error {
	return nil
}
