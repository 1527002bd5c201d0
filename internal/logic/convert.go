package logic

import (
	"errors"
	"fmt"
	"math"
)

// Raw is a 10-bit ADC reading.
type Raw uint16

// MaxRaw is the largest value a 10-bit converter produces.
const MaxRaw Raw = 1023

// ErrRawOutOfRange is returned when a raw sample exceeds MaxRaw.
var ErrRawOutOfRange = errors.New("raw sample out of range")

// Thermistor divider parameters.
const (
	SupplyVoltage  = 5.0
	SeriesResistor = 10000.0
	BCoefficient   = 3730.0
	NominalTempK   = 298.15

	kelvinOffset = 273.15
	gasDivisor   = 10000.0
	humDivisor   = 10.0
)

// Measurement is the physical reading derived from one raw sample.
// Primary is the value compared against the channel threshold: temperature
// in C for NTC, a ratio for the gas sensors, percent for humidity.
// The NTC divider fields are zero for the other channels.
type Measurement struct {
	Channel Channel
	Raw     Raw
	Primary float64

	VoltageV      float64
	CurrentMA     float64
	ResistanceOhm float64
}

// PPM returns the raw sample re-reported as a pseudo-ppm figure.
func (m Measurement) PPM() float64 {
	return float64(m.Raw)
}

// Convert applies the channel formula to a raw sample.
func Convert(ch Channel, raw Raw) (Measurement, error) {
	if raw > MaxRaw {
		return Measurement{}, fmt.Errorf("%w: %d", ErrRawOutOfRange, raw)
	}

	m := Measurement{Channel: ch, Raw: raw}
	r := float64(raw)

	switch ch {
	case ChannelNTC:
		m.VoltageV = SupplyVoltage * r / float64(MaxRaw)
		m.CurrentMA = ((SupplyVoltage - m.VoltageV) / SeriesResistor) * 1000
		m.ResistanceOhm = m.VoltageV / (m.CurrentMA / 1000)
		m.Primary = 1/(math.Log(m.ResistanceOhm/SeriesResistor)/BCoefficient+1/NominalTempK) - kelvinOffset
	case ChannelAirQuality, ChannelCarbonMonoxide:
		m.Primary = r / gasDivisor
	case ChannelHumidity:
		m.Primary = r / humDivisor
	default:
		return Measurement{}, fmt.Errorf("%w: %d", ErrUnknownChannel, int(ch))
	}

	return m, nil
}
