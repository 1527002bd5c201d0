package logic

// Level is the two-state indicator classification.
type Level string

const (
	LevelBelow     Level = "BELOW"
	LevelAtOrAbove Level = "AT_OR_ABOVE"
)

// Fixed per-channel thresholds.
const (
	ThresholdNTC            = 30.0
	ThresholdAirQuality     = 0.04
	ThresholdCarbonMonoxide = 0.02
	ThresholdHumidity       = 80.0
)

// Threshold returns the cutoff for ch. The second result is false for an
// unknown channel.
func Threshold(ch Channel) (float64, bool) {
	switch ch {
	case ChannelNTC:
		return ThresholdNTC, true
	case ChannelAirQuality:
		return ThresholdAirQuality, true
	case ChannelCarbonMonoxide:
		return ThresholdCarbonMonoxide, true
	case ChannelHumidity:
		return ThresholdHumidity, true
	}
	return 0, false
}

// Classify compares value with the channel threshold. The threshold itself
// counts as AtOrAbove. Unknown channels and NaN classify as Below.
func Classify(ch Channel, value float64) Level {
	limit, ok := Threshold(ch)
	if ok && value >= limit {
		return LevelAtOrAbove
	}
	return LevelBelow
}
