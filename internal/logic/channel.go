// Package logic contains the pure sensor math for the station: raw sample
// conversion and threshold classification.
// This package has NO external dependencies (no ADC, GPIO, serial or time).
package logic

import (
	"errors"
	"fmt"
	"strings"
)

// Channel identifies one of the four analog sensor inputs.
type Channel int

const (
	ChannelNTC Channel = iota + 1
	ChannelAirQuality
	ChannelCarbonMonoxide
	ChannelHumidity
)

// Channels lists every channel in menu order.
var Channels = []Channel{ChannelNTC, ChannelAirQuality, ChannelCarbonMonoxide, ChannelHumidity}

// ErrUnknownChannel is returned for channel identifiers outside the four defined inputs.
var ErrUnknownChannel = errors.New("unknown channel")

var channelNames = map[Channel]string{
	ChannelNTC:            "ntc",
	ChannelAirQuality:     "mq135",
	ChannelCarbonMonoxide: "mq7",
	ChannelHumidity:       "humidity",
}

// Valid reports whether c is one of the defined channels.
func (c Channel) Valid() bool {
	_, ok := channelNames[c]
	return ok
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Index returns the zero-based menu position of c, or -1 for an invalid channel.
func (c Channel) Index() int {
	for i, ch := range Channels {
		if ch == c {
			return i
		}
	}
	return -1
}

// Unit returns the unit of the channel's primary value.
func (c Channel) Unit() string {
	switch c {
	case ChannelNTC:
		return "C"
	case ChannelAirQuality, ChannelCarbonMonoxide:
		return "ratio"
	case ChannelHumidity:
		return "%"
	}
	return ""
}

// ParseChannel accepts a menu number ("1".."4") or a channel name.
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, ch := range Channels {
		if s == channelNames[ch] || s == fmt.Sprint(i+1) {
			return ch, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}
