// Package session implements the command-driven measurement loop: it owns
// the idle/running state, interprets command bytes from the console and
// runs measurement cycles for the selected channel.
package session

import (
	"time"

	"github.com/sweeney/sensor-station/internal/logic"
)

// Mode is the session mode.
type Mode string

const (
	ModeIdle    Mode = "IDLE"
	ModeRunning Mode = "RUNNING"
)

// State is the complete session state. Channel is only meaningful while
// Mode is ModeRunning.
type State struct {
	Mode    Mode
	Channel logic.Channel
}

// Running reports whether a channel is being polled.
func (s State) Running() bool {
	return s.Mode == ModeRunning
}

// CommandKind tags a decoded command byte.
type CommandKind int

const (
	CommandIgnore CommandKind = iota
	CommandMenu
	CommandSelect
	CommandInvalid
)

func (k CommandKind) String() string {
	switch k {
	case CommandIgnore:
		return "ignore"
	case CommandMenu:
		return "menu"
	case CommandSelect:
		return "select"
	case CommandInvalid:
		return "invalid"
	}
	return "unknown"
}

// Command is a decoded input byte. Channel is set for CommandSelect.
type Command struct {
	Kind    CommandKind
	Channel logic.Channel
	Byte    byte
}

// Decode maps one received byte to a command.
// Line terminators are ignored so terminals sending CR, LF or CRLF all work.
func Decode(b byte) Command {
	c := Command{Kind: CommandInvalid, Byte: b}
	switch b {
	case '\n', '\r':
		c.Kind = CommandIgnore
	case 's':
		c.Kind = CommandMenu
	case '1':
		c.Kind, c.Channel = CommandSelect, logic.ChannelNTC
	case '2':
		c.Kind, c.Channel = CommandSelect, logic.ChannelAirQuality
	case '3':
		c.Kind, c.Channel = CommandSelect, logic.ChannelCarbonMonoxide
	case '4':
		c.Kind, c.Channel = CommandSelect, logic.ChannelHumidity
	}
	return c
}

// Cycle is the outcome of one running measurement cycle.
type Cycle struct {
	Time        time.Time
	Measurement logic.Measurement
	Level       logic.Level
}

// Observer receives session activity. Calls happen on the session
// goroutine and must not block for long.
type Observer interface {
	ObserveState(s State)
	ObserveCycle(c Cycle)
	ObserveInvalid(b byte)
}
