// Package status provides a thread-safe status tracker for the sensor-station daemon.
// It observes the measurement session and is read by HTTP handlers, the
// metrics endpoint and MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sensor-station/internal/logic"
	"github.com/sweeney/sensor-station/internal/session"
)

// Config contains daemon configuration for display.
type Config struct {
	SerialPort string
	BaudRate   int
	IntervalMs int64
	Broker     string
	HTTPAddr   string
}

// Reading is the last observed cycle for one channel.
type Reading struct {
	Valid       bool
	Time        time.Time
	Measurement logic.Measurement
	Level       logic.Level
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Session         session.State
	Readings        [4]Reading // indexed by Channel.Index()
	Level           logic.Level
	Cycles          int
	InvalidCommands int
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	MQTTBuffered    int // messages waiting for the broker
	MQTTDropped     int // messages discarded from a full outbox since startup
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Reading returns the last reading for ch.
func (s Snapshot) Reading(ch logic.Channel) Reading {
	i := ch.Index()
	if i < 0 {
		return Reading{}
	}
	return s.Readings[i]
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

var _ session.Observer = (*Tracker)(nil)

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Session:   session.State{Mode: session.ModeIdle},
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// ObserveState records a session transition.
func (t *Tracker) ObserveState(s session.State) {
	t.mu.Lock()
	t.snap.Session = s
	t.mu.Unlock()
}

// ObserveCycle records a completed measurement cycle.
// Called from the session goroutine on every running cycle.
func (t *Tracker) ObserveCycle(c session.Cycle) {
	i := c.Measurement.Channel.Index()
	t.mu.Lock()
	if i >= 0 {
		t.snap.Readings[i] = Reading{
			Valid:       true,
			Time:        c.Time,
			Measurement: c.Measurement,
			Level:       c.Level,
		}
	}
	t.snap.Level = c.Level
	t.snap.Cycles++
	t.mu.Unlock()
}

// ObserveInvalid counts a rejected command byte.
func (t *Tracker) ObserveInvalid(b byte) {
	t.mu.Lock()
	t.snap.InvalidCommands++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffer records the publisher's outbox depth and drop count.
func (t *Tracker) SetMQTTBuffer(buffered, dropped int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = buffered
	t.snap.MQTTDropped = dropped
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
