// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/sensor-station/internal/logic"
	"github.com/sweeney/sensor-station/internal/report"
	"github.com/sweeney/sensor-station/internal/session"
)

// TopicReadings is the MQTT topic for measurement cycles.
const TopicReadings = "sensors/station/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/station/system"

// System lifecycle event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventFault       = "FAULT"
	EventReconnected = "RECONNECTED"
)

// Publisher publishes readings and lifecycle events to MQTT.
type Publisher interface {
	// PublishReading sends one measurement cycle to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(c session.Cycle) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, fault).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "FAULT"
	Reason     string // e.g., "SIGTERM", or the error text for FAULT
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ReadingPayload is the MQTT message payload for a measurement cycle.
type ReadingPayload struct {
	Reading ReadingInner `json:"reading"`
}

// ReadingInner contains the reading details. Electrical fields are only
// present for the NTC channel. Non-finite values are encoded as null.
type ReadingInner struct {
	Timestamp     string   `json:"timestamp"`
	Channel       string   `json:"channel"`
	Raw           int      `json:"raw"`
	Value         *float64 `json:"value"`
	Unit          string   `json:"unit"`
	Level         string   `json:"level"`
	VoltageV      *float64 `json:"voltage_v,omitempty"`
	CurrentMA     *float64 `json:"current_ma,omitempty"`
	ResistanceOhm *float64 `json:"resistance_ohm,omitempty"`
	Text          string   `json:"text"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FormatReadingPayload creates the JSON payload for a measurement cycle.
func FormatReadingPayload(c session.Cycle) ([]byte, error) {
	m := c.Measurement
	inner := ReadingInner{
		Timestamp: c.Time.UTC().Format(time.RFC3339),
		Channel:   m.Channel.String(),
		Raw:       int(m.Raw),
		Value:     finite(m.Primary),
		Unit:      m.Channel.Unit(),
		Level:     string(c.Level),
		Text:      report.FormatMeasurement(m),
	}
	if m.Channel == logic.ChannelNTC {
		inner.VoltageV = finite(m.VoltageV)
		inner.CurrentMA = finite(m.CurrentMA)
		inner.ResistanceOhm = finite(m.ResistanceOhm)
	}
	return json.Marshal(ReadingPayload{Reading: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes on TopicSystem
// when the station drops off without a clean disconnect.
func WillPayload(now time.Time) []byte {
	data, _ := FormatSystemPayload(SystemEvent{
		Timestamp: now,
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	})
	return data
}
