package status

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/sensor-station/internal/logic"
	"github.com/sweeney/sensor-station/internal/report"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string        `json:"event,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	Mode            string        `json:"mode"`
	Channel         string        `json:"channel,omitempty"`
	Indicator       string        `json:"indicator"`
	Cycles          int           `json:"cycles"`
	InvalidCommands int           `json:"invalid_commands"`
	UptimeSeconds   int64         `json:"uptime_seconds"`
	StartTime       string        `json:"start_time"`
	Timestamp       string        `json:"timestamp"`
	MQTT            MQTTStatus    `json:"mqtt"`
	Readings        []ReadingJSON `json:"readings"`
	Config          ConfigJSON    `json:"config"`
}

// MQTTStatus reports MQTT connection and outbox state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
	Dropped   int    `json:"dropped"`
}

// ReadingJSON is the JSON representation of the last reading of a channel.
// Text is the same line the serial console shows.
type ReadingJSON struct {
	Channel   string   `json:"channel"`
	Raw       int      `json:"raw"`
	Value     *float64 `json:"value"`
	Unit      string   `json:"unit"`
	Level     string   `json:"level"`
	Timestamp string   `json:"timestamp"`
	Text      string   `json:"text"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SerialPort string `json:"serial_port"`
	BaudRate   int    `json:"baud_rate"`
	IntervalMs int64  `json:"interval_ms"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
}

// finite returns a pointer to v, or nil when v cannot be encoded in JSON.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func buildInner(snap Snapshot) StatusInner {
	indicator := string(snap.Level)
	if indicator == "" {
		indicator = "UNKNOWN"
	}

	inner := StatusInner{
		Mode:            string(snap.Session.Mode),
		Indicator:       indicator,
		Cycles:          snap.Cycles,
		InvalidCommands: snap.InvalidCommands,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Buffered:  snap.MQTTBuffered,
			Dropped:   snap.MQTTDropped,
		},
		Readings:        []ReadingJSON{},
		Config: ConfigJSON{
			SerialPort: snap.Config.SerialPort,
			BaudRate:   snap.Config.BaudRate,
			IntervalMs: snap.Config.IntervalMs,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}
	if snap.Session.Running() {
		inner.Channel = snap.Session.Channel.String()
	}

	for _, ch := range logic.Channels {
		r := snap.Reading(ch)
		if !r.Valid {
			continue
		}
		inner.Readings = append(inner.Readings, ReadingJSON{
			Channel:   ch.String(),
			Raw:       int(r.Measurement.Raw),
			Value:     finite(r.Measurement.Primary),
			Unit:      ch.Unit(),
			Level:     string(r.Level),
			Timestamp: r.Time.UTC().Format(time.RFC3339),
			Text:      report.FormatMeasurement(r.Measurement),
		})
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
