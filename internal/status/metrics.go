package status

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/sensor-station/internal/logic"
)

var (
	descValue = prometheus.NewDesc(
		"sensor_station_value",
		"Last converted value per channel (units: C for ntc, ratio for mq135/mq7, % for humidity).",
		[]string{"channel"}, nil)
	descRaw = prometheus.NewDesc(
		"sensor_station_raw",
		"Last raw 10-bit ADC sample per channel.",
		[]string{"channel"}, nil)
	descAbove = prometheus.NewDesc(
		"sensor_station_above_threshold",
		"1 if the last reading of the channel was at or above its threshold.",
		[]string{"channel"}, nil)
	descActive = prometheus.NewDesc(
		"sensor_station_active",
		"1 for the channel currently being polled.",
		[]string{"channel"}, nil)
	descCycles = prometheus.NewDesc(
		"sensor_station_cycles_total",
		"Measurement cycles completed since startup.",
		nil, nil)
	descInvalid = prometheus.NewDesc(
		"sensor_station_invalid_commands_total",
		"Command bytes rejected since startup.",
		nil, nil)
	descMQTTBuffered = prometheus.NewDesc(
		"sensor_station_mqtt_buffered",
		"MQTT messages waiting in the offline outbox.",
		nil, nil)
	descMQTTDropped = prometheus.NewDesc(
		"sensor_station_mqtt_dropped_total",
		"MQTT messages discarded from a full outbox since startup.",
		nil, nil)
)

var _ prometheus.Collector = (*Tracker)(nil)

// Describe implements prometheus.Collector.
func (t *Tracker) Describe(ch chan<- *prometheus.Desc) {
	ch <- descValue
	ch <- descRaw
	ch <- descAbove
	ch <- descActive
	ch <- descCycles
	ch <- descInvalid
	ch <- descMQTTBuffered
	ch <- descMQTTDropped
}

// Collect implements prometheus.Collector from a single snapshot.
// Channels that have not been read yet only report sensor_station_active.
// The MQTT series are only reported when a broker is configured.
func (t *Tracker) Collect(ch chan<- prometheus.Metric) {
	snap := t.Snapshot()

	for _, c := range logic.Channels {
		name := c.String()

		active := 0.0
		if snap.Session.Running() && snap.Session.Channel == c {
			active = 1
		}
		ch <- prometheus.MustNewConstMetric(descActive, prometheus.GaugeValue, active, name)

		r := snap.Reading(c)
		if !r.Valid {
			continue
		}
		ch <- prometheus.MustNewConstMetric(descValue, prometheus.GaugeValue, r.Measurement.Primary, name)
		ch <- prometheus.MustNewConstMetric(descRaw, prometheus.GaugeValue, float64(r.Measurement.Raw), name)
		above := 0.0
		if r.Level == logic.LevelAtOrAbove {
			above = 1
		}
		ch <- prometheus.MustNewConstMetric(descAbove, prometheus.GaugeValue, above, name)
	}

	ch <- prometheus.MustNewConstMetric(descCycles, prometheus.CounterValue, float64(snap.Cycles))
	ch <- prometheus.MustNewConstMetric(descInvalid, prometheus.CounterValue, float64(snap.InvalidCommands))

	if snap.Config.Broker == "" {
		return
	}
	ch <- prometheus.MustNewConstMetric(descMQTTBuffered, prometheus.GaugeValue, float64(snap.MQTTBuffered))
	ch <- prometheus.MustNewConstMetric(descMQTTDropped, prometheus.CounterValue, float64(snap.MQTTDropped))
}
