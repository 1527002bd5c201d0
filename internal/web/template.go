package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sensor-station/internal/logic"
	"github.com/sweeney/sensor-station/internal/report"
	"github.com/sweeney/sensor-station/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"levelClass": func(l logic.Level) string {
		switch l {
		case logic.LevelAtOrAbove:
			return "above"
		case logic.LevelBelow:
			return "below"
		}
		return "unknown"
	},
	"line": report.FormatMeasurement,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Sensor Station</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 30%; }
.below { color: green; font-weight: bold; }
.above { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Sensor Station</h1>

<h2>Session</h2>
<table>
<tr><th>Mode</th><td>{{.Session.Mode}}{{if .Session.Running}} ({{.Session.Channel}}){{end}}</td></tr>
<tr><th>Indicator</th><td class="{{levelClass .Level}}">{{if .Level}}{{.Level}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Cycles</th><td>{{.Cycles}}</td></tr>
<tr><th>Invalid commands</th><td>{{.InvalidCommands}}</td></tr>
</table>

<h2>Readings</h2>
<table>
{{range .Rows}}<tr><th>{{.Channel}}</th>{{if .Reading.Valid}}<td class="{{levelClass .Reading.Level}}">{{line .Reading.Measurement}}</td>{{else}}<td class="unknown">no reading</td>{{end}}</tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>Serial</th><td>{{.Config.SerialPort}} @ {{.Config.BaudRate}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Outbox</th><td>{{.MQTTBuffered}} buffered, {{.MQTTDropped}} dropped</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

type row struct {
	Channel logic.Channel
	Reading status.Reading
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Rows   []row
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	for _, ch := range logic.Channels {
		data.Rows = append(data.Rows, row{Channel: ch, Reading: snap.Reading(ch)})
	}
	indexTmpl.Execute(w, data)
}
