package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sweeney/button-blink/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatDuration,
	"lower":  strings.ToLower,
}).Parse(indexHTML))

func formatDuration(d time.Duration) string {
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
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Button Blink</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.short { color: #888; }
.medium { color: orange; font-weight: bold; }
.long { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Button Blink</h1>

<h2>Classification</h2>
<table>
<tr><th>Band</th><td id="band" class="{{lower .Band.String}}">{{.Band}}</td></tr>
<tr><th>Held for</th><td>{{uptime .BandAge}}</td></tr>
<tr><th>LED</th><td>{{if eq .BlinkPeriodMs 0}}off{{else}}blinking every {{.BlinkPeriodMs}}ms{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Band Changes</h2>
<table>
<tr><th>SHORT</th><td>{{.Counts.Short}}</td></tr>
<tr><th>MEDIUM</th><td>{{.Counts.Medium}}</td></tr>
<tr><th>LONG</th><td>{{.Counts.Long}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Probe</th><td>{{.Config.ProbeMs}}ms</td></tr>
<tr><th>Dwell</th><td>{{.Config.DwellMode}} ({{.Config.DwellMs}}ms)</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Duration fields shadow the Snapshot methods of the same name.
	data := struct {
		status.Snapshot
		Uptime        time.Duration
		BandAge       time.Duration
		BlinkPeriodMs int64
	}{
		Snapshot:      snap,
		Uptime:        snap.Uptime(),
		BandAge:       snap.BandAge(),
		BlinkPeriodMs: status.BlinkPeriodMs(snap),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render error: %v", err)
	}
}
