package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/motion-sensor/internal/logic"
	"github.com/sweeney/motion-sensor/internal/status"
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
	"listeners": func(m map[logic.Kind]int, kind string) int {
		return m[logic.Kind(kind)]
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Motion Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.fired { color: green; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Motion Sensor<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Last Event</h2>
<table>
<tr><th>Event</th><td id="last-event" class="{{if .LastEvent}}fired{{else}}idle{{end}}">{{if .LastEvent}}{{.LastEvent.Kind}}{{else}}none{{end}}</td></tr>
<tr><th>At</th><td id="last-at">{{if .LastEvent}}{{.LastEvent.Timestamp.UTC.Format "2006-01-02T15:04:05.000Z"}}{{else}}-{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Shake</th><td id="count-shake">{{.Counts.Shake}}</td></tr>
<tr><th>Flip</th><td id="count-flip">{{.Counts.Flip}}</td></tr>
<tr><th>Fall</th><td id="count-fall">{{.Counts.Fall}}</td></tr>
</table>

<h2>Sensor</h2>
<table>
<tr><th>Source</th><td>{{.Config.Source}}{{if .Config.SampleTopic}} ({{.Config.SampleTopic}}){{end}}</td></tr>
<tr><th>Subscribed</th><td>{{if .Gate.Subscribed}}yes{{else}}no{{end}}</td></tr>
<tr><th>Samples accepted</th><td>{{.Gate.Accepted}}</td></tr>
<tr><th>Samples dropped</th><td>{{.Gate.Dropped}}</td></tr>
<tr><th>Samples malformed</th><td>{{.Gate.Malformed}}</td></tr>
<tr><th>Listeners</th><td>shake {{listeners .Gate.Listeners "shake"}} / flip {{listeners .Gate.Listeners "flip"}} / fall {{listeners .Gate.Listeners "fall"}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{with .SourceState}}<tr><th>Sample source</th><td class="{{.}}">{{.}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Min interval</th><td>{{.Config.MinIntervalMs}}ms</td></tr>
<tr><th>Sensitivity</th><td>{{.Config.Sensitivity}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">Metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var lastEl = document.getElementById("last-event");
  var atEl = document.getElementById("last-at");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(m) {
      try {
        var msg = JSON.parse(m.data);
        lastEl.textContent = msg.event;
        lastEl.className = "fired";
        atEl.textContent = msg.timestamp;
        ["shake", "flip", "fall"].forEach(function(k) {
          document.getElementById("count-" + k).textContent = msg.counts[k];
        });
      } catch (e) {}
    };
  }

  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
