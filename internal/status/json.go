package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/motion-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Subscribed    bool           `json:"subscribed"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Source        *SourceStatus  `json:"source,omitempty"`
	Counts        CountsJSON     `json:"event_counts"`
	LastEvent     *LastEventJSON `json:"last_event,omitempty"`
	Samples       SamplesJSON    `json:"samples"`
	Listeners     CountsJSON     `json:"listeners"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// SourceStatus reports the sample source connection state.
type SourceStatus struct {
	Connected bool `json:"connected"`
}

// CountsJSON holds one integer per event kind.
type CountsJSON struct {
	Shake int `json:"shake"`
	Flip  int `json:"flip"`
	Fall  int `json:"fall"`
}

// LastEventJSON is the most recently published event.
type LastEventJSON struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

// SamplesJSON reports sample gate activity.
type SamplesJSON struct {
	Accepted  uint64 `json:"accepted"`
	Dropped   uint64 `json:"dropped"`
	Malformed uint64 `json:"malformed"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source        string `json:"source"`
	SampleTopic   string `json:"sample_topic,omitempty"`
	MinIntervalMs int64  `json:"min_interval_ms"`
	Sensitivity   int    `json:"sensitivity"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Subscribed:    snap.Gate.Subscribed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Shake: snap.Counts.Shake,
			Flip:  snap.Counts.Flip,
			Fall:  snap.Counts.Fall,
		},
		Samples: SamplesJSON{
			Accepted:  snap.Gate.Accepted,
			Dropped:   snap.Gate.Dropped,
			Malformed: snap.Gate.Malformed,
		},
		Listeners: CountsJSON{
			Shake: snap.Gate.Listeners[logic.KindShake],
			Flip:  snap.Gate.Listeners[logic.KindFlip],
			Fall:  snap.Gate.Listeners[logic.KindFall],
		},
		Config: ConfigJSON{
			Source:        snap.Config.Source,
			SampleTopic:   snap.Config.SampleTopic,
			MinIntervalMs: snap.Config.MinIntervalMs,
			Sensitivity:   snap.Config.Sensitivity,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}

	if snap.SourceConnected != nil {
		inner.Source = &SourceStatus{Connected: *snap.SourceConnected}
	}
	if snap.LastEvent != nil {
		inner.LastEvent = &LastEventJSON{
			Event:     string(snap.LastEvent.Kind),
			Timestamp: snap.LastEvent.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
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
