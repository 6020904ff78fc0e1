// Package mqtt provides MQTT publishing of motion events with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/motion-sensor/internal/logic"
)

// Topic is the MQTT topic for detected motion events.
const Topic = "motion/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "motion/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a motion event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Motion MotionPayload `json:"motion"`
}

// MotionPayload contains the motion event details.
type MotionPayload struct {
	Timestamp string     `json:"timestamp"`
	Event     string     `json:"event"`
	Counts    CountsJSON `json:"counts"`
}

// CountsJSON is the number of events of each kind since startup.
type CountsJSON struct {
	Shake int `json:"shake"`
	Flip  int `json:"flip"`
	Fall  int `json:"fall"`
}

// FormatPayload creates the JSON payload for a motion event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Motion: MotionPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Kind),
			Counts: CountsJSON{
				Shake: event.Counts.Shake,
				Flip:  event.Counts.Flip,
				Fall:  event.Counts.Fall,
			},
		},
	}
	return json.Marshal(payload)
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
