// Package status provides a thread-safe status tracker for the motion-sensor daemon.
// It is read by HTTP handlers and by the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/motion-sensor/internal/logic"
	"github.com/sweeney/motion-sensor/internal/motion"
)

// Config contains daemon configuration for display.
type Config struct {
	Source        string
	SampleTopic   string
	MinIntervalMs int64
	Sensitivity   int
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Counts        logic.EventCounts
	LastEvent     *logic.Event
	Gate          motion.Stats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	// SourceConnected is nil for sources without a connection of their own.
	SourceConnected *bool
	Config          Config
}

// SourceState returns "connected" or "disconnected" for sources that hold
// a connection, and "" otherwise.
func (s Snapshot) SourceState() string {
	switch {
	case s.SourceConnected == nil:
		return ""
	case *s.SourceConnected:
		return "connected"
	}
	return "disconnected"
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the latest gate stats. Called from runLoop.
// The map in stats must not be modified afterwards.
func (t *Tracker) Update(stats motion.Stats) {
	t.mu.Lock()
	t.snap.Gate = stats
	t.mu.Unlock()
}

// RecordEvent stores a published event and its running counts.
func (t *Tracker) RecordEvent(e logic.Event) {
	t.mu.Lock()
	t.snap.Counts = e.Counts
	t.snap.LastEvent = &e
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetSourceConnected sets the connection status of the sample source.
func (t *Tracker) SetSourceConnected(connected bool) {
	t.mu.Lock()
	t.snap.SourceConnected = &connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
