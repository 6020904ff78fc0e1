// Package metrics exposes Prometheus metrics for the motion-sensor daemon.
package metrics

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/motion-sensor/internal/logic"
)

// Sample results used as the "result" label of samples_total.
const (
	ResultAccepted  = "accepted"
	ResultDropped   = "dropped"
	ResultMalformed = "malformed"
)

// Metrics holds the daemon's collectors on a private registry.
// It implements motion.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	samples       *prometheus.CounterVec
	events        *prometheus.CounterVec
	listeners     prometheus.Gauge
	subscribed    prometheus.Gauge
	mqttConnected prometheus.Gauge
	publishErrors prometheus.Counter
}

// New creates the collectors and registers them on a new registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motion_samples_total",
			Help: "Samples seen by the gate, by result",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motion_events_total",
			Help: "Motion events fired, by kind",
		}, []string{"kind"}),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motion_listeners",
			Help: "Registered listeners across all kinds",
		}),
		subscribed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motion_source_subscribed",
			Help: "Whether the sensor source subscription is active (1) or not (0)",
		}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motion_mqtt_connection_status",
			Help: "Current MQTT connection status (1 for connected, 0 for disconnected)",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motion_publish_errors_total",
			Help: "Total number of failed event publishes",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.samples, m.events, m.listeners, m.subscribed, m.mqttConnected, m.publishErrors,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	// Export zero series so dashboards see every label from startup.
	for _, r := range []string{ResultAccepted, ResultDropped, ResultMalformed} {
		m.samples.WithLabelValues(r)
	}
	for _, k := range logic.Kinds() {
		m.events.WithLabelValues(string(k))
	}

	return m, nil
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

func (m *Metrics) SampleAccepted()  { m.samples.WithLabelValues(ResultAccepted).Inc() }
func (m *Metrics) SampleDropped()   { m.samples.WithLabelValues(ResultDropped).Inc() }
func (m *Metrics) SampleMalformed() { m.samples.WithLabelValues(ResultMalformed).Inc() }

func (m *Metrics) EventFired(kind logic.Kind) {
	m.events.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ListenersChanged(total int, subscribed bool) {
	m.listeners.Set(float64(total))
	m.subscribed.Set(boolToFloat(subscribed))
}

// SetMQTTConnected records the publisher's connection state.
func (m *Metrics) SetMQTTConnected(connected bool) {
	m.mqttConnected.Set(boolToFloat(connected))
}

// PublishFailed counts an event that could not be published.
func (m *Metrics) PublishFailed() {
	m.publishErrors.Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
