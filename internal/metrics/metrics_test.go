package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/motion-sensor/internal/logic"
	"github.com/sweeney/motion-sensor/internal/motion"
)

var _ motion.Recorder = (*Metrics)(nil)

func TestSampleCounters(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.SampleAccepted()
	m.SampleAccepted()
	m.SampleDropped()
	m.SampleMalformed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.samples.WithLabelValues(ResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samples.WithLabelValues(ResultDropped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samples.WithLabelValues(ResultMalformed)))
}

func TestEventCounters(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.EventFired(logic.KindShake)
	m.EventFired(logic.KindFall)
	m.EventFired(logic.KindFall)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("shake")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.events.WithLabelValues("flip")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("fall")))
}

func TestGauges(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ListenersChanged(3, true)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.listeners))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscribed))

	m.ListenersChanged(0, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.listeners))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.subscribed))

	m.SetMQTTConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mqttConnected))

	m.PublishFailed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishErrors))
}

func TestZeroSeriesExported(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	// 3 results + 3 kinds
	assert.Equal(t, 6, testutil.CollectAndCount(m.samples)+testutil.CollectAndCount(m.events))
}

func TestHandler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.EventFired(logic.KindFlip)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `motion_events_total{kind="flip"} 1`), "body: %s", body)
}

func TestIndependentRegistries(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	a.SampleAccepted()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.samples.WithLabelValues(ResultAccepted)))
	assert.NotSame(t, a.Registry(), b.Registry())
}
