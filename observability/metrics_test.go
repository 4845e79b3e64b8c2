package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	req := require.New(t)
	m := NewMetricsWith(prometheus.NewRegistry(), "talkie_test")

	m.SetActiveSessions(3)
	m.ObserveSessionEvent("admitted")
	m.ObserveSessionEvent("admitted")
	m.ObserveAuth("granted")
	m.ObserveDelivery("failed")
	m.ObserveWSMessage("inbound", "ping")
	m.ObserveAudioDuration(2.5)

	req.Equal(3.0, testutil.ToFloat64(m.ActiveSessions))
	req.Equal(2.0, testutil.ToFloat64(m.SessionEvents.WithLabelValues("admitted")))
	req.Equal(1.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("granted")))
	req.Equal(1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("failed")))
	req.Equal(1.0, testutil.ToFloat64(m.WSMessages.WithLabelValues("inbound", "ping")))
	req.Equal(1, testutil.CollectAndCount(m.AudioDuration))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.SetActiveSessions(1)
		m.ObserveSessionEvent("admitted")
		m.ObserveAuth("granted")
		m.ObserveDelivery("delivered")
		m.ObserveWSMessage("outbound", "audio_message")
		m.ObserveAudioDuration(1)
	})
}
