package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Delivery(t *testing.T) {
	m := New()

	m.DeliveryStarted(10)
	m.DeliveryCompleted(9, 1, 4, 3*time.Second)
	m.DeliveryFailed(2, false)
	m.DeliveryFailed(0, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveriesStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(OutcomeAbandoned)))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.itemsSent))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemErrors))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.retries))
}

func TestMetrics_Catalog(t *testing.T) {
	m := New()

	m.FileAdded("720p")
	m.FileAdded("720p")
	m.FileAdded("1080p")
	m.GroupDeleted(5)
	m.CleanupCompleted(2, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.filesAdded.WithLabelValues("720p")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesAdded.WithLabelValues("1080p")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.groupsDeleted))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.filesDeleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cleanupRemoved.WithLabelValues("duplicates")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cleanupRemoved.WithLabelValues("mappings")))
}

func TestMetrics_RegisterGauge(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterGauge("bus_dropped_events", "dropped", func() float64 { return 7 }))
	require.Error(t, m.RegisterGauge("bus_dropped_events", "dropped", func() float64 { return 7 }))

	n, err := testutil.GatherAndCount(m.Registry(), "reelbox_bus_dropped_events")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsHandler(t *testing.T) {
	var m *Metrics
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Routes(t *testing.T) {
	m := New()
	m.FileAdded("720p")
	srv := NewServer("", m, nil, nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `reelbox_files_added_total{resolution="720p"} 1`)
}

func TestServer_HealthFailure(t *testing.T) {
	srv := NewServer("", New(), func(context.Context) error { return errors.New("db gone") }, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "unhealthy"))
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer("", New(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
