package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewCollector verifies that two collectors can coexist and serve values.
func TestNewCollector(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	require.NotNil(t, a)
	require.NotNil(t, b)

	a.PollTicks.Inc()
	a.FeedRequests.WithLabelValues("ok").Inc()
	a.Broadcasts.WithLabelValues("position_update").Add(3)
	a.Tracking.Set(1)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "tracker_poll_ticks_total 1")
	assert.Contains(t, body, `tracker_feed_requests_total{outcome="ok"} 1`)
	assert.Contains(t, body, `tracker_broadcasts_total{event="position_update"} 3`)
	assert.Contains(t, body, "tracker_flight_tracking 1")
}
