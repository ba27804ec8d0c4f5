package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flight-tracker/internal/core/config"
	"flight-tracker/internal/core/metrics"
	"flight-tracker/internal/features/flights/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAeroAPIAdapter_GetFlightInfo_Success verifies info fetching and mapping.
func TestAeroAPIAdapter_GetFlightInfo_Success(t *testing.T) {
	mockResponse := `{
		"fa_flight_id": "IBE6251-1704103200",
		"ident": "IBE6251",
		"origin": {
			"code": "MAD",
			"city": "Madrid",
			"country": "Spain",
			"timezone": "Europe/Madrid",
			"latitude": 40.4936,
			"longitude": -3.5668
		},
		"destination": {
			"code": "BCN",
			"city": "Barcelona",
			"country": "Spain",
			"timezone": "Europe/Madrid",
			"latitude": 41.2971,
			"longitude": 2.0785
		},
		"scheduled_off": "2024-01-01T10:00:00Z",
		"actual_off": "2024-01-01T10:15:00Z",
		"scheduled_on": null,
		"filed_ete": 3600,
		"status": "En Route / Delayed",
		"cancelled": false
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/flights/IBE6251-1704103200", r.URL.Path)
		assert.Equal(t, "key_test", r.Header.Get("x-apikey"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockResponse))
	}))
	defer server.Close()

	adapter := NewAeroAPIAdapter(config.FeedConfig{URL: server.URL, APIKey: "key_test"})
	info, err := adapter.GetFlightInfo(context.Background(), "IBE6251-1704103200")

	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "IBE6251", info.Ident)
	assert.Equal(t, "MAD", info.Origin.Code)
	assert.Equal(t, "Europe/Madrid", info.Origin.Timezone)
	assert.Equal(t, int64(3600), info.FiledETESeconds)
	require.NotNil(t, info.ActualOff)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC), *info.ActualOff)
	assert.Nil(t, info.ScheduledOn)
}

// TestAeroAPIAdapter_GetFlightInfo_NotFound verifies 404 maps to (nil, nil).
func TestAeroAPIAdapter_GetFlightInfo_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewAeroAPIAdapter(config.FeedConfig{URL: server.URL, APIKey: "key_test"})
	info, err := adapter.GetFlightInfo(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, info)
}

// TestAeroAPIAdapter_GetFlightInfo_ServerError verifies 5xx wraps ErrFeedUnavailable.
func TestAeroAPIAdapter_GetFlightInfo_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewAeroAPIAdapter(config.FeedConfig{URL: server.URL, APIKey: "key_test"})
	_, err := adapter.GetFlightInfo(context.Background(), "f1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

// TestAeroAPIAdapter_GetFlightPosition verifies position payload mapping.
func TestAeroAPIAdapter_GetFlightPosition(t *testing.T) {
	mockResponse := `{
		"last_position": {
			"latitude": 40.9,
			"longitude": -0.75,
			"altitude": 350,
			"groundspeed": 450,
			"heading": 85,
			"timestamp": "2024-01-01T10:20:00Z",
			"update_type": "A"
		},
		"first_position_time": "2024-01-01T10:05:00Z",
		"actual_on": null
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/flights/f1/position", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockResponse))
	}))
	defer server.Close()

	adapter := NewAeroAPIAdapter(config.FeedConfig{URL: server.URL, APIKey: "key_test"})
	pos, err := adapter.GetFlightPosition(context.Background(), "f1")

	require.NoError(t, err)
	require.NotNil(t, pos)
	require.NotNil(t, pos.LastPosition)
	assert.Equal(t, 40.9, pos.LastPosition.Latitude)
	assert.Equal(t, 450.0, pos.LastPosition.GroundspeedKts)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 20, 0, 0, time.UTC), pos.LastPosition.Timestamp)
	require.NotNil(t, pos.FirstPositionTime)
	assert.Nil(t, pos.ArrivalTime)
}

// TestAeroAPIAdapter_GetFlightPosition_NoFix verifies a known flight without
// a position yields an empty payload, not an error.
func TestAeroAPIAdapter_GetFlightPosition_NoFix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"last_position": null, "first_position_time": null, "actual_on": null}`))
	}))
	defer server.Close()

	adapter := NewAeroAPIAdapter(config.FeedConfig{URL: server.URL, APIKey: "key_test"})
	pos, err := adapter.GetFlightPosition(context.Background(), "f1")

	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Nil(t, pos.LastPosition)
}

// TestAeroAPIAdapter_GetFlightTrack verifies track payload mapping.
func TestAeroAPIAdapter_GetFlightTrack(t *testing.T) {
	mockResponse := `{
		"positions": [
			{"latitude": 40.5, "longitude": -3.5, "altitude": 10, "groundspeed": 180, "heading": 80, "timestamp": "2024-01-01T10:16:00Z"},
			{"latitude": 40.7, "longitude": -2.8, "altitude": 200, "groundspeed": 400, "heading": 82, "timestamp": "2024-01-01T10:18:00Z"}
		]
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/flights/f1/track", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockResponse))
	}))
	defer server.Close()

	adapter := NewAeroAPIAdapter(config.FeedConfig{URL: server.URL, APIKey: "key_test"})
	track, err := adapter.GetFlightTrack(context.Background(), "f1")

	require.NoError(t, err)
	require.Len(t, track, 2)
	assert.Equal(t, 40.5, track[0].Latitude)
	assert.True(t, track[0].Timestamp.Before(track[1].Timestamp))
}

// TestAeroAPIAdapter_Unreachable verifies transport failures wrap ErrFeedUnavailable.
func TestAeroAPIAdapter_Unreachable(t *testing.T) {
	adapter := NewAeroAPIAdapter(config.FeedConfig{URL: "http://127.0.0.1:1", APIKey: "key_test", TimeoutSeconds: 1})
	_, err := adapter.GetFlightPosition(context.Background(), "f1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

// TestAeroAPIAdapter_RequestAccounting verifies per-outcome counters.
func TestAeroAPIAdapter_RequestAccounting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	m := metrics.NewCollector()
	adapter := NewAeroAPIAdapter(config.FeedConfig{URL: server.URL, APIKey: "key_test"}).WithMetrics(m)

	info, err := adapter.GetFlightInfo(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FeedRequests.WithLabelValues("not_found")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.FeedRequests.WithLabelValues("ok")))
}
