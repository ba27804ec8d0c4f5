package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// TestNewFlightRecord verifies construction from a feed info payload.
func TestNewFlightRecord(t *testing.T) {
	info := &FlightInfo{
		ID:           "IBE6251-1704103200",
		Ident:        "IBE6251",
		Origin:       Location{Code: "MAD", Latitude: 40.4936, Longitude: -3.5668},
		Destination:  Location{Code: "BCN", Latitude: 41.2971, Longitude: 2.0785},
		ScheduledOff: ts("2024-01-01T10:00:00Z"),
		Status:       "Scheduled",
	}

	rec := NewFlightRecord(info)

	assert.Equal(t, "IBE6251-1704103200", rec.ID)
	assert.Equal(t, "IBE6251", rec.Ident)
	assert.Equal(t, StatusScheduled, rec.StandardizedStatus)
	assert.False(t, rec.IsTracking)
	assert.Empty(t, rec.Track)
	assert.False(t, rec.CreatedAt.IsZero())
}

// TestApplyInfo_KeepsObservedValues verifies nil payload fields do not
// clear timestamps already on the record.
func TestApplyInfo_KeepsObservedValues(t *testing.T) {
	rec := NewFlightRecord(&FlightInfo{
		ID:        "f1",
		Ident:     "IBE6251",
		ActualOff: ts("2024-01-01T10:15:00Z"),
		Status:    "En Route / On Time",
	})
	require.NotNil(t, rec.ActualOff)

	rec.ApplyInfo(&FlightInfo{ID: "f1", Status: "En Route / Delayed"})

	require.NotNil(t, rec.ActualOff)
	assert.Equal(t, "En Route / Delayed", rec.Status)
	assert.Equal(t, StatusActive, rec.StandardizedStatus)
	assert.Equal(t, "IBE6251", rec.Ident)
}

// TestApplyInfo_Nil verifies a nil payload is a no-op.
func TestApplyInfo_Nil(t *testing.T) {
	rec := NewFlightRecord(&FlightInfo{ID: "f1", Status: "Taxiing"})
	before := *rec

	rec.ApplyInfo(nil)

	assert.Equal(t, before.Status, rec.Status)
	assert.Equal(t, before.StandardizedStatus, rec.StandardizedStatus)
}

// TestHasSample verifies the duplicate-timestamp guard.
func TestHasSample(t *testing.T) {
	rec := NewFlightRecord(&FlightInfo{ID: "f1"})
	rec.Track = []PositionSample{
		{Timestamp: *ts("2024-01-01T10:20:00Z")},
	}

	assert.True(t, rec.HasSample(*ts("2024-01-01T10:20:00Z")))
	assert.False(t, rec.HasSample(*ts("2024-01-01T10:21:00Z")))
}

// TestLastSample verifies nil for empty tracks and the newest sample otherwise.
func TestLastSample(t *testing.T) {
	rec := NewFlightRecord(&FlightInfo{ID: "f1"})
	assert.Nil(t, rec.LastSample())

	rec.Track = []PositionSample{
		{Timestamp: *ts("2024-01-01T10:00:00Z"), Latitude: 1},
		{Timestamp: *ts("2024-01-01T10:01:00Z"), Latitude: 2},
	}
	last := rec.LastSample()
	require.NotNil(t, last)
	assert.Equal(t, 2.0, last.Latitude)
}

// TestRecompute verifies the derived fields refresh together.
func TestRecompute(t *testing.T) {
	rec := NewFlightRecord(&FlightInfo{
		ID:              "f1",
		Origin:          Location{Code: "MAD", Latitude: 40.4936, Longitude: -3.5668},
		Destination:     Location{Code: "BCN", Latitude: 41.2971, Longitude: 2.0785},
		ScheduledOff:    ts("2024-01-01T10:00:00Z"),
		ActualOff:       ts("2024-01-01T10:15:00Z"),
		FiledETESeconds: 3600,
	})
	rec.Track = []PositionSample{
		{Timestamp: *ts("2024-01-01T10:16:00Z"), Latitude: 40.6, Longitude: -3.2},
		{Timestamp: *ts("2024-01-01T10:30:00Z"), Latitude: 40.9, Longitude: -0.75},
	}

	rec.Recompute()

	assert.Equal(t, int64(900), rec.DepartureDelaySeconds)
	assert.Greater(t, rec.ProgressPercent, 0.0)
	require.NotNil(t, rec.EstimatedArrival)
	assert.Equal(t, ts("2024-01-01T11:15:00Z").Unix(), rec.EstimatedArrival.Unix())
}
