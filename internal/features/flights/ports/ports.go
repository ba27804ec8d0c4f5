package ports

import (
	"context"

	"flight-tracker/internal/features/flights/domain"
)

// FlightFeed defines the interface to the external flight-data provider.
// Absence of data is represented by nil results, never by errors.
type FlightFeed interface {
	// GetFlightInfo returns the info payload for a flight, nil when unknown.
	GetFlightInfo(ctx context.Context, id string) (*domain.FlightInfo, error)
	// GetFlightPosition returns the last known position payload, nil when unknown.
	GetFlightPosition(ctx context.Context, id string) (*domain.FlightPosition, error)
	// GetFlightTrack returns the historical samples observed for a flight.
	GetFlightTrack(ctx context.Context, id string) ([]domain.PositionSample, error)
}

// FlightRepository defines the secondary port for flight persistence.
type FlightRepository interface {
	// Get returns the stored record, or (nil, nil) when the id is unknown.
	Get(ctx context.Context, id string) (*domain.FlightRecord, error)
	// Save upserts the record and maintains the collection index.
	Save(ctx context.Context, rec *domain.FlightRecord) error
	// Delete removes the record and its index entry.
	Delete(ctx context.Context, id string) error
	// List returns every stored record.
	List(ctx context.Context) ([]*domain.FlightRecord, error)

	// ClaimTracking atomically claims the single tracking slot for id.
	// Returns false when another flight already holds the slot.
	ClaimTracking(ctx context.Context, id string) (bool, error)
	// ReleaseTracking frees the tracking slot if id holds it.
	ReleaseTracking(ctx context.Context, id string) error
	// TrackingID returns the id holding the tracking slot, "" when free.
	TrackingID(ctx context.Context) (string, error)
}
