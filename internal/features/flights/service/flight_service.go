package service

import (
	"context"
	"fmt"

	"flight-tracker/internal/features/flights/domain"
	"flight-tracker/internal/features/flights/ports"
)

// FlightService handles the journey-record CRUD surface: searching the
// feed, registering records, listing and deleting them. The live tracking
// lifecycle is owned elsewhere; the one rule enforced here is that the
// actively tracked record cannot be deleted.
type FlightService struct {
	repo ports.FlightRepository
	feed ports.FlightFeed
}

// NewFlightService creates a new FlightService.
func NewFlightService(repo ports.FlightRepository, feed ports.FlightFeed) *FlightService {
	return &FlightService{
		repo: repo,
		feed: feed,
	}
}

// Search returns the stored record for id, falling back to a feed lookup
// for journeys not yet registered. Feed results are not persisted.
func (s *FlightService) Search(ctx context.Context, id string) (*domain.FlightRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to look up flight: %w", err)
	}
	if rec != nil {
		return rec, nil
	}

	info, err := s.feed.GetFlightInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: feed lookup failed: %w", err)
	}
	if info == nil {
		return nil, domain.ErrFlightNotFound
	}

	return domain.NewFlightRecord(info), nil
}

// Register fetches the journey from the feed and persists it, refreshing
// an already stored record in place.
func (s *FlightService) Register(ctx context.Context, id string) (*domain.FlightRecord, error) {
	info, err := s.feed.GetFlightInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: feed lookup failed: %w", err)
	}
	if info == nil {
		return nil, domain.ErrFlightNotFound
	}

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to look up flight: %w", err)
	}
	if rec == nil {
		rec = domain.NewFlightRecord(info)
	} else {
		rec.ApplyInfo(info)
	}
	rec.Recompute()

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("service: failed to save flight: %w", err)
	}
	return rec, nil
}

// List returns every stored journey record.
func (s *FlightService) List(ctx context.Context) ([]*domain.FlightRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list flights: %w", err)
	}
	return records, nil
}

// Delete removes a stored journey record. Deleting the actively tracked
// record is forbidden until tracking stops.
func (s *FlightService) Delete(ctx context.Context, id string) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("service: failed to look up flight: %w", err)
	}
	if rec == nil {
		return domain.ErrFlightNotFound
	}
	if rec.IsTracking {
		return domain.ErrTrackingActive
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete flight: %w", err)
	}
	return nil
}
