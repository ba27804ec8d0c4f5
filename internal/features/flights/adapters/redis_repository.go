package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"flight-tracker/internal/core/cache"
	"flight-tracker/internal/core/logger"
	"flight-tracker/internal/features/flights/domain"

	"go.uber.org/zap"
)

const (
	flightKeyPrefix = "flight:"
	flightIndexKey  = "flights:index"
	trackingSlotKey = "flights:tracking"
)

// RedisFlightRepository implements ports.FlightRepository on the cache port,
// storing each flight as one JSON document plus a collection index set and
// a single tracking-slot key.
type RedisFlightRepository struct {
	cache cache.Cache
}

// NewRedisFlightRepository creates a new RedisFlightRepository.
func NewRedisFlightRepository(c cache.Cache) *RedisFlightRepository {
	return &RedisFlightRepository{
		cache: c,
	}
}

func flightKey(id string) string {
	return flightKeyPrefix + id
}

// Get retrieves a flight document. Returns (nil, nil) when the id is unknown.
func (r *RedisFlightRepository) Get(ctx context.Context, id string) (*domain.FlightRecord, error) {
	data, err := r.cache.Get(ctx, flightKey(id))
	if err != nil {
		if err.Error() == fmt.Sprintf("key not found: %s", flightKey(id)) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flight %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}

	var rec domain.FlightRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flight %s: %w", id, err)
	}
	return &rec, nil
}

// Save upserts the flight document and maintains the collection index.
func (r *RedisFlightRepository) Save(ctx context.Context, rec *domain.FlightRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal flight %s: %w", rec.ID, err)
	}

	if err := r.cache.Set(ctx, flightKey(rec.ID), data, 0); err != nil {
		return fmt.Errorf("failed to save flight %s: %w", rec.ID, err)
	}
	if err := r.cache.SetAdd(ctx, flightIndexKey, rec.ID); err != nil {
		return fmt.Errorf("failed to index flight %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes the flight document and its index entry.
func (r *RedisFlightRepository) Delete(ctx context.Context, id string) error {
	if err := r.cache.Delete(ctx, flightKey(id)); err != nil {
		return fmt.Errorf("failed to delete flight %s: %w", id, err)
	}
	if err := r.cache.SetRemove(ctx, flightIndexKey, id); err != nil {
		return fmt.Errorf("failed to unindex flight %s: %w", id, err)
	}
	return nil
}

// List returns every stored flight document. Index entries whose document
// has vanished are skipped and logged rather than failing the scan.
func (r *RedisFlightRepository) List(ctx context.Context) ([]*domain.FlightRecord, error) {
	ids, err := r.cache.SetMembers(ctx, flightIndexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}

	records := make([]*domain.FlightRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			logger.Get().Warn("flight index entry without document", zap.String("flight_id", id))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ClaimTracking atomically claims the single tracking slot for id.
// The claim is conditional on the slot being free, which closes the window
// between two concurrent start attempts.
func (r *RedisFlightRepository) ClaimTracking(ctx context.Context, id string) (bool, error) {
	ok, err := r.cache.SetNX(ctx, trackingSlotKey, []byte(id), 0)
	if err != nil {
		return false, fmt.Errorf("failed to claim tracking slot: %w", err)
	}
	if ok {
		return true, nil
	}

	// Re-claiming the slot you already hold is not a conflict.
	current, err := r.TrackingID(ctx)
	if err != nil {
		return false, err
	}
	return current == id, nil
}

// ReleaseTracking frees the tracking slot if id holds it.
func (r *RedisFlightRepository) ReleaseTracking(ctx context.Context, id string) error {
	current, err := r.TrackingID(ctx)
	if err != nil {
		return err
	}
	if current != "" && current != id {
		return nil
	}
	if err := r.cache.Delete(ctx, trackingSlotKey); err != nil {
		return fmt.Errorf("failed to release tracking slot: %w", err)
	}
	return nil
}

// TrackingID returns the id currently holding the tracking slot, "" when free.
func (r *RedisFlightRepository) TrackingID(ctx context.Context) (string, error) {
	data, err := r.cache.Get(ctx, trackingSlotKey)
	if err != nil {
		if err.Error() == fmt.Sprintf("key not found: %s", trackingSlotKey) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read tracking slot: %w", err)
	}
	return string(data), nil
}
