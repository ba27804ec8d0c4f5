package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight-tracker/internal/core/logger"
	"flight-tracker/internal/features/flights/domain"

	"go.uber.org/zap"
)

// RecoveryManager reconciles the store with reality at process start. A
// crash can leave records flagged as tracking with no loop behind them;
// recovery clears the stale flags, frees the slot and, when the journey is
// still in the air, resumes tracking through the normal start path.
type RecoveryManager struct {
	coord *Coordinator
	log   *zap.Logger
}

func NewRecoveryManager(coord *Coordinator) *RecoveryManager {
	return &RecoveryManager{coord: coord, log: logger.Get()}
}

// Run executes one recovery pass. Errors from the pass are returned so the
// caller can decide whether to keep booting; a clean store is a no-op.
func (r *RecoveryManager) Run(ctx context.Context) error {
	c := r.coord

	records, err := c.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("recovery: failed to list flights: %w", err)
	}

	var flagged []*domain.FlightRecord
	for _, rec := range records {
		if rec.IsTracking {
			flagged = append(flagged, rec)
		}
	}
	if len(flagged) == 0 {
		r.log.Info("recovery: no interrupted tracking found")
		return nil
	}

	winner := pickMostRecent(flagged)
	for _, rec := range flagged {
		if rec.ID == winner.ID {
			continue
		}
		// Multiple flags can only come from a crash mid-handover; the older
		// records lose.
		r.log.Warn("recovery: clearing stale tracking flag", zap.String("flight_id", rec.ID))
		rec.IsTracking = false
		if err := c.repo.Save(ctx, rec); err != nil {
			r.log.Error("recovery: failed to clear stale flag", zap.String("flight_id", rec.ID), zap.Error(err))
		}
	}

	// Whatever holds the slot died with the previous process.
	if holder, err := c.repo.TrackingID(ctx); err != nil {
		r.log.Warn("recovery: failed to read tracking slot", zap.Error(err))
	} else if holder != "" {
		if err := c.repo.ReleaseTracking(ctx, holder); err != nil {
			r.log.Error("recovery: failed to release tracking slot", zap.String("flight_id", holder), zap.Error(err))
		}
	}

	if done, err := r.journeyOver(ctx, winner); err != nil {
		r.log.Warn("recovery: feed check failed, resuming anyway", zap.String("flight_id", winner.ID), zap.Error(err))
	} else if done {
		return r.finalize(ctx, winner)
	}

	r.log.Info("recovery: resuming interrupted tracking", zap.String("flight_id", winner.ID))
	if _, err := c.Start(ctx, winner.ID); err != nil && !errors.Is(err, domain.ErrAlreadyStarted) {
		return fmt.Errorf("recovery: failed to resume tracking: %w", err)
	}
	if c.metrics != nil {
		c.metrics.Recoveries.Inc()
	}
	return nil
}

// journeyOver asks the feed whether the interrupted journey already ended.
func (r *RecoveryManager) journeyOver(ctx context.Context, rec *domain.FlightRecord) (bool, error) {
	c := r.coord

	info, err := c.feed.GetFlightInfo(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	rec.ApplyInfo(info)
	if rec.StandardizedStatus == domain.StatusCompleted || rec.Cancelled {
		return true, nil
	}

	pos, err := c.feed.GetFlightPosition(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	return pos != nil && pos.ArrivalTime != nil, nil
}

// finalize persists the terminal state of a journey that ended while the
// process was down.
func (r *RecoveryManager) finalize(ctx context.Context, rec *domain.FlightRecord) error {
	c := r.coord

	r.log.Info("recovery: journey ended while offline, finalizing", zap.String("flight_id", rec.ID))
	rec.IsTracking = false
	rec.StandardizedStatus = domain.StatusCompleted
	rec.Recompute()
	if err := c.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("recovery: failed to finalize flight: %w", err)
	}
	if c.metrics != nil {
		c.metrics.Recoveries.Inc()
	}
	return nil
}

// pickMostRecent chooses the record with the freshest track activity,
// falling back to the update timestamp for trackless records.
func pickMostRecent(records []*domain.FlightRecord) *domain.FlightRecord {
	best := records[0]
	bestAt := lastActivity(best)
	for _, rec := range records[1:] {
		if at := lastActivity(rec); at.After(bestAt) {
			best = rec
			bestAt = at
		}
	}
	return best
}

func lastActivity(rec *domain.FlightRecord) time.Time {
	if last := rec.LastSample(); last != nil {
		return last.Timestamp
	}
	return rec.UpdatedAt
}
