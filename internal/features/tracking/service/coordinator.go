package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"flight-tracker/internal/core/logger"
	"flight-tracker/internal/core/metrics"
	"flight-tracker/internal/features/flights/domain"
	flightports "flight-tracker/internal/features/flights/ports"
	"flight-tracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// Options holds the tuning knobs of the tracking coordinator.
type Options struct {
	// PollInterval is the period between polling ticks.
	PollInterval time.Duration
	// ErrorThreshold is the number of consecutive failed ticks before
	// tracking is stopped unilaterally.
	ErrorThreshold int
	// BackfillWindow: when the first observed position predates start by
	// more than this window, the historical track is fetched and merged.
	BackfillWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Minute
	}
	if o.ErrorThreshold <= 0 {
		o.ErrorThreshold = 5
	}
	if o.BackfillWindow <= 0 {
		o.BackfillWindow = 5 * time.Minute
	}
	return o
}

// State is the control-surface snapshot of the coordinator.
type State struct {
	// Tracking reports whether a journey is actively tracked.
	Tracking bool `json:"tracking"`
	// Flight is the tracked record, nil when idle.
	Flight *domain.FlightRecord `json:"flight,omitempty"`
	// Clients is the number of setup-complete subscriber connections.
	Clients int `json:"clients"`
}

// FlightPayload is the data carried by start, position_update,
// flight_status_update and flight_completed events.
type FlightPayload struct {
	Flight   *domain.FlightRecord   `json:"flight"`
	Position *domain.PositionSample `json:"position,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
}

// activeTracking is the coordinator's handle on the one armed polling loop.
type activeTracking struct {
	flightID string
	cancel   context.CancelFunc
}

// Coordinator owns the "one active journey" invariant. It exposes the
// start/stop/state control surface, arms and cancels the polling loop, and
// performs the status transitions around it.
//
// Two mechanisms enforce the invariant: start/stop serialize behind a
// mutex, and the store claim is conditional, so even interleaved starts
// from separate processes cannot both win.
type Coordinator struct {
	repo        flightports.FlightRepository
	feed        flightports.FlightFeed
	broadcaster ports.Broadcaster
	metrics     *metrics.Collector
	opts        Options
	log         *zap.Logger

	mu     sync.Mutex
	active *activeTracking
}

// NewCoordinator creates a tracking coordinator. Zero-valued opts fields
// fall back to the defaults (60s interval, 5 errors, 5m backfill window).
func NewCoordinator(
	repo flightports.FlightRepository,
	feed flightports.FlightFeed,
	broadcaster ports.Broadcaster,
	m *metrics.Collector,
	opts Options,
) *Coordinator {
	return &Coordinator{
		repo:        repo,
		feed:        feed,
		broadcaster: broadcaster,
		metrics:     m,
		opts:        opts.withDefaults(),
		log:         logger.Get(),
	}
}

// Start begins tracking the given journey: fetches the initial feed state,
// merges the historical track when the journey is already underway, flips
// the tracking flag and arms the polling loop.
//
// Fails with ErrAlreadyTracking when another journey holds the slot, with
// ErrAlreadyStarted (soft) when the same journey is already tracked, and
// with ErrFlightNotFound when the journey was never registered.
func (c *Coordinator) Start(ctx context.Context, id string) (*domain.FlightRecord, error) {
	// The id outlives this call in the active slot and the polling loop; it
	// must not alias a caller-owned buffer.
	id = strings.Clone(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		if c.active.flightID == id {
			rec, err := c.repo.Get(ctx, id)
			if err != nil || rec == nil {
				return nil, domain.ErrAlreadyStarted
			}
			return rec, domain.ErrAlreadyStarted
		}
		return nil, domain.ErrAlreadyTracking
	}

	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracking: failed to load flight: %w", err)
	}
	if rec == nil {
		return nil, domain.ErrFlightNotFound
	}

	claimed, err := c.repo.ClaimTracking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracking: failed to claim slot: %w", err)
	}
	if !claimed {
		return nil, domain.ErrAlreadyTracking
	}

	rec, err = c.prepareStart(ctx, rec)
	if err != nil {
		if relErr := c.repo.ReleaseTracking(ctx, id); relErr != nil {
			c.log.Error("failed to release tracking slot", zap.String("flight_id", id), zap.Error(relErr))
		}
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.active = &activeTracking{flightID: id, cancel: cancel}
	if c.metrics != nil {
		c.metrics.Tracking.Set(1)
	}

	loop := newPollingLoop(c, id)
	go loop.Run(loopCtx)

	payload := FlightPayload{Flight: rec, Position: rec.LastSample()}
	c.broadcaster.Broadcast(ports.EventStart, payload)
	c.broadcaster.Broadcast(ports.EventStartFlight, payload) // legacy alias

	c.log.Info("tracking started",
		zap.String("flight_id", id),
		zap.String("ident", rec.Ident),
		zap.Int("track_samples", len(rec.Track)),
	)
	return rec, nil
}

// prepareStart fetches the initial feed state onto the record, backfills
// the historical track for journeys already underway, and persists the
// armed record.
func (c *Coordinator) prepareStart(ctx context.Context, rec *domain.FlightRecord) (*domain.FlightRecord, error) {
	info, err := c.feed.GetFlightInfo(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("tracking: initial info fetch failed: %w", err)
	}
	rec.ApplyInfo(info)

	pos, err := c.feed.GetFlightPosition(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("tracking: initial position fetch failed: %w", err)
	}
	if pos != nil {
		// A journey already underway has history worth backfilling; one just
		// beginning does not, and skipping the fetch avoids pulling a full
		// track for nothing.
		if pos.FirstPositionTime != nil && time.Since(*pos.FirstPositionTime) > c.opts.BackfillWindow {
			hist, histErr := c.feed.GetFlightTrack(ctx, rec.ID)
			if histErr != nil {
				c.log.Warn("track backfill failed", zap.String("flight_id", rec.ID), zap.Error(histErr))
			} else {
				rec.Track = domain.MergeTracks(rec.Track, hist)
			}
		}
		if pos.LastPosition != nil {
			rec.Track = domain.MergeTracks(rec.Track, []domain.PositionSample{*pos.LastPosition})
		}
	}

	rec.IsTracking = true
	rec.Recompute()

	if err := c.repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("tracking: failed to persist start: %w", err)
	}
	return rec, nil
}

// Stop ends tracking for the given journey: cancels the polling loop,
// captures closing fields with one best-effort feed fetch, persists the
// final state and announces completion.
//
// Fails with ErrNotTracking when the journey is not the active one.
func (c *Coordinator) Stop(ctx context.Context, id, reason string) error {
	return c.stop(ctx, id, reason, false)
}

// Shutdown runs the reduced stop path for process exit: the final feed
// fetch is skipped so shutdown is not held up by a slow provider.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.mu.Lock()
	id := ""
	if c.active != nil {
		id = c.active.flightID
	}
	c.mu.Unlock()

	if id == "" {
		return
	}
	if err := c.stop(ctx, id, "shutdown", true); err != nil {
		c.log.Warn("shutdown stop failed", zap.String("flight_id", id), zap.Error(err))
	}
}

func (c *Coordinator) stop(ctx context.Context, id, reason string, skipFinalFetch bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || c.active.flightID != id {
		return domain.ErrNotTracking
	}

	c.active.cancel()
	c.active = nil
	if c.metrics != nil {
		c.metrics.Tracking.Set(0)
	}

	rec, err := c.repo.Get(ctx, id)
	if err != nil || rec == nil {
		// The loop is already down; free the slot even if the record is gone.
		if relErr := c.repo.ReleaseTracking(ctx, id); relErr != nil {
			c.log.Error("failed to release tracking slot", zap.String("flight_id", id), zap.Error(relErr))
		}
		if err != nil {
			return fmt.Errorf("tracking: failed to load flight for stop: %w", err)
		}
		return nil
	}

	if !skipFinalFetch {
		info, infoErr := c.feed.GetFlightInfo(ctx, id)
		if infoErr != nil {
			c.log.Warn("final feed fetch failed", zap.String("flight_id", id), zap.Error(infoErr))
		} else {
			rec.ApplyInfo(info)
		}
	}

	rec.IsTracking = false
	rec.StandardizedStatus = domain.StatusCompleted
	rec.Recompute()

	if err := c.repo.Save(ctx, rec); err != nil {
		c.log.Error("failed to persist final state", zap.String("flight_id", id), zap.Error(err))
	}
	if err := c.repo.ReleaseTracking(ctx, id); err != nil {
		c.log.Error("failed to release tracking slot", zap.String("flight_id", id), zap.Error(err))
	}

	c.broadcaster.Broadcast(ports.EventFlightCompleted, FlightPayload{
		Flight:   rec,
		Position: rec.LastSample(),
		Reason:   reason,
	})

	c.log.Info("tracking stopped",
		zap.String("flight_id", id),
		zap.String("reason", reason),
	)
	return nil
}

// CurrentState returns the control-surface snapshot.
func (c *Coordinator) CurrentState(ctx context.Context) State {
	c.mu.Lock()
	id := ""
	if c.active != nil {
		id = c.active.flightID
	}
	c.mu.Unlock()

	state := State{Clients: c.broadcaster.ActiveCount()}
	if id == "" {
		return state
	}

	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		c.log.Warn("failed to load tracked flight for state", zap.String("flight_id", id), zap.Error(err))
		return state
	}
	state.Tracking = true
	state.Flight = rec
	return state
}

// ActiveFlightID returns the id of the tracked journey, "" when idle.
func (c *Coordinator) ActiveFlightID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.flightID
}
