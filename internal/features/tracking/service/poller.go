package service

import (
	"context"
	"errors"
	"time"

	"flight-tracker/internal/features/flights/domain"
	"flight-tracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// errNoPosition marks a tick where the feed answered but carried neither a
// position sample nor arrival data. It counts toward the auto-stop
// threshold like a fetch failure.
var errNoPosition = errors.New("feed returned no position data")

// pollingLoop drives one tracked journey: on every tick it refreshes the
// record from the feed, appends the new position sample, persists and
// broadcasts. The loop stops itself when the journey lands, when the
// tracking flag is cleared in the store, or after too many consecutive
// feed failures.
type pollingLoop struct {
	coord    *Coordinator
	flightID string
	errs     int
}

func newPollingLoop(coord *Coordinator, flightID string) *pollingLoop {
	return &pollingLoop{coord: coord, flightID: flightID}
}

// Run blocks until the loop ends. Cancellation of ctx is the coordinator's
// stop signal; the loop never outlives it by more than one tick.
func (p *pollingLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(p.coord.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !p.tick(ctx) {
			return
		}
	}
}

// tick performs one polling round. It returns false when the loop should
// end. Stops triggered from inside a tick go through the coordinator's
// full stop path so the final persist and completion announcement happen
// exactly once.
func (p *pollingLoop) tick(ctx context.Context) bool {
	c := p.coord
	if c.metrics != nil {
		c.metrics.PollTicks.Inc()
	}

	rec, err := c.repo.Get(ctx, p.flightID)
	if err != nil {
		c.log.Error("poll: failed to load flight", zap.String("flight_id", p.flightID), zap.Error(err))
		return true
	}
	// The flag is the cooperative stop channel for out-of-band releases:
	// a record deleted or un-flagged under the loop ends it quietly.
	if rec == nil || !rec.IsTracking {
		c.log.Info("poll: tracking flag cleared, loop ending", zap.String("flight_id", p.flightID))
		return false
	}

	info, infoErr := c.feed.GetFlightInfo(ctx, p.flightID)
	pos, posErr := c.feed.GetFlightPosition(ctx, p.flightID)
	if infoErr != nil || posErr != nil {
		return p.feedFailure(ctx, infoErr, posErr)
	}
	// A reply with no sample and no arrival is as useless as no reply;
	// only a tick that yields either resets the failure run.
	if pos == nil || (pos.LastPosition == nil && pos.ArrivalTime == nil) {
		return p.feedFailure(ctx, nil, errNoPosition)
	}
	p.errs = 0

	prevStatus := rec.StandardizedStatus
	hadOff := rec.ActualOff != nil
	rec.ApplyInfo(info)

	if pos.ArrivalTime != nil {
		return p.landed(ctx, "arrival reported by feed")
	}

	sample := pos.LastPosition
	sampleIsNew := !rec.HasSample(sample.Timestamp)
	liftedOff := (!hadOff && rec.ActualOff != nil) ||
		(prevStatus != domain.StatusActive && rec.StandardizedStatus == domain.StatusActive)

	// A tick that brought nothing new, the feed replaying the same sample
	// with no status movement, is a no-op: no write, nothing announced.
	if !sampleIsNew && !liftedOff {
		return true
	}

	if sampleIsNew {
		rec.Track = domain.MergeTracks(rec.Track, []domain.PositionSample{*sample})
	}
	rec.Recompute()

	if err := c.repo.Save(ctx, rec); err != nil {
		// Keep the loop and its counters as they are: the next tick retries
		// against the same stored state, and nothing unpersisted is announced.
		c.log.Error("poll: failed to persist update", zap.String("flight_id", p.flightID), zap.Error(err))
		return true
	}

	if liftedOff {
		c.broadcaster.Broadcast(ports.EventFlightStatusUpdate, FlightPayload{
			Flight:   rec,
			Position: rec.LastSample(),
		})
	}

	if sampleIsNew {
		c.broadcaster.Broadcast(ports.EventPositionUpdate, FlightPayload{
			Flight:   rec,
			Position: sample,
		})
	}

	// Grounded with no forward speed after having been airborne reads as a
	// landing even before the feed posts the arrival timestamp.
	if rec.ActualOff != nil &&
		sample.AltitudeFt <= 0 && sample.GroundspeedKts <= 0 {
		return p.landed(ctx, "landed")
	}
	return true
}

// feedFailure counts a failed tick and stops tracking once the run of
// consecutive failures reaches the threshold.
func (p *pollingLoop) feedFailure(ctx context.Context, infoErr, posErr error) bool {
	c := p.coord
	p.errs++
	if c.metrics != nil {
		c.metrics.PollErrors.Inc()
	}
	c.log.Warn("poll: feed fetch failed",
		zap.String("flight_id", p.flightID),
		zap.Int("consecutive", p.errs),
		zap.NamedError("info_error", infoErr),
		zap.NamedError("position_error", posErr),
	)
	if p.errs < c.opts.ErrorThreshold {
		return true
	}

	c.log.Error("poll: feed failure threshold reached, stopping tracking",
		zap.String("flight_id", p.flightID),
		zap.Int("threshold", c.opts.ErrorThreshold),
	)
	if c.metrics != nil {
		c.metrics.AutoStops.Inc()
	}
	if err := c.Stop(ctx, p.flightID, "feed unavailable"); err != nil {
		c.log.Error("poll: auto-stop failed", zap.String("flight_id", p.flightID), zap.Error(err))
	}
	return false
}

func (p *pollingLoop) landed(ctx context.Context, reason string) bool {
	c := p.coord
	if err := c.Stop(ctx, p.flightID, reason); err != nil {
		c.log.Error("poll: landing stop failed", zap.String("flight_id", p.flightID), zap.Error(err))
	}
	return false
}
