package domain

import "time"

// Location describes one endpoint of a journey.
type Location struct {
	// Code is the airport code as reported by the feed.
	Code string `json:"code"`
	// City is the airport's city name.
	City string `json:"city,omitempty"`
	// Country is the airport's country name.
	Country string `json:"country,omitempty"`
	// Timezone is the IANA timezone name, e.g. "Europe/Madrid".
	Timezone string `json:"timezone,omitempty"`
	// Latitude of the airport.
	Latitude float64 `json:"latitude"`
	// Longitude of the airport.
	Longitude float64 `json:"longitude"`
}

// PositionSample is one observed point of the flight's track.
type PositionSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// AltitudeFt is the reported altitude in feet.
	AltitudeFt float64 `json:"altitude_ft"`
	// GroundspeedKts is the reported groundspeed in knots.
	GroundspeedKts float64 `json:"groundspeed_kts"`
	// Heading in degrees.
	Heading float64 `json:"heading"`
	// Timestamp is the feed-provided observation time. Within one flight's
	// track, timestamps are unique and the sequence is sorted ascending.
	Timestamp time.Time `json:"timestamp"`
	// UpdateType is the feed's tag for the observation source.
	UpdateType string `json:"update_type,omitempty"`
}

// FlightRecord is the persisted document for one tracked journey.
// At most one record across the whole store has IsTracking set.
type FlightRecord struct {
	// ID is the stable feed identifier for this journey.
	ID string `json:"id"`
	// Ident is the human-facing flight designator, e.g. "IBE6251".
	Ident string `json:"ident,omitempty"`

	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`

	// Phase boundary timestamps: block-off (out), takeoff (off),
	// touchdown (on), block-on (in). Absent values stay nil.
	ScheduledOut *time.Time `json:"scheduled_out,omitempty"`
	EstimatedOut *time.Time `json:"estimated_out,omitempty"`
	ActualOut    *time.Time `json:"actual_out,omitempty"`
	ScheduledOff *time.Time `json:"scheduled_off,omitempty"`
	EstimatedOff *time.Time `json:"estimated_off,omitempty"`
	ActualOff    *time.Time `json:"actual_off,omitempty"`
	ScheduledOn  *time.Time `json:"scheduled_on,omitempty"`
	EstimatedOn  *time.Time `json:"estimated_on,omitempty"`
	ActualOn     *time.Time `json:"actual_on,omitempty"`
	ScheduledIn  *time.Time `json:"scheduled_in,omitempty"`
	EstimatedIn  *time.Time `json:"estimated_in,omitempty"`
	ActualIn     *time.Time `json:"actual_in,omitempty"`

	// FiledETESeconds is the filed en-route duration.
	FiledETESeconds int64 `json:"filed_ete_seconds,omitempty"`

	// Status is the raw feed status string.
	Status string `json:"status,omitempty"`
	// StandardizedStatus is the canonical rendering of Status.
	StandardizedStatus Status `json:"standardized_status"`
	// Cancelled is set when the feed flags the journey as cancelled.
	Cancelled bool `json:"cancelled,omitempty"`

	// IsTracking marks the one actively tracked journey.
	IsTracking bool `json:"is_tracking"`

	// Track is the append-only, deduplicated position sequence.
	Track []PositionSample `json:"track"`

	// Derived fields, recomputed on every persist.
	ProgressPercent       float64    `json:"progress_percent"`
	DepartureDelaySeconds int64      `json:"departure_delay_seconds"`
	ArrivalDelaySeconds   int64      `json:"arrival_delay_seconds"`
	EstimatedArrival      *time.Time `json:"estimated_arrival,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FlightInfo is the feed's info payload for one journey.
type FlightInfo struct {
	ID          string   `json:"id"`
	Ident       string   `json:"ident"`
	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`

	ScheduledOut *time.Time `json:"scheduled_out,omitempty"`
	EstimatedOut *time.Time `json:"estimated_out,omitempty"`
	ActualOut    *time.Time `json:"actual_out,omitempty"`
	ScheduledOff *time.Time `json:"scheduled_off,omitempty"`
	EstimatedOff *time.Time `json:"estimated_off,omitempty"`
	ActualOff    *time.Time `json:"actual_off,omitempty"`
	ScheduledOn  *time.Time `json:"scheduled_on,omitempty"`
	EstimatedOn  *time.Time `json:"estimated_on,omitempty"`
	ActualOn     *time.Time `json:"actual_on,omitempty"`
	ScheduledIn  *time.Time `json:"scheduled_in,omitempty"`
	EstimatedIn  *time.Time `json:"estimated_in,omitempty"`
	ActualIn     *time.Time `json:"actual_in,omitempty"`

	FiledETESeconds int64  `json:"filed_ete_seconds,omitempty"`
	Status          string `json:"status,omitempty"`
	Cancelled       bool   `json:"cancelled,omitempty"`
}

// FlightPosition is the feed's position payload for one journey.
type FlightPosition struct {
	// LastPosition is the most recent sample, nil when the feed has no fix.
	LastPosition *PositionSample `json:"last_position,omitempty"`
	// FirstPositionTime is when the feed first observed the journey.
	FirstPositionTime *time.Time `json:"first_position_time,omitempty"`
	// ArrivalTime is set once the feed has recorded a landing.
	ArrivalTime *time.Time `json:"arrival_time,omitempty"`
}

// NewFlightRecord builds a record from a feed info payload.
func NewFlightRecord(info *FlightInfo) *FlightRecord {
	now := time.Now().UTC()
	rec := &FlightRecord{
		ID:        info.ID,
		Track:     []PositionSample{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.ApplyInfo(info)
	return rec
}

// ApplyInfo copies the feed info payload onto the record and standardizes
// the status. Nil timestamps in the payload do not clear values already
// observed on the record.
func (f *FlightRecord) ApplyInfo(info *FlightInfo) {
	if info == nil {
		return
	}
	if info.Ident != "" {
		f.Ident = info.Ident
	}
	if info.Origin.Code != "" {
		f.Origin = info.Origin
	}
	if info.Destination.Code != "" {
		f.Destination = info.Destination
	}
	if info.FiledETESeconds != 0 {
		f.FiledETESeconds = info.FiledETESeconds
	}

	keep := func(dst **time.Time, src *time.Time) {
		if src != nil {
			*dst = src
		}
	}
	keep(&f.ScheduledOut, info.ScheduledOut)
	keep(&f.EstimatedOut, info.EstimatedOut)
	keep(&f.ActualOut, info.ActualOut)
	keep(&f.ScheduledOff, info.ScheduledOff)
	keep(&f.EstimatedOff, info.EstimatedOff)
	keep(&f.ActualOff, info.ActualOff)
	keep(&f.ScheduledOn, info.ScheduledOn)
	keep(&f.EstimatedOn, info.EstimatedOn)
	keep(&f.ActualOn, info.ActualOn)
	keep(&f.ScheduledIn, info.ScheduledIn)
	keep(&f.EstimatedIn, info.EstimatedIn)
	keep(&f.ActualIn, info.ActualIn)

	if info.Status != "" {
		f.Status = info.Status
	}
	if info.Cancelled {
		f.Cancelled = true
	}
	f.StandardizedStatus = StandardizeStatus(f.Status)
}

// HasSample reports whether the track already contains a sample at ts.
func (f *FlightRecord) HasSample(ts time.Time) bool {
	for _, s := range f.Track {
		if s.Timestamp.Equal(ts) {
			return true
		}
	}
	return false
}

// LastSample returns the most recent track sample, nil for an empty track.
func (f *FlightRecord) LastSample() *PositionSample {
	if len(f.Track) == 0 {
		return nil
	}
	return &f.Track[len(f.Track)-1]
}

// Recompute refreshes the derived progress, delay and ETA fields from the
// current track and timestamps.
func (f *FlightRecord) Recompute() {
	if last := f.LastSample(); last != nil {
		f.ProgressPercent = ProgressPercent(f.Track, *last, f.Origin, f.Destination)
	}
	f.DepartureDelaySeconds = DelaySeconds(f.ActualOff, f.ScheduledOff)
	f.ArrivalDelaySeconds = DelaySeconds(f.ActualOn, f.ScheduledOn)
	f.EstimatedArrival = EstimatedArrival(f.ActualOff, f.FiledETESeconds)
	f.UpdatedAt = time.Now().UTC()
}
