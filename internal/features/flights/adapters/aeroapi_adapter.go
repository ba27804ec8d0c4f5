package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flight-tracker/internal/core/config"
	"flight-tracker/internal/core/httpclient"
	"flight-tracker/internal/core/metrics"
	"flight-tracker/internal/features/flights/domain"
)

// AeroAPIAdapter implements the FlightFeed interface against an
// AeroAPI-style REST provider.
type AeroAPIAdapter struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// config holds the feed connection details.
	config config.FeedConfig
	// metrics is optional; nil disables request accounting.
	metrics *metrics.Collector
}

// NewAeroAPIAdapter creates a new instance of AeroAPIAdapter.
func NewAeroAPIAdapter(cfg config.FeedConfig) *AeroAPIAdapter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AeroAPIAdapter{
		client: httpclient.NewClient(timeout),
		config: cfg,
	}
}

// WithMetrics attaches a collector recording per-outcome request counts.
func (a *AeroAPIAdapter) WithMetrics(m *metrics.Collector) *AeroAPIAdapter {
	a.metrics = m
	return a
}

func (a *AeroAPIAdapter) record(outcome string) {
	if a.metrics != nil {
		a.metrics.FeedRequests.WithLabelValues(outcome).Inc()
	}
}

// feedPosition mirrors the provider's position payload.
type feedPosition struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AltitudeFt     float64 `json:"altitude"`
	GroundspeedKts float64 `json:"groundspeed"`
	Heading        float64 `json:"heading"`
	Timestamp      string  `json:"timestamp"`
	UpdateType     string  `json:"update_type"`
}

// feedLocation mirrors the provider's airport payload.
type feedLocation struct {
	Code      string  `json:"code"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// feedFlightInfo mirrors the provider's flight info payload.
type feedFlightInfo struct {
	FlightID     string       `json:"fa_flight_id"`
	Ident        string       `json:"ident"`
	Origin       feedLocation `json:"origin"`
	Destination  feedLocation `json:"destination"`
	ScheduledOut *string      `json:"scheduled_out"`
	EstimatedOut *string      `json:"estimated_out"`
	ActualOut    *string      `json:"actual_out"`
	ScheduledOff *string      `json:"scheduled_off"`
	EstimatedOff *string      `json:"estimated_off"`
	ActualOff    *string      `json:"actual_off"`
	ScheduledOn  *string      `json:"scheduled_on"`
	EstimatedOn  *string      `json:"estimated_on"`
	ActualOn     *string      `json:"actual_on"`
	ScheduledIn  *string      `json:"scheduled_in"`
	EstimatedIn  *string      `json:"estimated_in"`
	ActualIn     *string      `json:"actual_in"`
	FiledETE     int64        `json:"filed_ete"`
	Status       string       `json:"status"`
	Cancelled    bool         `json:"cancelled"`
}

// feedPositionResponse mirrors the provider's last-position payload.
type feedPositionResponse struct {
	LastPosition      *feedPosition `json:"last_position"`
	FirstPositionTime *string       `json:"first_position_time"`
	ActualOn          *string       `json:"actual_on"`
}

// feedTrackResponse mirrors the provider's historical track payload.
type feedTrackResponse struct {
	Positions []feedPosition `json:"positions"`
}

// GetFlightInfo fetches the flight info payload and maps it to the domain DTO.
// An unknown flight yields (nil, nil).
func (a *AeroAPIAdapter) GetFlightInfo(ctx context.Context, id string) (*domain.FlightInfo, error) {
	var payload feedFlightInfo
	found, err := a.get(ctx, fmt.Sprintf("%s/flights/%s", a.config.URL, id), &payload)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	info := &domain.FlightInfo{
		ID:              payload.FlightID,
		Ident:           payload.Ident,
		Origin:          mapLocation(payload.Origin),
		Destination:     mapLocation(payload.Destination),
		ScheduledOut:    parseTime(payload.ScheduledOut),
		EstimatedOut:    parseTime(payload.EstimatedOut),
		ActualOut:       parseTime(payload.ActualOut),
		ScheduledOff:    parseTime(payload.ScheduledOff),
		EstimatedOff:    parseTime(payload.EstimatedOff),
		ActualOff:       parseTime(payload.ActualOff),
		ScheduledOn:     parseTime(payload.ScheduledOn),
		EstimatedOn:     parseTime(payload.EstimatedOn),
		ActualOn:        parseTime(payload.ActualOn),
		ScheduledIn:     parseTime(payload.ScheduledIn),
		EstimatedIn:     parseTime(payload.EstimatedIn),
		ActualIn:        parseTime(payload.ActualIn),
		FiledETESeconds: payload.FiledETE,
		Status:          payload.Status,
		Cancelled:       payload.Cancelled,
	}
	if info.ID == "" {
		info.ID = id
	}
	return info, nil
}

// GetFlightPosition fetches the last known position for a flight.
// An unknown flight yields (nil, nil); a known flight without a fix yields
// a payload with a nil LastPosition.
func (a *AeroAPIAdapter) GetFlightPosition(ctx context.Context, id string) (*domain.FlightPosition, error) {
	var payload feedPositionResponse
	found, err := a.get(ctx, fmt.Sprintf("%s/flights/%s/position", a.config.URL, id), &payload)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	pos := &domain.FlightPosition{
		FirstPositionTime: parseTime(payload.FirstPositionTime),
		ArrivalTime:       parseTime(payload.ActualOn),
	}
	if payload.LastPosition != nil {
		sample := mapPosition(*payload.LastPosition)
		pos.LastPosition = &sample
	}
	return pos, nil
}

// GetFlightTrack fetches the historical samples observed for a flight.
func (a *AeroAPIAdapter) GetFlightTrack(ctx context.Context, id string) ([]domain.PositionSample, error) {
	var payload feedTrackResponse
	found, err := a.get(ctx, fmt.Sprintf("%s/flights/%s/track", a.config.URL, id), &payload)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	samples := make([]domain.PositionSample, 0, len(payload.Positions))
	for _, p := range payload.Positions {
		samples = append(samples, mapPosition(p))
	}
	return samples, nil
}

// HealthCheck verifies that the feed API is reachable and the key is valid.
func (a *AeroAPIAdapter) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.URL+"/flights/health-check", nil)
	if err != nil {
		return fmt.Errorf("health check failed to create request: %w", err)
	}
	req.Header.Set("x-apikey", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	// The ident is not a real flight; any authenticated answer will do.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// get executes an authenticated GET and decodes the body into out.
// Returns found=false for 404 responses; transport errors and non-2xx
// statuses wrap domain.ErrFeedUnavailable.
func (a *AeroAPIAdapter) get(ctx context.Context, url string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-apikey", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		a.record("error")
		return false, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		a.record("not_found")
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		a.record("error")
		return false, fmt.Errorf("%w: feed returned status %d", domain.ErrFeedUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		a.record("error")
		return false, fmt.Errorf("failed to decode feed response: %w", err)
	}
	a.record("ok")
	return true, nil
}

func mapLocation(l feedLocation) domain.Location {
	return domain.Location{
		Code:      l.Code,
		City:      l.City,
		Country:   l.Country,
		Timezone:  l.Timezone,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}

func mapPosition(p feedPosition) domain.PositionSample {
	sample := domain.PositionSample{
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		AltitudeFt:     p.AltitudeFt,
		GroundspeedKts: p.GroundspeedKts,
		Heading:        p.Heading,
		UpdateType:     p.UpdateType,
	}
	if t, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
		sample.Timestamp = t.UTC()
	}
	return sample
}

// parseTime converts an optional RFC3339 string to a *time.Time.
// Absent or malformed values map to nil, never to an error.
func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}
