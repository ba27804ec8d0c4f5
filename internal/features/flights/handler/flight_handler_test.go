package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"flight-tracker/internal/features/flights/domain"
	"flight-tracker/internal/features/flights/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo is an in-memory FlightRepository for handler tests.
type mockRepo struct {
	records map[string]*domain.FlightRecord
}

func (m *mockRepo) Get(ctx context.Context, id string) (*domain.FlightRecord, error) {
	return m.records[id], nil
}

func (m *mockRepo) Save(ctx context.Context, rec *domain.FlightRecord) error {
	m.records[rec.ID] = rec
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	delete(m.records, id)
	return nil
}

func (m *mockRepo) List(ctx context.Context) ([]*domain.FlightRecord, error) {
	out := make([]*domain.FlightRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepo) ClaimTracking(ctx context.Context, id string) (bool, error) { return true, nil }
func (m *mockRepo) ReleaseTracking(ctx context.Context, id string) error       { return nil }
func (m *mockRepo) TrackingID(ctx context.Context) (string, error)             { return "", nil }

// mockFeed is a canned FlightFeed for handler tests.
type mockFeed struct {
	info *domain.FlightInfo
}

func (m *mockFeed) GetFlightInfo(ctx context.Context, id string) (*domain.FlightInfo, error) {
	return m.info, nil
}

func (m *mockFeed) GetFlightPosition(ctx context.Context, id string) (*domain.FlightPosition, error) {
	return nil, nil
}

func (m *mockFeed) GetFlightTrack(ctx context.Context, id string) ([]domain.PositionSample, error) {
	return nil, nil
}

func newTestApp(repo *mockRepo, feed *mockFeed) *fiber.App {
	svc := service.NewFlightService(repo, feed)
	h := NewFlightHandler(svc)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Get("/flights", h.ListFlights)
	app.Get("/flights/:id", h.GetFlight)
	app.Post("/flights/:id", h.RegisterFlight)
	app.Delete("/flights/:id", h.DeleteFlight)
	return app
}

// TestFlightHandler_GetFlight_Success verifies a stored journey is returned.
func TestFlightHandler_GetFlight_Success(t *testing.T) {
	repo := &mockRepo{records: map[string]*domain.FlightRecord{
		"f1": {ID: "f1", Ident: "IBE6251", StandardizedStatus: domain.StatusActive},
	}}
	app := newTestApp(repo, &mockFeed{})

	req := httptest.NewRequest("GET", "/flights/f1", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rec domain.FlightRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "IBE6251", rec.Ident)
}

// TestFlightHandler_GetFlight_NotFound verifies 404 with a ray id.
func TestFlightHandler_GetFlight_NotFound(t *testing.T) {
	app := newTestApp(&mockRepo{records: map[string]*domain.FlightRecord{}}, &mockFeed{})

	req := httptest.NewRequest("GET", "/flights/nope", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "test-ray-id", body.RayID)
}

// TestFlightHandler_RegisterFlight verifies feed-backed registration.
func TestFlightHandler_RegisterFlight(t *testing.T) {
	repo := &mockRepo{records: map[string]*domain.FlightRecord{}}
	feed := &mockFeed{info: &domain.FlightInfo{ID: "f1", Ident: "VLG1234", Status: "Scheduled"}}
	app := newTestApp(repo, feed)

	req := httptest.NewRequest("POST", "/flights/f1", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Contains(t, repo.records, "f1")
}

// TestFlightHandler_DeleteFlight_Conflict verifies 409 for the tracked journey.
func TestFlightHandler_DeleteFlight_Conflict(t *testing.T) {
	repo := &mockRepo{records: map[string]*domain.FlightRecord{
		"f1": {ID: "f1", IsTracking: true},
	}}
	app := newTestApp(repo, &mockFeed{})

	req := httptest.NewRequest("DELETE", "/flights/f1", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Contains(t, repo.records, "f1")
}

// TestFlightHandler_ListFlights verifies the list endpoint.
func TestFlightHandler_ListFlights(t *testing.T) {
	repo := &mockRepo{records: map[string]*domain.FlightRecord{
		"f1": {ID: "f1"},
		"f2": {ID: "f2"},
	}}
	app := newTestApp(repo, &mockFeed{})

	req := httptest.NewRequest("GET", "/flights", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var records []domain.FlightRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Len(t, records, 2)
}
