package handler

import (
	"errors"

	"flight-tracker/internal/features/flights/domain"
	"flight-tracker/internal/features/flights/service"

	"github.com/gofiber/fiber/v2"
)

// FlightHandler handles HTTP requests for the journey-record CRUD surface.
type FlightHandler struct {
	flightService *service.FlightService
}

// NewFlightHandler creates a new FlightHandler.
func NewFlightHandler(flightService *service.FlightService) *FlightHandler {
	return &FlightHandler{
		flightService: flightService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// ListFlights godoc
// @Summary List stored journeys
// @Description Returns every journey record in the store
// @Tags flights
// @Produce json
// @Success 200 {array} domain.FlightRecord
// @Failure 500 {object} ErrorResponse
// @Router /flights [get]
func (h *FlightHandler) ListFlights(c *fiber.Ctx) error {
	records, err := h.flightService.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   rayID(c),
		})
	}
	return c.JSON(records)
}

// GetFlight godoc
// @Summary Get one journey
// @Description Returns the stored record, falling back to a live feed lookup
// @Tags flights
// @Produce json
// @Param id path string true "Flight ID"
// @Success 200 {object} domain.FlightRecord
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /flights/{id} [get]
func (h *FlightHandler) GetFlight(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "flight id is required",
			RayID:   rayID(c),
		})
	}

	rec, err := h.flightService.Search(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(rec)
}

// RegisterFlight godoc
// @Summary Register a journey from the feed
// @Description Fetches the journey from the feed and persists it
// @Tags flights
// @Produce json
// @Param id path string true "Flight ID"
// @Success 201 {object} domain.FlightRecord
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /flights/{id} [post]
func (h *FlightHandler) RegisterFlight(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "flight id is required",
			RayID:   rayID(c),
		})
	}

	rec, err := h.flightService.Register(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// DeleteFlight godoc
// @Summary Delete a journey
// @Description Removes a stored journey; rejected while it is being tracked
// @Tags flights
// @Produce json
// @Param id path string true "Flight ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /flights/{id} [delete]
func (h *FlightHandler) DeleteFlight(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "flight id is required",
			RayID:   rayID(c),
		})
	}

	if err := h.flightService.Delete(c.Context(), id); err != nil {
		return h.mapError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// mapError translates domain errors to HTTP statuses.
func (h *FlightHandler) mapError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrFlightNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrTrackingActive):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrFeedUnavailable):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   rayID(c),
	})
}
