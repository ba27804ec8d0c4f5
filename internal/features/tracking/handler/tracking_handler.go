package handler

import (
	"errors"

	"flight-tracker/internal/core/logger"
	"flight-tracker/internal/features/flights/domain"
	"flight-tracker/internal/features/tracking/service"
	"flight-tracker/internal/features/tracking/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// TrackingHandler exposes the tracking control surface and the WebSocket
// subscription endpoint.
type TrackingHandler struct {
	coordinator *service.Coordinator
	registry    *ws.Registry
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(coordinator *service.Coordinator, registry *ws.Registry) *TrackingHandler {
	return &TrackingHandler{
		coordinator: coordinator,
		registry:    registry,
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

// StartTracking godoc
// @Summary Start tracking a journey
// @Description Begins polling the feed for the given journey; only one journey can be tracked at a time
// @Tags tracking
// @Produce json
// @Param id path string true "Flight ID"
// @Success 200 {object} domain.FlightRecord
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /tracking/{id}/start [post]
func (h *TrackingHandler) StartTracking(c *fiber.Ctx) error {
	// The coordinator keeps the id for the lifetime of the polling loop;
	// fiber recycles the buffer behind Params once the request ends.
	id := utils.CopyString(c.Params("id"))
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "flight id is required",
			RayID:   rayID(c),
		})
	}

	rec, err := h.coordinator.Start(c.Context(), id)
	if err != nil {
		// Re-starting the journey already being tracked is not a fault, but
		// the record can still be unreadable at that moment.
		if errors.Is(err, domain.ErrAlreadyStarted) {
			if rec == nil {
				return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
					Message: "tracked flight record unavailable",
					RayID:   rayID(c),
				})
			}
			return c.JSON(rec)
		}
		return h.mapError(c, err)
	}
	return c.JSON(rec)
}

// StopTracking godoc
// @Summary Stop tracking the active journey
// @Description Ends polling, persists the final state and announces completion
// @Tags tracking
// @Produce json
// @Param id path string true "Flight ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /tracking/{id}/stop [post]
func (h *TrackingHandler) StopTracking(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "flight id is required",
			RayID:   rayID(c),
		})
	}

	if err := h.coordinator.Stop(c.Context(), id, "client request"); err != nil {
		return h.mapError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TrackingState godoc
// @Summary Current tracking state
// @Description Returns whether a journey is tracked, its record and the subscriber count
// @Tags tracking
// @Produce json
// @Success 200 {object} service.State
// @Router /tracking/state [get]
func (h *TrackingHandler) TrackingState(c *fiber.Ctx) error {
	return c.JSON(h.coordinator.CurrentState(c.Context()))
}

// UpgradeWS gates the subscription endpoint to WebSocket upgrade requests.
func (h *TrackingHandler) UpgradeWS(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// SubscribeWS returns the WebSocket handler for live tracking events. The
// read loop exists to notice the peer going away; inbound frames carry no
// protocol and are discarded.
func (h *TrackingHandler) SubscribeWS() fiber.Handler {
	log := logger.Get()
	return websocket.New(func(conn *websocket.Conn) {
		id := h.registry.OnOpen(conn)
		defer h.registry.OnClose(id)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Debug("subscriber read ended", zap.String("subscriber_id", id), zap.Error(err))
				return
			}
		}
	})
}

// mapError translates domain errors to HTTP statuses.
func (h *TrackingHandler) mapError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrFlightNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyTracking), errors.Is(err, domain.ErrNotTracking):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrFeedUnavailable):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   rayID(c),
	})
}
