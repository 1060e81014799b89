package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/utils"
	"github.com/piresc/navieta/services/route"
	"github.com/piresc/navieta/services/route/usecase"
)

// RouteHandler handles HTTP requests for the sensor and admin endpoints.
type RouteHandler struct {
	routeUC route.RouteUseCase
}

// NewRouteHandler creates a new route HTTP handler
func NewRouteHandler(routeUC route.RouteUseCase) *RouteHandler {
	return &RouteHandler{routeUC: routeUC}
}

// ListSensors returns the sensor view of every configured route.
func (h *RouteHandler) ListSensors(c echo.Context) error {
	snapshots := h.routeUC.Snapshots()
	return utils.SuccessResponse(c, http.StatusOK, "Sensors retrieved", snapshots)
}

// GetSensor returns the sensor view of one route.
func (h *RouteHandler) GetSensor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid route ID")
	}

	snapshot, err := h.routeUC.Snapshot(id)
	if err != nil {
		if errors.Is(err, usecase.ErrRouteNotFound) {
			return utils.NotFoundResponse(c, "Route not found")
		}
		return utils.InternalServerErrorResponse(c, err.Error())
	}
	return utils.SuccessResponse(c, http.StatusOK, "Sensor retrieved", snapshot)
}

// RefreshSensor runs an immediate poll cycle for one route and returns the
// updated sensor view. A classified provider failure is still a 200: the
// outcome lands in the sensor's error attributes, same as a scheduled poll.
func (h *RouteHandler) RefreshSensor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid route ID")
	}

	_, computeErr := h.routeUC.ComputeRoute(c.Request().Context(), id)
	if computeErr != nil && errors.Is(computeErr, usecase.ErrRouteNotFound) {
		return utils.NotFoundResponse(c, "Route not found")
	}

	snapshot, err := h.routeUC.Snapshot(id)
	if err != nil {
		return utils.InternalServerErrorResponse(c, err.Error())
	}

	message := "Route refreshed"
	if computeErr != nil {
		message = "Route refresh failed: " + computeErr.Error()
		logger.Warn("Manual refresh failed",
			logger.String("route_id", id.String()),
			logger.Err(computeErr))
	}
	return utils.SuccessResponse(c, http.StatusOK, message, snapshot)
}
