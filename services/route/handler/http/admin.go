package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/internal/utils"
	"github.com/piresc/navieta/services/route/usecase"
)

// CreateRoute adds a new route from a wire-form definition and starts
// polling it.
func (h *RouteHandler) CreateRoute(c echo.Context) error {
	var def models.RouteDefinition
	if err := c.Bind(&def); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	config, err := def.ToConfig()
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	if err := h.routeUC.AddRoute(c.Request().Context(), config); err != nil {
		if models.IsKind(err, models.ErrValidation) {
			return utils.BadRequestResponse(c, err.Error())
		}
		logger.Error("Failed to create route", logger.Err(err))
		return utils.InternalServerErrorResponse(c, "Failed to create route")
	}

	return utils.SuccessResponse(c, http.StatusCreated, "Route created", config.Definition())
}

// GetRoute returns the stored definition of one route.
func (h *RouteHandler) GetRoute(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid route ID")
	}

	def, err := h.routeUC.RouteDefinition(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrRouteNotFound) {
			return utils.NotFoundResponse(c, "Route not found")
		}
		logger.Error("Failed to load route",
			logger.String("route_id", id.String()),
			logger.Err(err))
		return utils.InternalServerErrorResponse(c, "Failed to load route")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Route retrieved", def)
}

// DeleteRoute stops polling and removes a route.
func (h *RouteHandler) DeleteRoute(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid route ID")
	}

	if err := h.routeUC.RemoveRoute(c.Request().Context(), id); err != nil {
		if errors.Is(err, usecase.ErrRouteNotFound) {
			return utils.NotFoundResponse(c, "Route not found")
		}
		logger.Error("Failed to delete route",
			logger.String("route_id", id.String()),
			logger.Err(err))
		return utils.InternalServerErrorResponse(c, "Failed to delete route")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Route deleted", nil)
}

// ReloadRoutes re-reads the route set from storage and clears the
// credential failure latch.
func (h *RouteHandler) ReloadRoutes(c echo.Context) error {
	if err := h.routeUC.ReloadRoutes(c.Request().Context()); err != nil {
		logger.Error("Failed to reload routes", logger.Err(err))
		return utils.InternalServerErrorResponse(c, "Failed to reload routes")
	}
	return utils.SuccessResponse(c, http.StatusOK, "Routes reloaded", nil)
}
