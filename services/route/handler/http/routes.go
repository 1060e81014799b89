package http

import (
	"github.com/labstack/echo/v4"
	"github.com/piresc/navieta/internal/pkg/middleware"
	"github.com/piresc/navieta/internal/pkg/models"
)

// RegisterRoutes registers the sensor and admin API routes.
func (h *RouteHandler) RegisterRoutes(e *echo.Echo, cfg *models.Config) {
	// Sensor routes (static API key; disabled when no key is configured)
	sensors := e.Group("/sensors")
	sensors.Use(middleware.ValidateAPIKey(cfg.Server.APIKey))
	sensors.GET("", h.ListSensors)
	sensors.GET("/:id", h.GetSensor)
	sensors.POST("/:id/refresh", h.RefreshSensor)

	// Token issuance (static API key)
	auth := e.Group("/auth")
	auth.Use(middleware.ValidateAPIKey(cfg.Server.APIKey))
	auth.POST("/token", NewAuthHandler(cfg.JWT).IssueToken)

	// Admin routes (JWT authentication)
	admin := e.Group("/admin")
	admin.Use(middleware.ValidateAdminToken(cfg.JWT))
	admin.POST("/routes", h.CreateRoute)
	admin.GET("/routes/:id", h.GetRoute)
	admin.DELETE("/routes/:id", h.DeleteRoute)
	admin.POST("/routes/reload", h.ReloadRoutes)
}
