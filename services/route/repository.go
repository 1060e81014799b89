package route

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/navieta/internal/pkg/models"
)

// RouteRepo defines the interface for route configuration storage.
type RouteRepo interface {
	ListRoutes(ctx context.Context) ([]*models.RouteConfig, error)
	GetRoute(ctx context.Context, id uuid.UUID) (*models.RouteConfig, error)
	CreateRoute(ctx context.Context, config *models.RouteConfig) error
	DeleteRoute(ctx context.Context, id uuid.UUID) error
}
