package route

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/navieta/internal/pkg/models"
)

// RouteUseCase defines the interface for the route ETA engine.
type RouteUseCase interface {
	// ComputeRoute runs one poll cycle for the route: resolve every point,
	// request directions, publish the result. A failure leaves the last
	// successful result untouched and comes back classified.
	ComputeRoute(ctx context.Context, id uuid.UUID) (*models.RouteResult, error)

	// RouteDefinition returns the stored wire form of one route.
	RouteDefinition(ctx context.Context, id uuid.UUID) (*models.RouteDefinition, error)

	// Snapshot returns the sensor view of one route.
	Snapshot(id uuid.UUID) (*models.SensorSnapshot, error)

	// Snapshots returns the sensor view of every configured route.
	Snapshots() []*models.SensorSnapshot

	// AddRoute validates, persists and starts polling a new route.
	AddRoute(ctx context.Context, config *models.RouteConfig) error

	// RemoveRoute stops polling and deletes a route. In-flight work for the
	// route is abandoned; geocode cache entries it produced remain valid.
	RemoveRoute(ctx context.Context, id uuid.UUID) error

	// ReloadRoutes re-reads the route set from storage, resets the
	// credential failure latch and restarts the pollers.
	ReloadRoutes(ctx context.Context) error

	// Start loads the route set and begins periodic polling.
	Start(ctx context.Context) error

	// Stop cancels all pollers.
	Stop()
}
