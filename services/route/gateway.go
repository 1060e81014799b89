package route

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/navieta/internal/pkg/models"
)

// NaverGW defines the provider boundary: Directions, Geocoding and
// Reverse-Geocoding calls against the Naver Maps APIs. One request per
// invocation, no internal retries; failures come back classified so the
// poller can decide how to reschedule.
type NaverGW interface {
	// FetchRoute requests a driving route through the ordered point sequence
	// (first = origin, last = destination, interior = waypoints, order
	// preserved exactly as given).
	FetchRoute(ctx context.Context, points []models.ResolvedPoint, priority models.Priority, avoid []models.AvoidOption) (*models.RouteResult, error)

	// Geocode resolves a free-text address to a coordinate.
	Geocode(ctx context.Context, query string) (models.Coordinate, error)

	// ReverseGeocode resolves a coordinate to a human-readable address.
	ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error)
}

// EntityGW defines the host entity read boundary: read-only access to a
// home-automation entity's current position by entity ID.
type EntityGW interface {
	// EntityPosition returns the entity's current coordinate and friendly
	// name. Never cached; the referenced entity is expected to move.
	EntityPosition(ctx context.Context, entityID string) (models.Coordinate, string, error)
}

// EventsGW publishes route results to downstream consumers.
type EventsGW interface {
	PublishRouteResult(ctx context.Context, routeID uuid.UUID, name string, result *models.RouteResult) error
}
