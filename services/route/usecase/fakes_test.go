package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/piresc/navieta/internal/pkg/models"
)

// fakeNaverGW counts calls and delegates to per-test functions.
type fakeNaverGW struct {
	mu sync.Mutex

	geocodeCalls int
	geocodeFn    func(query string) (models.Coordinate, error)

	fetchCalls int
	fetchFn    func(points []models.ResolvedPoint, priority models.Priority, avoid []models.AvoidOption) (*models.RouteResult, error)

	revCalls int
	revFn    func(coord models.Coordinate) (string, error)
}

func (f *fakeNaverGW) FetchRoute(_ context.Context, points []models.ResolvedPoint, priority models.Priority, avoid []models.AvoidOption) (*models.RouteResult, error) {
	f.mu.Lock()
	f.fetchCalls++
	fn := f.fetchFn
	f.mu.Unlock()

	if fn == nil {
		return &models.RouteResult{DurationSeconds: 600, DistanceMeters: 8000}, nil
	}
	return fn(points, priority, avoid)
}

func (f *fakeNaverGW) Geocode(_ context.Context, query string) (models.Coordinate, error) {
	f.mu.Lock()
	f.geocodeCalls++
	fn := f.geocodeFn
	f.mu.Unlock()

	if fn == nil {
		return models.Coordinate{Longitude: 127.1, Latitude: 37.36}, nil
	}
	return fn(query)
}

func (f *fakeNaverGW) ReverseGeocode(_ context.Context, coord models.Coordinate) (string, error) {
	f.mu.Lock()
	f.revCalls++
	fn := f.revFn
	f.mu.Unlock()

	if fn == nil {
		return "불정로 6", nil
	}
	return fn(coord)
}

func (f *fakeNaverGW) calls() (geocode, fetch, rev int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geocodeCalls, f.fetchCalls, f.revCalls
}

// fakeEntityGW serves positions from a static map.
type fakeEntityGW struct {
	mu        sync.Mutex
	calls     int
	positions map[string]models.Coordinate
	names     map[string]string
	err       error
}

func (f *fakeEntityGW) EntityPosition(_ context.Context, entityID string) (models.Coordinate, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return models.Coordinate{}, "", f.err
	}
	coord, ok := f.positions[entityID]
	if !ok {
		return models.Coordinate{}, "", models.NewEntityUnavailableError(entityID, "entity does not exist")
	}
	return coord, f.names[entityID], nil
}

// fakeEventsGW records every published result.
type fakeEventsGW struct {
	mu        sync.Mutex
	published []uuid.UUID
	err       error
}

func (f *fakeEventsGW) PublishRouteResult(_ context.Context, routeID uuid.UUID, _ string, _ *models.RouteResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, routeID)
	return nil
}

func (f *fakeEventsGW) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}
