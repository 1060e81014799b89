package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/services/route"
)

// ErrRouteNotFound is returned for operations on an unknown route ID.
var ErrRouteNotFound = errors.New("route not found")

// RouteUC implements the route.RouteUseCase interface: the aggregator that
// drives one poll cycle per route through resolution, the directions request
// and result publication.
type RouteUC struct {
	cfg      *models.Config
	repo     route.RouteRepo
	naverGW  route.NaverGW
	entityGW route.EntityGW
	// eventsGW is nil when NSQ is not configured.
	eventsGW route.EventsGW
	geocache *GeoCache

	// resolvers maps each descriptor variant to its resolution strategy,
	// fixed at construction.
	resolvers map[models.DescriptorKind]pointResolver

	mu     sync.RWMutex
	states map[uuid.UUID]*routeState

	// authFailed latches after the provider rejects credentials. While
	// set, every cycle short-circuits to AuthError without touching the
	// provider; reloading the route set clears it.
	authFailed atomic.Bool

	workers      map[uuid.UUID]*worker
	workersMutex sync.Mutex
	running      bool
}

// worker is one route's poll goroutine handle. The pointer doubles as an
// identity token so a loop that exits on its own only releases its own
// map entry, never a successor started by a reload.
type worker struct {
	cancel context.CancelFunc
}

// routeState is the per-route mutable state: the configuration, the last
// successful result and the last failure. lastResult survives failures so
// the sensor degrades to stale instead of absent.
type routeState struct {
	// pollMu serializes poll cycles for this route: a manual refresh must
	// not overlap a scheduled poll.
	pollMu sync.Mutex

	config *models.RouteConfig

	// mu guards the outcome fields below. Snapshots read them from the
	// handler goroutines while a poll cycle writes them, so pollMu alone
	// is not enough.
	mu         sync.RWMutex
	lastResult *models.RouteResult
	// lastLabels are the interior waypoint display strings captured on the
	// last successful cycle.
	lastLabels []string
	lastErr    error
	lastErrAt  time.Time
}

var _ route.RouteUseCase = (*RouteUC)(nil)

// NewRouteUC creates the route engine. The geocode cache is injected so
// every route shares one instance and tests can reset it.
func NewRouteUC(cfg *models.Config, repo route.RouteRepo, naverGW route.NaverGW, entityGW route.EntityGW, eventsGW route.EventsGW, geocache *GeoCache) *RouteUC {
	uc := &RouteUC{
		cfg:      cfg,
		repo:     repo,
		naverGW:  naverGW,
		entityGW: entityGW,
		eventsGW: eventsGW,
		geocache: geocache,
		states:   make(map[uuid.UUID]*routeState),
		workers:  make(map[uuid.UUID]*worker),
	}
	uc.resolvers = map[models.DescriptorKind]pointResolver{
		models.DescriptorCoordinate: coordinateResolver{},
		models.DescriptorAddress:    addressResolver{cache: geocache},
		models.DescriptorEntity:     entityResolver{gw: entityGW},
	}
	return uc
}

func (uc *RouteUC) state(id uuid.UUID) *routeState {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.states[id]
}

// ComputeRoute runs one poll cycle: resolve origin, waypoints and
// destination in order, request directions, record the outcome. Any single
// resolution failure aborts the cycle with that failure's classification;
// no partial route is computed.
func (uc *RouteUC) ComputeRoute(ctx context.Context, id uuid.UUID) (*models.RouteResult, error) {
	st := uc.state(id)
	if st == nil {
		return nil, ErrRouteNotFound
	}

	st.pollMu.Lock()
	defer st.pollMu.Unlock()

	if uc.authFailed.Load() {
		err := models.NewClassifiedError(models.ErrAuth,
			errors.New("provider credentials rejected; reload routes after fixing them"))
		uc.recordFailure(st, err)
		return nil, err
	}

	config := st.config
	sequence := make([]models.LocationDescriptor, 0, len(config.Waypoints)+2)
	sequence = append(sequence, config.Origin)
	sequence = append(sequence, config.Waypoints...)
	sequence = append(sequence, config.Destination)

	points := make([]models.ResolvedPoint, 0, len(sequence))
	for _, desc := range sequence {
		resolver, ok := uc.resolvers[desc.Kind]
		if !ok {
			err := models.NewValidationError(fmt.Sprintf("no resolver for descriptor kind %q", desc.Kind))
			uc.recordFailure(st, err)
			return nil, err
		}
		point, err := resolver.resolve(ctx, desc)
		if err != nil {
			uc.recordFailure(st, err)
			return nil, err
		}
		points = append(points, point)
	}

	result, err := uc.naverGW.FetchRoute(ctx, points, config.Priority, config.Avoid)
	if err != nil {
		uc.recordFailure(st, err)
		return nil, err
	}

	result.WaypointCount = len(config.Waypoints)
	result.Priority = config.Priority
	if result.FetchedAt.IsZero() {
		result.FetchedAt = time.Now().UTC()
	}

	labels := uc.waypointLabels(ctx, points)

	st.mu.Lock()
	st.lastResult = result
	st.lastLabels = labels
	st.lastErr = nil
	st.mu.Unlock()

	logger.Info("Route computed",
		logger.String("route_id", id.String()),
		logger.String("name", config.DisplayName()),
		logger.Int("duration_seconds", result.DurationSeconds),
		logger.Int("distance_meters", result.DistanceMeters),
		logger.Int("waypoint_count", result.WaypointCount))

	uc.publishResult(ctx, id, config.DisplayName(), result)
	return result, nil
}

// waypointLabels derives the display strings for the interior points.
// Entity-based points get a reverse-geocoded address appended, best effort:
// a labelling failure never fails the cycle.
func (uc *RouteUC) waypointLabels(ctx context.Context, points []models.ResolvedPoint) []string {
	if len(points) <= 2 {
		return nil
	}

	labels := make([]string, 0, len(points)-2)
	for _, point := range points[1 : len(points)-1] {
		label := point.Label
		if point.Source.Kind == models.DescriptorEntity {
			if addr, err := uc.geocache.ReverseResolve(ctx, point.Coordinate); err == nil && addr != "" {
				label = fmt.Sprintf("%s [%s]", label, addr)
			}
		}
		labels = append(labels, label)
	}
	return labels
}

func (uc *RouteUC) recordFailure(st *routeState, err error) {
	st.mu.Lock()
	st.lastErr = err
	st.lastErrAt = time.Now().UTC()
	st.mu.Unlock()

	kind := models.KindOf(err)
	if kind == models.ErrAuth {
		uc.authFailed.Store(true)
	}

	logger.Warn("Route poll cycle failed",
		logger.String("route_id", st.config.ID.String()),
		logger.String("kind", string(kind)),
		logger.Err(err))
}

func (uc *RouteUC) publishResult(ctx context.Context, id uuid.UUID, name string, result *models.RouteResult) {
	if uc.eventsGW == nil {
		return
	}
	if err := uc.eventsGW.PublishRouteResult(ctx, id, name, result); err != nil {
		logger.Warn("Failed to publish route result",
			logger.String("route_id", id.String()),
			logger.Err(err))
	}
}

// RouteDefinition returns the stored wire form of one route, for the
// admin read endpoint.
func (uc *RouteUC) RouteDefinition(ctx context.Context, id uuid.UUID) (*models.RouteDefinition, error) {
	if uc.state(id) == nil {
		return nil, ErrRouteNotFound
	}
	config, err := uc.repo.GetRoute(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load route: %w", err)
	}
	return config.Definition(), nil
}

// Snapshot returns the sensor view of one route.
func (uc *RouteUC) Snapshot(id uuid.UUID) (*models.SensorSnapshot, error) {
	st := uc.state(id)
	if st == nil {
		return nil, ErrRouteNotFound
	}
	return uc.snapshotState(st), nil
}

// Snapshots returns the sensor view of every configured route.
func (uc *RouteUC) Snapshots() []*models.SensorSnapshot {
	uc.mu.RLock()
	states := make([]*routeState, 0, len(uc.states))
	for _, st := range uc.states {
		states = append(states, st)
	}
	uc.mu.RUnlock()

	snapshots := make([]*models.SensorSnapshot, 0, len(states))
	for _, st := range states {
		snapshots = append(snapshots, uc.snapshotState(st))
	}
	return snapshots
}

func (uc *RouteUC) snapshotState(st *routeState) *models.SensorSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	config := st.config
	snap := &models.SensorSnapshot{
		RouteID:       config.ID,
		Name:          config.DisplayName(),
		Priority:      config.Priority,
		WaypointCount: len(config.Waypoints),
	}

	if len(st.lastLabels) == len(config.Waypoints) && len(st.lastLabels) > 0 {
		snap.Waypoints = append(snap.Waypoints, st.lastLabels...)
	} else {
		for _, wp := range config.Waypoints {
			snap.Waypoints = append(snap.Waypoints, wp.DisplayText())
		}
	}
	if snap.Waypoints == nil {
		snap.Waypoints = []string{}
	}

	if st.lastResult != nil {
		minutes := st.lastResult.DurationMinutes()
		distance := st.lastResult.DistanceKm()
		fetchedAt := st.lastResult.FetchedAt

		snap.State = &minutes
		snap.DistanceKm = &distance
		snap.Result = st.lastResult
		snap.LastUpdate = &fetchedAt
	}

	if st.lastErr != nil {
		snap.LastError = st.lastErr.Error()
		snap.LastErrorKind = models.KindOf(st.lastErr)
		snap.Stale = st.lastResult != nil
	}

	return snap
}

// AddRoute validates, persists and starts polling a new route.
func (uc *RouteUC) AddRoute(ctx context.Context, config *models.RouteConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if config.ID == uuid.Nil {
		config.ID = uuid.New()
	}

	if err := uc.repo.CreateRoute(ctx, config); err != nil {
		return fmt.Errorf("failed to store route: %w", err)
	}

	uc.mu.Lock()
	uc.states[config.ID] = &routeState{config: config}
	uc.mu.Unlock()

	uc.workersMutex.Lock()
	if uc.running {
		uc.startWorkerLocked(config.ID)
	}
	uc.workersMutex.Unlock()

	logger.Info("Route added",
		logger.String("route_id", config.ID.String()),
		logger.String("name", config.DisplayName()))
	return nil
}

// RemoveRoute stops polling and deletes a route. The in-flight cycle, if
// any, is abandoned; geocode cache entries stay valid for other routes
// sharing the same address.
func (uc *RouteUC) RemoveRoute(ctx context.Context, id uuid.UUID) error {
	if uc.state(id) == nil {
		return ErrRouteNotFound
	}

	if err := uc.repo.DeleteRoute(ctx, id); err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}

	uc.workersMutex.Lock()
	if w, ok := uc.workers[id]; ok {
		w.cancel()
		delete(uc.workers, id)
	}
	uc.workersMutex.Unlock()

	uc.mu.Lock()
	delete(uc.states, id)
	uc.mu.Unlock()

	logger.Info("Route removed", logger.String("route_id", id.String()))
	return nil
}

// ReloadRoutes re-reads the route set from storage, clears the credential
// failure latch and restarts the pollers. Last-known-good results are kept
// for routes whose ID survives the reload.
func (uc *RouteUC) ReloadRoutes(ctx context.Context) error {
	configs, err := uc.repo.ListRoutes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load routes: %w", err)
	}

	uc.stopWorkers()
	uc.authFailed.Store(false)

	uc.mu.Lock()
	fresh := make(map[uuid.UUID]*routeState, len(configs))
	for _, config := range configs {
		st := &routeState{config: config}
		if prev, ok := uc.states[config.ID]; ok {
			prev.mu.RLock()
			st.lastResult = prev.lastResult
			st.lastLabels = prev.lastLabels
			prev.mu.RUnlock()
		}
		fresh[config.ID] = st
	}
	uc.states = fresh
	uc.mu.Unlock()

	uc.workersMutex.Lock()
	if uc.running {
		for _, config := range configs {
			uc.startWorkerLocked(config.ID)
		}
	}
	uc.workersMutex.Unlock()

	logger.Info("Routes reloaded", logger.Int("count", len(configs)))
	return nil
}

// Start loads the route set and begins periodic polling.
func (uc *RouteUC) Start(ctx context.Context) error {
	configs, err := uc.repo.ListRoutes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load routes: %w", err)
	}

	uc.mu.Lock()
	for _, config := range configs {
		uc.states[config.ID] = &routeState{config: config}
	}
	uc.mu.Unlock()

	uc.workersMutex.Lock()
	uc.running = true
	for _, config := range configs {
		uc.startWorkerLocked(config.ID)
	}
	uc.workersMutex.Unlock()

	logger.Info("Route engine started", logger.Int("routes", len(configs)))
	return nil
}

// Stop cancels all pollers.
func (uc *RouteUC) Stop() {
	uc.stopWorkers()
	uc.workersMutex.Lock()
	uc.running = false
	uc.workersMutex.Unlock()
}

func (uc *RouteUC) stopWorkers() {
	uc.workersMutex.Lock()
	defer uc.workersMutex.Unlock()
	for id, w := range uc.workers {
		w.cancel()
		delete(uc.workers, id)
	}
}
