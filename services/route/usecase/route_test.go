package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/services/route/repository"
)

func testConfig() *models.Config {
	return &models.Config{
		Poller: models.PollerConfig{
			IntervalMinutes:   10,
			MaxBackoffMinutes: 60,
			BackoffMultiplier: 2.0,
		},
	}
}

func newTestUC(t *testing.T, naver *fakeNaverGW, entity *fakeEntityGW, events *fakeEventsGW) *RouteUC {
	t.Helper()
	repo, err := repository.NewEnvRouteRepository("")
	require.NoError(t, err)

	geocache := NewGeoCache(naver, nil)
	// A typed nil would not compare equal to nil through the interface.
	if events == nil {
		return NewRouteUC(testConfig(), repo, naver, entity, nil, geocache)
	}
	return NewRouteUC(testConfig(), repo, naver, entity, events, geocache)
}

func addRoute(t *testing.T, uc *RouteUC, def models.RouteDefinition) uuid.UUID {
	t.Helper()
	config, err := def.ToConfig()
	require.NoError(t, err)
	require.NoError(t, uc.AddRoute(context.Background(), config))
	return config.ID
}

func TestComputeRouteSuccess(t *testing.T) {
	toll := 1200
	naver := &fakeNaverGW{
		fetchFn: func(points []models.ResolvedPoint, priority models.Priority, avoid []models.AvoidOption) (*models.RouteResult, error) {
			require.Len(t, points, 3)
			assert.Equal(t, models.PriorityRealtimeFastest, priority)
			return &models.RouteResult{
				DurationSeconds: 1890,
				DistanceMeters:  25000,
				TollFare:        &toll,
			}, nil
		},
	}
	entity := &fakeEntityGW{
		positions: map[string]models.Coordinate{
			"person.jaehoon": {Longitude: 127.05, Latitude: 37.28},
		},
		names: map[string]string{"person.jaehoon": "Jaehoon"},
	}
	events := &fakeEventsGW{}
	uc := newTestUC(t, naver, entity, events)

	id := addRoute(t, uc, models.RouteDefinition{
		Name:        "Commute",
		Origin:      "127.0,37.2",
		Destination: "분당구 불정로 6",
		Waypoints:   []string{"person.jaehoon"},
		Priority:    "REALTIME_FASTEST",
	})

	result, err := uc.ComputeRoute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1890, result.DurationSeconds)
	assert.Equal(t, 1, result.WaypointCount)
	assert.Equal(t, models.PriorityRealtimeFastest, result.Priority)
	assert.False(t, result.FetchedAt.IsZero())
	assert.Equal(t, 1, events.count())

	snapshot, err := uc.Snapshot(id)
	require.NoError(t, err)
	require.NotNil(t, snapshot.State)
	assert.Equal(t, 32, *snapshot.State)
	require.NotNil(t, snapshot.DistanceKm)
	assert.Equal(t, 25.0, *snapshot.DistanceKm)
	assert.Equal(t, "Commute", snapshot.Name)
	assert.False(t, snapshot.Stale)
	assert.Empty(t, snapshot.LastError)
	require.Len(t, snapshot.Waypoints, 1)
	assert.Equal(t, "Jaehoon [불정로 6]", snapshot.Waypoints[0])
}

func TestComputeRouteResolutionFailureAbortsCycle(t *testing.T) {
	naver := &fakeNaverGW{}
	entity := &fakeEntityGW{} // knows no entities
	uc := newTestUC(t, naver, entity, nil)

	id := addRoute(t, uc, models.RouteDefinition{
		Origin:      "person.jaehoon",
		Destination: "127.0,37.2",
	})

	_, err := uc.ComputeRoute(context.Background(), id)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrEntityUnavailable))

	_, fetch, _ := naver.calls()
	assert.Equal(t, 0, fetch, "a resolution failure must not reach the directions API")

	snapshot, err := uc.Snapshot(id)
	require.NoError(t, err)
	assert.Nil(t, snapshot.State)
	assert.False(t, snapshot.Stale, "no previous result means absent, not stale")
	assert.Equal(t, models.ErrEntityUnavailable, snapshot.LastErrorKind)
}

func TestComputeRouteKeepsLastGoodResult(t *testing.T) {
	failing := false
	naver := &fakeNaverGW{
		fetchFn: func(points []models.ResolvedPoint, priority models.Priority, avoid []models.AvoidOption) (*models.RouteResult, error) {
			if failing {
				return nil, models.NewClassifiedError(models.ErrRateLimited, errors.New("429"))
			}
			return &models.RouteResult{DurationSeconds: 1200, DistanceMeters: 15000}, nil
		},
	}
	uc := newTestUC(t, naver, &fakeEntityGW{}, nil)

	id := addRoute(t, uc, models.RouteDefinition{
		Origin:      "127.0,37.2",
		Destination: "127.1,37.3",
	})

	_, err := uc.ComputeRoute(context.Background(), id)
	require.NoError(t, err)

	failing = true
	_, err = uc.ComputeRoute(context.Background(), id)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrRateLimited))

	snapshot, err := uc.Snapshot(id)
	require.NoError(t, err)
	require.NotNil(t, snapshot.State)
	assert.Equal(t, 20, *snapshot.State, "the last good duration must survive a failed cycle")
	assert.True(t, snapshot.Stale)
	assert.Equal(t, models.ErrRateLimited, snapshot.LastErrorKind)
}

func TestComputeRouteAuthLatch(t *testing.T) {
	naver := &fakeNaverGW{
		fetchFn: func(points []models.ResolvedPoint, priority models.Priority, avoid []models.AvoidOption) (*models.RouteResult, error) {
			return nil, models.NewClassifiedError(models.ErrAuth, errors.New("401"))
		},
	}
	uc := newTestUC(t, naver, &fakeEntityGW{}, nil)

	id := addRoute(t, uc, models.RouteDefinition{
		Origin:      "127.0,37.2",
		Destination: "127.1,37.3",
	})

	_, err := uc.ComputeRoute(context.Background(), id)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrAuth))

	// Latched: further cycles must fail fast without touching the provider.
	_, err = uc.ComputeRoute(context.Background(), id)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrAuth))

	_, fetch, _ := naver.calls()
	assert.Equal(t, 1, fetch)

	// Reload clears the latch.
	naver.mu.Lock()
	naver.fetchFn = nil
	naver.mu.Unlock()
	require.NoError(t, uc.ReloadRoutes(context.Background()))

	_, err = uc.ComputeRoute(context.Background(), id)
	require.NoError(t, err)

	_, fetch, _ = naver.calls()
	assert.Equal(t, 2, fetch)
}

func TestSnapshotUnknownRoute(t *testing.T) {
	uc := newTestUC(t, &fakeNaverGW{}, &fakeEntityGW{}, nil)

	_, err := uc.Snapshot(uuid.New())
	assert.ErrorIs(t, err, ErrRouteNotFound)

	_, err = uc.ComputeRoute(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestAddAndRemoveRoute(t *testing.T) {
	uc := newTestUC(t, &fakeNaverGW{}, &fakeEntityGW{}, nil)

	id := addRoute(t, uc, models.RouteDefinition{
		Origin:      "zone.home",
		Destination: "zone.work",
	})

	assert.Len(t, uc.Snapshots(), 1)

	require.NoError(t, uc.RemoveRoute(context.Background(), id))
	assert.Empty(t, uc.Snapshots())

	err := uc.RemoveRoute(context.Background(), id)
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestSnapshotDuringActivePolling(t *testing.T) {
	var cycle atomic.Int64
	naver := &fakeNaverGW{
		fetchFn: func([]models.ResolvedPoint, models.Priority, []models.AvoidOption) (*models.RouteResult, error) {
			if cycle.Add(1)%2 == 0 {
				return nil, models.NewClassifiedError(models.ErrRateLimited, errors.New("429"))
			}
			return &models.RouteResult{DurationSeconds: 600, DistanceMeters: 8000}, nil
		},
	}
	uc := newTestUC(t, naver, &fakeEntityGW{}, nil)

	id := addRoute(t, uc, models.RouteDefinition{
		Origin:      "127.0,37.2",
		Destination: "127.1,37.3",
	})

	// Sensor reads must be safe while poll cycles rewrite the route state.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = uc.ComputeRoute(context.Background(), id)
		}()
		go func() {
			defer wg.Done()
			if snap, err := uc.Snapshot(id); err == nil && snap.State != nil {
				assert.Equal(t, 10, *snap.State)
			}
			uc.Snapshots()
		}()
	}
	wg.Wait()

	snapshot, err := uc.Snapshot(id)
	require.NoError(t, err)
	require.NotNil(t, snapshot.State)
	assert.Equal(t, 10, *snapshot.State)
}

func TestWorkerReleasedWhenPollingStops(t *testing.T) {
	naver := &fakeNaverGW{
		fetchFn: func([]models.ResolvedPoint, models.Priority, []models.AvoidOption) (*models.RouteResult, error) {
			return nil, models.NewClassifiedError(models.ErrAuth, errors.New("401"))
		},
	}
	uc := newTestUC(t, naver, &fakeEntityGW{}, nil)
	addRoute(t, uc, models.RouteDefinition{
		Origin:      "127.0,37.2",
		Destination: "127.1,37.3",
	})

	require.NoError(t, uc.Start(context.Background()))
	defer uc.Stop()

	// The first cycle runs immediately, hits the credential rejection and
	// stops the loop; its worker entry must go with it.
	require.Eventually(t, func() bool {
		uc.workersMutex.Lock()
		defer uc.workersMutex.Unlock()
		return len(uc.workers) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRouteDefinitionReturnsStoredForm(t *testing.T) {
	uc := newTestUC(t, &fakeNaverGW{}, &fakeEntityGW{}, nil)

	id := addRoute(t, uc, models.RouteDefinition{
		Name:        "Commute",
		Origin:      "127.0,37.2",
		Destination: "person.jaehoon",
		Priority:    "REALTIME_FASTEST",
	})

	def, err := uc.RouteDefinition(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Commute", def.Name)
	assert.Equal(t, "person.jaehoon", def.Destination)
	assert.Equal(t, "REALTIME_FASTEST", def.Priority)

	_, err = uc.RouteDefinition(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestReloadKeepsLastGoodForSurvivingRoutes(t *testing.T) {
	naver := &fakeNaverGW{}
	uc := newTestUC(t, naver, &fakeEntityGW{}, nil)

	id := addRoute(t, uc, models.RouteDefinition{
		Origin:      "127.0,37.2",
		Destination: "127.1,37.3",
	})

	_, err := uc.ComputeRoute(context.Background(), id)
	require.NoError(t, err)

	require.NoError(t, uc.ReloadRoutes(context.Background()))

	snapshot, err := uc.Snapshot(id)
	require.NoError(t, err)
	require.NotNil(t, snapshot.State)
	assert.Equal(t, 10, *snapshot.State)
}
