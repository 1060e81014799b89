package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtpkg "github.com/piresc/navieta/internal/pkg/jwt"
	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/services/route/usecase"
)

// fakeRouteUC satisfies route.RouteUseCase with canned snapshots.
type fakeRouteUC struct {
	snapshots   map[uuid.UUID]*models.SensorSnapshot
	definitions map[uuid.UUID]*models.RouteDefinition
	computeErr  error
	added       []*models.RouteConfig
	removed     []uuid.UUID
	reloadCalls int
}

func newFakeRouteUC() *fakeRouteUC {
	return &fakeRouteUC{
		snapshots:   make(map[uuid.UUID]*models.SensorSnapshot),
		definitions: make(map[uuid.UUID]*models.RouteDefinition),
	}
}

func (f *fakeRouteUC) ComputeRoute(_ context.Context, id uuid.UUID) (*models.RouteResult, error) {
	if _, ok := f.snapshots[id]; !ok {
		return nil, usecase.ErrRouteNotFound
	}
	if f.computeErr != nil {
		return nil, f.computeErr
	}
	return &models.RouteResult{DurationSeconds: 600, FetchedAt: time.Now()}, nil
}

func (f *fakeRouteUC) RouteDefinition(_ context.Context, id uuid.UUID) (*models.RouteDefinition, error) {
	def, ok := f.definitions[id]
	if !ok {
		return nil, usecase.ErrRouteNotFound
	}
	return def, nil
}

func (f *fakeRouteUC) Snapshot(id uuid.UUID) (*models.SensorSnapshot, error) {
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, usecase.ErrRouteNotFound
	}
	return snap, nil
}

func (f *fakeRouteUC) Snapshots() []*models.SensorSnapshot {
	out := make([]*models.SensorSnapshot, 0, len(f.snapshots))
	for _, snap := range f.snapshots {
		out = append(out, snap)
	}
	return out
}

func (f *fakeRouteUC) AddRoute(_ context.Context, config *models.RouteConfig) error {
	f.added = append(f.added, config)
	f.snapshots[config.ID] = &models.SensorSnapshot{RouteID: config.ID, Name: config.DisplayName()}
	return nil
}

func (f *fakeRouteUC) RemoveRoute(_ context.Context, id uuid.UUID) error {
	if _, ok := f.snapshots[id]; !ok {
		return usecase.ErrRouteNotFound
	}
	delete(f.snapshots, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeRouteUC) ReloadRoutes(_ context.Context) error {
	f.reloadCalls++
	return nil
}

func (f *fakeRouteUC) Start(_ context.Context) error { return nil }
func (f *fakeRouteUC) Stop()                         {}

func testServerConfig() *models.Config {
	return &models.Config{
		Server: models.ServerConfig{APIKey: "sensor-key"},
		JWT: models.JWTConfig{
			Secret:     "test-secret",
			Expiration: 60,
			Issuer:     "navieta",
		},
	}
}

func setupServer(t *testing.T, uc *fakeRouteUC) *echo.Echo {
	t.Helper()
	e := echo.New()
	NewRouteHandler(uc).RegisterRoutes(e, testServerConfig())
	return e
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := jwtpkg.GenerateToken("tester", testServerConfig().JWT)
	require.NoError(t, err)
	return token
}

func TestListSensors(t *testing.T) {
	uc := newFakeRouteUC()
	id := uuid.New()
	uc.snapshots[id] = &models.SensorSnapshot{RouteID: id, Name: "Commute"}
	e := setupServer(t, uc)

	req := httptest.NewRequest(http.MethodGet, "/sensors", nil)
	req.Header.Set("X-API-Key", "sensor-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Commute")
}

func TestSensorsRequireAPIKey(t *testing.T) {
	e := setupServer(t, newFakeRouteUC())

	req := httptest.NewRequest(http.MethodGet, "/sensors", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/sensors", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSensor(t *testing.T) {
	uc := newFakeRouteUC()
	id := uuid.New()
	minutes := 32
	uc.snapshots[id] = &models.SensorSnapshot{RouteID: id, Name: "Commute", State: &minutes}
	e := setupServer(t, uc)

	req := httptest.NewRequest(http.MethodGet, "/sensors/"+id.String(), nil)
	req.Header.Set("X-API-Key", "sensor-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.SensorSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.Data.RouteID)
	require.NotNil(t, body.Data.State)
	assert.Equal(t, 32, *body.Data.State)
}

func TestGetSensorNotFound(t *testing.T) {
	e := setupServer(t, newFakeRouteUC())

	req := httptest.NewRequest(http.MethodGet, "/sensors/"+uuid.NewString(), nil)
	req.Header.Set("X-API-Key", "sensor-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSensorBadID(t *testing.T) {
	e := setupServer(t, newFakeRouteUC())

	req := httptest.NewRequest(http.MethodGet, "/sensors/not-a-uuid", nil)
	req.Header.Set("X-API-Key", "sensor-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshSensorReportsFailureInBody(t *testing.T) {
	uc := newFakeRouteUC()
	id := uuid.New()
	uc.snapshots[id] = &models.SensorSnapshot{RouteID: id}
	uc.computeErr = models.NewClassifiedError(models.ErrRateLimited, assert.AnError)
	e := setupServer(t, uc)

	req := httptest.NewRequest(http.MethodPost, "/sensors/"+id.String()+"/refresh", nil)
	req.Header.Set("X-API-Key", "sensor-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code,
		"a classified provider failure is sensor state, not an API error")
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestCreateRoute(t *testing.T) {
	uc := newFakeRouteUC()
	e := setupServer(t, uc)

	body := `{"name": "Commute", "origin": "zone.home", "destination": "분당구 불정로 6"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/routes", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, uc.added, 1)
	assert.Equal(t, "Commute", uc.added[0].Name)
}

func TestCreateRouteValidation(t *testing.T) {
	uc := newFakeRouteUC()
	e := setupServer(t, uc)

	body := `{"origin": "zone.home", "destination": "zone.work", "priority": "WARP_SPEED"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/routes", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, uc.added)
}

func TestGetRoute(t *testing.T) {
	uc := newFakeRouteUC()
	id := uuid.New()
	uc.definitions[id] = &models.RouteDefinition{
		ID:          id.String(),
		Name:        "Commute",
		Origin:      "zone.home",
		Destination: "person.jaehoon",
		Priority:    "REALTIME_FASTEST",
	}
	e := setupServer(t, uc)

	req := httptest.NewRequest(http.MethodGet, "/admin/routes/"+id.String(), nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.RouteDefinition `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Commute", body.Data.Name)
	assert.Equal(t, "person.jaehoon", body.Data.Destination)
}

func TestGetRouteNotFound(t *testing.T) {
	e := setupServer(t, newFakeRouteUC())

	req := httptest.NewRequest(http.MethodGet, "/admin/routes/"+uuid.NewString(), nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIssueToken(t *testing.T) {
	e := setupServer(t, newFakeRouteUC())

	body := `{"subject": "homebridge"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-API-Key", "sensor-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Token     string `json:"token"`
			ExpiresAt int64  `json:"expires_at"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	assert.Greater(t, resp.Data.ExpiresAt, time.Now().Unix())

	claims, err := jwtpkg.ValidateToken(resp.Data.Token, testServerConfig().JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, "homebridge", (*claims)["sub"])

	// The minted token passes the admin middleware.
	adminReq := httptest.NewRequest(http.MethodPost, "/admin/routes/reload", nil)
	adminReq.Header.Set(echo.HeaderAuthorization, "Bearer "+resp.Data.Token)
	adminRec := httptest.NewRecorder()
	e.ServeHTTP(adminRec, adminReq)
	assert.Equal(t, http.StatusOK, adminRec.Code)
}

func TestIssueTokenRequiresAPIKey(t *testing.T) {
	e := setupServer(t, newFakeRouteUC())

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueTokenUnconfigured(t *testing.T) {
	cfg := testServerConfig()
	cfg.JWT.Secret = ""
	e := echo.New()
	NewRouteHandler(newFakeRouteUC()).RegisterRoutes(e, cfg)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.Header.Set("X-API-Key", "sensor-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	e := setupServer(t, newFakeRouteUC())

	req := httptest.NewRequest(http.MethodPost, "/admin/routes/reload", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/routes/reload", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteRoute(t *testing.T) {
	uc := newFakeRouteUC()
	id := uuid.New()
	uc.snapshots[id] = &models.SensorSnapshot{RouteID: id}
	e := setupServer(t, uc)

	req := httptest.NewRequest(http.MethodDelete, "/admin/routes/"+id.String(), nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, uc.removed)
}

func TestReloadRoutes(t *testing.T) {
	uc := newFakeRouteUC()
	e := setupServer(t, uc)

	req := httptest.NewRequest(http.MethodPost, "/admin/routes/reload", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, uc.reloadCalls)
}
