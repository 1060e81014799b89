package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/piresc/navieta/internal/pkg/models"
)

// EnvRouteRepo is the in-memory fallback store used when no database is
// configured. It seeds from the ROUTES environment variable, a JSON array
// of route definitions, and holds admin-API changes for the process
// lifetime only.
type EnvRouteRepo struct {
	mu     sync.RWMutex
	routes map[uuid.UUID]*models.RouteConfig
	order  []uuid.UUID
}

// NewEnvRouteRepository parses the raw JSON route list. An empty string
// yields an empty store; a malformed list or an invalid definition fails
// startup rather than silently dropping routes.
func NewEnvRouteRepository(rawJSON string) (*EnvRouteRepo, error) {
	repo := &EnvRouteRepo{
		routes: make(map[uuid.UUID]*models.RouteConfig),
	}
	if rawJSON == "" {
		return repo, nil
	}

	var defs []*models.RouteDefinition
	if err := json.Unmarshal([]byte(rawJSON), &defs); err != nil {
		return nil, fmt.Errorf("failed to parse ROUTES: %w", err)
	}

	for i, def := range defs {
		config, err := def.ToConfig()
		if err != nil {
			return nil, fmt.Errorf("route %d in ROUTES: %w", i+1, err)
		}
		repo.routes[config.ID] = config
		repo.order = append(repo.order, config.ID)
	}
	return repo, nil
}

func (r *EnvRouteRepo) ListRoutes(ctx context.Context) ([]*models.RouteConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	configs := make([]*models.RouteConfig, 0, len(r.order))
	for _, id := range r.order {
		configs = append(configs, r.routes[id])
	}
	return configs, nil
}

func (r *EnvRouteRepo) GetRoute(ctx context.Context, id uuid.UUID) (*models.RouteConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.routes[id]
	if !ok {
		return nil, fmt.Errorf("route %s not found", id)
	}
	return config, nil
}

func (r *EnvRouteRepo) CreateRoute(ctx context.Context, config *models.RouteConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[config.ID]; ok {
		return fmt.Errorf("route %s already exists", config.ID)
	}
	r.routes[config.ID] = config
	r.order = append(r.order, config.ID)
	return nil
}

func (r *EnvRouteRepo) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[id]; !ok {
		return fmt.Errorf("route %s not found", id)
	}
	delete(r.routes, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
