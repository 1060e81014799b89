package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/pkg/models"
)

// RouteRepo stores route definitions in Postgres. Rows keep the raw
// descriptor strings as the user supplied them; parsing and validation
// happen on load, so a row written by an older version still classifies
// cleanly.
type RouteRepo struct {
	cfg *models.Config
	db  *sqlx.DB
}

func NewRouteRepository(cfg *models.Config, db *sqlx.DB) *RouteRepo {
	return &RouteRepo{
		cfg: cfg,
		db:  db,
	}
}

// EnsureSchema creates the routes table when it does not exist yet.
func (r *RouteRepo) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS routes (
			id          UUID PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			origin      TEXT NOT NULL,
			destination TEXT NOT NULL,
			waypoints   JSONB NOT NULL DEFAULT '[]',
			priority    TEXT NOT NULL,
			avoid       JSONB NOT NULL DEFAULT '[]',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure routes schema: %w", err)
	}
	return nil
}

// ListRoutes loads every stored route. Rows that no longer parse are
// skipped with a warning rather than failing the whole load.
func (r *RouteRepo) ListRoutes(ctx context.Context) ([]*models.RouteConfig, error) {
	query := `
		SELECT id, name, origin, destination, waypoints, priority, avoid
		FROM routes
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var configs []*models.RouteConfig
	for rows.Next() {
		config, err := scanRoute(rows)
		if err != nil {
			logger.Warn("Skipping unparseable route row", logger.Err(err))
			continue
		}
		configs = append(configs, config)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routes: %w", err)
	}
	return configs, nil
}

// GetRoute loads a single route by ID.
func (r *RouteRepo) GetRoute(ctx context.Context, id uuid.UUID) (*models.RouteConfig, error) {
	query := `
		SELECT id, name, origin, destination, waypoints, priority, avoid
		FROM routes
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	config, err := scanRoute(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("route %s not found", id)
		}
		return nil, err
	}
	return config, nil
}

// CreateRoute persists a validated route.
func (r *RouteRepo) CreateRoute(ctx context.Context, config *models.RouteConfig) error {
	def := config.Definition()

	waypoints, err := json.Marshal(def.Waypoints)
	if err != nil {
		return fmt.Errorf("failed to encode waypoints: %w", err)
	}
	avoid, err := json.Marshal(def.Avoid)
	if err != nil {
		return fmt.Errorf("failed to encode avoid options: %w", err)
	}

	query := `
		INSERT INTO routes (id, name, origin, destination, waypoints, priority, avoid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		config.ID,
		config.Name,
		def.Origin,
		def.Destination,
		waypoints,
		def.Priority,
		avoid,
		config.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert route: %w", err)
	}
	return nil
}

// DeleteRoute removes a route by ID.
func (r *RouteRepo) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("route %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoute(row rowScanner) (*models.RouteConfig, error) {
	var (
		id                        uuid.UUID
		name, origin, destination string
		waypointsJSON, avoidJSON  []byte
		priority                  string
	)
	if err := row.Scan(&id, &name, &origin, &destination, &waypointsJSON, &priority, &avoidJSON); err != nil {
		return nil, err
	}

	def := &models.RouteDefinition{
		ID:          id.String(),
		Name:        name,
		Origin:      origin,
		Destination: destination,
		Priority:    priority,
	}
	if err := json.Unmarshal(waypointsJSON, &def.Waypoints); err != nil {
		return nil, fmt.Errorf("failed to decode waypoints for route %s: %w", id, err)
	}
	if err := json.Unmarshal(avoidJSON, &def.Avoid); err != nil {
		return nil, fmt.Errorf("failed to decode avoid options for route %s: %w", id, err)
	}

	config, err := def.ToConfig()
	if err != nil {
		return nil, fmt.Errorf("stored route %s no longer valid: %w", id, err)
	}
	return config, nil
}
