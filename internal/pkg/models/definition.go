package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RouteDefinition is the wire form of a route: raw descriptor strings as the
// user supplied them. The admin API, the environment route list and the
// database rows all use this shape; ToConfig turns it into a validated,
// immutable RouteConfig.
type RouteDefinition struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Waypoints   []string `json:"waypoints,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Avoid       []string `json:"avoid,omitempty"`
}

// ToConfig parses and validates the definition. All failures are
// ErrValidation; a definition that passes never fails classification again
// at poll time.
func (d *RouteDefinition) ToConfig() (*RouteConfig, error) {
	config := &RouteConfig{
		Name:      d.Name,
		CreatedAt: time.Now().UTC(),
	}

	if d.ID != "" {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("invalid route id %q", d.ID))
		}
		config.ID = id
	} else {
		config.ID = uuid.New()
	}

	origin, err := ParseLocationDescriptor(d.Origin)
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	config.Origin = origin

	destination, err := ParseLocationDescriptor(d.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	config.Destination = destination

	for i, raw := range d.Waypoints {
		wp, err := ParseLocationDescriptor(raw)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i+1, err)
		}
		config.Waypoints = append(config.Waypoints, wp)
	}

	config.Priority = Priority(d.Priority)
	if d.Priority == "" {
		config.Priority = PriorityRealtimeOptimal
	}

	for _, a := range d.Avoid {
		config.Avoid = append(config.Avoid, AvoidOption(a))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Definition converts a RouteConfig back to its wire form.
func (rc *RouteConfig) Definition() *RouteDefinition {
	def := &RouteDefinition{
		ID:          rc.ID.String(),
		Name:        rc.Name,
		Origin:      rc.Origin.DisplayText(),
		Destination: rc.Destination.DisplayText(),
		Priority:    string(rc.Priority),
	}
	for _, wp := range rc.Waypoints {
		def.Waypoints = append(def.Waypoints, wp.DisplayText())
	}
	for _, a := range rc.Avoid {
		def.Avoid = append(def.Avoid, string(a))
	}
	return def
}
