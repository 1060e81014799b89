package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxWaypoints is the provider's limit on intermediate points per route.
const MaxWaypoints = 5

// Priority is the provider's named routing optimization mode.
type Priority string

const (
	PriorityRealtimeOptimal     Priority = "REALTIME_OPTIMAL"
	PriorityRealtimeFastest     Priority = "REALTIME_FASTEST"
	PriorityRealtimeComfortable Priority = "REALTIME_COMFORTABLE"
)

// ProviderOption maps the priority to the Naver driving option token.
func (p Priority) ProviderOption() string {
	switch p {
	case PriorityRealtimeFastest:
		return "trafast"
	case PriorityRealtimeComfortable:
		return "tracomfort"
	default:
		return "traoptimal"
	}
}

// Valid reports whether p is one of the named modes.
func (p Priority) Valid() bool {
	switch p {
	case PriorityRealtimeOptimal, PriorityRealtimeFastest, PriorityRealtimeComfortable:
		return true
	}
	return false
}

// AvoidOption is a route exclusion toggle.
type AvoidOption string

const (
	AvoidToll     AvoidOption = "TOLL"
	AvoidMotorway AvoidOption = "MOTORWAY"
)

// ProviderOption maps the exclusion to the Naver option token.
func (a AvoidOption) ProviderOption() string {
	switch a {
	case AvoidToll:
		return "traavoidtoll"
	case AvoidMotorway:
		return "traavoidcaronly"
	}
	return ""
}

// RouteConfig is one configured route. Immutable after creation; changing a
// route replaces the whole structure.
type RouteConfig struct {
	ID          uuid.UUID            `json:"id" db:"id"`
	Name        string               `json:"name" db:"name"`
	Origin      LocationDescriptor   `json:"origin"`
	Destination LocationDescriptor   `json:"destination"`
	Waypoints   []LocationDescriptor `json:"waypoints,omitempty"`
	Priority    Priority             `json:"priority" db:"priority"`
	Avoid       []AvoidOption        `json:"avoid,omitempty"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
}

// Validate enforces the configuration-time invariants. All violations are
// ErrValidation: they must never surface during a poll cycle.
func (rc *RouteConfig) Validate() error {
	if rc.Origin.Kind == "" {
		return NewValidationError("route origin is not set")
	}
	if rc.Destination.Kind == "" {
		return NewValidationError("route destination is not set")
	}
	if len(rc.Waypoints) > MaxWaypoints {
		return NewValidationError(fmt.Sprintf(
			"route has %d waypoints, provider maximum is %d", len(rc.Waypoints), MaxWaypoints))
	}
	if !rc.Priority.Valid() {
		return NewValidationError(fmt.Sprintf("unknown priority %q", rc.Priority))
	}
	for _, a := range rc.Avoid {
		if a.ProviderOption() == "" {
			return NewValidationError(fmt.Sprintf("unknown avoid option %q", a))
		}
	}
	return nil
}

// DisplayName returns the configured name, or derives "A to B via C" from the
// descriptors when none was set.
func (rc *RouteConfig) DisplayName() string {
	if rc.Name != "" {
		return rc.Name
	}
	name := fmt.Sprintf("%s to %s", rc.Origin.DisplayText(), rc.Destination.DisplayText())
	switch len(rc.Waypoints) {
	case 0:
	case 1:
		name += fmt.Sprintf(" via %s", rc.Waypoints[0].DisplayText())
	default:
		name += fmt.Sprintf(" (%d waypoints)", len(rc.Waypoints))
	}
	return name
}

// RouteResult is the outcome of one successful poll cycle. Recomputed every
// cycle; the previous value is kept as the sensor's last-known-good state when
// a cycle fails.
type RouteResult struct {
	DurationSeconds int       `json:"duration_seconds"`
	DistanceMeters  int       `json:"distance_meters"`
	TollFare        *int      `json:"toll_fare,omitempty"`
	TaxiFare        *int      `json:"taxi_fare,omitempty"`
	FuelPrice       *int      `json:"fuel_price,omitempty"`
	WaypointCount   int       `json:"waypoint_count"`
	Priority        Priority  `json:"priority"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// DurationMinutes is the sensor state: the travel time rounded to whole minutes.
func (r *RouteResult) DurationMinutes() int {
	return int(math.Round(float64(r.DurationSeconds) / 60.0))
}

// DistanceKm is the travel distance in kilometers, rounded to two decimals.
func (r *RouteResult) DistanceKm() float64 {
	return math.Round(float64(r.DistanceMeters)/10.0) / 100.0
}

// SensorSnapshot is what the sensor API publishes for one route: the last
// good result plus staleness and error context. Stale means the last poll
// cycle failed and State still reflects an older successful cycle.
type SensorSnapshot struct {
	RouteID       uuid.UUID    `json:"route_id"`
	Name          string       `json:"name"`
	State         *int         `json:"state"`
	DistanceKm    *float64     `json:"distance,omitempty"`
	Result        *RouteResult `json:"result,omitempty"`
	Waypoints     []string     `json:"waypoints"`
	WaypointCount int          `json:"waypoint_count"`
	Priority      Priority     `json:"priority"`
	Stale         bool         `json:"stale"`
	LastError     string       `json:"last_error,omitempty"`
	LastErrorKind ErrorKind    `json:"last_error_kind,omitempty"`
	LastUpdate    *time.Time   `json:"last_update,omitempty"`
}
