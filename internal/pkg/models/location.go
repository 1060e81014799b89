package models

import (
	"fmt"
	"time"
)

// Coordinate is a WGS84 point. Longitude comes first everywhere in this
// codebase because the Naver APIs encode points as "<lon>,<lat>".
type Coordinate struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Valid reports whether the coordinate is within the WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Longitude >= -180 && c.Longitude <= 180 &&
		c.Latitude >= -90 && c.Latitude <= 90
}

// String encodes the coordinate in the provider's "<lon>,<lat>" form.
func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Longitude, c.Latitude)
}

// ResolvedPoint is a coordinate produced by resolving a LocationDescriptor.
// Entity and literal-coordinate descriptors produce a fresh point every poll
// cycle; address descriptors produce one once and hit the geocode cache after.
type ResolvedPoint struct {
	Coordinate
	// Source is the descriptor this point was resolved from.
	Source LocationDescriptor `json:"source"`
	// Label is a human-readable name for the point: the address display text,
	// the entity friendly name, or the raw coordinate string.
	Label string `json:"label"`
	// ResolvedAt is when the resolution happened, for diagnostics only.
	ResolvedAt time.Time `json:"resolved_at"`
}
