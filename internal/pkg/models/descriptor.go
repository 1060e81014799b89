package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DescriptorKind identifies which variant of the LocationDescriptor union is set.
type DescriptorKind string

const (
	DescriptorEntity     DescriptorKind = "entity"
	DescriptorCoordinate DescriptorKind = "coordinate"
	DescriptorAddress    DescriptorKind = "address"
)

// EntityDomain is the home-automation domain of a referenced entity.
// The domain decides the resolution strategy: zones resolve to their static
// configured center, persons and device trackers to their live position.
type EntityDomain string

const (
	DomainPerson        EntityDomain = "person"
	DomainDeviceTracker EntityDomain = "device_tracker"
	DomainZone          EntityDomain = "zone"
)

var entityIDPattern = regexp.MustCompile(`^(person|device_tracker|zone)\.([a-z0-9_]+)$`)

// LocationDescriptor is a tagged union over the three ways a route endpoint
// can be specified: a home-automation entity reference, a literal
// "<lon>,<lat>" coordinate pair, or free-text address. Parsed once at
// configuration load and never mutated.
type LocationDescriptor struct {
	Kind DescriptorKind `json:"kind"`

	// EntityID and EntityDomain are set for DescriptorEntity.
	EntityID     string       `json:"entity_id,omitempty"`
	EntityDomain EntityDomain `json:"entity_domain,omitempty"`

	// Coordinate is set for DescriptorCoordinate.
	Coordinate Coordinate `json:"coordinate,omitempty"`

	// Address is the display text for DescriptorAddress, whitespace-trimmed
	// but otherwise as the user typed it.
	Address string `json:"address,omitempty"`
}

// ParseLocationDescriptor classifies a raw user string into a descriptor.
// The classification order matches what users expect: entity references first,
// then coordinate literals, then anything else is an address. Pure; the only
// failure mode is a coordinate literal outside the WGS84 ranges.
func ParseLocationDescriptor(raw string) (LocationDescriptor, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return LocationDescriptor{}, NewValidationError("location descriptor is empty")
	}

	if m := entityIDPattern.FindStringSubmatch(trimmed); m != nil {
		return LocationDescriptor{
			Kind:         DescriptorEntity,
			EntityID:     trimmed,
			EntityDomain: EntityDomain(m[1]),
		}, nil
	}

	if coord, ok, err := parseCoordinateLiteral(trimmed); ok {
		if err != nil {
			return LocationDescriptor{}, err
		}
		return LocationDescriptor{
			Kind:       DescriptorCoordinate,
			Coordinate: coord,
		}, nil
	}

	return LocationDescriptor{
		Kind:    DescriptorAddress,
		Address: trimmed,
	}, nil
}

// parseCoordinateLiteral recognizes "<lon>,<lat>". The bool reports whether
// the input looked like a coordinate pair at all; the error reports range
// violations on inputs that did.
func parseCoordinateLiteral(s string) (Coordinate, bool, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, false, nil
	}
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLon != nil || errLat != nil {
		return Coordinate{}, false, nil
	}
	coord := Coordinate{Longitude: lon, Latitude: lat}
	if !coord.Valid() {
		return Coordinate{}, true, NewValidationError(
			fmt.Sprintf("coordinate out of range: lon=%g lat=%g", lon, lat))
	}
	return coord, true, nil
}

// DisplayText returns what the sensor attributes show for this descriptor.
func (d LocationDescriptor) DisplayText() string {
	switch d.Kind {
	case DescriptorEntity:
		return d.EntityID
	case DescriptorCoordinate:
		return d.Coordinate.String()
	default:
		return d.Address
	}
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeAddress produces the geocode cache key for an address:
// trimmed, inner whitespace collapsed, lowercased. Display text is kept
// separately on the descriptor.
func NormalizeAddress(address string) string {
	collapsed := whitespacePattern.ReplaceAllString(strings.TrimSpace(address), " ")
	return strings.ToLower(collapsed)
}
