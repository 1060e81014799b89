package utils

import (
	"math"

	"github.com/mmcloughlin/geohash"
	"github.com/piresc/navieta/internal/pkg/models"
)

// revGeocodePrecision buckets coordinates to ~38m cells. Points inside the
// same cell share one reverse-geocode lookup.
const revGeocodePrecision = 8

// GeohashKey buckets a coordinate for reverse-geocode caching.
func GeohashKey(c models.Coordinate) string {
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, revGeocodePrecision)
}

// GeohashNeighbors returns the eight cells adjacent to a geohash bucket.
func GeohashNeighbors(hash string) []string {
	return geohash.Neighbors(hash)
}

// CalculateDistanceKm calculates the distance between two points in
// kilometers using the Haversine formula.
func CalculateDistanceKm(p1, p2 models.Coordinate) float64 {
	// Earth's radius in kilometers
	const earthRadius = 6371.0

	lat1 := p1.Latitude * math.Pi / 180.0
	lon1 := p1.Longitude * math.Pi / 180.0
	lat2 := p2.Latitude * math.Pi / 180.0
	lon2 := p2.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
