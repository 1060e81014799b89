package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/piresc/navieta/internal/pkg/constants"
	"github.com/piresc/navieta/internal/pkg/database"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/internal/utils"
	"github.com/piresc/navieta/services/route"
	"golang.org/x/sync/singleflight"
)

// GeoCache resolves free-text addresses to coordinates, caching every
// success for the process lifetime. Addresses are assumed immutable, so a
// cached entry never expires; geocoding is billed per call and address-based
// routes poll frequently, which makes this cache the dominant cost saver.
//
// Constructed once at startup and shared by every route: concurrent
// resolutions of the same normalized address collapse into one provider
// call, resolutions of distinct addresses proceed in parallel.
type GeoCache struct {
	gw route.NaverGW
	// redis is an optional second level so restarts do not re-bill
	// geocoding. Nil disables it.
	redis *database.RedisClient

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]geocodeEntry

	revGroup   singleflight.Group
	revMu      sync.RWMutex
	revEntries map[string]revGeocodeEntry
}

type geocodeEntry struct {
	coord models.Coordinate
	// createdAt is for diagnostics only, never for expiry.
	createdAt time.Time
}

type revGeocodeEntry struct {
	coord     models.Coordinate
	address   string
	createdAt time.Time
}

// NewGeoCache creates the shared geocode cache. redisClient may be nil.
func NewGeoCache(gw route.NaverGW, redisClient *database.RedisClient) *GeoCache {
	return &GeoCache{
		gw:         gw,
		redis:      redisClient,
		entries:    make(map[string]geocodeEntry),
		revEntries: make(map[string]revGeocodeEntry),
	}
}

// Resolve returns the coordinate for an address. The first successful
// resolution per normalized key hits the provider; every later call is a
// cache hit. Failures are never cached.
func (g *GeoCache) Resolve(ctx context.Context, address string) (models.Coordinate, error) {
	key := models.NormalizeAddress(address)

	g.mu.RLock()
	entry, ok := g.entries[key]
	g.mu.RUnlock()
	if ok {
		return entry.coord, nil
	}

	result, err, _ := g.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have
		// populated the entry while this one queued.
		g.mu.RLock()
		entry, ok := g.entries[key]
		g.mu.RUnlock()
		if ok {
			return entry.coord, nil
		}

		if coord, ok := g.redisLookup(ctx, key); ok {
			g.store(key, coord)
			return coord, nil
		}

		coord, err := g.gw.Geocode(ctx, address)
		if err != nil {
			return models.Coordinate{}, err
		}

		g.store(key, coord)
		g.redisStore(ctx, key, coord)
		logger.Info("Cached geocode result",
			logger.String("address", address),
			logger.Float64("lon", coord.Longitude),
			logger.Float64("lat", coord.Latitude))
		return coord, nil
	})
	if err != nil {
		return models.Coordinate{}, err
	}
	return result.(models.Coordinate), nil
}

func (g *GeoCache) store(key string, coord models.Coordinate) {
	g.mu.Lock()
	g.entries[key] = geocodeEntry{coord: coord, createdAt: time.Now().UTC()}
	g.mu.Unlock()
}

// Size reports the number of cached addresses, for diagnostics.
func (g *GeoCache) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

func (g *GeoCache) redisLookup(ctx context.Context, key string) (models.Coordinate, bool) {
	if g.redis == nil {
		return models.Coordinate{}, false
	}

	raw, err := g.redis.Get(ctx, fmt.Sprintf(constants.KeyGeocode, key))
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Geocode cache redis lookup failed", logger.Err(err))
		}
		return models.Coordinate{}, false
	}

	var coord models.Coordinate
	if _, err := fmt.Sscanf(raw, "%f,%f", &coord.Longitude, &coord.Latitude); err != nil {
		return models.Coordinate{}, false
	}
	return coord, coord.Valid()
}

func (g *GeoCache) redisStore(ctx context.Context, key string, coord models.Coordinate) {
	if g.redis == nil {
		return
	}
	// No expiration: the address-to-coordinate mapping is permanent.
	err := g.redis.Set(ctx, fmt.Sprintf(constants.KeyGeocode, key), coord.String(), 0)
	if err != nil {
		logger.Warn("Geocode cache redis store failed", logger.Err(err))
	}
}

// maxRevReuseKm bounds how far a cached reverse-geocode entry may be from
// the requested point before a fresh lookup is required.
const maxRevReuseKm = 0.05

// ReverseResolve returns a human-readable address for a coordinate,
// reusing a cached lookup from the same or an adjacent geohash cell when
// one lies within maxRevReuseKm. Keeps a parked tracker from re-billing
// reverse geocoding on every poll.
func (g *GeoCache) ReverseResolve(ctx context.Context, coord models.Coordinate) (string, error) {
	key := utils.GeohashKey(coord)

	if addr, ok := g.revLookup(key, coord); ok {
		return addr, nil
	}

	result, err, _ := g.revGroup.Do(key, func() (interface{}, error) {
		if addr, ok := g.revLookup(key, coord); ok {
			return addr, nil
		}

		if entry, ok := g.redisRevLookup(ctx, key); ok {
			if utils.CalculateDistanceKm(entry.coord, coord) <= maxRevReuseKm {
				g.storeRev(key, entry)
				return entry.address, nil
			}
		}

		addr, err := g.gw.ReverseGeocode(ctx, coord)
		if err != nil {
			return "", err
		}

		entry := revGeocodeEntry{
			coord:     coord,
			address:   addr,
			createdAt: time.Now().UTC(),
		}
		g.storeRev(key, entry)
		g.redisRevStore(ctx, key, entry)
		return addr, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (g *GeoCache) storeRev(key string, entry revGeocodeEntry) {
	g.revMu.Lock()
	g.revEntries[key] = entry
	g.revMu.Unlock()
}

// redisRevLookup reads a reverse-geocode entry persisted by an earlier
// process. The stored form is "<lon>,<lat>|<address>".
func (g *GeoCache) redisRevLookup(ctx context.Context, key string) (revGeocodeEntry, bool) {
	if g.redis == nil {
		return revGeocodeEntry{}, false
	}

	raw, err := g.redis.Get(ctx, fmt.Sprintf(constants.KeyReverseGeocode, key))
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Reverse geocode cache redis lookup failed", logger.Err(err))
		}
		return revGeocodeEntry{}, false
	}

	sep := strings.IndexByte(raw, '|')
	if sep < 0 {
		return revGeocodeEntry{}, false
	}

	var entry revGeocodeEntry
	if _, err := fmt.Sscanf(raw[:sep], "%f,%f", &entry.coord.Longitude, &entry.coord.Latitude); err != nil {
		return revGeocodeEntry{}, false
	}
	entry.address = raw[sep+1:]
	return entry, entry.coord.Valid() && entry.address != ""
}

func (g *GeoCache) redisRevStore(ctx context.Context, key string, entry revGeocodeEntry) {
	if g.redis == nil {
		return
	}
	value := entry.coord.String() + "|" + entry.address
	err := g.redis.Set(ctx, fmt.Sprintf(constants.KeyReverseGeocode, key), value, 0)
	if err != nil {
		logger.Warn("Reverse geocode cache redis store failed", logger.Err(err))
	}
}

func (g *GeoCache) revLookup(key string, coord models.Coordinate) (string, bool) {
	g.revMu.RLock()
	defer g.revMu.RUnlock()

	for _, candidate := range append([]string{key}, utils.GeohashNeighbors(key)...) {
		entry, ok := g.revEntries[candidate]
		if !ok {
			continue
		}
		if utils.CalculateDistanceKm(entry.coord, coord) <= maxRevReuseKm {
			return entry.address, true
		}
	}
	return "", false
}
