package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/services/route"
)

// pointResolver turns one descriptor variant into a coordinate. The cache
// asymmetry is policy, not accident: addresses are immutable so the address
// strategy caches forever, entities move so the entity strategy reads live
// state every time. Each strategy owns its policy; nothing here branches on
// "should I cache".
type pointResolver interface {
	resolve(ctx context.Context, desc models.LocationDescriptor) (models.ResolvedPoint, error)
}

// coordinateResolver handles literal "<lon>,<lat>" descriptors. Nothing to
// look up; the parse already validated the ranges.
type coordinateResolver struct{}

func (coordinateResolver) resolve(_ context.Context, desc models.LocationDescriptor) (models.ResolvedPoint, error) {
	return models.ResolvedPoint{
		Coordinate: desc.Coordinate,
		Source:     desc,
		Label:      desc.Coordinate.String(),
		ResolvedAt: time.Now().UTC(),
	}, nil
}

// addressResolver handles free-text addresses through the shared geocode
// cache: one provider call per address per process lifetime.
type addressResolver struct {
	cache *GeoCache
}

func (r addressResolver) resolve(ctx context.Context, desc models.LocationDescriptor) (models.ResolvedPoint, error) {
	coord, err := r.cache.Resolve(ctx, desc.Address)
	if err != nil {
		return models.ResolvedPoint{}, fmt.Errorf("resolving address %q: %w", desc.Address, err)
	}
	return models.ResolvedPoint{
		Coordinate: coord,
		Source:     desc,
		Label:      desc.Address,
		ResolvedAt: time.Now().UTC(),
	}, nil
}

// entityResolver handles entity references with a live state read on every
// call. Zones report their static configured center through the same state
// API; persons and device trackers report their last known position.
type entityResolver struct {
	gw route.EntityGW
}

func (r entityResolver) resolve(ctx context.Context, desc models.LocationDescriptor) (models.ResolvedPoint, error) {
	coord, friendlyName, err := r.gw.EntityPosition(ctx, desc.EntityID)
	if err != nil {
		return models.ResolvedPoint{}, err
	}

	label := friendlyName
	if label == "" {
		label = desc.EntityID
	}

	return models.ResolvedPoint{
		Coordinate: coord,
		Source:     desc,
		Label:      label,
		ResolvedAt: time.Now().UTC(),
	}, nil
}
