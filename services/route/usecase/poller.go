package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/internal/pkg/retry"
)

// startWorkerLocked launches the poll loop for one route. Caller must hold
// workersMutex.
func (uc *RouteUC) startWorkerLocked(id uuid.UUID) {
	if _, ok := uc.workers[id]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{cancel: cancel}
	uc.workers[id] = w
	go func() {
		defer uc.releaseWorker(id, w)
		uc.pollLoop(ctx, id)
	}()
}

// releaseWorker drops the route's worker entry when its loop exits on its
// own, so the map only ever holds live loops. A reload may already have
// replaced the entry; only the loop's own entry is removed.
func (uc *RouteUC) releaseWorker(id uuid.UUID, w *worker) {
	w.cancel()
	uc.workersMutex.Lock()
	defer uc.workersMutex.Unlock()
	if uc.workers[id] == w {
		delete(uc.workers, id)
	}
}

// pollLoop runs one route's poll cycle on the configured interval. The
// first cycle runs immediately. Rate-limited cycles widen the interval
// exponentially until the next success; a credential rejection stops the
// loop entirely, since retrying cannot succeed until the keys change.
func (uc *RouteUC) pollLoop(ctx context.Context, id uuid.UUID) {
	interval := time.Duration(uc.cfg.Poller.IntervalMinutes) * time.Minute
	backoff := retry.DefaultBackoff(interval, time.Duration(uc.cfg.Poller.MaxBackoffMinutes)*time.Minute)
	if uc.cfg.Poller.BackoffMultiplier > 0 {
		backoff.Multiplier = uc.cfg.Poller.BackoffMultiplier
	}

	attempt := 0
	for {
		_, err := uc.ComputeRoute(ctx, id)

		wait := interval
		switch {
		case err == nil:
			attempt = 0
		case errors.Is(err, ErrRouteNotFound):
			return
		case models.KindOf(err) == models.ErrAuth:
			logger.Error("Polling stopped: provider rejected credentials",
				logger.String("route_id", id.String()))
			return
		case models.KindOf(err) == models.ErrRateLimited:
			attempt++
			wait = backoff.Delay(attempt)
			logger.Warn("Provider rate limited, widening poll interval",
				logger.String("route_id", id.String()),
				logger.Int("attempt", attempt),
				logger.Duration("next_poll_in", wait))
		default:
			attempt = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
