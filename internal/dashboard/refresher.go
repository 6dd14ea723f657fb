package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

const (
	// DefaultRefreshInterval is used when no positive interval is configured
	DefaultRefreshInterval = 5 * time.Minute

	// DefaultSnapshotRetention is how long snapshots and refresh logs are kept
	DefaultSnapshotRetention = 30 * 24 * time.Hour
)

// Refresher periodically re-fetches dashboard data and prunes old
// snapshots and refresh logs.
type Refresher struct {
	service   *Service
	clock     clock.Clock
	interval  time.Duration
	retention time.Duration
	timeout   time.Duration
	logger    zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a refresher. A nil clock uses wall time.
func NewRefresher(service *Service, clk clock.Clock, interval, retention time.Duration, logger zerolog.Logger) *Refresher {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		service:   service,
		clock:     clk,
		interval:  interval,
		retention: retention,
		timeout:   interval,
		logger:    logger.With().Str("component", "refresher").Logger(),
	}
}

// Start begins the refresh loop. The first refresh runs immediately.
func (r *Refresher) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ticker := r.clock.Ticker(r.interval)

	r.wg.Add(1)
	go r.run(ctx, ticker)

	r.logger.Info().
		Dur("interval", r.interval).
		Dur("retention", r.retention).
		Msg("Dashboard refresher started")
}

// Stop stops the refresh loop and waits for it to exit
func (r *Refresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.logger.Info().Msg("Dashboard refresher stopped")
}

func (r *Refresher) run(ctx context.Context, ticker *clock.Ticker) {
	defer r.wg.Done()
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one refresh and prune cycle.
func (r *Refresher) RunOnce(ctx context.Context) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ds, err := r.service.Refresh(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Dashboard refresh failed")
	} else {
		r.logger.Info().
			Int("items", len(ds.Items)).
			Int("requests", len(ds.Requests)).
			Bool("stale", ds.Stale).
			Msg("Dashboard refreshed")
	}

	if r.retention <= 0 {
		return
	}
	snapshots, logs, err := r.service.Prune(ctx, r.retention)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prune old dashboard data")
		return
	}
	if snapshots > 0 || logs > 0 {
		r.logger.Info().
			Int("snapshots_deleted", snapshots).
			Int("logs_deleted", logs).
			Msg("Old dashboard data cleaned up")
	}
}
