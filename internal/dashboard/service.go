// Package dashboard serves aggregated inventory charts, falling back to the
// last stored snapshot when the backend is unavailable.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/noo-bita/propinv/internal/chart"
	"github.com/noo-bita/propinv/internal/metrics"
	"github.com/noo-bita/propinv/internal/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCacheSize is the number of cached timelines
	DefaultCacheSize = 64

	// DefaultCacheTTL bounds how long a cached timeline is served
	DefaultCacheTTL = 30 * time.Second
)

// ErrNoData is returned when a source fails and no snapshot exists.
var ErrNoData = errors.New("dashboard: no data available")

// Source provides the raw dashboard data.
type Source interface {
	Items(ctx context.Context) ([]chart.Record, error)
	Requests(ctx context.Context) ([]chart.Record, error)
	Summary(ctx context.Context) (map[string]float64, error)
}

// Config holds service configuration
type Config struct {
	Placeholder bool
	DateFields  []string
	Location    *time.Location
	CacheSize   int
	CacheTTL    time.Duration
}

// Dataset is one consistent view of both record sources.
type Dataset struct {
	Items      []chart.Record
	Requests   []chart.Record
	ItemsAt    time.Time
	RequestsAt time.Time
	Stale      bool // at least one source came from a stored snapshot
}

// Service computes dashboard charts.
type Service struct {
	source    Source
	snapshots storage.SnapshotStore
	logs      storage.RefreshLogStore
	clock     clock.Clock
	opts      chart.Options
	cache     *expirable.LRU[string, TimelineResult]
	logger    zerolog.Logger
}

// NewService creates a dashboard service. A nil clock uses wall time.
func NewService(source Source, store storage.Store, clk clock.Clock, cfg Config, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Service{
		source:    source,
		snapshots: store.Snapshots(),
		logs:      store.RefreshLogs(),
		clock:     clk,
		opts: chart.Options{
			DateFields:  cfg.DateFields,
			Placeholder: cfg.Placeholder,
			Location:    cfg.Location,
		},
		cache:  expirable.NewLRU[string, TimelineResult](cfg.CacheSize, nil, cfg.CacheTTL),
		logger: logger.With().Str("component", "dashboard").Logger(),
	}
}

// Location is the timezone periods resolve in.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Fetch loads both sources concurrently.
func (s *Service) Fetch(ctx context.Context) (Dataset, error) {
	var ds Dataset
	var itemsStale, requestsStale bool

	// A failing source must not cancel the other one, each records its
	// own attempt.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		ds.Items, ds.ItemsAt, itemsStale, err = s.fetchSource(ctx, storage.SourceItems, s.source.Items)
		return err
	})
	g.Go(func() error {
		var err error
		ds.Requests, ds.RequestsAt, requestsStale, err = s.fetchSource(ctx, storage.SourceRequests, s.source.Requests)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dataset{}, err
	}

	ds.Stale = itemsStale || requestsStale
	return ds, nil
}

// fetchSource fetches one source, persisting a snapshot on success and
// serving the stored one on failure.
func (s *Service) fetchSource(ctx context.Context, source string, fetch func(context.Context) ([]chart.Record, error)) ([]chart.Record, time.Time, bool, error) {
	start := s.clock.Now()
	records, fetchErr := fetch(ctx)
	entry := storage.RefreshLog{
		Timestamp:  start.UTC(),
		Source:     source,
		DurationMS: s.clock.Since(start).Milliseconds(),
	}

	if fetchErr == nil {
		entry.Records = len(records)
		s.addLog(ctx, entry)

		snapshot := storage.Snapshot{Source: source, FetchedAt: start.UTC(), Records: records}
		if err := s.snapshots.Put(ctx, snapshot); err != nil {
			s.logger.Warn().Err(err).Str("source", source).Msg("Failed to store snapshot")
		}
		return records, start, false, nil
	}

	entry.Error = fetchErr.Error()
	s.logger.Warn().Err(fetchErr).Str("source", source).Msg("Backend fetch failed, using snapshot")

	snapshot, err := s.snapshots.Get(ctx, source)
	if err != nil {
		s.addLog(ctx, entry)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, time.Time{}, false, fmt.Errorf("%w for %s: %w", ErrNoData, source, fetchErr)
		}
		return nil, time.Time{}, false, fmt.Errorf("load %s snapshot: %w", source, err)
	}

	entry.Fallback = true
	entry.Records = len(snapshot.Records)
	s.addLog(ctx, entry)
	metrics.SnapshotFallbacks.WithLabelValues(source).Inc()

	return snapshot.Records, snapshot.FetchedAt, true, nil
}

func (s *Service) addLog(ctx context.Context, entry storage.RefreshLog) {
	if err := s.logs.Add(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("source", entry.Source).Msg("Failed to record refresh log")
	}
}

// TimelineResult is a timeline plus the freshness of the data behind it.
type TimelineResult struct {
	chart.Timeline
	Stale bool // built from at least one stored snapshot
}

// CategoryResult holds the costliest categories.
type CategoryResult struct {
	Costs       []chart.CategoryCost
	Placeholder bool
	Stale       bool
}

// Timeline returns the two-series activity timeline for period.
func (s *Service) Timeline(ctx context.Context, period chart.Period) (TimelineResult, error) {
	key := period.Key()
	if res, ok := s.cache.Get(key); ok {
		metrics.TimelineCacheHits.Inc()
		return res, nil
	}
	metrics.TimelineCacheMisses.Inc()

	ds, err := s.Fetch(ctx)
	if err != nil {
		return TimelineResult{}, err
	}

	tl := chart.Activity(ds.Items, ds.Requests, period, s.clock.Now(), s.opts)
	s.observe(tl)

	res := TimelineResult{Timeline: tl, Stale: ds.Stale}
	s.cache.Add(key, res)
	return res, nil
}

func (s *Service) observe(tl chart.Timeline) {
	metrics.AggregationsTotal.WithLabelValues(string(tl.Kind)).Inc()
	for i, name := range tl.Series {
		if i < len(tl.Excluded) && tl.Excluded[i] > 0 {
			metrics.ExcludedRecords.WithLabelValues(name).Add(float64(tl.Excluded[i]))
		}
	}
	if tl.Placeholder {
		metrics.PlaceholderFills.WithLabelValues("timeline").Inc()
	}

	s.logger.Debug().
		Str("period", string(tl.Kind)).
		Int("buckets", len(tl.Buckets)).
		Ints("excluded", tl.Excluded).
		Bool("placeholder", tl.Placeholder).
		Msg("Aggregated timeline")
}

// CategoryCosts returns the top categories by total item cost.
func (s *Service) CategoryCosts(ctx context.Context) (CategoryResult, error) {
	ds, err := s.Fetch(ctx)
	if err != nil {
		return CategoryResult{}, err
	}

	costs, placeholder := chart.CostByCategory(ds.Items, s.opts)
	if placeholder {
		metrics.PlaceholderFills.WithLabelValues("categories").Inc()
	}
	return CategoryResult{Costs: costs, Placeholder: placeholder, Stale: ds.Stale}, nil
}

// Summary returns the backend KPI values.
func (s *Service) Summary(ctx context.Context) (map[string]float64, error) {
	return s.source.Summary(ctx)
}

// Refresh drops cached timelines and re-fetches both sources.
func (s *Service) Refresh(ctx context.Context) (Dataset, error) {
	s.cache.Purge()
	ds, err := s.Fetch(ctx)
	if err != nil {
		return Dataset{}, err
	}
	if !ds.Stale {
		metrics.LastRefresh.Set(float64(s.clock.Now().Unix()))
	}
	return ds, nil
}

// Snapshots lists stored snapshots.
func (s *Service) Snapshots(ctx context.Context) ([]storage.SnapshotInfo, error) {
	return s.snapshots.List(ctx)
}

// RefreshLogs queries recent fetch outcomes.
func (s *Service) RefreshLogs(ctx context.Context, filter storage.RefreshLogFilter) ([]storage.RefreshLog, error) {
	return s.logs.Query(ctx, filter)
}

// Prune removes snapshots and refresh logs older than retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (snapshots, logs int, err error) {
	cutoff := s.clock.Now().Add(-retention)

	snapshots, err = s.snapshots.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("prune snapshots: %w", err)
	}
	logs, err = s.logs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return snapshots, 0, fmt.Errorf("prune refresh logs: %w", err)
	}
	return snapshots, logs, nil
}
