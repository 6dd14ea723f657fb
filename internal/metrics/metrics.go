package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Aggregation metrics
	AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propinv_aggregations_total",
			Help: "Total timelines aggregated",
		},
		[]string{"period"},
	)

	ExcludedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propinv_excluded_records_total",
			Help: "Records skipped for a missing, unparseable or out-of-window date",
		},
		[]string{"series"},
	)

	PlaceholderFills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propinv_placeholder_fills_total",
			Help: "Charts filled with placeholder data",
		},
		[]string{"chart"},
	)

	// Backend metrics
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propinv_backend_requests_total",
			Help: "Total requests sent to the inventory backend",
		},
		[]string{"source", "result"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "propinv_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	SnapshotFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propinv_snapshot_fallbacks_total",
			Help: "Fetches served from a stored snapshot after a backend failure",
		},
		[]string{"source"},
	)

	// Cache metrics
	TimelineCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "propinv_timeline_cache_hits_total",
			Help: "Timeline cache hits",
		},
	)

	TimelineCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "propinv_timeline_cache_misses_total",
			Help: "Timeline cache misses",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propinv_api_requests_total",
			Help: "Total API requests processed",
		},
		[]string{"route", "method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "propinv_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	LastRefresh = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "propinv_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful dashboard refresh",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		AggregationsTotal,
		ExcludedRecords,
		PlaceholderFills,
		BackendRequestsTotal,
		BackendRequestDuration,
		SnapshotFallbacks,
		TimelineCacheHits,
		TimelineCacheMisses,
		APIRequestsTotal,
		APIRequestDuration,
		LastRefresh,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: Handler(),
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
