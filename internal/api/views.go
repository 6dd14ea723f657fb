package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noo-bita/propinv/internal/chart"
	"github.com/noo-bita/propinv/internal/dashboard"
	"github.com/noo-bita/propinv/internal/storage"
	"github.com/rs/zerolog"
)

// Dashboard is the service behind the dashboard endpoints.
type Dashboard interface {
	Location() *time.Location
	Timeline(ctx context.Context, period chart.Period) (dashboard.TimelineResult, error)
	CategoryCosts(ctx context.Context) (dashboard.CategoryResult, error)
	Summary(ctx context.Context) (map[string]float64, error)
	Refresh(ctx context.Context) (dashboard.Dataset, error)
	Snapshots(ctx context.Context) ([]storage.SnapshotInfo, error)
	RefreshLogs(ctx context.Context, filter storage.RefreshLogFilter) ([]storage.RefreshLog, error)
}

// DashboardViews handles dashboard API requests.
type DashboardViews struct {
	dashboard Dashboard
	logger    zerolog.Logger
}

// NewDashboardViews creates a new dashboard views instance.
func NewDashboardViews(d Dashboard, logger zerolog.Logger) *DashboardViews {
	return &DashboardViews{
		dashboard: d,
		logger:    logger.With().Str("handler", "dashboard").Logger(),
	}
}

// TimelineResponse is the chart-ready activity timeline.
type TimelineResponse struct {
	Period      chart.Kind       `json:"period"`
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	Series      []string         `json:"series"`
	Data        []map[string]any `json:"data"`
	Totals      map[string]int   `json:"totals"`
	Excluded    map[string]int   `json:"excluded"`
	Placeholder bool             `json:"placeholder"`
	Stale       bool             `json:"stale"`
}

// CategoriesResponse lists the costliest categories.
type CategoriesResponse struct {
	Categories  []chart.CategoryCost `json:"categories"`
	Placeholder bool                 `json:"placeholder"`
	Stale       bool                 `json:"stale"`
}

// RefreshResponse reports the outcome of a manual refresh.
type RefreshResponse struct {
	Items      int       `json:"items"`
	Requests   int       `json:"requests"`
	ItemsAt    time.Time `json:"items_at"`
	RequestsAt time.Time `json:"requests_at"`
	Stale      bool      `json:"stale"`
}

// Timeline handles GET /api/dashboard/timeline.
func (v *DashboardViews) Timeline(ctx *gin.Context) {
	period, err := chart.ParsePeriod(ctx.Query("period"), ctx.Query("start"), ctx.Query("end"), v.dashboard.Location())
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_period",
			"message": err.Error(),
		})
		return
	}

	res, err := v.dashboard.Timeline(ctx.Request.Context(), period)
	if err != nil {
		v.serviceError(ctx, err, "Failed to build timeline")
		return
	}

	tl := res.Timeline
	resp := TimelineResponse{
		Period:      tl.Kind,
		Start:       tl.Start,
		End:         tl.End,
		Series:      tl.Series,
		Data:        tl.Rows(),
		Totals:      make(map[string]int, len(tl.Series)),
		Excluded:    make(map[string]int, len(tl.Series)),
		Placeholder: tl.Placeholder,
		Stale:       res.Stale,
	}
	for i, name := range tl.Series {
		resp.Totals[name] = tl.Total(i)
		if i < len(tl.Excluded) {
			resp.Excluded[name] = tl.Excluded[i]
		}
	}

	ctx.JSON(http.StatusOK, resp)
}

// Categories handles GET /api/dashboard/categories.
func (v *DashboardViews) Categories(ctx *gin.Context) {
	res, err := v.dashboard.CategoryCosts(ctx.Request.Context())
	if err != nil {
		v.serviceError(ctx, err, "Failed to compute category costs")
		return
	}
	ctx.JSON(http.StatusOK, CategoriesResponse{
		Categories:  res.Costs,
		Placeholder: res.Placeholder,
		Stale:       res.Stale,
	})
}

// Summary handles GET /api/dashboard/summary.
func (v *DashboardViews) Summary(ctx *gin.Context) {
	summary, err := v.dashboard.Summary(ctx.Request.Context())
	if err != nil {
		v.serviceError(ctx, err, "Failed to load summary")
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// Refresh handles POST /api/dashboard/refresh.
func (v *DashboardViews) Refresh(ctx *gin.Context) {
	ds, err := v.dashboard.Refresh(ctx.Request.Context())
	if err != nil {
		v.serviceError(ctx, err, "Failed to refresh dashboard")
		return
	}
	ctx.JSON(http.StatusOK, RefreshResponse{
		Items:      len(ds.Items),
		Requests:   len(ds.Requests),
		ItemsAt:    ds.ItemsAt,
		RequestsAt: ds.RequestsAt,
		Stale:      ds.Stale,
	})
}

// Snapshots handles GET /api/dashboard/snapshots.
func (v *DashboardViews) Snapshots(ctx *gin.Context) {
	infos, err := v.dashboard.Snapshots(ctx.Request.Context())
	if err != nil {
		v.serviceError(ctx, err, "Failed to list snapshots")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"snapshots": infos})
}

// RefreshLogs handles GET /api/dashboard/refresh-logs.
func (v *DashboardViews) RefreshLogs(ctx *gin.Context) {
	filter := storage.RefreshLogFilter{
		Source: ctx.Query("source"),
		Limit:  100,
	}
	if limitStr := ctx.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		filter.Limit = limit
	}
	if offsetStr := ctx.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_offset",
				"message": "offset must be a non-negative integer",
			})
			return
		}
		filter.Offset = offset
	}

	logs, err := v.dashboard.RefreshLogs(ctx.Request.Context(), filter)
	if err != nil {
		v.serviceError(ctx, err, "Failed to query refresh logs")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (v *DashboardViews) serviceError(ctx *gin.Context, err error, msg string) {
	v.logger.Error().Err(err).Str("request_id", ctx.GetString("request_id")).Msg(msg)

	if errors.Is(err, dashboard.ErrNoData) {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "no_data",
			"message": "Inventory backend unavailable and no snapshot stored",
		})
		return
	}
	ctx.JSON(http.StatusBadGateway, gin.H{
		"error":   "backend_error",
		"message": msg,
	})
}
