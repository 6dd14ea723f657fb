// Package backend fetches inventory data from the school inventory REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/noo-bita/propinv/internal/chart"
	"github.com/noo-bita/propinv/internal/config"
	"github.com/noo-bita/propinv/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// ErrUnexpectedStatus is returned for non-2xx backend responses.
var ErrUnexpectedStatus = errors.New("backend: unexpected status")

// Client talks to the inventory backend.
type Client struct {
	http         *resty.Client
	itemsPath    string
	requestsPath string
	summaryPath  string
	logger       zerolog.Logger
}

// New creates a backend client from configuration.
func New(cfg config.BackendConfig, logger zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(config.ParseDuration(cfg.Timeout, 10*time.Second)).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && resp.StatusCode() >= 500
		})
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}

	return &Client{
		http:         httpClient,
		itemsPath:    cfg.ItemsPath,
		requestsPath: cfg.RequestsPath,
		summaryPath:  cfg.SummaryPath,
		logger:       logger.With().Str("component", "backend").Logger(),
	}
}

// Items returns the inventory item records.
func (c *Client) Items(ctx context.Context) ([]chart.Record, error) {
	return c.records(ctx, "items", c.itemsPath)
}

// Requests returns the item and custom request records.
func (c *Client) Requests(ctx context.Context) ([]chart.Record, error) {
	return c.records(ctx, "requests", c.requestsPath)
}

// Summary returns the numeric KPI fields of the dashboard summary.
// Non-numeric fields are dropped.
func (c *Client) Summary(ctx context.Context) (map[string]float64, error) {
	body, err := c.get(ctx, "summary", c.summaryPath)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if data, ok := raw["data"].(map[string]any); ok {
		raw = data
	}

	summary := make(map[string]float64, len(raw))
	for k, v := range raw {
		if _, isBool := v.(bool); isBool {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			continue
		}
		summary[k] = f
	}
	return summary, nil
}

func (c *Client) records(ctx context.Context, source, path string) ([]chart.Record, error) {
	body, err := c.get(ctx, source, path)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	c.logger.Debug().Str("source", source).Int("records", len(records)).Msg("Fetched records")
	return records, nil
}

func (c *Client) get(ctx context.Context, source, path string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(path)
	metrics.BackendRequestDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	if !resp.IsSuccess() {
		metrics.BackendRequestsTotal.WithLabelValues(source, "status").Inc()
		return nil, fmt.Errorf("fetch %s: %w: %d", source, ErrUnexpectedStatus, resp.StatusCode())
	}

	metrics.BackendRequestsTotal.WithLabelValues(source, "ok").Inc()
	return resp.Body(), nil
}

// decodeRecords accepts a bare JSON array or an object wrapping it in
// "data". Non-object array elements are dropped.
func decodeRecords(body []byte) ([]chart.Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []chart.Record{}, nil
	}

	var elems []json.RawMessage
	if body[0] == '{' {
		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		elems = envelope.Data
	} else if err := json.Unmarshal(body, &elems); err != nil {
		return nil, err
	}

	records := make([]chart.Record, 0, len(elems))
	for _, elem := range elems {
		var record chart.Record
		if err := json.Unmarshal(elem, &record); err != nil || record == nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
