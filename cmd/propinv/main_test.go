package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/noo-bita/propinv/internal/chart"
	"github.com/noo-bita/propinv/internal/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func init() {
	color.NoColor = true
}

func TestSetupLoggerLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestFindUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  api_port: 8081
  api_prot: 8082
backend:
  token: secret
dashbord:
  timezone: UTC
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	unknown, err := findUnknownKeys(path)
	if err != nil {
		t.Fatalf("findUnknownKeys() error = %v", err)
	}
	want := []string{"dashbord.timezone", "server.api_prot"}
	if strings.Join(unknown, ",") != strings.Join(want, ",") {
		t.Errorf("unknown = %v, want %v", unknown, want)
	}
}

func TestDumpConfigRedactsSecrets(t *testing.T) {
	def, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	cfg := *def
	cfg.Backend.Token = "s3cret"
	cfg.Storage.Redis.Password = "hunter2"
	cfg.Server.APIPort = 9000

	var buf bytes.Buffer
	dumpConfig(&buf, &cfg, def)
	out := buf.String()

	if strings.Contains(out, "s3cret") || strings.Contains(out, "hunter2") {
		t.Error("secrets must be redacted")
	}
	if !strings.Contains(out, "api_port = 9000  (modified from default: 8080)") {
		t.Errorf("modified field not highlighted:\n%s", out)
	}
	if !strings.Contains(out, "metrics_port = 9090\n") {
		t.Errorf("default field missing:\n%s", out)
	}
}

func TestRenderTimeline(t *testing.T) {
	now := time.Date(2024, time.January, 10, 15, 30, 0, 0, time.UTC)
	items := []chart.Record{
		{"created_at": "2024-01-09T10:00:00Z"},
		{"created_at": "2024-01-09T11:00:00Z"},
		{"created_at": "2023-01-01T00:00:00Z"},
	}
	tl := chart.Activity(items, nil, chart.Period{Kind: chart.KindWeek}, now, chart.Options{Location: time.UTC})

	var buf bytes.Buffer
	renderTimeline(&buf, tl)
	out := buf.String()

	if strings.Contains(out, "placeholder") {
		t.Error("real data must not be marked as placeholder")
	}
	if !strings.Contains(out, "items: 2 (1 outside period)") {
		t.Errorf("totals missing:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("█", barWidth)+" 2") {
		t.Errorf("peak bucket should fill the bar:\n%s", out)
	}
}

func TestRenderCategories(t *testing.T) {
	var buf bytes.Buffer
	renderCategories(&buf, []chart.CategoryCost{
		{Name: "Furniture", Cost: decimal.NewFromInt(200)},
		{Name: "Books", Cost: decimal.NewFromInt(50)},
	}, false)

	out := buf.String()
	if !strings.Contains(out, "200.00") || !strings.Contains(out, strings.Repeat("█", 10)+" 50.00") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	renderCategories(&buf, nil, true)
	if !strings.Contains(buf.String(), "placeholder") {
		t.Error("placeholder categories must be flagged")
	}
}

func TestFormatKPI(t *testing.T) {
	tests := []struct {
		value, target float64
		want          string
	}{
		{41.7, 120, "41"},
		{120, 120, "120"},
		{12.345, 99.5, "12.35"},
	}
	for _, tt := range tests {
		if got := formatKPI(tt.value, tt.target); got != tt.want {
			t.Errorf("formatKPI(%v, %v) = %q, want %q", tt.value, tt.target, got, tt.want)
		}
	}
}

func TestKPIBoardAnimatesToTargets(t *testing.T) {
	board := newKPIBoard([]string{"total_items", "missing"}, map[string]float64{"total_items": 12})

	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := board.animate(ctx, &buf, clock.New(), 20*time.Millisecond, 2*time.Millisecond); err != nil {
		t.Fatalf("animate() error = %v", err)
	}

	out := buf.String()
	last := out[strings.LastIndex(out, "total_items"):]
	if !strings.Contains(last, "12") || !strings.Contains(last, "n/a") {
		t.Errorf("final frame = %q", last)
	}
}

func TestKPIBoardStaticRender(t *testing.T) {
	board := newKPIBoard([]string{"budget_remaining"}, map[string]float64{"budget_remaining": 1520.5})

	var buf bytes.Buffer
	board.render(&buf, false)
	if !strings.Contains(buf.String(), "1520.50") {
		t.Errorf("output = %q", buf.String())
	}
}
