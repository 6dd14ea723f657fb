package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/noo-bita/propinv/internal/backend"
	"github.com/noo-bita/propinv/internal/config"
	"github.com/noo-bita/propinv/internal/countup"
	"github.com/spf13/cobra"
)

var kpiNoAnimate bool

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Show the dashboard KPIs",
	Long: `Fetch the dashboard summary and count each configured KPI up to its
value.`,
	RunE: runKPI,
}

func init() {
	kpiCmd.Flags().BoolVar(&kpiNoAnimate, "no-animate", false, "Print final values without animating")
	rootCmd.AddCommand(kpiCmd)
}

func runKPI(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadCommandConfig()
	if err != nil {
		return err
	}

	summary, err := backend.New(cfg.Backend, logger).Summary(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch summary: %w", err)
	}

	board := newKPIBoard(cfg.Animation.KPIs, summary)
	if kpiNoAnimate {
		board.render(cmd.OutOrStdout(), false)
		return nil
	}

	return board.animate(cmd.Context(), cmd.OutOrStdout(), clock.New(),
		config.ParseDuration(cfg.Animation.Duration, countup.DefaultDuration),
		config.ParseDuration(cfg.Animation.FrameInterval, countup.DefaultFrameInterval))
}

type kpiLine struct {
	name    string
	target  float64
	found   bool
	display func() float64
}

// kpiBoard renders one line per KPI and redraws them in place while the
// values count up.
type kpiBoard struct {
	lines []kpiLine
	drawn bool
}

func newKPIBoard(names []string, summary map[string]float64) *kpiBoard {
	b := &kpiBoard{}
	for _, name := range names {
		target, ok := summary[name]
		b.lines = append(b.lines, kpiLine{
			name:    name,
			target:  target,
			found:   ok,
			display: func() float64 { return target },
		})
	}
	return b
}

func (b *kpiBoard) animate(ctx context.Context, w io.Writer, clk clock.Clock, duration, interval time.Duration) error {
	drivers := make([]*countup.Driver, 0, len(b.lines))
	for i := range b.lines {
		if !b.lines[i].found {
			continue
		}
		d := countup.NewDriver(clk, interval, nil)
		d.Drive(b.lines[i].target, duration, true)
		b.lines[i].display = d.Value
		drivers = append(drivers, d)
	}
	defer func() {
		for _, d := range drivers {
			d.Stop()
		}
	}()

	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		done := allDone(drivers)
		b.render(w, true)
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func allDone(drivers []*countup.Driver) bool {
	for _, d := range drivers {
		select {
		case <-d.Done():
		default:
			return false
		}
	}
	return true
}

var (
	kpiName    = color.New(color.FgCyan)
	kpiValue   = color.New(color.FgGreen, color.Bold)
	kpiMissing = color.New(color.FgYellow)
)

// render prints every line. With redraw set, later calls move the cursor
// back over the previous frame first.
func (b *kpiBoard) render(w io.Writer, redraw bool) {
	if redraw && b.drawn {
		_, _ = fmt.Fprintf(w, "\x1b[%dA", len(b.lines))
	}
	for _, l := range b.lines {
		_, _ = fmt.Fprint(w, "\r\x1b[K")
		_, _ = kpiName.Fprintf(w, "%-20s ", l.name)
		if !l.found {
			_, _ = kpiMissing.Fprintln(w, "n/a")
			continue
		}
		_, _ = kpiValue.Fprintln(w, formatKPI(l.display(), l.target))
	}
	b.drawn = true
}

func formatKPI(value, target float64) string {
	if target == math.Trunc(target) {
		return fmt.Sprintf("%.0f", math.Floor(value))
	}
	return fmt.Sprintf("%.2f", value)
}
