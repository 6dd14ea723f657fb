package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/noo-bita/propinv/internal/chart"
	"github.com/spf13/cobra"
)

const barWidth = 40

var (
	timelinePeriod string
	timelineStart  string
	timelineEnd    string
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print the activity timeline",
	Long: `Fetch inventory and request records and print the activity timeline
for a period. Falls back to the stored snapshot when the backend is down.`,
	RunE: runTimeline,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Print the costliest categories",
	RunE:  runCategories,
}

func init() {
	timelineCmd.Flags().StringVarP(&timelinePeriod, "period", "p", "week", "Period: today, week, daytoday, month or custom")
	timelineCmd.Flags().StringVar(&timelineStart, "start", "", "First day of a custom period (YYYY-MM-DD)")
	timelineCmd.Flags().StringVar(&timelineEnd, "end", "", "Last day of a custom period (YYYY-MM-DD)")
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func runTimeline(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadCommandConfig()
	if err != nil {
		return err
	}

	service, store, err := newDashboard(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	period, err := chart.ParsePeriod(timelinePeriod, timelineStart, timelineEnd, service.Location())
	if err != nil {
		return err
	}

	res, err := service.Timeline(cmd.Context(), period)
	if err != nil {
		return fmt.Errorf("failed to build timeline: %w", err)
	}

	if res.Stale {
		warnStale(cmd.OutOrStdout())
	}
	renderTimeline(cmd.OutOrStdout(), res.Timeline)
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadCommandConfig()
	if err != nil {
		return err
	}

	service, store, err := newDashboard(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	res, err := service.CategoryCosts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compute category costs: %w", err)
	}

	if res.Stale {
		warnStale(cmd.OutOrStdout())
	}
	renderCategories(cmd.OutOrStdout(), res.Costs, res.Placeholder)
	return nil
}

var seriesColors = []*color.Color{
	color.New(color.FgGreen),
	color.New(color.FgCyan),
	color.New(color.FgMagenta),
}

func warnStale(w io.Writer) {
	_, _ = color.New(color.FgYellow).Fprintln(w, "Inventory backend unreachable, showing the last stored snapshot")
}

func renderTimeline(w io.Writer, tl chart.Timeline) {
	header := color.New(color.FgCyan, color.Bold)
	_, _ = header.Fprintf(w, "Activity (%s) %s .. %s\n",
		tl.Kind, tl.Start.Format("2006-01-02 15:04"), tl.End.Format("2006-01-02 15:04"))
	if tl.Placeholder {
		_, _ = color.New(color.FgYellow).Fprintln(w, "No records in this period, showing placeholder data")
	}

	peak := 0
	for _, b := range tl.Buckets {
		for _, c := range b.Counts {
			peak = max(peak, c)
		}
	}

	labelWidth := 0
	for _, b := range tl.Buckets {
		labelWidth = max(labelWidth, len(b.Label))
	}

	for _, b := range tl.Buckets {
		for i, name := range tl.Series {
			label := ""
			if i == 0 {
				label = b.Label
			}
			count := b.Counts[i]
			c := seriesColors[i%len(seriesColors)]
			_, _ = fmt.Fprintf(w, "%-*s %-9s ", labelWidth, label, name)
			_, _ = c.Fprint(w, bar(count, peak))
			_, _ = fmt.Fprintf(w, " %d\n", count)
		}
	}

	_, _ = fmt.Fprintln(w)
	for i, name := range tl.Series {
		line := fmt.Sprintf("%s: %d", name, tl.Total(i))
		if i < len(tl.Excluded) && tl.Excluded[i] > 0 {
			line += fmt.Sprintf(" (%d outside period)", tl.Excluded[i])
		}
		_, _ = seriesColors[i%len(seriesColors)].Fprintln(w, line)
	}
}

func renderCategories(w io.Writer, costs []chart.CategoryCost, placeholder bool) {
	_, _ = color.New(color.FgCyan, color.Bold).Fprintln(w, "Cost by category")
	if placeholder {
		_, _ = color.New(color.FgYellow).Fprintln(w, "No purchase records, showing placeholder data")
	}
	if len(costs) == 0 {
		_, _ = fmt.Fprintln(w, "  (none)")
		return
	}

	peak := costs[0].Cost.InexactFloat64()
	for _, c := range costs {
		scaled := 0
		if peak > 0 {
			scaled = int(c.Cost.InexactFloat64() / peak * barWidth)
		}
		_, _ = fmt.Fprintf(w, "  %-12s ", c.Name)
		_, _ = color.New(color.FgGreen).Fprint(w, strings.Repeat("█", scaled))
		_, _ = fmt.Fprintf(w, " %s\n", c.Cost.StringFixed(2))
	}
}

func bar(count, peak int) string {
	if peak <= 0 || count <= 0 {
		return ""
	}
	n := count * barWidth / peak
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}
