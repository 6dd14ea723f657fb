package chart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Series is one independent counter sharing the timeline's bucket space.
type Series struct {
	Name    string
	Records []Record
	// PlaceholderMax bounds the cosmetic values used when the whole
	// timeline is empty. Zero means defaultPlaceholderMax.
	PlaceholderMax int
}

// Bucket is one fixed-width time slot of a timeline.
type Bucket struct {
	Label  string    `json:"label"`
	Start  time.Time `json:"start"`
	Counts []int     `json:"counts"`
}

// Timeline is the aggregated, chart-ready result of Aggregate.
type Timeline struct {
	Kind     Kind      `json:"period"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Series   []string  `json:"series"`
	Buckets  []Bucket  `json:"buckets"`
	Excluded []int     `json:"excluded"`
	// Placeholder is set when the buckets hold synthetic values rather
	// than counts derived from records.
	Placeholder bool `json:"placeholder"`
}

// Rows flattens the timeline into one map per bucket keyed by series name,
// the shape chart widgets consume directly.
func (t Timeline) Rows() []map[string]any {
	rows := make([]map[string]any, 0, len(t.Buckets))
	for _, b := range t.Buckets {
		row := map[string]any{"label": b.Label}
		for i, name := range t.Series {
			row[name] = b.Counts[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// Total returns the sum of all counters of the series at index s.
func (t Timeline) Total(s int) int {
	total := 0
	for _, b := range t.Buckets {
		if s < len(b.Counts) {
			total += b.Counts[s]
		}
	}
	return total
}

// CategoryCost is the aggregated purchase cost of one category.
type CategoryCost struct {
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// Options controls record extraction and the empty-chart fallback.
type Options struct {
	// DateFields lists the record fields probed for a timestamp, in order.
	// Empty means DefaultDateFields.
	DateFields []string
	// Placeholder enables synthetic values when a chart would be empty.
	Placeholder bool
	// Location is used for day boundaries and for timestamps without a
	// zone. Nil means the location of now.
	Location *time.Location
}
