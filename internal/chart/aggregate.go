package chart

import (
	"time"
)

// Series names used by the dashboard activity timeline.
const (
	SeriesItems    = "items"
	SeriesRequests = "requests"
)

// Aggregate counts each series' records into the fixed buckets of period
// as seen at now. Records without a usable timestamp or outside the window
// are skipped and tallied in Timeline.Excluded. The result depends only on
// its arguments.
func Aggregate(series []Series, period Period, now time.Time, opts Options) Timeline {
	loc := opts.Location
	if loc != nil {
		now = now.In(loc)
	} else {
		loc = now.Location()
	}

	w := period.Resolve(now)

	tl := Timeline{
		Kind:     w.Kind,
		Start:    w.Start,
		End:      w.End,
		Series:   make([]string, len(series)),
		Buckets:  make([]Bucket, w.DataPoints),
		Excluded: make([]int, len(series)),
	}
	for s, ser := range series {
		tl.Series[s] = ser.Name
	}
	for i := range tl.Buckets {
		tl.Buckets[i] = Bucket{
			Label:  w.Labels[i],
			Start:  w.BucketStart(i),
			Counts: make([]int, len(series)),
		}
	}

	counted := 0
	for s, ser := range series {
		for _, rec := range ser.Records {
			t, ok := rec.Time(opts.DateFields, loc)
			if !ok || !w.Contains(t) {
				tl.Excluded[s]++
				continue
			}
			tl.Buckets[w.Index(t)].Counts[s]++
			counted++
		}
	}

	if counted == 0 && opts.Placeholder && len(series) > 0 {
		fillPlaceholder(&tl, series, w)
	}

	return tl
}

// Activity builds the dashboard's two-series timeline of items added and
// requests created.
func Activity(items, requests []Record, period Period, now time.Time, opts Options) Timeline {
	return Aggregate([]Series{
		{Name: SeriesItems, Records: items, PlaceholderMax: 5},
		{Name: SeriesRequests, Records: requests, PlaceholderMax: 3},
	}, period, now, opts)
}
