package chart

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind names a dashboard period.
type Kind string

const (
	KindToday    Kind = "today"
	KindWeek     Kind = "week"
	KindDayToDay Kind = "daytoday"
	KindMonth    Kind = "month"
	KindCustom   Kind = "custom"
)

const (
	todayPoints     = 12
	todayStep       = 2 * time.Hour
	weekPoints      = 7
	monthPoints     = 30
	maxCustomPoints = 90

	// DateLayout is the accepted format for custom period bounds.
	DateLayout = "2006-01-02"
)

var (
	// ErrUnknownPeriod is returned for a period name outside Kind.
	ErrUnknownPeriod = errors.New("chart: unknown period")
	// ErrInvalidDate is returned when a custom period bound cannot be parsed.
	ErrInvalidDate = errors.New("chart: invalid date")
)

// Period is a user-selected time window. From and To are only used by
// KindCustom.
type Period struct {
	Kind Kind
	From time.Time
	To   time.Time
}

// ParsePeriod builds a Period from query-style input. An empty kind
// defaults to KindWeek. Custom bounds are YYYY-MM-DD in loc (nil means
// time.Local).
func ParsePeriod(kind, from, to string, loc *time.Location) (Period, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(kind)))
	if k == "" {
		k = KindWeek
	}

	switch k {
	case KindToday, KindWeek, KindDayToDay, KindMonth:
		return Period{Kind: k}, nil
	case KindCustom:
		if loc == nil {
			loc = time.Local
		}
		start, err := time.ParseInLocation(DateLayout, strings.TrimSpace(from), loc)
		if err != nil {
			return Period{}, fmt.Errorf("%w: start %q", ErrInvalidDate, from)
		}
		end, err := time.ParseInLocation(DateLayout, strings.TrimSpace(to), loc)
		if err != nil {
			return Period{}, fmt.Errorf("%w: end %q", ErrInvalidDate, to)
		}
		return Period{Kind: KindCustom, From: start, To: end}, nil
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, kind)
	}
}

// Key identifies the period for caching. Relative periods share a key
// across calls; custom periods include their bounds.
func (p Period) Key() string {
	if p.Kind == KindCustom {
		return fmt.Sprintf("%s:%s:%s", p.Kind, p.From.Format(DateLayout), p.To.Format(DateLayout))
	}
	if p.Kind == "" {
		return string(KindWeek)
	}
	return string(p.Kind)
}

// Window is a period resolved against a reference time.
type Window struct {
	Kind       Kind
	Start      time.Time
	End        time.Time
	DataPoints int
	Labels     []string
}

// Resolve computes the window, bucket count and labels for the period as
// seen at now. An unset Kind resolves as KindWeek.
func (p Period) Resolve(now time.Time) Window {
	today := startOfDay(now)

	var w Window
	switch p.Kind {
	case KindToday:
		w = Window{Kind: KindToday, Start: today, End: now, DataPoints: todayPoints}
	case KindDayToDay:
		w = Window{Kind: KindDayToDay, Start: today.AddDate(0, 0, -(weekPoints - 1)), End: now, DataPoints: weekPoints}
	case KindMonth:
		w = Window{Kind: KindMonth, Start: today.AddDate(0, 0, -(monthPoints - 1)), End: now, DataPoints: monthPoints}
	case KindCustom:
		start := startOfDay(p.From)
		last := startOfDay(p.To)
		points := daysBetween(start, last) + 1
		w = Window{
			Kind:       KindCustom,
			Start:      start,
			End:        last.AddDate(0, 0, 1).Add(-time.Nanosecond),
			DataPoints: min(max(points, 1), maxCustomPoints),
		}
	default:
		w = Window{Kind: KindWeek, Start: today.AddDate(0, 0, -(weekPoints - 1)), End: now, DataPoints: weekPoints}
	}

	w.Labels = make([]string, w.DataPoints)
	for i := range w.Labels {
		w.Labels[i] = w.label(i)
	}
	return w
}

// BucketStart returns the beginning of bucket i.
func (w Window) BucketStart(i int) time.Time {
	if w.Kind == KindToday {
		return w.Start.Add(time.Duration(i) * todayStep)
	}
	return w.Start.AddDate(0, 0, i)
}

// Contains reports whether t falls inside [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Index maps t to its bucket, clamped to [0, DataPoints-1].
func (w Window) Index(t time.Time) int {
	var idx int
	if w.Kind == KindToday {
		idx = int(t.Sub(w.Start) / todayStep)
	} else {
		idx = daysBetween(w.Start, startOfDay(t.In(w.Start.Location())))
	}
	return min(max(idx, 0), w.DataPoints-1)
}

func (w Window) label(i int) string {
	if w.Kind == KindToday {
		// Fixed clock labels, also on days with a DST shift.
		return fmt.Sprintf("%02d:00", i*int(todayStep/time.Hour))
	}
	start := w.BucketStart(i)
	switch w.Kind {
	case KindWeek:
		return start.Format("Mon")
	default:
		return fmt.Sprintf("%d/%d", start.Day(), int(start.Month()))
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, both at midnight. Rounding
// absorbs 23 and 25 hour days around DST changes.
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
