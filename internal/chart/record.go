package chart

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// DefaultCategory groups records that carry no category.
const DefaultCategory = "Other"

// DefaultDateFields are probed, in order, for a record's timestamp.
var DefaultDateFields = []string{"created_at", "purchase_date", "date_added", "date"}

var priceFields = []string{"purchase_price", "price"}

// Record is one JSON object as returned by the inventory backend.
type Record map[string]any

// Time returns the record's timestamp taken from the first present field in
// fields. Nil and blank values count as absent; the first present value
// decides, so an unparseable one yields false rather than falling through.
func (r Record) Time(fields []string, loc *time.Location) (time.Time, bool) {
	if len(fields) == 0 {
		fields = DefaultDateFields
	}
	if loc == nil {
		loc = time.Local
	}

	for _, field := range fields {
		v, ok := r[field]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}

		// JSON numbers decode as float64: unix seconds.
		if f, isFloat := v.(float64); isFloat {
			v = int64(f)
		}

		t, err := cast.ToTimeInDefaultLocationE(v, loc)
		if err != nil || t.IsZero() {
			return time.Time{}, false
		}
		return t.In(loc), true
	}
	return time.Time{}, false
}

// Category returns the record's category name, or DefaultCategory. Nested
// objects of the form {"name": "..."} are accepted.
func (r Record) Category() string {
	v := r["category"]
	if nested, ok := v.(map[string]any); ok {
		v = nested["name"]
	}
	name := strings.TrimSpace(cast.ToString(v))
	if name == "" {
		return DefaultCategory
	}
	return name
}

// Price returns the unit purchase price; anything non-numeric is 0.
func (r Record) Price() float64 {
	for _, field := range priceFields {
		v, ok := r[field]
		if !ok || v == nil {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil || !finite(f) {
			return 0
		}
		return f
	}
	return 0
}

// Quantity returns the item count; missing, zero or non-numeric is 1.
func (r Record) Quantity() float64 {
	f, err := cast.ToFloat64E(r["quantity"])
	if err != nil || !finite(f) || f == 0 {
		return 1
	}
	return f
}

// Cost is price × quantity.
func (r Record) Cost() decimal.Decimal {
	return decimal.NewFromFloat(r.Price()).Mul(decimal.NewFromFloat(r.Quantity()))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
