package chart

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	topCategories    = 6
	maxCategoryName  = 12
	truncationMarker = "..."
)

// CostByCategory sums price × quantity per category and returns the six
// most expensive categories, highest first. The boolean result reports
// whether placeholder categories were substituted for an empty input
// (only when opts.Placeholder is set).
func CostByCategory(records []Record, opts Options) ([]CategoryCost, bool) {
	totals := make(map[string]decimal.Decimal)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		name := rec.Category()
		totals[name] = totals[name].Add(rec.Cost())
	}

	if len(totals) == 0 {
		if opts.Placeholder {
			return placeholderCosts(), true
		}
		return []CategoryCost{}, false
	}

	costs := make([]CategoryCost, 0, len(totals))
	for name, cost := range totals {
		costs = append(costs, CategoryCost{Name: name, Cost: cost})
	}
	sort.Slice(costs, func(i, j int) bool {
		if c := costs[i].Cost.Cmp(costs[j].Cost); c != 0 {
			return c > 0
		}
		return costs[i].Name < costs[j].Name
	})

	if len(costs) > topCategories {
		costs = costs[:topCategories]
	}
	for i := range costs {
		costs[i].Name = shortenName(costs[i].Name)
	}
	return costs, false
}

func shortenName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxCategoryName {
		return name
	}
	return string(runes[:maxCategoryName]) + truncationMarker
}
