package chart

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"

	"github.com/shopspring/decimal"
)

const defaultPlaceholderMax = 3

var placeholderCategories = []string{"Electronics", "Furniture", "Supplies", "Books", "Equipment", DefaultCategory}

// placeholderRand is seeded from the window so repeated calls with the same
// inputs produce the same synthetic values.
func placeholderRand(seed uint64, salt string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(salt))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}

func fillPlaceholder(tl *Timeline, series []Series, w Window) {
	r := placeholderRand(uint64(w.Start.UnixNano())^uint64(w.DataPoints), string(w.Kind))
	for i := range tl.Buckets {
		for s, ser := range series {
			limit := ser.PlaceholderMax
			if limit <= 0 {
				limit = defaultPlaceholderMax
			}
			tl.Buckets[i].Counts[s] = 1 + r.IntN(limit)
		}
	}
	tl.Placeholder = true
}

func placeholderCosts() []CategoryCost {
	r := placeholderRand(uint64(len(placeholderCategories)), "categories")
	costs := make([]CategoryCost, 0, len(placeholderCategories))
	for _, name := range placeholderCategories {
		costs = append(costs, CategoryCost{
			Name: name,
			Cost: decimal.NewFromInt(int64(500 + r.IntN(4500))),
		})
	}
	sort.SliceStable(costs, func(i, j int) bool {
		return costs[i].Cost.GreaterThan(costs[j].Cost)
	})
	return costs
}
