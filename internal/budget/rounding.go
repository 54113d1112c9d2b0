package budget

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RoundToCents converts a feasible allocation into cent-exact amounts that
// still sum to the target total, using largest-remainder apportionment.
// Ad platforms reject sub-cent budgets, and naive per-arm rounding can
// drift the total by several cents across a large portfolio.
func RoundToCents(alloc []float64, total float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(alloc))
	if len(alloc) == 0 {
		return out
	}

	target := decimal.NewFromFloat(total).Round(2)

	type remainder struct {
		index int
		frac  decimal.Decimal
	}

	floorSum := decimal.Zero
	remainders := make([]remainder, len(alloc))
	for i, v := range alloc {
		d := decimal.NewFromFloat(v)
		floored := d.RoundDown(2)
		out[i] = floored
		floorSum = floorSum.Add(floored)
		remainders[i] = remainder{index: i, frac: d.Sub(floored)}
	}

	cents := target.Sub(floorSum).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents == 0 {
		return out
	}

	cent := decimal.New(1, -2)

	if cents < 0 {
		// Flooring can still land above a target the projection only hit
		// within tolerance. Claw the excess back from the arms that lost
		// the least, never pushing an arm below zero.
		sort.SliceStable(remainders, func(a, b int) bool {
			return remainders[a].frac.LessThan(remainders[b].frac)
		})
		remaining := -cents
		for remaining > 0 {
			moved := false
			for _, r := range remainders {
				if remaining == 0 {
					break
				}
				if out[r.index].GreaterThanOrEqual(cent) {
					out[r.index] = out[r.index].Sub(cent)
					remaining--
					moved = true
				}
			}
			if !moved {
				break
			}
		}
		return out
	}

	// Hand leftover cents to the arms that lost the most to flooring.
	sort.SliceStable(remainders, func(a, b int) bool {
		return remainders[a].frac.GreaterThan(remainders[b].frac)
	})

	for i := int64(0); i < cents; i++ {
		idx := remainders[int(i)%len(remainders)].index
		out[idx] = out[idx].Add(cent)
	}

	return out
}
