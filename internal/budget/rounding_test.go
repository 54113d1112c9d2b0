package budget_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlebearapps/seo-ads-expert/internal/budget"
)

func TestRoundToCents_SumMatchesTotal(t *testing.T) {
	cases := []struct {
		name  string
		alloc []float64
		total float64
	}{
		{"thirds", []float64{33.333333, 33.333333, 33.333333}, 100},
		{"uneven", []float64{10.005, 20.015, 69.98}, 100},
		{"single", []float64{49.999}, 50},
		{"many small", []float64{0.111, 0.111, 0.111, 0.111, 0.111, 0.111, 0.111, 0.111, 0.111}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := budget.RoundToCents(tc.alloc, tc.total)
			require.Len(t, out, len(tc.alloc))

			sum := decimal.Zero
			for i, d := range out {
				assert.True(t, d.Equal(d.Round(2)), "amount %s is not cent-exact", d)
				// Largest-remainder rounding moves each arm by less than
				// one cent plus its share of the leftover.
				assert.InDelta(t, tc.alloc[i], d.InexactFloat64(), 0.02)
				sum = sum.Add(d)
			}
			assert.True(t, sum.Equal(decimal.NewFromFloat(tc.total).Round(2)),
				"got sum %s, want %v", sum, tc.total)
		})
	}
}

func TestRoundToCents_LeftoverGoesToLargestRemainders(t *testing.T) {
	// 0.998 loses the most to flooring, so it collects the leftover cent.
	out := budget.RoundToCents([]float64{0.998, 0.501, 0.501}, 2.00)

	assert.True(t, out[0].Equal(decimal.NewFromFloat(1.00)), "got %s", out[0])
	assert.True(t, out[1].Equal(decimal.NewFromFloat(0.50)), "got %s", out[1])
	assert.True(t, out[2].Equal(decimal.NewFromFloat(0.50)), "got %s", out[2])
}

func TestRoundToCents_FlooredSumAboveTarget(t *testing.T) {
	// The projection may settle up to a cent above the target, so the
	// floored amounts can already overshoot. The excess comes back out of
	// the arms that lost the least to flooring.
	out := budget.RoundToCents([]float64{5.00, 5.01}, 10.00)

	sum := out[0].Add(out[1])
	assert.True(t, sum.Equal(decimal.NewFromFloat(10.00)), "got sum %s, want 10.00", sum)

	// Several excess cents spread across arms instead of draining one.
	out = budget.RoundToCents([]float64{3.34, 3.34, 3.34}, 10.00)

	sum = decimal.Zero
	for _, d := range out {
		assert.True(t, d.GreaterThanOrEqual(decimal.Zero), "got negative amount %s", d)
		sum = sum.Add(d)
	}
	assert.True(t, sum.Equal(decimal.NewFromFloat(10.00)), "got sum %s, want 10.00", sum)
}

func TestRoundToCents_Empty(t *testing.T) {
	out := budget.RoundToCents(nil, 100)
	assert.Empty(t, out)
}
