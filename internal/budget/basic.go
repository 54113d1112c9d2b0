package budget

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
)

// Basic projects a raw allocation onto the feasible region with box
// clamping, uniform proportional scaling, and iterative redistribution
// as a fallback when scaling alone cannot hit the target.
type Basic struct {
	logger *zap.Logger
}

// BasicOption configures a Basic strategy.
type BasicOption func(*Basic)

// WithBasicLogger attaches a structured logger.
func WithBasicLogger(l *zap.Logger) BasicOption {
	return func(b *Basic) { b.logger = l }
}

// NewBasic builds the strategy.
func NewBasic(opts ...BasicOption) *Basic {
	b := &Basic{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Metadata implements Strategy.
func (b *Basic) Metadata() Metadata {
	return Metadata{
		Name:        "basic",
		Description: "box clamp, proportional scaling, and iterative redistribution onto the budget total",
		Features:    []string{"box_constraints", "total_budget_equality"},
	}
}

// Apply implements Strategy. It fails only on a raw/arms length mismatch;
// every numeric input produces a best-effort feasible vector.
func (b *Basic) Apply(raw []float64, constraints Constraints, arms []Arm) ([]float64, error) {
	if len(raw) != len(arms) {
		return nil, fmt.Errorf("%w: %d allocations for %d arms", ErrLengthMismatch, len(raw), len(arms))
	}
	if len(raw) == 0 {
		return []float64{}, nil
	}

	alloc := make([]float64, len(raw))
	for i, v := range raw {
		alloc[i] = clampToArm(v, arms[i])
	}

	b.rebalance(alloc, constraints.TotalBudget, arms)

	b.logger.Debug("applied basic constraints",
		zap.Float64("target", constraints.TotalBudget),
		zap.Float64("allocated", sum(alloc)))

	return alloc, nil
}

// rebalance nudges a clamped vector so its sum matches the target total:
// uniform proportional scaling first, iterative redistribution if clamping
// eats the correction.
func (b *Basic) rebalance(alloc []float64, target float64, arms []Arm) {
	current := sum(alloc)
	if math.Abs(current-target) <= Tolerance {
		return
	}

	if current > 0 {
		scale := target / current
		for i := range alloc {
			alloc[i] = clampToArm(alloc[i]*scale, arms[i])
		}
	}

	if math.Abs(sum(alloc)-target) <= Tolerance {
		return
	}

	b.redistribute(alloc, target, arms)
}

// redistribute hands out remaining surplus to the arms with the highest
// conversion rates and claws back deficit from the arms with the most
// headroom above their own minimums, honoring every bound at each step.
func (b *Basic) redistribute(alloc []float64, target float64, arms []Arm) {
	remaining := target - sum(alloc)

	order := make([]int, len(arms))
	for i := range order {
		order[i] = i
	}

	if remaining > 0 {
		// Surplus: best converters first.
		sort.SliceStable(order, func(a, c int) bool {
			return arms[order[a]].Performance.ConversionRate > arms[order[c]].Performance.ConversionRate
		})
		for remaining > Tolerance {
			moved := false
			for _, i := range order {
				headroom := arms[i].MaxBudget - alloc[i]
				if headroom <= 0 {
					continue
				}
				give := math.Min(headroom, remaining)
				alloc[i] += give
				remaining -= give
				moved = true
				if remaining <= Tolerance {
					break
				}
			}
			if !moved {
				break // every arm is at its cap
			}
		}
		return
	}

	// Deficit: claw back from the arms farthest above their minimums.
	deficit := -remaining
	for deficit > Tolerance {
		sort.SliceStable(order, func(a, c int) bool {
			return alloc[order[a]]-arms[order[a]].MinBudget > alloc[order[c]]-arms[order[c]].MinBudget
		})
		moved := false
		for _, i := range order {
			slack := alloc[i] - arms[i].MinBudget
			if slack <= 0 {
				continue
			}
			take := math.Min(slack, deficit)
			alloc[i] -= take
			deficit -= take
			moved = true
			if deficit <= Tolerance {
				break
			}
		}
		if !moved {
			break // every arm is at its floor
		}
	}
}

// Validate implements Strategy.
func (b *Basic) Validate(constraints Constraints, arms []Arm) ValidationResult {
	return validateBase(constraints, arms)
}
