package budget

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

const (
	maxGradientIterations = 100
	gradientPatience      = 10
)

// Advanced extends the basic projection with seasonal adjustment, business
// rules, and gradient-based optimization of a risk-adjusted expected-value
// objective. Exact rebalancing is delegated to the basic strategy as a
// final projection step after every move.
type Advanced struct {
	basic  *Basic
	logger *zap.Logger
}

// AdvancedOption configures an Advanced strategy.
type AdvancedOption func(*Advanced)

// WithAdvancedLogger attaches a structured logger.
func WithAdvancedLogger(l *zap.Logger) AdvancedOption {
	return func(a *Advanced) { a.logger = l }
}

// NewAdvanced builds the strategy over a fresh basic projector.
func NewAdvanced(opts ...AdvancedOption) *Advanced {
	a := &Advanced{
		basic:  NewBasic(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Metadata implements Strategy.
func (a *Advanced) Metadata() Metadata {
	return Metadata{
		Name:        "advanced",
		Description: "seasonal and business-rule passes plus gradient ascent of risk-adjusted expected value",
		Features:    []string{"box_constraints", "total_budget_equality", "seasonality", "business_rules", "gradient_optimization"},
	}
}

// Apply implements Strategy: four sequential passes over the raw vector.
func (a *Advanced) Apply(raw []float64, constraints Constraints, arms []Arm) ([]float64, error) {
	if len(raw) != len(arms) {
		return nil, fmt.Errorf("%w: %d allocations for %d arms", ErrLengthMismatch, len(raw), len(arms))
	}
	if len(raw) == 0 {
		return []float64{}, nil
	}

	alloc := make([]float64, len(raw))
	copy(alloc, raw)

	a.applySeasonality(alloc, arms)
	a.applyBusinessRules(alloc, arms)

	alloc = a.project(alloc, constraints, arms)
	alloc = a.optimize(alloc, constraints, arms)

	a.logger.Debug("applied advanced constraints",
		zap.Float64("target", constraints.TotalBudget),
		zap.Float64("allocated", sum(alloc)),
		zap.Float64("objective", a.objective(alloc, arms)))

	return alloc, nil
}

// applySeasonality multiplies each allocation by the arm's seasonality
// factor, re-clamped into its bounds. A zero factor means unset.
func (a *Advanced) applySeasonality(alloc []float64, arms []Arm) {
	for i := range alloc {
		factor := arms[i].Seasonality
		if factor <= 0 {
			factor = 1
		}
		alloc[i] = clampToArm(alloc[i]*factor, arms[i])
	}
}

// applyBusinessRules reduces high-risk arms by 10% and floors low-quality
// arms at 1.5x their minimum, then rescales to preserve the total.
func (a *Advanced) applyBusinessRules(alloc []float64, arms []Arm) {
	before := sum(alloc)

	for i := range alloc {
		if arms[i].Risk == RiskHigh {
			alloc[i] = clampToArm(alloc[i]*0.9, arms[i])
		}
		if arms[i].Performance.QualityScore > 0 && arms[i].Performance.QualityScore < 3.0 {
			floor := 1.5 * arms[i].MinBudget
			if alloc[i] < floor {
				alloc[i] = clampToArm(floor, arms[i])
			}
		}
	}

	after := sum(alloc)
	if after > 0 && math.Abs(after-before) > Tolerance {
		scale := before / after
		for i := range alloc {
			alloc[i] = clampToArm(alloc[i]*scale, arms[i])
		}
	}
}

// optimize runs gradient ascent on the risk-adjusted expected-value
// objective with a decaying step, bounded iterations, early stop after a
// patience window, and re-projection after every step.
func (a *Advanced) optimize(alloc []float64, constraints Constraints, arms []Arm) []float64 {
	best := a.project(alloc, constraints, arms)
	bestObj := a.objective(best, arms)

	current := make([]float64, len(best))
	copy(current, best)

	step := constraints.TotalBudget * 0.05
	if step <= 0 {
		step = 1
	}
	h := math.Max(constraints.TotalBudget*1e-4, 1e-3)

	noImprove := 0
	for iter := 0; iter < maxGradientIterations; iter++ {
		grad := a.gradient(current, arms, h)

		norm := 0.0
		for _, g := range grad {
			norm += g * g
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			break
		}

		candidate := make([]float64, len(current))
		for i := range current {
			candidate[i] = current[i] + step*grad[i]/norm
		}
		candidate = a.project(candidate, constraints, arms)

		obj := a.objective(candidate, arms)
		if obj > bestObj+1e-9 {
			best = candidate
			bestObj = obj
			noImprove = 0
		} else {
			noImprove++
			if noImprove >= gradientPatience {
				break
			}
		}

		current = candidate
		step *= 0.95
	}

	return best
}

// gradient estimates the objective gradient by central finite differences.
func (a *Advanced) gradient(alloc []float64, arms []Arm, h float64) []float64 {
	grad := make([]float64, len(alloc))
	shifted := make([]float64, len(alloc))
	copy(shifted, alloc)

	for i := range alloc {
		shifted[i] = alloc[i] + h
		up := a.objective(shifted, arms)
		shifted[i] = alloc[i] - h
		down := a.objective(shifted, arms)
		shifted[i] = alloc[i]
		grad[i] = (up - down) / (2 * h)
	}
	return grad
}

// objective is the portfolio's risk-adjusted expected value: clicks bought
// at the arm's CPC times its conversion rate and average value, discounted
// by the risk multiplier. Arms with no CPC contribute nothing rather than
// dividing by zero.
func (a *Advanced) objective(alloc []float64, arms []Arm) float64 {
	total := 0.0
	for i, v := range alloc {
		perf := arms[i].Performance
		if perf.CostPerClick <= 0 {
			continue
		}
		expected := (v / perf.CostPerClick) * perf.ConversionRate * perf.AverageValue
		total += riskMultiplier(arms[i].Risk) * expected
	}
	return total
}

func riskMultiplier(risk RiskLevel) float64 {
	switch risk {
	case RiskHigh:
		return 0.8
	case RiskMedium:
		return 0.9
	default:
		return 1.0
	}
}

// project maps a proposal back onto the feasible region: box clamp,
// proportional rescale toward the total, and a final exact rebalance
// through the basic strategy when rounding leaves residual error.
func (a *Advanced) project(alloc []float64, constraints Constraints, arms []Arm) []float64 {
	out := make([]float64, len(alloc))
	for i, v := range alloc {
		out[i] = clampToArm(v, arms[i])
	}

	current := sum(out)
	if current > 0 && math.Abs(current-constraints.TotalBudget) > Tolerance {
		scale := constraints.TotalBudget / current
		for i := range out {
			out[i] = clampToArm(out[i]*scale, arms[i])
		}
	}

	if math.Abs(sum(out)-constraints.TotalBudget) > Tolerance {
		projected, err := a.basic.Apply(out, constraints, arms)
		if err == nil {
			return projected
		}
	}
	return out
}

// Validate implements Strategy: the shared checks plus portfolio-level
// diversification and performance checks.
func (a *Advanced) Validate(constraints Constraints, arms []Arm) ValidationResult {
	result := validateBase(constraints, arms)

	totalSpend := 0.0
	categorySpend := make(map[string]float64)
	lowCVRSpend := 0.0

	for _, arm := range arms {
		totalSpend += arm.CurrentBudget
		categorySpend[arm.Category] += arm.CurrentBudget
		if arm.Performance.ConversionRate < 0.01 {
			lowCVRSpend += arm.CurrentBudget
		}
	}

	if totalSpend > 0 {
		for _, arm := range arms {
			if arm.CurrentBudget > 0.8*totalSpend {
				result.Warnings = append(result.Warnings, Warning{
					Type:    WarningRisky,
					Message: fmt.Sprintf("arm %s holds %.0f%% of total spend; portfolio lacks diversification", arm.ID, arm.CurrentBudget/totalSpend*100),
					Impact:  ImpactHigh,
				})
			}
		}
		for category, spend := range categorySpend {
			if category == "" {
				continue
			}
			if spend > 0.8*totalSpend {
				result.Warnings = append(result.Warnings, Warning{
					Type:    WarningRisky,
					Message: fmt.Sprintf("category %s holds %.0f%% of total spend; portfolio lacks diversification", category, spend/totalSpend*100),
					Impact:  ImpactMedium,
				})
			}
		}
		if lowCVRSpend > 0.3*totalSpend {
			result.Warnings = append(result.Warnings, Warning{
				Type:    WarningPerformance,
				Message: fmt.Sprintf("arms converting below 1%% hold %.0f%% of total spend", lowCVRSpend/totalSpend*100),
				Impact:  ImpactMedium,
			})
		}
	}

	return result
}
