// Package budget projects unconstrained budget vectors onto the feasible
// region defined by per-arm min/max bounds and a total-budget equality,
// and validates constraint sets before allocation.
package budget

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when the raw allocation vector and the
// arms list differ in size: an integration contract violation, not a data
// problem.
var ErrLengthMismatch = errors.New("allocation vector and arms list differ in length")

// Tolerance is how close the projected vector's sum must land to the
// target total budget.
const Tolerance = 1e-2

// RiskLevel classifies an arm's volatility.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Performance is the observed economics of one arm.
type Performance struct {
	ConversionRate float64 `json:"conversion_rate"`
	AverageValue   float64 `json:"average_value"`
	CostPerClick   float64 `json:"cost_per_click"`
	QualityScore   float64 `json:"quality_score"`
}

// Arm is one campaign whose budget is being constrained.
// Invariant: MinBudget >= 0 and MinBudget <= MaxBudget; violations are
// reported by Validate, never thrown.
type Arm struct {
	ID            string      `json:"id"`
	MinBudget     float64     `json:"min_budget"`
	MaxBudget     float64     `json:"max_budget"`
	CurrentBudget float64     `json:"current_budget"`
	Performance   Performance `json:"performance"`
	Category      string      `json:"category,omitempty"`
	Risk          RiskLevel   `json:"risk_level,omitempty"`
	Seasonality   float64     `json:"seasonality,omitempty"` // multiplier, 0 means unset
}

// Constraints is the scalar budget target the strategies must honor.
// MinDailyBudget and MaxDailyBudget are optional global per-arm bounds;
// zero means unset.
type Constraints struct {
	TotalBudget    float64 `json:"total_budget"`
	MinDailyBudget float64 `json:"min_daily_budget,omitempty"`
	MaxDailyBudget float64 `json:"max_daily_budget,omitempty"`
}

// ViolationType classifies a hard constraint problem.
type ViolationType string

const (
	ViolationInfeasible  ViolationType = "infeasible"
	ViolationConflicting ViolationType = "conflicting"
	ViolationInvalid     ViolationType = "invalid"
)

// Violation is a hard problem that makes the constraint set unsatisfiable
// or malformed. The decision to halt or proceed stays with the caller.
type Violation struct {
	Type         ViolationType `json:"type"`
	Message      string        `json:"message"`
	ArmIDs       []string      `json:"arm_ids,omitempty"`
	SuggestedFix string        `json:"suggested_fix,omitempty"`
}

// WarningImpact grades a soft finding.
type WarningImpact string

const (
	ImpactLow    WarningImpact = "low"
	ImpactMedium WarningImpact = "medium"
	ImpactHigh   WarningImpact = "high"
)

// WarningType classifies a soft finding.
type WarningType string

const (
	WarningSuboptimal  WarningType = "suboptimal"
	WarningRisky       WarningType = "risky"
	WarningPerformance WarningType = "performance"
)

// Warning is a soft finding that does not block allocation.
type Warning struct {
	Type    WarningType   `json:"type"`
	Message string        `json:"message"`
	Impact  WarningImpact `json:"impact"`
}

// ValidationResult is the structured outcome of constraint validation.
type ValidationResult struct {
	Valid          bool        `json:"valid"`
	Violations     []Violation `json:"violations"`
	Warnings       []Warning   `json:"warnings"`
	TotalMinBudget float64     `json:"total_min_budget"`
	TotalMaxBudget float64     `json:"total_max_budget"`
}

// Metadata describes a strategy.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// Strategy projects raw allocations onto the feasible region and validates
// constraint sets.
type Strategy interface {
	// Apply clamps and rebalances raw into a vector that respects each
	// arm's bounds and sums to the total budget within Tolerance.
	Apply(raw []float64, constraints Constraints, arms []Arm) ([]float64, error)
	// Validate reports violations and warnings without failing.
	Validate(constraints Constraints, arms []Arm) ValidationResult
	// Metadata describes the strategy.
	Metadata() Metadata
}

// clampToArm boxes a value into [arm.MinBudget, arm.MaxBudget].
func clampToArm(v float64, arm Arm) float64 {
	if v < arm.MinBudget {
		return arm.MinBudget
	}
	// A malformed max below min never wins over the min clamp.
	if arm.MaxBudget >= arm.MinBudget && v > arm.MaxBudget {
		return arm.MaxBudget
	}
	return v
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// validateBase runs the checks shared by both strategies.
func validateBase(constraints Constraints, arms []Arm) ValidationResult {
	result := ValidationResult{Valid: true}

	totalMin, totalMax := 0.0, 0.0
	floorTotal := 0.0
	highRisk := 0

	for _, arm := range arms {
		totalMin += arm.MinBudget
		totalMax += arm.MaxBudget

		floor := arm.MinBudget
		if constraints.MinDailyBudget > floor {
			floor = constraints.MinDailyBudget
		}
		floorTotal += floor

		if arm.MinBudget < 0 {
			result.Violations = append(result.Violations, Violation{
				Type:         ViolationInvalid,
				Message:      fmt.Sprintf("arm %s has a negative minimum budget (%.2f)", arm.ID, arm.MinBudget),
				ArmIDs:       []string{arm.ID},
				SuggestedFix: "set the minimum budget to zero or above",
			})
		}
		if arm.MaxBudget < arm.MinBudget {
			result.Violations = append(result.Violations, Violation{
				Type:         ViolationInvalid,
				Message:      fmt.Sprintf("arm %s has max budget %.2f below min budget %.2f", arm.ID, arm.MaxBudget, arm.MinBudget),
				ArmIDs:       []string{arm.ID},
				SuggestedFix: "raise the maximum or lower the minimum budget",
			})
		}
		if arm.Risk == RiskHigh {
			highRisk++
		}
	}

	result.TotalMinBudget = totalMin
	result.TotalMaxBudget = totalMax

	if constraints.MaxDailyBudget > 0 && constraints.MinDailyBudget > constraints.MaxDailyBudget {
		result.Violations = append(result.Violations, Violation{
			Type:         ViolationConflicting,
			Message:      fmt.Sprintf("global min daily budget %.2f exceeds global max daily budget %.2f", constraints.MinDailyBudget, constraints.MaxDailyBudget),
			SuggestedFix: "align the global daily budget bounds",
		})
	}

	if totalMin > constraints.TotalBudget {
		result.Violations = append(result.Violations, Violation{
			Type:         ViolationInfeasible,
			Message:      fmt.Sprintf("sum of arm minimums %.2f exceeds total budget %.2f", totalMin, constraints.TotalBudget),
			SuggestedFix: fmt.Sprintf("raise the total budget to at least %.2f or lower arm minimums", totalMin),
		})
	} else if floorTotal > constraints.TotalBudget {
		result.Violations = append(result.Violations, Violation{
			Type:         ViolationInfeasible,
			Message:      fmt.Sprintf("global minimum daily budget requires %.2f across %d arms, exceeding total budget %.2f", floorTotal, len(arms), constraints.TotalBudget),
			SuggestedFix: "lower the global minimum daily budget or raise the total budget",
		})
	}

	if len(arms) > 0 && totalMax < constraints.TotalBudget {
		result.Warnings = append(result.Warnings, Warning{
			Type:    WarningSuboptimal,
			Message: fmt.Sprintf("sum of arm maximums %.2f is below total budget %.2f; the budget cannot be fully spent without violating caps", totalMax, constraints.TotalBudget),
			Impact:  ImpactMedium,
		})
	}

	if len(arms) > 0 && float64(highRisk) > float64(len(arms))/2 {
		result.Warnings = append(result.Warnings, Warning{
			Type:    WarningRisky,
			Message: fmt.Sprintf("%d of %d arms are flagged high-risk", highRisk, len(arms)),
			Impact:  ImpactHigh,
		})
	}

	result.Valid = len(result.Violations) == 0
	return result
}
