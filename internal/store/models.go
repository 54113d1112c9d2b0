package store

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExperimentState string

const (
	StateRunning   ExperimentState = "running"
	StatePaused    ExperimentState = "paused"
	StateCompleted ExperimentState = "completed"
)

// Experiment is a registered A/B comparison between a control arm and one
// or more variants. Arm index 0 is always the control.
type Experiment struct {
	ID        string
	Name      string
	Arms      []string // decoded from JSON; Arms[0] is the control
	Goal      string   // optional description of what a success means
	State     ExperimentState
	Winner    *int // arm index, set when completed
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Observation is one recorded batch of outcome counts for an arm.
type Observation struct {
	ID             int64
	ExperimentName string
	Arm            int
	Successes      int
	Trials         int
	CreatedAt      time.Time
}

// ArmTotals is the accumulated outcome counts for one arm.
type ArmTotals struct {
	Arm       int
	Successes int
	Trials    int
}

// AllocationRun is a persisted budget-projection result. Amounts are
// cent-exact decimals as produced by budget.RoundToCents.
type AllocationRun struct {
	ID          string // uuid
	Strategy    string
	TotalBudget decimal.Decimal
	ArmIDs      []string
	Amounts     []decimal.Decimal
	CreatedAt   time.Time
}

// PriorSnapshot is the serialized prior distribution for one arm at a
// point in time. Payload holds the priors.Distribution JSON.
type PriorSnapshot struct {
	ArmID     string
	Strategy  string
	Payload   []byte
	UpdatedAt time.Time
}
