package store

import "context"

// Store defines the persistence surface for experiments, observations,
// allocation runs, and prior snapshots.
type Store interface {
	// Experiment operations
	CreateExperiment(ctx context.Context, name string, arms []string, goal string) (*Experiment, error)
	GetExperiment(ctx context.Context, name string) (*Experiment, error)
	ListExperiments(ctx context.Context) ([]*Experiment, error)
	UpdateExperimentState(ctx context.Context, name string, state ExperimentState, winner *int) error

	// Observation operations
	RecordObservation(ctx context.Context, experimentName string, arm, successes, trials int) error
	GetArmTotals(ctx context.Context, experimentName string) ([]ArmTotals, error)

	// Allocation operations
	SaveAllocationRun(ctx context.Context, run *AllocationRun) error
	ListAllocationRuns(ctx context.Context, limit int) ([]*AllocationRun, error)

	// Prior snapshot operations
	SavePriorSnapshot(ctx context.Context, snap *PriorSnapshot) error
	GetPriorSnapshot(ctx context.Context, armID string) (*PriorSnapshot, error)

	// Lifecycle
	Close() error
}
