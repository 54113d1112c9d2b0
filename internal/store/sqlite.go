package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    arms TEXT NOT NULL,
    goal TEXT,
    state TEXT NOT NULL DEFAULT 'running',
    winner_arm INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_name ON experiments(name);
CREATE INDEX IF NOT EXISTS idx_experiments_state ON experiments(state);

CREATE TABLE IF NOT EXISTS observations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_name TEXT NOT NULL,
    arm INTEGER NOT NULL,
    successes INTEGER NOT NULL,
    trials INTEGER NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (experiment_name) REFERENCES experiments(name)
);

CREATE INDEX IF NOT EXISTS idx_observations_experiment ON observations(experiment_name);
CREATE INDEX IF NOT EXISTS idx_observations_experiment_arm ON observations(experiment_name, arm);

CREATE TABLE IF NOT EXISTS allocation_runs (
    id TEXT PRIMARY KEY,
    strategy TEXT NOT NULL,
    total_budget TEXT NOT NULL,
    arm_ids TEXT NOT NULL,
    amounts TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_allocation_runs_created ON allocation_runs(created_at);

CREATE TABLE IF NOT EXISTS prior_snapshots (
    arm_id TEXT PRIMARY KEY,
    strategy TEXT NOT NULL,
    payload TEXT NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateExperiment(ctx context.Context, name string, arms []string, goal string) (*Experiment, error) {
	if len(arms) < 2 {
		return nil, fmt.Errorf("an experiment needs at least a control and one variant, got %d arms", len(arms))
	}

	armsJSON, err := json.Marshal(arms)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arms: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, arms, goal, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'running', ?, ?)`,
		id, name, string(armsJSON), goal, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert experiment: %w", err)
	}

	return &Experiment{
		ID:        id,
		Name:      name,
		Arms:      arms,
		Goal:      goal,
		State:     StateRunning,
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}, nil
}

func (s *SQLiteStore) GetExperiment(ctx context.Context, name string) (*Experiment, error) {
	var exp Experiment
	var armsJSON string
	var winner sql.NullInt64
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, arms, goal, state, winner_arm, created_at, updated_at
		 FROM experiments WHERE name = ?`, name,
	).Scan(&exp.ID, &exp.Name, &armsJSON, &exp.Goal, &exp.State, &winner, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query experiment: %w", err)
	}

	if err := json.Unmarshal([]byte(armsJSON), &exp.Arms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arms: %w", err)
	}
	if winner.Valid {
		w := int(winner.Int64)
		exp.Winner = &w
	}
	exp.CreatedAt = time.Unix(createdAt, 0)
	exp.UpdatedAt = time.Unix(updatedAt, 0)

	return &exp, nil
}

func (s *SQLiteStore) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, arms, goal, state, winner_arm, created_at, updated_at
		 FROM experiments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*Experiment
	for rows.Next() {
		var exp Experiment
		var armsJSON string
		var winner sql.NullInt64
		var createdAt, updatedAt int64

		if err := rows.Scan(&exp.ID, &exp.Name, &armsJSON, &exp.Goal, &exp.State, &winner, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		if err := json.Unmarshal([]byte(armsJSON), &exp.Arms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal arms: %w", err)
		}
		if winner.Valid {
			w := int(winner.Int64)
			exp.Winner = &w
		}
		exp.CreatedAt = time.Unix(createdAt, 0)
		exp.UpdatedAt = time.Unix(updatedAt, 0)
		experiments = append(experiments, &exp)
	}

	return experiments, rows.Err()
}

func (s *SQLiteStore) UpdateExperimentState(ctx context.Context, name string, state ExperimentState, winner *int) error {
	var winnerVal sql.NullInt64
	if winner != nil {
		winnerVal = sql.NullInt64{Int64: int64(*winner), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE experiments SET state = ?, winner_arm = ?, updated_at = ? WHERE name = ?`,
		state, winnerVal, time.Now().Unix(), name)
	if err != nil {
		return fmt.Errorf("failed to update experiment state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecordObservation(ctx context.Context, experimentName string, arm, successes, trials int) error {
	if successes < 0 || trials < 0 || successes > trials {
		return fmt.Errorf("invalid observation: %d successes over %d trials", successes, trials)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations (experiment_name, arm, successes, trials, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		experimentName, arm, successes, trials, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record observation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetArmTotals(ctx context.Context, experimentName string) ([]ArmTotals, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT arm, COALESCE(SUM(successes), 0), COALESCE(SUM(trials), 0)
		 FROM observations WHERE experiment_name = ? GROUP BY arm ORDER BY arm`,
		experimentName)
	if err != nil {
		return nil, fmt.Errorf("failed to query arm totals: %w", err)
	}
	defer rows.Close()

	var totals []ArmTotals
	for rows.Next() {
		var t ArmTotals
		if err := rows.Scan(&t.Arm, &t.Successes, &t.Trials); err != nil {
			return nil, fmt.Errorf("failed to scan arm totals: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (s *SQLiteStore) SaveAllocationRun(ctx context.Context, run *AllocationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	armsJSON, err := json.Marshal(run.ArmIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal arm ids: %w", err)
	}
	amounts := make([]string, len(run.Amounts))
	for i, a := range run.Amounts {
		amounts[i] = a.String()
	}
	amountsJSON, err := json.Marshal(amounts)
	if err != nil {
		return fmt.Errorf("failed to marshal amounts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO allocation_runs (id, strategy, total_budget, arm_ids, amounts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.TotalBudget.String(), string(armsJSON), string(amountsJSON), run.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert allocation run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAllocationRuns(ctx context.Context, limit int) ([]*AllocationRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, total_budget, arm_ids, amounts, created_at
		 FROM allocation_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocation runs: %w", err)
	}
	defer rows.Close()

	var runs []*AllocationRun
	for rows.Next() {
		var run AllocationRun
		var total, armsJSON, amountsJSON string
		var createdAt int64

		if err := rows.Scan(&run.ID, &run.Strategy, &total, &armsJSON, &amountsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation run: %w", err)
		}

		run.TotalBudget, err = decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total budget %q: %w", total, err)
		}
		if err := json.Unmarshal([]byte(armsJSON), &run.ArmIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal arm ids: %w", err)
		}
		var amounts []string
		if err := json.Unmarshal([]byte(amountsJSON), &amounts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal amounts: %w", err)
		}
		run.Amounts = make([]decimal.Decimal, len(amounts))
		for i, a := range amounts {
			run.Amounts[i], err = decimal.NewFromString(a)
			if err != nil {
				return nil, fmt.Errorf("failed to parse amount %q: %w", a, err)
			}
		}
		run.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) SavePriorSnapshot(ctx context.Context, snap *PriorSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prior_snapshots (arm_id, strategy, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(arm_id) DO UPDATE SET strategy = excluded.strategy,
		     payload = excluded.payload, updated_at = excluded.updated_at`,
		snap.ArmID, snap.Strategy, string(snap.Payload), snap.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save prior snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPriorSnapshot(ctx context.Context, armID string) (*PriorSnapshot, error) {
	var snap PriorSnapshot
	var payload string
	var updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT arm_id, strategy, payload, updated_at FROM prior_snapshots WHERE arm_id = ?`,
		armID,
	).Scan(&snap.ArmID, &snap.Strategy, &payload, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query prior snapshot: %w", err)
	}

	snap.Payload = []byte(payload)
	snap.UpdatedAt = time.Unix(updatedAt, 0)
	return &snap, nil
}
