package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func setupTestDB(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateExperiment(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	exp, err := s.CreateExperiment(ctx, "headline-q3", []string{"control", "urgency", "social-proof"}, "signup")
	if err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	if exp.Name != "headline-q3" {
		t.Errorf("got Name %s, want headline-q3", exp.Name)
	}
	if len(exp.Arms) != 3 {
		t.Errorf("got %d arms, want 3", len(exp.Arms))
	}
	if exp.State != store.StateRunning {
		t.Errorf("got State %s, want running", exp.State)
	}
	if exp.ID == "" {
		t.Error("expected a generated ID")
	}
	if exp.Winner != nil {
		t.Error("a fresh experiment should have no winner")
	}
}

func TestCreateExperiment_TooFewArms(t *testing.T) {
	s := setupTestDB(t)

	if _, err := s.CreateExperiment(context.Background(), "solo", []string{"control"}, ""); err == nil {
		t.Error("expected an error for a single-arm experiment")
	}
}

func TestCreateExperiment_DuplicateName(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "dup", []string{"a", "b"}, ""); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := s.CreateExperiment(ctx, "dup", []string{"a", "b"}, ""); err == nil {
		t.Error("expected a uniqueness error for a duplicate name")
	}
}

func TestGetExperiment_RoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, err := s.CreateExperiment(ctx, "headline-q3", []string{"control", "variant"}, "purchase")
	if err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	got, err := s.GetExperiment(ctx, "headline-q3")
	if err != nil {
		t.Fatalf("failed to get experiment: %v", err)
	}

	if got.ID != created.ID {
		t.Errorf("got ID %s, want %s", got.ID, created.ID)
	}
	if got.Goal != "purchase" {
		t.Errorf("got Goal %s, want purchase", got.Goal)
	}
	if len(got.Arms) != 2 || got.Arms[0] != "control" {
		t.Errorf("arms did not round-trip: %v", got.Arms)
	}
}

func TestGetExperiment_NotFound(t *testing.T) {
	s := setupTestDB(t)

	_, err := s.GetExperiment(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListExperiments(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		if _, err := s.CreateExperiment(ctx, name, []string{"a", "b"}, ""); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	experiments, err := s.ListExperiments(ctx)
	if err != nil {
		t.Fatalf("failed to list experiments: %v", err)
	}
	if len(experiments) != 3 {
		t.Errorf("got %d experiments, want 3", len(experiments))
	}
}

func TestUpdateExperimentState(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "exp", []string{"control", "variant"}, ""); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	winner := 1
	if err := s.UpdateExperimentState(ctx, "exp", store.StateCompleted, &winner); err != nil {
		t.Fatalf("failed to update state: %v", err)
	}

	got, err := s.GetExperiment(ctx, "exp")
	if err != nil {
		t.Fatalf("failed to get experiment: %v", err)
	}
	if got.State != store.StateCompleted {
		t.Errorf("got State %s, want completed", got.State)
	}
	if got.Winner == nil || *got.Winner != 1 {
		t.Errorf("got Winner %v, want 1", got.Winner)
	}
}

func TestUpdateExperimentState_NotFound(t *testing.T) {
	s := setupTestDB(t)

	err := s.UpdateExperimentState(context.Background(), "missing", store.StatePaused, nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRecordObservation_Totals(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "exp", []string{"control", "variant"}, ""); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	batches := []struct{ arm, successes, trials int }{
		{0, 10, 200},
		{0, 15, 300},
		{1, 40, 500},
	}
	for _, b := range batches {
		if err := s.RecordObservation(ctx, "exp", b.arm, b.successes, b.trials); err != nil {
			t.Fatalf("failed to record observation: %v", err)
		}
	}

	totals, err := s.GetArmTotals(ctx, "exp")
	if err != nil {
		t.Fatalf("failed to get totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("got %d arms with data, want 2", len(totals))
	}

	if totals[0].Arm != 0 || totals[0].Successes != 25 || totals[0].Trials != 500 {
		t.Errorf("control totals wrong: %+v", totals[0])
	}
	if totals[1].Arm != 1 || totals[1].Successes != 40 || totals[1].Trials != 500 {
		t.Errorf("variant totals wrong: %+v", totals[1])
	}
}

func TestRecordObservation_RejectsInvalidCounts(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "exp", []string{"a", "b"}, ""); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	if err := s.RecordObservation(ctx, "exp", 0, 10, 5); err == nil {
		t.Error("expected an error for successes > trials")
	}
	if err := s.RecordObservation(ctx, "exp", 0, -1, 5); err == nil {
		t.Error("expected an error for negative successes")
	}
}

func TestAllocationRun_RoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	run := &store.AllocationRun{
		Strategy:    "advanced",
		TotalBudget: decimal.NewFromFloat(1000),
		ArmIDs:      []string{"camp-a", "camp-b"},
		Amounts: []decimal.Decimal{
			decimal.NewFromFloat(633.34),
			decimal.NewFromFloat(366.66),
		},
	}

	if err := s.SaveAllocationRun(ctx, run); err != nil {
		t.Fatalf("failed to save allocation run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("SaveAllocationRun should assign an ID")
	}

	runs, err := s.ListAllocationRuns(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list allocation runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != run.ID || got.Strategy != "advanced" {
		t.Errorf("run identity did not round-trip: %+v", got)
	}
	if !got.TotalBudget.Equal(decimal.NewFromFloat(1000)) {
		t.Errorf("got total %s, want 1000", got.TotalBudget)
	}
	if len(got.Amounts) != 2 || !got.Amounts[0].Equal(decimal.NewFromFloat(633.34)) {
		t.Errorf("amounts did not round-trip: %v", got.Amounts)
	}
	if len(got.ArmIDs) != 2 || got.ArmIDs[1] != "camp-b" {
		t.Errorf("arm ids did not round-trip: %v", got.ArmIDs)
	}
}

func TestListAllocationRuns_LimitAndOrder(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		run := &store.AllocationRun{
			Strategy:    "basic",
			TotalBudget: decimal.NewFromInt(int64(100 + i)),
			ArmIDs:      []string{"a"},
			Amounts:     []decimal.Decimal{decimal.NewFromInt(int64(100 + i))},
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveAllocationRun(ctx, run); err != nil {
			t.Fatalf("failed to save run %d: %v", i, err)
		}
	}

	runs, err := s.ListAllocationRuns(ctx, 3)
	if err != nil {
		t.Fatalf("failed to list allocation runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}

	// Newest first.
	if !runs[0].TotalBudget.Equal(decimal.NewFromInt(104)) {
		t.Errorf("got first run total %s, want 104", runs[0].TotalBudget)
	}
}

func TestPriorSnapshot_Upsert(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	first := &store.PriorSnapshot{
		ArmID:    "camp-a",
		Strategy: "hierarchical_bayes",
		Payload:  []byte(`{"alpha":1}`),
	}
	if err := s.SavePriorSnapshot(ctx, first); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	second := &store.PriorSnapshot{
		ArmID:    "camp-a",
		Strategy: "informative",
		Payload:  []byte(`{"alpha":7}`),
	}
	if err := s.SavePriorSnapshot(ctx, second); err != nil {
		t.Fatalf("failed to upsert snapshot: %v", err)
	}

	got, err := s.GetPriorSnapshot(ctx, "camp-a")
	if err != nil {
		t.Fatalf("failed to get snapshot: %v", err)
	}
	if got.Strategy != "informative" {
		t.Errorf("got strategy %s, want the upserted informative", got.Strategy)
	}
	if string(got.Payload) != `{"alpha":7}` {
		t.Errorf("payload did not round-trip: %s", got.Payload)
	}
}

func TestGetPriorSnapshot_NotFound(t *testing.T) {
	s := setupTestDB(t)

	_, err := s.GetPriorSnapshot(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
