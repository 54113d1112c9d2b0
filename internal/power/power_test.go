package power_test

import (
	"testing"

	"github.com/littlebearapps/seo-ads-expert/internal/dist"
	"github.com/littlebearapps/seo-ads-expert/internal/power"
	"github.com/littlebearapps/seo-ads-expert/internal/stats"
)

func newAnalyzer(dailyImpressions float64) *power.Analyzer {
	s := stats.NewAnalyzer(stats.WithSampler(dist.NewSampler(dist.NewSource(1))))
	return power.NewAnalyzer(s, dailyImpressions)
}

func TestPlanExperiment_Basic(t *testing.T) {
	a := newAnalyzer(20000)

	plan, err := a.PlanExperiment(0.05, 0.10, 0.95, 0.80)
	if err != nil {
		t.Fatalf("PlanExperiment failed: %v", err)
	}

	if plan.SampleSizePerArm < 28000 || plan.SampleSizePerArm > 33000 {
		t.Errorf("got %d per arm, want ~30000", plan.SampleSizePerArm)
	}
	if plan.TotalSampleSize != 2*plan.SampleSizePerArm {
		t.Errorf("total %d is not twice the per-arm size %d", plan.TotalSampleSize, plan.SampleSizePerArm)
	}

	// 20000 impressions/day at a 5% baseline is 1000 eligible visits/day.
	if plan.DailyTraffic != 1000 {
		t.Errorf("got daily traffic %v, want 1000", plan.DailyTraffic)
	}
	if plan.EstimatedDays < 56 || plan.EstimatedDays > 66 {
		t.Errorf("got %d estimated days, want ~61", plan.EstimatedDays)
	}
	if len(plan.Recommendations) == 0 {
		t.Error("expected at least one recommendation")
	}
}

func TestPlanExperiment_ZeroEffect(t *testing.T) {
	a := newAnalyzer(20000)

	if _, err := a.PlanExperiment(0.05, 0, 0.95, 0.80); err == nil {
		t.Error("expected an error for a zero minimum detectable effect")
	}
}

func TestCheckPower_AlreadyPowered(t *testing.T) {
	a := newAnalyzer(20000)

	// A 20% relative lift at 100k per arm is detected with power ~1.
	control := stats.MetricData{Successes: 5000, Trials: 100000}
	variant := stats.MetricData{Successes: 6000, Trials: 100000}

	check, err := a.CheckPower(control, variant, 0.80)
	if err != nil {
		t.Fatalf("CheckPower failed: %v", err)
	}

	if check.AchievedPower < 0.80 {
		t.Errorf("got achieved power %v, want >= 0.80", check.AchievedPower)
	}
	if check.Recommendation != power.RecContinue {
		t.Errorf("got recommendation %s, want continue", check.Recommendation)
	}
	if check.AdditionalSamples != 0 {
		t.Errorf("an already-powered experiment needs no extra samples, got %d", check.AdditionalSamples)
	}
}

func TestCheckPower_ExtendWhenClose(t *testing.T) {
	// High traffic: the shortfall can be covered within the extension limit.
	a := newAnalyzer(200000)

	control := stats.MetricData{Successes: 500, Trials: 10000}
	variant := stats.MetricData{Successes: 540, Trials: 10000}

	check, err := a.CheckPower(control, variant, 0.80)
	if err != nil {
		t.Fatalf("CheckPower failed: %v", err)
	}

	if check.AchievedPower >= 0.80 {
		t.Fatalf("test setup broken: achieved power %v should be under target", check.AchievedPower)
	}
	if check.AdditionalSamples <= 0 {
		t.Error("expected a positive sample shortfall")
	}
	if check.Recommendation != power.RecExtend {
		t.Errorf("got recommendation %s, want extend (%d extra days)", check.Recommendation, check.AdditionalDays)
	}
}

func TestCheckPower_StopWhenHopelesslyUnderpowered(t *testing.T) {
	// Low traffic: covering the shortfall would take months.
	a := newAnalyzer(10000)

	control := stats.MetricData{Successes: 500, Trials: 10000}
	variant := stats.MetricData{Successes: 540, Trials: 10000}

	check, err := a.CheckPower(control, variant, 0.80)
	if err != nil {
		t.Fatalf("CheckPower failed: %v", err)
	}

	if check.Recommendation != power.RecStopUnderpowered {
		t.Errorf("got recommendation %s, want stop_underpowered", check.Recommendation)
	}
}

func TestCheckPower_NoObservableEffect(t *testing.T) {
	a := newAnalyzer(20000)

	data := stats.MetricData{Successes: 50, Trials: 1000}
	check, err := a.CheckPower(data, data, 0.80)
	if err != nil {
		t.Fatalf("CheckPower failed: %v", err)
	}

	if check.ObservedEffect != 0 {
		t.Errorf("got observed effect %v, want 0", check.ObservedEffect)
	}
	if check.Recommendation != power.RecStopUnderpowered {
		t.Errorf("got recommendation %s, want stop_underpowered for a zero effect", check.Recommendation)
	}
}
