// Package power wraps the statistical analyzer for pre-experiment planning
// and in-flight power checks.
package power

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/littlebearapps/seo-ads-expert/internal/stats"
)

// extendLimitDays bounds how long an underpowered experiment is worth
// extending before recommending a stop.
const extendLimitDays = 14

// PowerRecommendation is the verdict of an in-flight power check.
type PowerRecommendation string

const (
	RecContinue         PowerRecommendation = "continue"
	RecExtend           PowerRecommendation = "extend"
	RecStopUnderpowered PowerRecommendation = "stop_underpowered"
)

// Plan describes what an experiment needs before it starts.
type Plan struct {
	SampleSizePerArm int      `json:"sample_size_per_arm"`
	TotalSampleSize  int      `json:"total_sample_size"`
	DailyTraffic     float64  `json:"daily_traffic"`
	EstimatedDays    int      `json:"estimated_days"`
	Recommendations  []string `json:"recommendations"`
}

// Check reports whether a running experiment has accumulated enough
// evidence to hit the target power.
type Check struct {
	ObservedEffect    float64             `json:"observed_effect"` // absolute rate difference
	AchievedPower     float64             `json:"achieved_power"`
	TargetPower       float64             `json:"target_power"`
	AdditionalSamples int                 `json:"additional_samples"`
	AdditionalDays    int                 `json:"additional_days"`
	Recommendation    PowerRecommendation `json:"recommendation"`
}

// Analyzer plans experiments and checks statistical power. Daily traffic is
// estimated from a caller-supplied typical daily impression count; the
// engine itself never fetches traffic data.
type Analyzer struct {
	stats            *stats.Analyzer
	logger           *zap.Logger
	dailyImpressions float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer builds a power analyzer on top of a stats analyzer.
// typicalDailyImpressions drives the duration heuristic; values <= 0
// default to 1000.
func NewAnalyzer(s *stats.Analyzer, typicalDailyImpressions float64, opts ...Option) *Analyzer {
	if s == nil {
		s = stats.NewAnalyzer()
	}
	if typicalDailyImpressions <= 0 {
		typicalDailyImpressions = 1000
	}
	a := &Analyzer{
		stats:            s,
		logger:           zap.NewNop(),
		dailyImpressions: typicalDailyImpressions,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PlanExperiment computes the sample size needed to detect the desired
// relative lift, doubles it for two arms, and estimates duration from the
// daily-traffic heuristic dailyTraffic = typicalDailyImpressions * baselineRate.
func (a *Analyzer) PlanExperiment(baselineRate, desiredRelativeLift, confidenceLevel, power float64) (Plan, error) {
	perArm, err := a.stats.SampleSize(baselineRate, desiredRelativeLift, power, 1-confidenceLevel)
	if err != nil {
		return Plan{}, fmt.Errorf("plan experiment: %w", err)
	}

	total := perArm * 2
	dailyTraffic := a.dailyImpressions * baselineRate

	days := 0
	if dailyTraffic > 0 {
		days = int(math.Ceil(float64(total) / dailyTraffic))
	}

	recs := []string{
		fmt.Sprintf("Collect at least %d samples per arm (%d total).", perArm, total),
	}
	switch {
	case days == 0:
		recs = append(recs, "Daily traffic estimate is zero; supply a realistic impression count before starting.")
	case days > 60:
		recs = append(recs, fmt.Sprintf("Estimated duration is %d days; consider a larger minimum detectable effect or more traffic.", days))
	case days < 7:
		recs = append(recs, fmt.Sprintf("Estimated duration is %d days; run at least a full week to cover weekday/weekend cycles.", days))
	default:
		recs = append(recs, fmt.Sprintf("Estimated duration is %d days at current traffic.", days))
	}

	a.logger.Info("experiment planned",
		zap.Int("per_arm", perArm),
		zap.Int("estimated_days", days))

	return Plan{
		SampleSizePerArm: perArm,
		TotalSampleSize:  total,
		DailyTraffic:     dailyTraffic,
		EstimatedDays:    days,
		Recommendations:  recs,
	}, nil
}

// CheckPower computes the currently observed effect and achieved power. If
// power is below target it estimates the extra samples and days needed and
// recommends extending (two weeks or less) or stopping as underpowered.
func (a *Analyzer) CheckPower(control, variant stats.MetricData, targetPower float64) (Check, error) {
	if targetPower <= 0 || targetPower >= 1 {
		targetPower = 0.8
	}

	observed := variant.Rate() - control.Rate()
	minN := control.Trials
	if variant.Trials < minN {
		minN = variant.Trials
	}

	achieved := a.stats.Power(control.Rate(), observed, minN, 0.05)

	check := Check{
		ObservedEffect: observed,
		AchievedPower:  achieved,
		TargetPower:    targetPower,
		Recommendation: RecContinue,
	}

	if achieved >= targetPower {
		return check, nil
	}

	// Required per-arm size for the observed relative effect.
	relative := 0.0
	if control.Rate() > 0 {
		relative = observed / control.Rate()
	}
	if relative == 0 {
		// No observable effect at all; more data cannot reach power.
		check.Recommendation = RecStopUnderpowered
		return check, nil
	}

	required, err := a.stats.SampleSize(control.Rate(), relative, targetPower, 0.05)
	if err != nil {
		return Check{}, fmt.Errorf("check power: %w", err)
	}

	extra := required - minN
	if extra < 0 {
		extra = 0
	}
	check.AdditionalSamples = extra

	dailyTraffic := a.dailyImpressions * control.Rate()
	if dailyTraffic > 0 {
		check.AdditionalDays = int(math.Ceil(float64(extra*2) / dailyTraffic))
	} else {
		check.AdditionalDays = math.MaxInt32
	}

	if check.AdditionalDays <= extendLimitDays {
		check.Recommendation = RecExtend
	} else {
		check.Recommendation = RecStopUnderpowered
	}

	a.logger.Debug("power check",
		zap.Float64("achieved", achieved),
		zap.Int("additional_days", check.AdditionalDays),
		zap.String("recommendation", string(check.Recommendation)))

	return check, nil
}
