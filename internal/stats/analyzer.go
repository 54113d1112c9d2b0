// Package stats implements frequentist and Bayesian A/B comparison of two
// rate metrics, sample-size and power formulas, and the early-stopping
// policy used to decide when an experiment should conclude.
package stats

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/littlebearapps/seo-ads-expert/internal/dist"
)

// MetricData holds one arm's outcome counts over a period.
type MetricData struct {
	Successes int `json:"successes"`
	Trials    int `json:"trials"`
}

// Rate returns successes/trials, defaulting to 0 when there are no trials.
func (m MetricData) Rate() float64 {
	if m.Trials == 0 {
		return 0
	}
	return float64(m.Successes) / float64(m.Trials)
}

// Recommendation is the verdict of a comparison. It is a total function of
// the inputs: every comparison yields exactly one of these values.
type Recommendation string

const (
	RecWinner       Recommendation = "winner"
	RecLoser        Recommendation = "loser"
	RecContinue     Recommendation = "continue"
	RecStopFutility Recommendation = "stop_futility"
)

// EffectSize classifies the magnitude of an observed relative uplift.
type EffectSize string

const (
	EffectSmall  EffectSize = "small"
	EffectMedium EffectSize = "medium"
	EffectLarge  EffectSize = "large"
)

// TestResult is the outcome of a frequentist two-proportion z-test.
type TestResult struct {
	PValue             float64        `json:"p_value"`
	Significant        bool           `json:"significant"`
	Uplift             float64        `json:"uplift"`              // relative % change vs control
	AbsoluteUplift     float64        `json:"absolute_uplift"`     // difference in rates
	ConfidenceInterval [2]float64     `json:"confidence_interval"` // percent, on the absolute difference
	SampleSizeAdequate bool           `json:"sample_size_adequate"`
	Recommendation     Recommendation `json:"recommendation"`
	TestType           string         `json:"test_type"`
	ConfidenceLevel    float64        `json:"confidence_level"`
	Power              float64        `json:"power"`
	Effect             EffectSize     `json:"effect"`
}

// BayesianResult is the outcome of a Monte Carlo Beta-posterior comparison.
type BayesianResult struct {
	ProbabilityVariantBetter float64        `json:"probability_variant_better"`
	ExpectedLift             float64        `json:"expected_lift"`     // relative, as a fraction
	CredibleInterval         [2]float64     `json:"credible_interval"` // 95%, relative fraction
	Recommendation           Recommendation `json:"recommendation"`
	PriorAlpha               float64        `json:"alpha"`
	PriorBeta                float64        `json:"beta"`
	Posterior                string         `json:"posterior"` // "uniform" or "informative"
}

// StopReason explains why an experiment should stop early.
type StopReason string

const (
	StopFutility   StopReason = "futility"
	StopSuccess    StopReason = "success"
	StopHarm       StopReason = "harm"
	StopSampleSize StopReason = "sample_size"
)

// EarlyStoppingResult is the verdict of the sequential stopping policy.
type EarlyStoppingResult struct {
	Stop           bool       `json:"stop"`
	Reason         StopReason `json:"reason,omitempty"`
	Confidence     float64    `json:"confidence"`
	Recommendation string     `json:"recommendation"`
}

const (
	// adequacyMDE is the relative effect used when judging whether the
	// observed sample is big enough to trust a verdict.
	adequacyMDE = 0.1

	defaultDraws = 10000
)

// Analyzer runs the statistical comparisons. It holds no mutable state
// between calls; given its random source every method is referentially
// transparent, so independent inputs may be analyzed concurrently.
type Analyzer struct {
	sampler *dist.Sampler
	logger  *zap.Logger
	draws   int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithSampler injects a seeded sampler so Monte Carlo results are
// reproducible in tests.
func WithSampler(s *dist.Sampler) Option {
	return func(a *Analyzer) { a.sampler = s }
}

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithDraws overrides the Monte Carlo draw count.
func WithDraws(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.draws = n
		}
	}
}

// NewAnalyzer builds an Analyzer. Without options it uses a time-seeded
// sampler and a no-op logger.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		sampler: dist.NewSampler(nil),
		logger:  zap.NewNop(),
		draws:   defaultDraws,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TwoProportionTest compares a variant against a control with a pooled
// two-proportion z-test at the given confidence level. The confidence
// interval on the absolute difference uses the unpooled standard error.
// An out-of-range confidence level propagates a domain error.
func (a *Analyzer) TwoProportionTest(control, variant MetricData, confidenceLevel float64) (TestResult, error) {
	alpha := 1 - confidenceLevel
	zCrit, err := dist.NormalInverse(1 - alpha/2)
	if err != nil {
		return TestResult{}, fmt.Errorf("invalid confidence level %v: %w", confidenceLevel, err)
	}

	pC := control.Rate()
	pV := variant.Rate()
	nC := float64(control.Trials)
	nV := float64(variant.Trials)

	absoluteUplift := pV - pC

	var pValue = 1.0
	if control.Trials > 0 && variant.Trials > 0 {
		pooled := float64(control.Successes+variant.Successes) / (nC + nV)
		se := math.Sqrt(pooled * (1 - pooled) * (1/nC + 1/nV))
		if se > 0 {
			z := absoluteUplift / se
			pValue = 2 * (1 - dist.NormalCDF(math.Abs(z)))
		}
	}

	// Unpooled SE for the interval on the absolute difference.
	var ciLo, ciHi float64
	if control.Trials > 0 && variant.Trials > 0 {
		seUnpooled := math.Sqrt(pC*(1-pC)/nC + pV*(1-pV)/nV)
		ciLo = (absoluteUplift - zCrit*seUnpooled) * 100
		ciHi = (absoluteUplift + zCrit*seUnpooled) * 100
	}

	uplift := 0.0
	if pC > 0 {
		uplift = absoluteUplift / pC * 100
	}

	effect := EffectLarge
	switch {
	case math.Abs(uplift) < 5:
		effect = EffectSmall
	case math.Abs(uplift) < 20:
		effect = EffectMedium
	}

	required, err := a.SampleSize(pC, adequacyMDE, 0.8, alpha)
	if err != nil {
		// Degenerate or near-saturated baseline: no finite sample makes
		// the test adequate, treat as not adequate rather than failing.
		required = math.MaxInt32
	}
	minN := control.Trials
	if variant.Trials < minN {
		minN = variant.Trials
	}
	adequate := minN >= required

	significant := pValue < alpha

	rec := RecContinue
	switch {
	case !adequate:
		rec = RecContinue
	case significant && uplift > 0:
		rec = RecWinner
	case significant && uplift < 0:
		rec = RecLoser
	case math.Abs(uplift) < 1:
		rec = RecStopFutility
	}

	result := TestResult{
		PValue:             pValue,
		Significant:        significant,
		Uplift:             uplift,
		AbsoluteUplift:     absoluteUplift,
		ConfidenceInterval: [2]float64{ciLo, ciHi},
		SampleSizeAdequate: adequate,
		Recommendation:     rec,
		TestType:           "two_proportion_z",
		ConfidenceLevel:    confidenceLevel,
		Power:              a.Power(pC, absoluteUplift, minN, alpha),
		Effect:             effect,
	}

	a.logger.Debug("two-proportion test",
		zap.Float64("p_value", pValue),
		zap.Float64("uplift_pct", uplift),
		zap.String("recommendation", string(rec)))

	return result, nil
}

// BayesianAB compares Beta posteriors for the two arms by paired Monte
// Carlo sampling. The posterior for each arm is
// Beta(prior+successes, prior+trials-successes).
func (a *Analyzer) BayesianAB(control, variant MetricData, priorAlpha, priorBeta float64) BayesianResult {
	if priorAlpha <= 0 {
		priorAlpha = 1
	}
	if priorBeta <= 0 {
		priorBeta = 1
	}

	alphaC := priorAlpha + float64(control.Successes)
	betaC := priorBeta + float64(control.Trials-control.Successes)
	alphaV := priorAlpha + float64(variant.Successes)
	betaV := priorBeta + float64(variant.Trials-variant.Successes)

	wins := 0
	lifts := make([]float64, 0, a.draws)
	for i := 0; i < a.draws; i++ {
		sc := a.sampler.Beta(alphaC, betaC)
		sv := a.sampler.Beta(alphaV, betaV)
		if sv > sc {
			wins++
		}
		if sc > 0 {
			lifts = append(lifts, (sv-sc)/sc)
		}
	}

	probBetter := float64(wins) / float64(a.draws)

	var expectedLift, lo, hi float64
	if len(lifts) > 0 {
		expectedLift = stat.Mean(lifts, nil)
		sort.Float64s(lifts)
		lo = stat.Quantile(0.025, stat.Empirical, lifts, nil)
		hi = stat.Quantile(0.975, stat.Empirical, lifts, nil)
	}

	rec := RecContinue
	switch {
	case probBetter > 0.95:
		rec = RecWinner
	case probBetter < 0.05:
		rec = RecLoser
	}

	posterior := "informative"
	if priorAlpha == 1 && priorBeta == 1 {
		posterior = "uniform"
	}

	a.logger.Debug("bayesian comparison",
		zap.Float64("p_variant_better", probBetter),
		zap.Float64("expected_lift", expectedLift),
		zap.String("recommendation", string(rec)))

	return BayesianResult{
		ProbabilityVariantBetter: probBetter,
		ExpectedLift:             expectedLift,
		CredibleInterval:         [2]float64{lo, hi},
		Recommendation:           rec,
		PriorAlpha:               priorAlpha,
		PriorBeta:                priorBeta,
		Posterior:                posterior,
	}
}

// SampleSize returns the per-arm sample size required to detect a relative
// MDE over the baseline rate with the given power and significance level,
// using the standard two-proportion z-test formula. The result rounds up.
func (a *Analyzer) SampleSize(baselineRate, relativeMDE, power, significance float64) (int, error) {
	p1 := baselineRate
	p2 := p1 * (1 + relativeMDE)
	if p2 <= 0 || p2 >= 1 {
		return 0, fmt.Errorf("baseline rate %v with effect %v implies an out-of-range variant rate %v", baselineRate, relativeMDE, p2)
	}

	zAlpha, err := dist.NormalInverse(1 - significance/2)
	if err != nil {
		return 0, fmt.Errorf("invalid significance %v: %w", significance, err)
	}
	zBeta, err := dist.NormalInverse(power)
	if err != nil {
		return 0, fmt.Errorf("invalid power %v: %w", power, err)
	}

	delta := p2 - p1
	if delta == 0 {
		return 0, fmt.Errorf("minimum detectable effect must be non-zero")
	}

	numerator := zAlpha*math.Sqrt(2*p1*(1-p1)) + zBeta*math.Sqrt(p1*(1-p1)+p2*(1-p2))
	n := (numerator * numerator) / (delta * delta)

	return int(math.Ceil(n)), nil
}

// ShouldStopEarly runs the sequential stopping policy: stop on decisive
// evidence of benefit, harm, or indifference, with a sample-size safety
// valve once combined traffic exceeds 4x the required sample.
func (a *Analyzer) ShouldStopEarly(control, variant MetricData, targetConfidence, minimumEffect float64) (EarlyStoppingResult, error) {
	test, err := a.TwoProportionTest(control, variant, targetConfidence)
	if err != nil {
		return EarlyStoppingResult{}, err
	}

	confidence := 1 - test.PValue

	if test.Significant && test.Uplift > minimumEffect*100 {
		return EarlyStoppingResult{
			Stop:           true,
			Reason:         StopSuccess,
			Confidence:     confidence,
			Recommendation: fmt.Sprintf("variant shows a significant %.1f%% uplift; promote it", test.Uplift),
		}, nil
	}
	if test.Significant && test.Uplift < -minimumEffect*100 {
		return EarlyStoppingResult{
			Stop:           true,
			Reason:         StopHarm,
			Confidence:     confidence,
			Recommendation: fmt.Sprintf("variant shows a significant %.1f%% drop; stop it", test.Uplift),
		}, nil
	}

	bayes := a.BayesianAB(control, variant, 1, 1)
	ambiguous := bayes.ProbabilityVariantBetter > 0.3 && bayes.ProbabilityVariantBetter < 0.7
	if math.Abs(bayes.ExpectedLift) < minimumEffect && ambiguous {
		return EarlyStoppingResult{
			Stop:           true,
			Reason:         StopFutility,
			Confidence:     bayes.ProbabilityVariantBetter,
			Recommendation: "no meaningful difference is emerging; stop for futility",
		}, nil
	}

	required, err := a.SampleSize(control.Rate(), minimumEffect, 0.8, 1-targetConfidence)
	if err == nil && control.Trials+variant.Trials > 4*required {
		return EarlyStoppingResult{
			Stop:           true,
			Reason:         StopSampleSize,
			Confidence:     confidence,
			Recommendation: "sample budget exhausted without a decisive result; stop the experiment",
		}, nil
	}

	return EarlyStoppingResult{
		Stop:           false,
		Confidence:     confidence,
		Recommendation: "keep collecting data",
	}, nil
}

// Power estimates achieved power for detecting an absolute effect over a
// baseline rate at the given per-arm sample size, using the pooled-SE
// approximation. Degenerate inputs yield 0.
func (a *Analyzer) Power(baselineRate, absoluteEffect float64, sampleSize int, alpha float64) float64 {
	if sampleSize <= 0 || absoluteEffect == 0 {
		return 0
	}

	p1 := baselineRate
	p2 := p1 + absoluteEffect
	if p2 < 0 {
		p2 = 0
	}
	if p2 > 1 {
		p2 = 1
	}

	n := float64(sampleSize)
	pBar := (p1 + p2) / 2

	se0 := math.Sqrt(2 * pBar * (1 - pBar) / n)
	se1 := math.Sqrt(p1*(1-p1)/n + p2*(1-p2)/n)
	if se0 == 0 || se1 == 0 {
		return 0
	}

	zAlpha, err := dist.NormalInverse(1 - alpha/2)
	if err != nil {
		return 0
	}

	z := (math.Abs(absoluteEffect) - zAlpha*se0) / se1
	return dist.NormalCDF(z)
}
