package priors

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// domainPrior is a fixed piece of domain knowledge about a campaign
// vertical: its typical conversion rate, average conversion value, and how
// many clicks of evidence that knowledge is worth.
type domainPrior struct {
	conversionRate float64
	averageValue   float64
	strength       float64
}

// Defaults per vertical. Search converts best, display and video are
// low-intent, shopping sits in between.
var domainDefaults = map[string]domainPrior{
	"search":   {conversionRate: 0.035, averageValue: 120, strength: 200},
	"display":  {conversionRate: 0.008, averageValue: 60, strength: 150},
	"shopping": {conversionRate: 0.022, averageValue: 90, strength: 180},
	"video":    {conversionRate: 0.006, averageValue: 45, strength: 120},
}

var domainFallback = domainPrior{conversionRate: 0.02, averageValue: defaultAverageValue, strength: 100}

// Informative assigns priors from fixed domain knowledge tables keyed by
// category, adjusted per arm by budget tier and account age. New evidence
// is blended in through a trust factor: domain knowledge dominates until
// enough real data accumulates.
type Informative struct {
	logger *zap.Logger

	// trust weights the domain prior against new evidence in UpdatePriors.
	trust float64
}

// InformativeOption configures an Informative strategy.
type InformativeOption func(*Informative)

// WithInformativeLogger attaches a structured logger.
func WithInformativeLogger(l *zap.Logger) InformativeOption {
	return func(s *Informative) { s.logger = l }
}

// WithTrust overrides the domain-knowledge trust factor in (0, 1).
func WithTrust(trust float64) InformativeOption {
	return func(s *Informative) {
		if trust > 0 && trust < 1 {
			s.trust = trust
		}
	}
}

// NewInformative builds the strategy with a 0.7 trust factor by default.
func NewInformative(opts ...InformativeOption) *Informative {
	s := &Informative{
		logger: zap.NewNop(),
		trust:  0.7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metadata implements Strategy.
func (s *Informative) Metadata() Metadata {
	return Metadata{
		Name:        "informative",
		Description: "fixed domain-knowledge priors per vertical, trust-blended with incoming data",
		Assumptions: []string{
			"vertical benchmarks transfer across accounts",
			"budget tier and account age correlate with prior reliability",
		},
	}
}

// ComputePriors looks up each arm's vertical in the domain table and
// adjusts the prior strength by a budget-tier multiplier (within ±20%) and
// an age multiplier capped at 1.5x. Historical data is ignored: this
// strategy exists for accounts without a usable history.
func (s *Informative) ComputePriors(arms []Arm, historical *HistoricalData) ([]Distribution, error) {
	now := time.Now()

	out := make([]Distribution, 0, len(arms))
	for _, arm := range arms {
		dp, ok := domainDefaults[arm.Category]
		if !ok {
			dp = domainFallback
		}

		strength := dp.strength * budgetTierMultiplier(arm.DailyBudget) * ageMultiplier(arm.AgeDays)

		rateParams := betaFromMeanStrength(dp.conversionRate, strength)
		rateParams.Confidence = s.trust
		valueParams := gammaFromMeanStrength(dp.averageValue, strength*dp.conversionRate)
		valueParams.Confidence = s.trust

		out = append(out, Distribution{
			ArmID:           arm.ID,
			ConversionRate:  rateParams,
			ConversionValue: valueParams,
			SampleSize:      0,
			LastUpdated:     now,
			Source:          SourceInformative,
			Reliability:     s.trust,
		})

		s.logger.Debug("assigned informative prior",
			zap.String("arm", arm.ID),
			zap.String("category", arm.Category),
			zap.Float64("strength", strength))
	}

	return out, nil
}

// budgetTierMultiplier nudges prior strength by up to ±20%: bigger budgets
// usually mean better-managed campaigns whose vertical benchmarks hold.
func budgetTierMultiplier(dailyBudget float64) float64 {
	switch {
	case dailyBudget >= 100:
		return 1.2
	case dailyBudget > 0 && dailyBudget <= 10:
		return 0.8
	default:
		return 1.0
	}
}

// ageMultiplier grows prior strength with account age, capped at 1.5x.
func ageMultiplier(ageDays int) float64 {
	if ageDays <= 0 {
		return 1.0
	}
	return math.Min(1.5, 1.0+float64(ageDays)/365.0)
}

// UpdatePriors blends new data into the domain prior using the trust
// factor: trust weights the prior, and (1-trust) scaled by a data-volume
// weight (saturating at 1000 samples) weights the new evidence. Returns
// new distributions; inputs are not mutated.
func (s *Informative) UpdatePriors(priors []Distribution, newData []Observation) []Distribution {
	byArm := make(map[string][]Observation)
	for _, obs := range newData {
		byArm[obs.ArmID] = append(byArm[obs.ArmID], obs)
	}

	now := time.Now()
	out := make([]Distribution, len(priors))
	for i, prior := range priors {
		next := prior
		for _, obs := range byArm[prior.ArmID] {
			next = s.blend(next, obs, now)
		}
		out[i] = next
	}
	return out
}

func (s *Informative) blend(prior Distribution, obs Observation, now time.Time) Distribution {
	if obs.Clicks <= 0 {
		return prior
	}

	dataWeight := math.Min(1, float64(prior.SampleSize+obs.Clicks)/1000.0)
	w := (1 - s.trust) * dataWeight

	obsRate := float64(obs.Conversions) / float64(obs.Clicks)
	priorMean := prior.ConversionRate.Mean()
	blendedRate := (s.trust*priorMean + w*obsRate) / (s.trust + w)

	precision := prior.ConversionRate.Alpha + prior.ConversionRate.Beta + float64(obs.Clicks)*w
	next := prior
	next.ConversionRate = betaFromMeanStrength(blendedRate, precision)

	if obs.Conversions > 0 && obs.AverageValue > 0 {
		priorValue := prior.ConversionValue.Mean()
		blendedValue := (s.trust*priorValue + w*obs.AverageValue) / (s.trust + w)
		shape := prior.ConversionValue.Shape + float64(obs.Conversions)*w
		next.ConversionValue = gammaFromMeanStrength(blendedValue, shape)
	}

	next.SampleSize = prior.SampleSize + obs.Clicks
	next.LastUpdated = now
	next.Reliability = reliability(next.SampleSize)
	next.ConversionRate.Confidence = math.Max(s.trust*(1-dataWeight), next.Reliability)
	next.ConversionValue.Confidence = next.ConversionRate.Confidence

	return next
}
