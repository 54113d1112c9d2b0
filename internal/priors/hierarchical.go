package priors

import (
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// categoryStats are the empirical-Bayes hyperpriors for one campaign
// category, aggregated from every arm's performance in that category.
type categoryStats struct {
	rateAlpha   float64
	rateBeta    float64
	rateMean    float64
	valueShape  float64
	valueRate   float64
	valueMean   float64
	clicks      int
	conversions int
}

// HierarchicalBayes shares information across a category: each arm's noisy
// empirical estimate is shrunk toward the category-level estimate, with
// more shrinkage when the arm has little data of its own.
type HierarchicalBayes struct {
	logger *zap.Logger

	// regularization scales how much category evidence leaks into each
	// arm's effective sample size.
	regularization float64
}

// HierarchicalOption configures a HierarchicalBayes strategy.
type HierarchicalOption func(*HierarchicalBayes)

// WithHierarchicalLogger attaches a structured logger.
func WithHierarchicalLogger(l *zap.Logger) HierarchicalOption {
	return func(h *HierarchicalBayes) { h.logger = l }
}

// WithRegularization overrides the category regularization strength.
func WithRegularization(strength float64) HierarchicalOption {
	return func(h *HierarchicalBayes) {
		if strength > 0 {
			h.regularization = strength
		}
	}
}

// NewHierarchicalBayes builds the strategy with a 0.1 regularization
// strength by default.
func NewHierarchicalBayes(opts ...HierarchicalOption) *HierarchicalBayes {
	h := &HierarchicalBayes{
		logger:         zap.NewNop(),
		regularization: 0.1,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Metadata implements Strategy.
func (h *HierarchicalBayes) Metadata() Metadata {
	return Metadata{
		Name:        "hierarchical_bayes",
		Description: "empirical-Bayes priors with shrinkage toward category-level hyperpriors",
		Assumptions: []string{
			"arms within a category share a common conversion-rate distribution",
			"per-period rates are exchangeable within a category",
		},
	}
}

// ComputePriors aggregates category hyperpriors by moment matching, then
// blends each arm's empirical rate with its category rate using a
// shrinkage factor driven by relative sample sizes.
func (h *HierarchicalBayes) ComputePriors(arms []Arm, historical *HistoricalData) ([]Distribution, error) {
	now := time.Now()

	histByArm := make(map[string]ArmHistory)
	if historical != nil {
		for _, ah := range historical.Arms {
			histByArm[ah.ID] = ah
		}
	}

	categories := h.categoryHyperpriors(historical)

	out := make([]Distribution, 0, len(arms))
	for _, arm := range arms {
		hist, hasHist := histByArm[arm.ID]
		cat, hasCat := categories[arm.Category]

		armClicks, armConvs := 0, 0
		armRevenue := 0.0
		if hasHist {
			for _, p := range hist.Performance {
				armClicks += p.Clicks
				armConvs += p.Conversions
				armRevenue += p.Revenue
			}
		}

		if armClicks == 0 {
			if hasCat {
				out = append(out, h.categorySeeded(arm.ID, cat, now))
			} else {
				out = append(out, noninformative(arm.ID, now))
			}
			continue
		}

		armRate := float64(armConvs) / float64(armClicks)
		armValue := 0.0
		if armConvs > 0 {
			armValue = armRevenue / float64(armConvs)
		}

		// Shrinkage toward the category: arms with little data of their
		// own lean on the category estimate.
		catClicks := float64(cat.clicks)
		shrink := 0.0
		if catClicks+float64(armClicks) > 0 {
			shrink = catClicks / (catClicks + float64(armClicks))
		}

		blendedRate := shrink*cat.rateMean + (1-shrink)*armRate
		blendedValue := armValue
		if cat.valueMean > 0 {
			blendedValue = shrink*cat.valueMean + (1-shrink)*armValue
		}

		effN := float64(armClicks) + catClicks*h.regularization
		effConvs := float64(armConvs) + float64(cat.conversions)*h.regularization

		rateParams := betaFromMeanStrength(blendedRate, effN)
		rateParams.Confidence = reliability(int(effN))
		valueParams := gammaFromMeanStrength(blendedValue, effConvs)
		valueParams.Confidence = reliability(int(effConvs))

		source := SourceEmpirical
		if hasCat && shrink > 0 {
			source = SourceHierarchical
		}

		out = append(out, Distribution{
			ArmID:           arm.ID,
			ConversionRate:  rateParams,
			ConversionValue: valueParams,
			SampleSize:      armClicks,
			LastUpdated:     now,
			Source:          source,
			Reliability:     reliability(armClicks),
		})

		h.logger.Debug("computed hierarchical prior",
			zap.String("arm", arm.ID),
			zap.Float64("shrinkage", shrink),
			zap.Float64("blended_rate", blendedRate))
	}

	return out, nil
}

// categoryHyperpriors aggregates every arm's performance by category and
// moment-matches the per-period rate and value series into Beta and Gamma
// hyperpriors. Pure aggregation: the input is never mutated.
func (h *HierarchicalBayes) categoryHyperpriors(historical *HistoricalData) map[string]categoryStats {
	out := make(map[string]categoryStats)
	if historical == nil {
		return out
	}

	rates := make(map[string][]float64)
	values := make(map[string][]float64)
	clicks := make(map[string]int)
	conversions := make(map[string]int)

	for _, ah := range historical.Arms {
		for _, p := range ah.Performance {
			if p.Clicks > 0 {
				rates[ah.Category] = append(rates[ah.Category], float64(p.Conversions)/float64(p.Clicks))
			}
			if p.Conversions > 0 {
				values[ah.Category] = append(values[ah.Category], p.Revenue/float64(p.Conversions))
			}
			clicks[ah.Category] += p.Clicks
			conversions[ah.Category] += p.Conversions
		}
	}

	for category, series := range rates {
		cs := categoryStats{
			clicks:      clicks[category],
			conversions: conversions[category],
		}

		mean := stat.Mean(series, nil)
		variance := stat.Variance(series, nil)
		cs.rateMean = mean
		cs.rateAlpha, cs.rateBeta = betaMoments(mean, variance)

		if vs := values[category]; len(vs) > 0 {
			vMean := stat.Mean(vs, nil)
			vVar := stat.Variance(vs, nil)
			cs.valueMean = vMean
			cs.valueShape, cs.valueRate = gammaMoments(vMean, vVar)
		}

		out[category] = cs
	}

	return out
}

// betaMoments converts a (mean, variance) pair into Beta(alpha, beta) via
// the standard moment-matching identities, clamped to >= 1.
func betaMoments(mean, variance float64) (alpha, beta float64) {
	if mean <= 0 || mean >= 1 || variance <= 0 {
		return minAlpha, minBeta
	}
	common := mean*(1-mean)/variance - 1
	if common <= 0 {
		return minAlpha, minBeta
	}
	alpha = mean * common
	beta = (1 - mean) * common
	if alpha < minAlpha {
		alpha = minAlpha
	}
	if beta < minBeta {
		beta = minBeta
	}
	return alpha, beta
}

// gammaMoments converts a (mean, variance) pair into Gamma(shape, rate)
// via moment matching, clamped to the stability floors.
func gammaMoments(mean, variance float64) (shape, rate float64) {
	if mean <= 0 || variance <= 0 {
		return minShape, minRate
	}
	shape = mean * mean / variance
	rate = mean / variance
	if shape < minShape {
		shape = minShape
	}
	if rate < minRate {
		rate = minRate
	}
	return shape, rate
}

// categorySeeded builds a weak prior for an arm with no history of its
// own, seeded from its category hyperprior.
func (h *HierarchicalBayes) categorySeeded(armID string, cat categoryStats, now time.Time) Distribution {
	// Seed directly from the moment-matched hyperprior rather than the
	// raw category counts, so a new arm starts with category-shaped
	// uncertainty instead of category-sized certainty.
	rateParams := BetaParams{Alpha: cat.rateAlpha, Beta: cat.rateBeta, Confidence: 0.2}
	if rateParams.Alpha < minAlpha {
		rateParams.Alpha = minAlpha
	}
	if rateParams.Beta < minBeta {
		rateParams.Beta = minBeta
	}

	valueParams := GammaParams{Shape: cat.valueShape, Rate: cat.valueRate, Confidence: 0.2}
	if valueParams.Shape < minShape || valueParams.Rate < minRate {
		valueMean := cat.valueMean
		if valueMean <= 0 {
			valueMean = defaultAverageValue
		}
		valueParams = gammaFromMeanStrength(valueMean, minShape)
		valueParams.Confidence = 0.2
	}

	return Distribution{
		ArmID:           armID,
		ConversionRate:  rateParams,
		ConversionValue: valueParams,
		SampleSize:      0,
		LastUpdated:     now,
		Source:          SourceHierarchical,
		Reliability:     0,
	}
}

// UpdatePriors performs a standard conjugate Bayesian update per new
// observation and returns fresh distributions; the inputs are not mutated.
func (h *HierarchicalBayes) UpdatePriors(priors []Distribution, newData []Observation) []Distribution {
	byArm := make(map[string][]Observation)
	for _, obs := range newData {
		byArm[obs.ArmID] = append(byArm[obs.ArmID], obs)
	}

	now := time.Now()
	out := make([]Distribution, len(priors))
	for i, prior := range priors {
		next := prior
		for _, obs := range byArm[prior.ArmID] {
			next.ConversionRate.Alpha += float64(obs.Conversions)
			next.ConversionRate.Beta += float64(obs.Clicks - obs.Conversions)
			if obs.Conversions > 0 && obs.AverageValue > 0 {
				next.ConversionValue.Shape += float64(obs.Conversions)
				next.ConversionValue.Rate += float64(obs.Conversions) / obs.AverageValue
			}
			next.SampleSize += obs.Clicks
			next.LastUpdated = now
		}
		next.Reliability = reliability(next.SampleSize)
		next.ConversionRate.Confidence = next.Reliability
		out[i] = next
	}
	return out
}
