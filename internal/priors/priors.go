// Package priors computes and sequentially updates per-arm Beta
// (conversion-rate) and Gamma (conversion-value) posteriors, sharing
// information across a campaign category via empirical-Bayes shrinkage or
// fixed domain priors.
package priors

import (
	"math"
	"time"
)

// SourceKind records where a prior's information came from.
type SourceKind string

const (
	SourceEmpirical      SourceKind = "empirical"
	SourceHierarchical   SourceKind = "hierarchical"
	SourceInformative    SourceKind = "informative"
	SourceNoninformative SourceKind = "noninformative"
)

// BetaParams parameterize a Beta distribution over a conversion rate.
// Alpha and Beta stay >= 1 for numerical stability.
type BetaParams struct {
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	Confidence float64 `json:"confidence"`
}

// Mean returns the distribution mean alpha/(alpha+beta).
func (b BetaParams) Mean() float64 {
	if b.Alpha+b.Beta == 0 {
		return 0
	}
	return b.Alpha / (b.Alpha + b.Beta)
}

// GammaParams parameterize a Gamma distribution over an average
// conversion value. Shape stays >= 1 and Rate >= 0.1.
type GammaParams struct {
	Shape      float64 `json:"shape"`
	Rate       float64 `json:"rate"`
	Confidence float64 `json:"confidence"`
}

// Mean returns the distribution mean shape/rate.
func (g GammaParams) Mean() float64 {
	if g.Rate == 0 {
		return 0
	}
	return g.Shape / g.Rate
}

// Distribution is one arm's prior/posterior pair. Distributions are value
// objects: UpdatePriors returns new ones and never mutates its inputs.
type Distribution struct {
	ArmID           string      `json:"arm_id"`
	ConversionRate  BetaParams  `json:"conversion_rate"`
	ConversionValue GammaParams `json:"conversion_value"`
	SampleSize      int         `json:"sample_size"`
	LastUpdated     time.Time   `json:"last_updated"`
	Source          SourceKind  `json:"source"`
	Reliability     float64     `json:"reliability"`
}

// Arm identifies a campaign arm whose priors are being computed.
type Arm struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	DailyBudget float64 `json:"daily_budget"`
	AgeDays     int     `json:"age_days"`
}

// PerformancePeriod is one historical reporting period for an arm.
type PerformancePeriod struct {
	Date        time.Time `json:"date"`
	Impressions int       `json:"impressions"`
	Clicks      int       `json:"clicks"`
	Conversions int       `json:"conversions"`
	Spend       float64   `json:"spend"`
	Revenue     float64   `json:"revenue"`
}

// ArmHistory is the ordered performance record for one arm.
type ArmHistory struct {
	ID          string              `json:"id"`
	Category    string              `json:"category"`
	Performance []PerformancePeriod `json:"performance"`
}

// HistoricalData is the read-only input supplied by the reporting module.
type HistoricalData struct {
	Arms             []ArmHistory       `json:"arms"`
	From             time.Time          `json:"from"`
	To               time.Time          `json:"to"`
	MarketConditions map[string]float64 `json:"market_conditions,omitempty"`
}

// Observation is one incoming performance record for a sequential update.
type Observation struct {
	ArmID        string  `json:"arm_id"`
	Clicks       int     `json:"clicks"`
	Conversions  int     `json:"conversions"`
	AverageValue float64 `json:"average_value"`
}

// Metadata describes a strategy.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Assumptions []string `json:"assumptions"`
}

// Strategy turns historical and incoming data into per-arm posteriors.
type Strategy interface {
	// ComputePriors derives a prior distribution for every arm.
	ComputePriors(arms []Arm, historical *HistoricalData) ([]Distribution, error)
	// UpdatePriors applies new observations and returns fresh
	// distributions, leaving the inputs untouched.
	UpdatePriors(priors []Distribution, newData []Observation) []Distribution
	// Metadata describes the strategy.
	Metadata() Metadata
}

// Noninformative defaults used when an arm has neither history nor a
// category to borrow from: roughly a 5% conversion rate and a $100
// average conversion value.
const (
	defaultConversionRate = 0.05
	defaultAverageValue   = 100.0

	minAlpha = 1.0
	minBeta  = 1.0
	minShape = 1.0
	minRate  = 0.1
)

// reliability maps a sample size onto a saturating confidence curve that
// reaches 1.0 at about a thousand samples.
func reliability(sampleSize int) float64 {
	if sampleSize <= 0 {
		return 0
	}
	r := math.Log(float64(sampleSize)+1) / math.Log(1000)
	return math.Min(1, r)
}

// betaFromMeanStrength builds Beta parameters with the given mean and an
// evidence weight of roughly `strength` trials, clamped for stability.
func betaFromMeanStrength(mean, strength float64) BetaParams {
	if mean < 0 {
		mean = 0
	}
	if mean > 1 {
		mean = 1
	}
	return BetaParams{
		Alpha: math.Max(minAlpha, mean*strength),
		Beta:  math.Max(minBeta, (1-mean)*strength),
	}
}

// gammaFromMeanStrength builds Gamma parameters with the given mean and a
// shape of roughly `strength`, preserving the mean while honoring the
// shape >= 1 and rate >= 0.1 floors.
func gammaFromMeanStrength(mean, strength float64) GammaParams {
	if mean <= 0 {
		mean = defaultAverageValue
	}
	shape := math.Max(minShape, strength)
	rate := shape / mean
	if rate < minRate {
		rate = minRate
		shape = math.Max(minShape, mean*rate)
	}
	return GammaParams{Shape: shape, Rate: rate}
}

func noninformative(armID string, now time.Time) Distribution {
	strength := 20.0 // weak: worth ~20 clicks of evidence
	rateParams := betaFromMeanStrength(defaultConversionRate, strength)
	rateParams.Confidence = 0.1
	valueParams := gammaFromMeanStrength(defaultAverageValue, minShape)
	valueParams.Confidence = 0.1

	return Distribution{
		ArmID:           armID,
		ConversionRate:  rateParams,
		ConversionValue: valueParams,
		SampleSize:      0,
		LastUpdated:     now,
		Source:          SourceNoninformative,
		Reliability:     0,
	}
}
