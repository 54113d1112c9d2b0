package priors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlebearapps/seo-ads-expert/internal/priors"
)

func TestInformative_SearchVertical(t *testing.T) {
	strategy := priors.NewInformative()

	arms := []priors.Arm{{ID: "brand-search", Category: "search", DailyBudget: 50}}

	dists, err := strategy.ComputePriors(arms, nil)
	require.NoError(t, err)
	require.Len(t, dists, 1)

	d := dists[0]
	assert.Equal(t, priors.SourceInformative, d.Source)
	assert.InDelta(t, 0.035, d.ConversionRate.Mean(), 1e-9)
	assert.InDelta(t, 120.0, d.ConversionValue.Mean(), 1e-9)
	assert.Zero(t, d.SampleSize)
	assert.InDelta(t, 0.7, d.Reliability, 1e-9)
}

func TestInformative_UnknownVerticalUsesFallback(t *testing.T) {
	strategy := priors.NewInformative()

	arms := []priors.Arm{{ID: "mystery", Category: "affiliate"}}

	dists, err := strategy.ComputePriors(arms, nil)
	require.NoError(t, err)

	d := dists[0]
	assert.InDelta(t, 0.02, d.ConversionRate.Mean(), 1e-9)
	assert.InDelta(t, 100.0, d.ConversionValue.Mean(), 1e-9)
}

func TestInformative_BudgetTierAndAgeScaleStrength(t *testing.T) {
	strategy := priors.NewInformative()

	arms := []priors.Arm{
		{ID: "baseline", Category: "search", DailyBudget: 50, AgeDays: 0},
		{ID: "big-old", Category: "search", DailyBudget: 150, AgeDays: 365},
		{ID: "tiny-new", Category: "search", DailyBudget: 5, AgeDays: 0},
	}

	dists, err := strategy.ComputePriors(arms, nil)
	require.NoError(t, err)
	require.Len(t, dists, 3)

	strength := func(d priors.Distribution) float64 {
		return d.ConversionRate.Alpha + d.ConversionRate.Beta
	}

	// search strength 200; big budget x1.2, age capped at x1.5; small
	// budget x0.8.
	assert.InDelta(t, 200.0, strength(dists[0]), 1e-6)
	assert.InDelta(t, 360.0, strength(dists[1]), 1e-6)
	assert.InDelta(t, 160.0, strength(dists[2]), 1e-6)

	// The mean never moves, only the evidence weight.
	for _, d := range dists {
		assert.InDelta(t, 0.035, d.ConversionRate.Mean(), 1e-9)
	}
}

func TestInformative_AgeMultiplierCap(t *testing.T) {
	strategy := priors.NewInformative()

	arms := []priors.Arm{
		{ID: "old", Category: "display", DailyBudget: 50, AgeDays: 365},
		{ID: "ancient", Category: "display", DailyBudget: 50, AgeDays: 3650},
	}

	dists, err := strategy.ComputePriors(arms, nil)
	require.NoError(t, err)

	oldStrength := dists[0].ConversionRate.Alpha + dists[0].ConversionRate.Beta
	ancientStrength := dists[1].ConversionRate.Alpha + dists[1].ConversionRate.Beta
	assert.InDelta(t, oldStrength, ancientStrength, 1e-6, "age boost should cap at 1.5x")
}

func TestInformative_UpdateBlendsTowardData(t *testing.T) {
	strategy := priors.NewInformative()

	dists, err := strategy.ComputePriors([]priors.Arm{{ID: "camp", Category: "search", DailyBudget: 50}}, nil)
	require.NoError(t, err)

	// 10% observed conversion over 500 clicks against a 3.5% domain prior.
	updated := strategy.UpdatePriors(dists, []priors.Observation{
		{ArmID: "camp", Clicks: 500, Conversions: 50},
	})
	require.Len(t, updated, 1)

	next := updated[0]
	assert.Greater(t, next.ConversionRate.Mean(), 0.035, "the posterior should move toward the data")
	assert.Less(t, next.ConversionRate.Mean(), 0.10, "domain knowledge should still anchor the posterior")
	assert.Equal(t, 500, next.SampleSize)
	assert.Greater(t, next.Reliability, 0.0)
}

func TestInformative_HigherTrustResistsData(t *testing.T) {
	arms := []priors.Arm{{ID: "camp", Category: "search", DailyBudget: 50}}
	obs := []priors.Observation{{ArmID: "camp", Clicks: 500, Conversions: 50}}

	skeptical := priors.NewInformative(priors.WithTrust(0.9))
	credulous := priors.NewInformative(priors.WithTrust(0.3))

	sd, err := skeptical.ComputePriors(arms, nil)
	require.NoError(t, err)
	cd, err := credulous.ComputePriors(arms, nil)
	require.NoError(t, err)

	skepticalMean := skeptical.UpdatePriors(sd, obs)[0].ConversionRate.Mean()
	credulousMean := credulous.UpdatePriors(cd, obs)[0].ConversionRate.Mean()

	assert.Less(t, skepticalMean, credulousMean, "higher trust should hold the posterior closer to the domain prior")
}

func TestInformative_UpdateIgnoresEmptyObservations(t *testing.T) {
	strategy := priors.NewInformative()

	dists, err := strategy.ComputePriors([]priors.Arm{{ID: "camp", Category: "video"}}, nil)
	require.NoError(t, err)

	updated := strategy.UpdatePriors(dists, []priors.Observation{
		{ArmID: "camp", Clicks: 0, Conversions: 0},
	})

	assert.Equal(t, dists[0].ConversionRate, updated[0].ConversionRate)
	assert.Equal(t, dists[0].SampleSize, updated[0].SampleSize)
}

func TestInformative_UpdateDoesNotMutateInputs(t *testing.T) {
	strategy := priors.NewInformative()

	dists, err := strategy.ComputePriors([]priors.Arm{{ID: "camp", Category: "search"}}, nil)
	require.NoError(t, err)
	original := dists[0]

	strategy.UpdatePriors(dists, []priors.Observation{
		{ArmID: "camp", Clicks: 500, Conversions: 50, AverageValue: 80},
	})

	assert.Equal(t, original, dists[0], "UpdatePriors must not mutate its inputs")
}

func TestInformative_Metadata(t *testing.T) {
	md := priors.NewInformative().Metadata()
	assert.Equal(t, "informative", md.Name)
	assert.NotEmpty(t, md.Description)
}
