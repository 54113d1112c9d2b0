package dist_test

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/littlebearapps/seo-ads-expert/internal/dist"
)

func TestNormalCDF_AgainstGonum(t *testing.T) {
	// The rational approximation should stay within 1e-6 of gonum's
	// erf-based CDF across the useful range.
	reference := distuv.Normal{Mu: 0, Sigma: 1}

	for x := -4.0; x <= 4.0; x += 0.25 {
		got := dist.NormalCDF(x)
		want := reference.CDF(x)
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("NormalCDF(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestNormalCDF_KnownValues(t *testing.T) {
	if got := dist.NormalCDF(0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("NormalCDF(0) = %v, want 0.5", got)
	}
	if got := dist.NormalCDF(1.959964); math.Abs(got-0.975) > 1e-4 {
		t.Errorf("NormalCDF(1.96) = %v, want ~0.975", got)
	}
}

func TestNormalInverse_RoundTrip(t *testing.T) {
	for _, p := range []float64{0.001, 0.01, 0.025, 0.1, 0.5, 0.9, 0.975, 0.99, 0.999} {
		z, err := dist.NormalInverse(p)
		if err != nil {
			t.Fatalf("NormalInverse(%v) failed: %v", p, err)
		}
		if back := dist.NormalCDF(z); math.Abs(back-p) > 1e-4 {
			t.Errorf("round trip for p=%v: got %v", p, back)
		}
	}
}

func TestNormalInverse_DomainErrors(t *testing.T) {
	for _, p := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		if _, err := dist.NormalInverse(p); !errors.Is(err, dist.ErrInvalidProbability) {
			t.Errorf("NormalInverse(%v): expected ErrInvalidProbability, got %v", p, err)
		}
	}
}

func TestSampler_SeededDeterminism(t *testing.T) {
	a := dist.NewSampler(dist.NewSource(42))
	b := dist.NewSampler(dist.NewSource(42))

	for i := 0; i < 100; i++ {
		if a.Beta(2, 5) != b.Beta(2, 5) {
			t.Fatalf("samplers with the same seed diverged at draw %d", i)
		}
	}
}

func TestSampler_NormalMoments(t *testing.T) {
	s := dist.NewSampler(dist.NewSource(1))

	n := 50000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		x := s.Normal()
		sum += x
		sumSq += x * x
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	if math.Abs(mean) > 0.02 {
		t.Errorf("normal sample mean %v, want ~0", mean)
	}
	if math.Abs(variance-1) > 0.05 {
		t.Errorf("normal sample variance %v, want ~1", variance)
	}
}

func TestSampler_GammaMean(t *testing.T) {
	s := dist.NewSampler(dist.NewSource(2))

	// Gamma(shape, 1) has mean = shape, including the boosted shape < 1 path.
	for _, shape := range []float64{0.5, 1, 2.5, 9} {
		n := 50000
		sum := 0.0
		for i := 0; i < n; i++ {
			x := s.Gamma(shape)
			if x < 0 {
				t.Fatalf("Gamma(%v) produced negative draw %v", shape, x)
			}
			sum += x
		}
		mean := sum / float64(n)
		if math.Abs(mean-shape) > 0.05*math.Max(shape, 1) {
			t.Errorf("Gamma(%v) sample mean %v, want ~%v", shape, mean, shape)
		}
	}
}

func TestSampler_BetaRangeAndMean(t *testing.T) {
	s := dist.NewSampler(dist.NewSource(3))

	n := 50000
	sum := 0.0
	for i := 0; i < n; i++ {
		x := s.Beta(2, 8)
		if x < 0 || x > 1 {
			t.Fatalf("Beta(2,8) produced out-of-range draw %v", x)
		}
		sum += x
	}
	mean := sum / float64(n)

	// Beta(2,8) has mean 0.2.
	if math.Abs(mean-0.2) > 0.01 {
		t.Errorf("Beta(2,8) sample mean %v, want ~0.2", mean)
	}
}
