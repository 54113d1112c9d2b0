// Package dist provides the distribution math shared by the statistical
// and allocation engines: normal CDF/inverse-CDF approximations and
// seedable Gamma/Beta/normal pseudo-random sampling.
package dist

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrInvalidProbability is returned when an inverse-CDF argument is not
// strictly between 0 and 1. This indicates a programmer error (an invalid
// confidence level) and is never clamped away.
var ErrInvalidProbability = errors.New("probability must be strictly between 0 and 1")

// NormalCDF approximates the cumulative distribution function of the
// standard normal distribution using the Abramowitz and Stegun
// approximation (Handbook of Mathematical Functions, formula 7.1.26).
// Accurate to roughly 1e-7.
func NormalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// NormalInverse approximates the inverse of the standard normal CDF using
// the Beasley-Springer-Moro rational approximation. It fails when p is not
// strictly inside (0, 1).
func NormalInverse(p float64) (float64, error) {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		return 0, ErrInvalidProbability
	}

	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02,
		-2.759285104469687e+02, 1.383577518672690e+02,
		-3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02,
		-1.556989798598866e+02, 6.680131188771972e+01,
		-1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01,
		-2.400758277161838e+00, -2.549732539343734e+00,
		4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01,
		2.445134137142996e+00, 3.754408661907416e+00}

	pLow := 0.02425
	pHigh := 1 - pLow

	var q, r float64

	switch {
	case p < pLow:
		q = math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1), nil
	case p <= pHigh:
		q = p - 0.5
		r = q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1), nil
	default:
		q = math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1), nil
	}
}

// Source supplies uniform variates in [0, 1). It is the only source of
// non-determinism in the engine; tests inject a seeded source to make
// Monte Carlo results reproducible.
type Source interface {
	Float64() float64
}

// NewSource returns a math/rand-backed Source with the given seed.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// Sampler draws Gamma, Beta and normal variates from an injected uniform
// source. Concurrent callers should use independent samplers.
type Sampler struct {
	src Source
}

// NewSampler wraps src in a Sampler. A nil src gets a time-seeded default.
func NewSampler(src Source) *Sampler {
	if src == nil {
		src = NewSource(time.Now().UnixNano())
	}
	return &Sampler{src: src}
}

// Normal returns a standard normal variate via the Box-Muller transform,
// consuming two uniform draws per variate.
func (s *Sampler) Normal() float64 {
	u1 := s.src.Float64()
	for u1 == 0 {
		u1 = s.src.Float64()
	}
	u2 := s.src.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Gamma returns a Gamma(shape, 1) variate using the Marsaglia-Tsang
// rejection method. For shape < 1 it uses the boosting identity
// Gamma(shape) = Gamma(1+shape) * U^(1/shape).
func (s *Sampler) Gamma(shape float64) float64 {
	if shape < 1 {
		u := s.src.Float64()
		for u == 0 {
			u = s.src.Float64()
		}
		return s.Gamma(1+shape) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / (3.0 * math.Sqrt(d))

	for {
		x := s.Normal()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v

		u := s.src.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}

// Beta returns a Beta(alpha, beta) variate as the ratio X/(X+Y) of two
// independent Gamma draws.
func (s *Sampler) Beta(alpha, beta float64) float64 {
	x := s.Gamma(alpha)
	y := s.Gamma(beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}
