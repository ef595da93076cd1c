package bench

// Adapted from "golang.org/x/perf/internal/stats":
// Copyright 2009 The Go Authors.

import (
	"errors"
	"math"
	"time"
)

// A LocationHypothesis specifies the alternative hypothesis of a
// location test such as a t-test. The default (zero) value is to test
// against the alternative hypothesis that they differ.
type LocationHypothesis int

const (
	// The location of the first sample is less than the second (one-tailed).
	LocationLess LocationHypothesis = -1

	// The locations of the two samples are not equal (two-tailed).
	LocationDiffers LocationHypothesis = 0

	// The location of the first sample is greater than the second (one-tailed).
	LocationGreater LocationHypothesis = 1
)

// A TTestResult is the result of a t-test.
type TTestResult struct {
	// Sizes of the input samples
	N1, N2 int

	// Value of the t-statistic
	T float64

	// Degrees of freedom
	DoF float64

	// Alternative hypothesis tested against the null hypothesis of equal means
	AltHypothesis LocationHypothesis

	// p-value for the null hypothesis
	P float64
}

// Student's t-distribution with v degrees of freedom
type tDist struct {
	v float64
}

// Summary of one sample for a two sample t-test
type tTestSample struct {
	weight   float64
	mean     float64
	variance float64
}

var (
	ErrSampleSize   = errors.New("sample is too small")
	ErrZeroVariance = errors.New("sample has zero variance")
)

func (t tDist) cdf(x float64) float64 {
	switch {
	case x == 0:
		return 0.5
	case x > 0:
		return 1 - 0.5*mathBetaInc(t.v/(t.v+x*x), t.v/2, 0.5)
	case x < 0:
		return 1 - t.cdf(-x)
	default:
		return math.NaN()
	}
}

// Sample built from raw durations of a run
func runStats2Sample(rs RunStats) tTestSample {
	xs := make([]float64, len(rs.Values))
	for i, v := range rs.Values {
		xs[i] = float64(v) / float64(time.Millisecond)
	}
	return newSample(xs)
}

// Mean and variance are accumulated with Welford's online algorithm,
// which is not prone to the cancellation of the two-pass formula.
func newSample(xs []float64) tTestSample {
	mean, m2 := 0.0, 0.0
	for n, x := range xs {
		delta := x - mean
		mean += delta / float64(n+1)
		m2 += delta * (x - mean)
	}

	variance := 0.0
	if len(xs) > 1 {
		variance = m2 / float64(len(xs)-1)
	}
	return tTestSample{weight: float64(len(xs)), mean: mean, variance: variance}
}

func newTTestResult(n1, n2 int, t, dof float64, alt LocationHypothesis) *TTestResult {
	dist := tDist{dof}
	var p float64
	switch alt {
	case LocationDiffers:
		p = 2 * (1 - dist.cdf(math.Abs(t)))
	case LocationLess:
		p = dist.cdf(t)
	case LocationGreater:
		p = 1 - dist.cdf(t)
	}
	return &TTestResult{N1: n1, N2: n2, T: t, DoF: dof, AltHypothesis: alt, P: p}
}

// TwoSampleTTest performs a two-sample (unpaired) Student's t-test on
// samples x1 and x2 assuming equal variances of normally distributed populations.
func TwoSampleTTest(x1, x2 tTestSample, alt LocationHypothesis) (*TTestResult, error) {
	n1, n2 := x1.weight, x2.weight
	if n1 <= 1 || n2 <= 1 {
		return nil, ErrSampleSize
	}
	v1, v2 := x1.variance, x2.variance
	if v1 == 0 && v2 == 0 {
		return nil, ErrZeroVariance
	}

	dof := n1 + n2 - 2
	v12 := ((n1-1)*v1 + (n2-1)*v2) / dof
	t := (x1.mean - x2.mean) / math.Sqrt(v12*(1/n1+1/n2))
	return newTTestResult(int(n1), int(n2), t, dof, alt), nil
}

// TwoSampleWelchTTest is like TwoSampleTTest, but does not
// assume the distributions have equal variance.
func TwoSampleWelchTTest(x1, x2 tTestSample, alt LocationHypothesis) (*TTestResult, error) {
	n1, n2 := x1.weight, x2.weight
	if n1 <= 1 || n2 <= 1 {
		return nil, ErrSampleSize
	}
	v1, v2 := x1.variance, x2.variance
	if v1 == 0 && v2 == 0 {
		return nil, ErrZeroVariance
	}

	s1, s2 := v1/n1, v2/n2
	dof := (s1 + s2) * (s1 + s2) / (s1*s1/(n1-1) + s2*s2/(n2-1))
	t := (x1.mean - x2.mean) / math.Sqrt(s1+s2)
	return newTTestResult(int(n1), int(n2), t, dof, alt), nil
}

func lgamma(x float64) float64 {
	y, _ := math.Lgamma(x)
	return y
}

// mathBetaInc returns the value of the regularized incomplete beta
// function Iₓ(a, b), NaN for x outside of [0, 1].
//
// Based on Numerical Recipes in C, section 6.4 - the continued fraction
//
//	(xᵃ*(1-x)ᵇ)/(a*B(a,b)) * (1/(1+(d₁/(1+(d₂/(1+...))))))
//
// where
//
//	d_{2m+1} = -(a+m)(a+b+m)x/((a+2m)(a+2m+1))
//	d_{2m}   = m(b-m)x/((a+2m-1)(a+2m))
func mathBetaInc(x, a, b float64) float64 {
	if x < 0 || x > 1 {
		return math.NaN()
	}
	bt := 0.0
	if 0 < x && x < 1 {
		// Coefficient before the continued fraction, in log space
		bt = math.Exp(lgamma(a+b) - lgamma(a) - lgamma(b) +
			a*math.Log(x) + b*math.Log(1-x))
	}
	if x < (a+1)/(a+b+2) {
		return bt * betacf(x, a, b) / a
	}
	// Symmetry transform
	return 1 - bt*betacf(1-x, b, a)/b
}

// Continued fraction component of Iₓ(a, b)
func betacf(x, a, b float64) float64 {
	const maxIterations = 200
	const epsilon = 3e-14

	raiseZero := func(z float64) float64 {
		if math.Abs(z) < math.SmallestNonzeroFloat64 {
			return math.SmallestNonzeroFloat64
		}
		return z
	}

	c := 1.0
	d := 1 / raiseZero(1-(a+b)*x/(a+1))
	h := d
	for m := 1; m <= maxIterations; m++ {
		mf := float64(m)

		// Even step
		numer := mf * (b - mf) * x / ((a + 2*mf - 1) * (a + 2*mf))
		d = 1 / raiseZero(1+numer*d)
		c = raiseZero(1 + numer/c)
		h *= d * c

		// Odd step
		numer = -(a + mf) * (a + b + mf) * x / ((a + 2*mf) * (a + 2*mf + 1))
		d = 1 / raiseZero(1+numer*d)
		c = raiseZero(1 + numer/c)
		hfac := d * c
		h *= hfac

		if math.Abs(hfac-1) < epsilon {
			return h
		}
	}
	panic("betainc: a or b too big; failed to converge")
}
