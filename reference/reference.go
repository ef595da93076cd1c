// Package reference evaluates ln|sin(x)| and Bernoulli numbers in decimal arithmetic with far
// more digits than float64 has. The results serve as ground truth for the series evaluator.
package reference

import (
	"errors"
	"fmt"
	"math"

	"github.com/ericlagergren/decimal"
)

var (
	ctx = decimal.Context128

	ErrPole      = errors.New("reference: sin(x) is zero")
	ErrNotFinite = errors.New("reference: argument is not finite")
	ErrBadIndex  = errors.New("reference: negative Bernoulli index")
)

// Digits kept on top of the ~1 digit per index lost by the Akiyama–Tanigawa recurrence
const bernoulliGuardDigits = 40

// ln|sin(x)| evaluated with 34 significant digits and rounded to float64
func LnAbsSin(x float64) (float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: x=%v", ErrNotFinite, x)
	}

	bx := new(decimal.Big).SetFloat64(x)
	s := new(decimal.Big)
	ctx.Sin(s, bx)
	if s.Sign() == 0 {
		return math.Inf(-1), fmt.Errorf("%w: x=%v", ErrPole, x)
	}

	s.Abs(s)
	ctx.Log(s, s)
	f, _ := s.Float64()
	return f, nil
}

// Same as LnAbsSin with fallback to float64 math
func LnAbsSinOrFloat(x float64) float64 {
	if f, err := LnAbsSin(x); err == nil {
		return f
	}
	return math.Log(math.Abs(math.Sin(x)))
}

// Bernoulli numbers B_0..B_maxIndex by the Akiyama–Tanigawa recurrence in decimal arithmetic.
// Precision grows with maxIndex so that every value keeps at least ~34 correct digits.
func Bernoulli(maxIndex int) ([]*decimal.Big, error) {
	if maxIndex < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadIndex, maxIndex)
	}

	prec := decimal.Context128
	prec.Precision = bernoulliGuardDigits + 2*maxIndex

	one := decimal.New(1, 0)
	row := make([]*decimal.Big, 0, maxIndex+1)
	ret := make([]*decimal.Big, 0, maxIndex+1)
	for m := 0; m <= maxIndex; m++ {
		row = append(row, prec.Quo(new(decimal.Big), one, decimal.New(int64(m+1), 0)))
		for j := m; j > 0; j-- {
			prec.Sub(row[j-1], row[j-1], row[j])
			prec.Mul(row[j-1], row[j-1], decimal.New(int64(j), 0))
		}

		b := new(decimal.Big).Copy(row[0])
		switch {
		case m == 1:
			b.Neg(b)
		case m%2 == 1:
			b.SetUint64(0)
		}
		ret = append(ret, b)
	}
	return ret, nil
}

// Bernoulli values rounded to float64
func BernoulliFloat64(maxIndex int) ([]float64, error) {
	bigs, err := Bernoulli(maxIndex)
	if err != nil {
		return nil, err
	}

	ret := make([]float64, len(bigs))
	for i, b := range bigs {
		ret[i], _ = b.Float64()
	}
	return ret, nil
}
