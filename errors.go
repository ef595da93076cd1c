package lnsin

import (
	"errors"

	"github.com/aknopov/lnsin/bernoulli"
)

// Failure kinds of Compute. Returned errors wrap one of them, match with errors.Is.
var (
	// e is outside of (0, 1)
	ErrInvalidPrecision = errors.New("lnsin: precision e must be in the interval (0;1)")

	// x is an integer multiple of π (or not a finite number)
	ErrUndefinedArgument = errors.New("lnsin: function undefined for x = k * pi")

	// The stopping test wasn't satisfied within the term budget
	ErrPrecisionUnattainable = errors.New("lnsin: cannot achieve desired precision with given x and e")

	// The wall-clock budget ran out before convergence
	ErrTimeout = errors.New("lnsin: cannot achieve desired precision within time limit")

	ErrInvalidConfig = errors.New("lnsin: invalid configuration")
)

// Labels of ErrorKind
const (
	KindNone                  = ""
	KindInvalidArgument       = "invalid_argument"
	KindInvalidPrecision      = "invalid_precision"
	KindUndefinedArgument     = "undefined_argument"
	KindPrecisionUnattainable = "precision_unattainable"
	KindTimeout               = "timeout"
	KindOther                 = "other"
)

// Short stable label of a failure kind - for metrics and wire responses
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidPrecision):
		return KindInvalidPrecision
	case errors.Is(err, ErrUndefinedArgument):
		return KindUndefinedArgument
	case errors.Is(err, ErrPrecisionUnattainable):
		return KindPrecisionUnattainable
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, bernoulli.ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindOther
	}
}
