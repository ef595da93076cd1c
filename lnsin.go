// Package lnsin computes f(x) = ln|sin(x)| to a requested absolute precision e with the
// Bernoulli-number series
//
//	ln|sin x| = ln r - Σ_{n≥1} (-1)^(n-1) 2^(2n-1) B_2n r^2n / (n (2n)!)
//
// where r is x reduced into (0, π/2]. Terms are formed in log space, so neither the growth of
// B_2n nor the decay of r^2n can overflow before the final exponentiation.
package lnsin

import (
	"fmt"
	"math"
	"time"

	"github.com/aknopov/lnsin/bernoulli"
)

// Function substitutions for unit tests
var (
	timeNow = time.Now
)

var (
	// Log of the smallest normal float64 - terms below it are zeros
	lnUnderflowFloor = math.Log(0x1p-1022)
	// Terms above it overflow float64
	lnOverflowCeiling = math.Log(math.MaxFloat64)
)

// Single evaluation request
type Request struct {
	X float64 `json:"x" yaml:"x"`
	E float64 `json:"e" yaml:"e"`
}

// Checks the precision bound; the argument can be checked only after range reduction
func (r Request) Validate() error {
	if !(0 < r.E && r.E < 1) {
		return fmt.Errorf("%w: e=%v", ErrInvalidPrecision, r.E)
	}
	return nil
}

// Outcome of a successful evaluation
type Result struct {
	Value   float64       // approximation of ln|sin(x)|
	Terms   int           // number of contributing series terms N
	Reduced float64       // x reduced into (0, π/2]
	Elapsed time.Duration // call duration
}

// Evaluator of ln|sin(x)|. Safe for concurrent use.
type Evaluator struct {
	config Config
	table  *bernoulli.Table // shared table, nil for a private table per call
}

// Creates evaluator with the given budget. A non-nil table is shared by all calls
// and grows as the most demanding call requires; nil gives every call its own table.
func NewEvaluator(config Config, table *bernoulli.Table) *Evaluator {
	return &Evaluator{config: config, table: table}
}

// Computes ln|sin(x)| with default budget and a private Bernoulli table
func Compute(x, e float64) (Result, error) {
	return NewEvaluator(DefaultConfig(), nil).Compute(x, e)
}

func (ev *Evaluator) Config() Config {
	return ev.config
}

// Shared Bernoulli table or nil
func (ev *Evaluator) Table() *bernoulli.Table {
	return ev.table
}

// Computes ln|sin(x)| so that the first omitted term is below e.
//
// Fails with ErrInvalidPrecision, ErrUndefinedArgument, ErrPrecisionUnattainable or ErrTimeout.
// The time budget is checked between terms, a call is never interrupted mid-term.
func (ev *Evaluator) Compute(x, e float64) (Result, error) {
	start := timeNow()

	if err := (Request{X: x, E: e}).Validate(); err != nil {
		return Result{}, err
	}
	if err := ev.config.Validate(); err != nil {
		return Result{}, err
	}

	r, err := reduceArgument(x)
	if err != nil {
		return Result{}, err
	}

	table := ev.table
	if table == nil {
		table = bernoulli.NewTable()
	}

	lnR := math.Log(r)
	lnE := math.Log(e)
	sum := 0.0
	terms := 0

	for n := 1; n <= ev.config.MaxTerms; {
		if elapsed := timeNow().Sub(start); elapsed > ev.config.Timeout {
			return Result{}, fmt.Errorf("%w: %s exceeded after %d terms (x=%v, e=%v)", ErrTimeout, ev.config.Timeout, terms, x, e)
		}

		// Current term and the lookahead one
		if err := table.ExtendTo(2 * (n + 1)); err != nil {
			return Result{}, err
		}

		b2n, err := table.Get(2 * n)
		if err != nil {
			return Result{}, err
		}
		if b2n == 0 {
			n++
			continue
		}
		if math.IsNaN(b2n) || math.IsInf(b2n, 0) {
			return Result{}, fmt.Errorf("%w: B_%d is not finite (x=%v, e=%v)", ErrPrecisionUnattainable, 2*n, x, e)
		}

		lnT := logTerm(n, b2n, lnR)
		if err := checkOverflow(n, lnT); err != nil {
			return Result{}, fmt.Errorf("%w (x=%v, e=%v)", err, x, e)
		}
		sum += termValue(n, b2n, lnT)
		terms = n
		n++

		bNext, err := table.Get(2 * n)
		if err != nil {
			return Result{}, err
		}
		// Zero lookahead tells nothing about convergence
		if bNext == 0 {
			continue
		}
		if logTerm(n, bNext, lnR) < lnE {
			return Result{Value: lnR - sum, Terms: terms, Reduced: r, Elapsed: timeNow().Sub(start)}, nil
		}
	}

	return Result{}, fmt.Errorf("%w: no convergence within %d terms (x=%v, e=%v)", ErrPrecisionUnattainable, ev.config.MaxTerms, x, e)
}

// Maps x into (0, π/2] using the period π of |sin| and the symmetry about π/2
func reduceArgument(x float64) (float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: x=%v", ErrUndefinedArgument, x)
	}

	// Mathematical modulo, result in [0, π]
	r := math.Mod(x, math.Pi)
	if r < 0 {
		r += math.Pi
	}
	if r == 0 || r == math.Pi {
		return 0, fmt.Errorf("%w: x=%v", ErrUndefinedArgument, x)
	}

	if r > math.Pi/2 {
		r = math.Pi - r
	}
	if r == 0 {
		return 0, fmt.Errorf("%w: x=%v", ErrUndefinedArgument, x)
	}
	return r, nil
}

// ln|T_n| = (2n-1)ln2 + ln|B_2n| + 2n ln r - ln n - lnΓ(2n+1)
func logTerm(n int, b2n float64, lnR float64) float64 {
	fn := float64(n)
	return (2*fn-1)*math.Ln2 + math.Log(math.Abs(b2n)) + 2*fn*lnR - math.Log(fn) - lgamma(2*fn+1)
}

// Fails when exp(ln|T_n|) is beyond float64 range
func checkOverflow(n int, lnT float64) error {
	if lnT > lnOverflowCeiling {
		return fmt.Errorf("%w: term %d overflows", ErrPrecisionUnattainable, n)
	}
	return nil
}

// T_n = (-1)^(n-1) sign(B_2n) exp(ln|T_n|), zero below the underflow floor
func termValue(n int, b2n float64, lnT float64) float64 {
	if lnT < lnUnderflowFloor {
		return 0.0
	}

	sign := 1.0
	if b2n < 0 {
		sign = -sign
	}
	if n%2 == 0 {
		sign = -sign
	}
	return sign * math.Exp(lnT)
}

func lgamma(x float64) float64 {
	y, _ := math.Lgamma(x)
	return y
}
