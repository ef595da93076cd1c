// Package bernoulli generates Bernoulli numbers B_0, B_1, B_2, ... with the Akiyama–Tanigawa
// recurrence in float64 arithmetic.
//
// The recurrence is numerically unstable: every new index costs roughly one decimal digit, so
// values past B_20 or so carry no correct digits. Callers that need exact values should use
// the "reference" package.
package bernoulli

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrInvalidArgument = errors.New("bernoulli: invalid index")
)

// Append-only table of Bernoulli numbers.
//
// Values are published contiguously from index 0 and never rewritten. Reads of published
// indices take no lock; growth is serialized, so a table can be shared by concurrent users.
// The zero value is an empty table ready for use.
type Table struct {
	lock   sync.Mutex                // growth guard
	row    []float64                 // Akiyama–Tanigawa working row, len == Size()
	values atomic.Pointer[[]float64] // published prefix
}

func NewTable() *Table {
	return new(Table)
}

// Makes sure that indices 0..maxIndex are published. Existing values are kept bit-for-bit,
// only the missing suffix is computed.
func (t *Table) ExtendTo(maxIndex int) error {
	if maxIndex < 0 {
		return fmt.Errorf("%w: can't extend to %d", ErrInvalidArgument, maxIndex)
	}
	if maxIndex < t.Size() {
		return nil
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	// Indices past len(vals) are invisible to readers of the old prefix
	vals := t.published()
	for m := len(vals); m <= maxIndex; m++ {
		var b float64
		t.row, b = advance(t.row, m)
		vals = append(vals, b)
	}
	t.values.Store(&vals)
	return nil
}

// Returns published B_index
func (t *Table) Get(index int) (float64, error) {
	vals := t.published()
	if index < 0 || index >= len(vals) {
		return 0, fmt.Errorf("%w: %d is outside of [0, %d)", ErrInvalidArgument, index, len(vals))
	}
	return vals[index], nil
}

// Number of published values
func (t *Table) Size() int {
	return len(t.published())
}

// Copy of the published values
func (t *Table) Snapshot() []float64 {
	vals := t.published()
	ret := make([]float64, len(vals))
	copy(ret, vals)
	return ret
}

func (t *Table) published() []float64 {
	if p := t.values.Load(); p != nil {
		return *p
	}
	return nil
}

// Computes B_0..B_maxIndex from scratch - the bounded precomputed mode.
// Results are identical to the ones of Table.
func Compute(maxIndex int) ([]float64, error) {
	if maxIndex < 0 {
		return nil, fmt.Errorf("%w: can't compute up to %d", ErrInvalidArgument, maxIndex)
	}

	row := make([]float64, 0, maxIndex+1)
	ret := make([]float64, 0, maxIndex+1)
	for m := 0; m <= maxIndex; m++ {
		var b float64
		row, b = advance(row, m)
		ret = append(ret, b)
	}
	return ret, nil
}

// Adds row index m to the working row (len(row) == m on entry) and returns B_m.
//
// The update runs with descending j and overwrites in place - any other order changes
// rounding and thus the published values.
func advance(row []float64, m int) ([]float64, float64) {
	row = append(row, 1/float64(m+1))
	for j := m; j > 0; j-- {
		row[j-1] = float64(j) * (row[j-1] - row[j])
	}
	return row, fixSign(m, row[0])
}

// B_1 comes out of the recurrence as +1/2; odd indices above 1 are exact zeros
// that the recurrence only approximates.
func fixSign(n int, b float64) float64 {
	switch {
	case n == 1:
		return -b
	case n%2 == 1:
		return 0.0
	default:
		return b
	}
}
