// Package mocker provides useful tools that can be used in unit tests
package mocker

import (
	"sync"
	"time"
)

// Tests quite often require to replace original functions or state variables by the mock ones.
// Function below preserves and restores an item (function or variable).
//
// This function should be used like
//
//	defer mocker.ReplaceItem(&orgVal, newVal)()
//
// - note extra brackets.
func ReplaceItem[T any](orgVal *T, newVal T) func() {
	saveVal := *orgVal
	*orgVal = newVal
	return func() { *orgVal = saveVal }
}

// Fake clock that moves forward by `step` on every reading, starting at `start`.
// Substitutes `time.Now` to drive elapsed-time checks deterministically.
func SteppingClock(start time.Time, step time.Duration) func() time.Time {
	var lock sync.Mutex
	next := start
	return func() time.Time {
		lock.Lock()
		defer lock.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

// Clock frozen at `at`
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
