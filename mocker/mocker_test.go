package mocker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	greeting = "Hello"
	answerFn = func() int { return 42 }
)

func TestReplaceItem(t *testing.T) {
	assertT := assert.New(t)

	func() {
		defer ReplaceItem(&greeting, "Bye")()
		defer ReplaceItem(&answerFn, func() int { return 0 })()

		assertT.Equal("Bye", greeting)
		assertT.Equal(0, answerFn())
	}()

	assertT.Equal("Hello", greeting)
	assertT.Equal(42, answerFn())
}

func TestSteppingClock(t *testing.T) {
	assertT := assert.New(t)

	start := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	clock := SteppingClock(start, time.Minute)

	assertT.Equal(start, clock())
	assertT.Equal(start.Add(time.Minute), clock())
	assertT.Equal(2*time.Minute, clock().Sub(start))
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	clock := FixedClock(at)

	assert.Equal(t, at, clock())
	assert.Equal(t, at, clock())
}
