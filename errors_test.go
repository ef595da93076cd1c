package lnsin

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aknopov/lnsin/bernoulli"
	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	assertT := assert.New(t)

	assertT.Equal(KindNone, ErrorKind(nil))
	assertT.Equal(KindInvalidPrecision, ErrorKind(fmt.Errorf("wrapped: %w", ErrInvalidPrecision)))
	assertT.Equal(KindUndefinedArgument, ErrorKind(ErrUndefinedArgument))
	assertT.Equal(KindPrecisionUnattainable, ErrorKind(ErrPrecisionUnattainable))
	assertT.Equal(KindTimeout, ErrorKind(ErrTimeout))
	assertT.Equal(KindInvalidArgument, ErrorKind(bernoulli.NewTable().ExtendTo(-1)))
	assertT.Equal(KindOther, ErrorKind(errors.New("boom")))
}
