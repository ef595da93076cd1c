package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aknopov/lnsin"
	"github.com/aknopov/lnsin/prompt"
	"github.com/aknopov/lnsin/session"
	"github.com/stretchr/testify/assert"
)

func newTestSession(t *testing.T, input string) (*prompt.Session, *bytes.Buffer) {
	out := new(bytes.Buffer)
	sess := prompt.NewSession(strings.NewReader(input), out, lnsin.NewEvaluator(lnsin.DefaultConfig(), nil),
		session.NewRegistry(t.TempDir())).WithInteractive(false)
	return sess, out
}

func TestRunSingleRound(t *testing.T) {
	assertT := assert.New(t)

	sess, out := newTestSession(t, "1\n0.01\nКінець\nno\n2\n0.01\nКінець\n")

	assertT.Equal(0, run(sess, false))
	assertT.Equal(1, strings.Count(out.String(), "N(x, e) = "))
}

func TestRunRepeat(t *testing.T) {
	assertT := assert.New(t)

	sess, out := newTestSession(t, "1\n0.01\nКінець\nno\n2\n0.01\nКінець\nno\n")

	assertT.Equal(0, run(sess, true))
	assertT.Equal(2, strings.Count(out.String(), "Data not saved to file"))
}

func TestRunFailure(t *testing.T) {
	out := new(bytes.Buffer)
	registry := session.NewRegistry(filepath.Join(t.TempDir(), "absent"))
	sess := prompt.NewSession(strings.NewReader("1\n0.01\nend\nyes\nres\n"), out,
		lnsin.NewEvaluator(lnsin.DefaultConfig(), nil), registry).WithInteractive(false)

	assert.Equal(t, 1, run(sess, true))
}
