package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aknopov/fancylogger"
	"github.com/aknopov/lnsin"
	"github.com/aknopov/lnsin/bernoulli"
	"github.com/aknopov/lnsin/cmd/param"
	"github.com/aknopov/lnsin/prompt"
	"github.com/aknopov/lnsin/session"
	"github.com/mattn/go-isatty"
)

var (
	logger = fancylogger.NewLogger(os.Stderr, fancylogger.LiteFg)
)

func main() {
	var dir, dbPath string
	var repeat bool
	options, _, err := param.ParseParams(os.Args, func() { usage(os.Stderr) }, func(fs *flag.FlagSet) {
		fs.StringVar(&dir, "dir", ".", "")
		fs.StringVar(&dbPath, "db", "", "")
		fs.BoolVar(&repeat, "repeat", false, "")
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		usage(os.Stderr)
		os.Exit(1)
	}

	config, err := options.Config()
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}
	logger.Debug().Int("max_terms", config.MaxTerms).Dur("timeout", config.Timeout).Msg("Using budget")

	evaluator := lnsin.NewEvaluator(config, bernoulli.NewTable())
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	sess := prompt.NewSession(os.Stdin, os.Stdout, evaluator, session.NewRegistry(dir)).
		WithInteractive(interactive)

	if dbPath != "" {
		history, err := session.Open(dbPath)
		if err != nil {
			logger.Error().Err(err).Str("db", dbPath).Msg("Cannot open history")
			os.Exit(1)
		}
		sess.WithHistory(history)
		code := run(sess, repeat)
		history.Close()
		os.Exit(code)
	}

	os.Exit(run(sess, repeat))
}

func run(sess *prompt.Session, repeat bool) int {
	for {
		err := sess.Run(context.Background())
		switch {
		case errors.Is(err, io.EOF):
			return 0
		case err != nil:
			logger.Error().Err(err).Msg("Session failed")
			return 1
		case !repeat:
			return 0
		}
	}
}

func usage(sink *os.File) {
	fmt.Fprintln(sink, `Computes ln|sin(x)| with the Bernoulli series
Usage: lnsin -config=... -terms=... -timeout=... -dir=... -db=... -repeat
-config - YAML file with "max_terms" and "timeout"
-terms - maximal number of series terms (default 10000)
-timeout - time budget of one evaluation (default 15m)
-dir - directory for result files (default current)
-db - SQLite file to keep evaluation history
-repeat - start a new round after saving results
Enter 'Кінець' to finish a round`)
}
