package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aknopov/fancylogger"
	"github.com/aknopov/lnsin"
	"github.com/aknopov/lnsin/bernoulli"
	"github.com/aknopov/lnsin/cmd/param"
	"github.com/aknopov/lnsin/session"
	"golang.org/x/time/rate"
)

const (
	Port            = 8080
	shutdownTimeout = 10 * time.Second
)

var (
	logger = fancylogger.NewLogger(os.Stderr, fancylogger.LiteFg)
)

type serverFlags struct {
	port   int
	dbPath string
	rate   float64
	burst  int
}

func main() {
	flags := serverFlags{}
	options, _, err := param.ParseParams(os.Args, func() { usage(os.Stderr) }, func(fs *flag.FlagSet) {
		fs.IntVar(&flags.port, "port", Port, "")
		fs.StringVar(&flags.dbPath, "db", "", "")
		fs.Float64Var(&flags.rate, "rate", 0, "")
		fs.IntVar(&flags.burst, "burst", 10, "")
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

	srv, err := newServer(config, flags)
	if err != nil {
		logger.Error().Err(err).Msg("Cannot start server")
		os.Exit(1)
	}
	if srv.history != nil {
		defer srv.history.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, srv, flags.port); err != nil {
		logger.Error().Err(err).Msg("Server failed")
	}
}

func newServer(config lnsin.Config, flags serverFlags) (*server, error) {
	proc, err := param.SelfProcess()
	if err != nil {
		return nil, err
	}

	srv := &server{
		evaluator: lnsin.NewEvaluator(config, bernoulli.NewTable()),
		proc:      proc,
		started:   time.Now(),
	}
	if flags.rate > 0 {
		srv.limiter = rate.NewLimiter(rate.Limit(flags.rate), max(flags.burst, 1))
	}
	if flags.dbPath != "" {
		if srv.history, err = session.Open(flags.dbPath); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

// Serves until the context is cancelled, then shuts down gracefully
func serve(ctx context.Context, srv *server, port int) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newEngine(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Int("port", port).Int("max_terms", srv.evaluator.Config().MaxTerms).Msg("-- Starting server...")
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("-- Stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func usage(sink *os.File) {
	fmt.Fprintln(sink, `HTTP service computing ln|sin(x)|
Usage: lnsin-server -port=... -db=... -rate=... -burst=... -config=... -terms=... -timeout=...
-port - listening port (default 8080)
-db - SQLite file for evaluation history, enables GET /history
-rate - allowed requests per second, 0 for unlimited
-burst - rate limiter burst (default 10)
-config - YAML file with "max_terms" and "timeout"
-terms - maximal number of series terms (default 10000)
-timeout - time budget of one evaluation (default 15m)`)
}
