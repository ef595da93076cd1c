package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aknopov/fancylogger"
	"github.com/aknopov/lnsin"
	"github.com/aknopov/lnsin/bench"
	"github.com/aknopov/lnsin/bernoulli"
	"github.com/aknopov/lnsin/cmd/param"
)

const (
	Port      = 8080
	Host      = "localhost"
	WaitSleep = 1 * time.Second
)

type ComputeRequest struct {
	X float64 `json:"x"`
	E float64 `json:"e"`
}

type ComputeResponse struct {
	Value float64 `json:"value"`
	Terms int     `json:"terms"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type benchFlags struct {
	xs         string
	e          float64
	concur     int
	totalTests int
	printRaw   bool
	local      bool
	host       string
	port       int
	wait       time.Duration
}

var (
	logger = fancylogger.NewLogger(os.Stdout, fancylogger.LiteFg)

	errBadStatus = errors.New("unexpected response status")
)

func main() {
	flags := benchFlags{}
	options, _, err := param.ParseParams(os.Args, func() { usage(os.Stderr) }, func(fs *flag.FlagSet) {
		fs.StringVar(&flags.xs, "x", "0.5,1,1.5,2.5", "")
		fs.Float64Var(&flags.e, "e", 1e-6, "")
		fs.IntVar(&flags.concur, "c", 10, "")
		fs.IntVar(&flags.totalTests, "n", 500, "")
		fs.BoolVar(&flags.printRaw, "r", false, "")
		fs.BoolVar(&flags.local, "local", false, "")
		fs.StringVar(&flags.host, "host", Host, "")
		fs.IntVar(&flags.port, "port", Port, "")
		fs.DurationVar(&flags.wait, "wait", 5*time.Minute, "")
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		usage(os.Stderr)
		os.Exit(1)
	}

	xs, err := parseXs(flags.xs)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid arguments list")
		os.Exit(1)
	}

	if flags.local {
		config, err := options.Config()
		if err != nil {
			logger.Error().Err(err).Msg("Invalid configuration")
			os.Exit(1)
		}
		err = runLocal(config, xs, flags, options.Stats)
		if err != nil {
			logger.Error().Err(err).Msg("Local run failed")
			os.Exit(1)
		}
		return
	}

	requestUrl := fmt.Sprintf("http://%s:%d", flags.host, flags.port)
	if !waitServer(requestUrl, flags.wait) {
		logger.Error().Str("url", requestUrl).Dur("wait", flags.wait).Msg("Connection timed-out")
		os.Exit(1)
	}

	tasks := httpTasks(http.DefaultClient, requestUrl, xs, flags.e)

	startTime := time.Now()
	stats, err := bench.Run(tasks, flags.totalTests, flags.concur)
	elapsedTime := time.Since(startTime)
	if err != nil {
		logger.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}

	logger.Info().Msgf("Test finished for %d arguments with e=%v:", len(xs), flags.e)
	logger.Info().Int("  num tests", flags.totalTests).Send()
	logger.Info().Int("  num concur", flags.concur).Send()
	logger.Info().Dur("  duration (ms)", elapsedTime).Send()
	printStats(xs, options.Stats, stats, flags.printRaw)
}

func runLocal(config lnsin.Config, xs []float64, flags benchFlags, statList param.StatList) error {
	private := lnsin.NewEvaluator(config, nil)
	shared := lnsin.NewEvaluator(config, bernoulli.NewTable())

	privateStats, err := bench.Run(localTasks(private, xs, flags.e), flags.totalTests, flags.concur)
	if err != nil {
		return err
	}
	sharedStats, err := bench.Run(localTasks(shared, xs, flags.e), flags.totalTests, flags.concur)
	if err != nil {
		return err
	}

	logger.Info().Msg("Private tables:")
	printStats(xs, statList, privateStats, flags.printRaw)
	logger.Info().Int("table size", shared.Table().Size()).Msg("Shared table:")
	printStats(xs, statList, sharedStats, flags.printRaw)

	pVals, err := bench.CalcPvals(privateStats, sharedStats)
	if err != nil {
		return err
	}
	for i, p := range pVals {
		logger.Info().Float64("x", xs[i]).Float64("p", p).Msg("Private tables are slower")
	}
	return nil
}

func parseXs(s string) ([]float64, error) {
	ret := make([]float64, 0)
	for _, val := range strings.Split(s, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, err
		}
		ret = append(ret, x)
	}
	return ret, nil
}

func localTasks(evaluator *lnsin.Evaluator, xs []float64, e float64) []bench.Task {
	tasks := make([]bench.Task, len(xs))
	for i, x := range xs {
		tasks[i] = func() error {
			_, err := evaluator.Compute(x, e)
			return err
		}
	}
	return tasks
}

func httpTasks(client *http.Client, url string, xs []float64, e float64) []bench.Task {
	tasks := make([]bench.Task, len(xs))
	for i, x := range xs {
		jsonString := param.AssertNoErr(json.Marshal(ComputeRequest{x, e}))
		tasks[i] = func() error { return sendOneRequest(client, url, jsonString) }
	}
	return tasks
}

func sendOneRequest(client *http.Client, url string, jsonString []byte) error {
	bodyReader := bytes.NewReader(jsonString)
	req, err := http.NewRequest(http.MethodPost, url, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	respRaw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		_ = json.Unmarshal(respRaw, &errResp)
		return fmt.Errorf("%w %d: %s", errBadStatus, res.StatusCode, errResp.Kind)
	}

	var computeResp ComputeResponse
	return json.Unmarshal(respRaw, &computeResp)
}

func waitServer(url string, timeout time.Duration) bool {
	logger.Debug().Msg("Waiting for server ...")
	count := max(timeout/WaitSleep, 1)

	for range count {
		resp, err := http.Head(url)
		if err == nil {
			resp.Body.Close()
			logger.Debug().Msg("Endpoint is open now")
			return true
		}
		time.Sleep(WaitSleep)
	}
	return false
}

func printStats(xs []float64, statList param.StatList, stats []bench.RunStats, printRaw bool) {
	param.PrintHeader(os.Stdout, statList)
	for i, s := range stats {
		param.PrintValues(os.Stdout, strconv.FormatFloat(xs[i], 'g', -1, 64), statList, s)
	}

	if printRaw {
		fmt.Printf("        Raw test durations (ms):\n")
		for i, s := range stats {
			for j, v := range s.Values {
				fmt.Printf("%4d\t%4d\t%.4f\n", i+1, j+1, float64(v)/float64(time.Millisecond))
			}
		}
	}
}

func usage(sink *os.File) {
	fmt.Fprintln(sink, `Load test for ln|sin(x)| evaluation
Usage: lnsin-bench -x=... -e=... -c=... -n=... -r -local -host=... -port=... -stats=...
-x - comma separated arguments (default 0.5,1,1.5,2.5)
-e - precision (default 1e-6)
-c - concurrent tasks (default 10)
-n - total tasks (default 500)
-r - print raw durations
-local - compare shared and private Bernoulli tables in process instead of HTTP load
-host, -port - server address (default localhost:8080)
-wait - how long to wait for the server (default 5m)
-stats - comma separated list of Count, Fails, Min, Med, Max, Avg, StdDev
-config, -terms, -timeout - evaluation budget for -local`)
}
