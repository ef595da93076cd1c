package param

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aknopov/lnsin"
	"github.com/aknopov/lnsin/bench"
)

type StatType int
type StatList []StatType

const (
	// Number of runs
	Count StatType = iota
	// Number of failed runs
	Fails
	// Fastest run in milliseconds
	Min
	// Median run in milliseconds
	Med
	// Slowest run in milliseconds
	Max
	// Average run in milliseconds
	Avg
	// Standard deviation in milliseconds
	StdDev

	statFirst = Count
	statLast  = StdDev
)

var (
	convertMap = map[string]StatType{
		"Count":  Count,
		"Fails":  Fails,
		"Min":    Min,
		"Med":    Med,
		"Max":    Max,
		"Avg":    Avg,
		"StdDev": StdDev,
	}

	nameMap = map[StatType]string{
		Count:  "Count",
		Fails:  "Fails",
		Min:    "Min (ms)",
		Med:    "Med (ms)",
		Max:    "Max (ms)",
		Avg:    "Avg (ms)",
		StdDev: "StdDev (ms)",
	}

	// Columns printed when none are requested
	DefaultStats = StatList{Count, Fails, Min, Med, Max, Avg, StdDev}
)

const (
	colWidth   = 12
	labelWidth = 10
)

// Command line options shared by all executables
type Options struct {
	ConfigPath string
	MaxTerms   int
	Timeout    time.Duration
	Stats      StatList
}

func parseStatList(flagValues string, statList *StatList) error {
	for _, val := range strings.Split(flagValues, ",") {
		stat, ok := convertMap[strings.TrimSpace(val)]
		if !ok {
			return fmt.Errorf("unknown statistic %q", strings.TrimSpace(val))
		}
		*statList = append(*statList, stat)
	}
	return nil
}

// Parses commandline with common flags "-config", "-terms", "-timeout", "-stats".
// Program specific flags can be registered with "extra". Returns options and positional arguments.
func ParseParams(args []string, usage func(), extra func(*flag.FlagSet)) (*Options, []string, error) {
	progName := filepath.Base(args[0])
	flagSet := flag.NewFlagSet(progName, flag.ContinueOnError)
	flagSet.Usage = usage

	options := new(Options)
	flagSet.StringVar(&options.ConfigPath, "config", "", "")
	flagSet.IntVar(&options.MaxTerms, "terms", 0, "")
	flagSet.DurationVar(&options.Timeout, "timeout", 0, "")
	flagSet.Func("stats", "", func(f string) error { return parseStatList(f, &options.Stats) })
	if extra != nil {
		extra(flagSet)
	}

	err := flagSet.Parse(args[1:])
	if err != nil {
		return nil, nil, err
	}

	if len(options.Stats) == 0 {
		options.Stats = DefaultStats
	}
	return options, flagSet.Args(), nil
}

// Evaluation budget - defaults, then config file and environment, then command line flags
func (o *Options) Config() (lnsin.Config, error) {
	config, err := lnsin.LoadConfig(o.ConfigPath)
	if err != nil {
		return config, err
	}

	if o.MaxTerms != 0 {
		config.MaxTerms = o.MaxTerms
	}
	if o.Timeout != 0 {
		config.Timeout = o.Timeout
	}
	return config, config.Validate()
}

// Prints headers for statistics columns
//
//nolint:errcheck
func PrintHeader(sink *os.File, statList StatList) {
	fmt.Fprintf(sink, "%-*s", labelWidth, "Task")
	for _, s := range statList {
		fmt.Fprintf(sink, " %*s", colWidth, nameMap[s])
	}
	fmt.Fprintln(sink)
}

// Prints selected statistics of one task
//
//nolint:errcheck
func PrintValues(sink *os.File, label string, statList StatList, stats bench.RunStats) {
	fmt.Fprintf(sink, "%-*s", labelWidth, label)
	for _, s := range statList {
		fmt.Fprintf(sink, " %*.2f", colWidth, statValue(s, stats))
	}
	fmt.Fprintln(sink)
}

func statValue(s StatType, stats bench.RunStats) float64 {
	switch s {
	case Count:
		return float64(stats.Count)
	case Fails:
		return float64(stats.Fails)
	case Min:
		return millis(stats.MinTime)
	case Med:
		return millis(stats.MedTime)
	case Max:
		return millis(stats.MaxTime)
	case Avg:
		return millis(stats.AvgTime)
	case StdDev:
		return millis(stats.StdDev)
	}
	return 0
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Aid fo unexpected errors without recovery
func AssertNoErr[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// Recover from error - assume default value
func AssumeOnErr[T any](f func() (T, error), defVal T) T {
	val, err := f()
	if err != nil {
		return defVal
	}
	return val
}
