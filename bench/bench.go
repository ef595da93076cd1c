// Package bench runs evaluation workloads concurrently and compares their timings.
package bench

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ericlagergren/decimal"
)

// Timing statistics of one task
type RunStats struct {
	Count     int             `json:"count" yaml:"count"`
	TotalTime time.Duration   `json:"sum_time" yaml:"sum_time"`
	AvgTime   time.Duration   `json:"avg_time" yaml:"avg_time"`
	MinTime   time.Duration   `json:"min_time" yaml:"min_time"`
	MaxTime   time.Duration   `json:"max_time" yaml:"max_time"`
	MedTime   time.Duration   `json:"med_time" yaml:"med_time"`
	StdDev    time.Duration   `json:"stdev_time" yaml:"stdev_time"`
	Fails     int             `json:"fails" yaml:"fails"`
	Values    []time.Duration `json:"times" yaml:"times"`
}

// One unit of work, e.g. a single compute(x, e) call
type Task func() error

type taskFixture struct {
	sema      chan struct{}   // concurrency throttle - shared
	waitGroup *sync.WaitGroup // completion flag - shared
	lock      sync.Mutex      // `runtimes` guard
	task      Task
	runtimes  []time.Duration
	fails     int
}

var (
	ErrNoTasks      = errors.New("bench: no tasks to run")
	ErrSizeMismatch = errors.New("bench: different number of tasks")
)

// No data struct
var ND = struct{}{}

// Runs tasks round-robin
//
//   - tasks - tasks to run
//
//   - totalRuns - total number of runs (>= len(tasks))
//
//   - concurrent - maximal number of simultaneous runs
//
//     returns time statistics for each task
func Run(tasks []Task, totalRuns int, concurrent int) ([]RunStats, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	if concurrent < 1 {
		concurrent = 1
	}

	waitGroup := new(sync.WaitGroup)
	sema := make(chan struct{}, concurrent)
	fixtures := make([]*taskFixture, len(tasks))
	for i, task := range tasks {
		fixtures[i] = createFixture(task, sema, waitGroup)
	}

	for i := 0; i < totalRuns; i++ {
		waitGroup.Add(1)
		go runOneTask(fixtures[i%len(tasks)])
	}

	waitGroup.Wait()

	return calcStats(fixtures), nil
}

// Compares two series of runs and returns probabilities that latencies in the first series
// are larger using Welch's t-test.
//
// Both series should have the same number of tasks; run counts may differ but should exceed 1.
func CalcPvals(stats1, stats2 []RunStats) ([]float64, error) {
	if len(stats1) != len(stats2) {
		return nil, ErrSizeMismatch
	}

	pVals := make([]float64, 0, len(stats1))
	for i := range stats1 {
		tRes, err := TwoSampleWelchTTest(runStats2Sample(stats1[i]), runStats2Sample(stats2[i]), LocationGreater)
		if err != nil {
			return nil, fmt.Errorf("invalid statistics data in task %d: %w", i, err)
		}
		pVals = append(pVals, tRes.P)
	}

	return pVals, nil
}

func createFixture(task Task, sema chan struct{}, waitGroup *sync.WaitGroup) *taskFixture {
	return &taskFixture{
		sema:      sema,
		waitGroup: waitGroup,
		task:      task,
		runtimes:  make([]time.Duration, 0),
	}
}

func runOneTask(fixture *taskFixture) {
	fixture.sema <- ND
	defer func() { <-fixture.sema }()
	defer fixture.waitGroup.Done()

	start := time.Now()
	err := fixture.task()
	execTime := time.Since(start)

	fixture.lock.Lock()
	fixture.runtimes = append(fixture.runtimes, execTime)
	if err != nil {
		fixture.fails++
	}
	fixture.lock.Unlock()
}

func calcStats(fixtures []*taskFixture) []RunStats {
	ret := make([]RunStats, 0, len(fixtures))

	precCtx := decimal.Context128
	for _, fixture := range fixtures {
		testCount := len(fixture.runtimes)
		if testCount == 0 {
			ret = append(ret, RunStats{Values: fixture.runtimes})
			continue
		}

		sorttimes := make([]time.Duration, testCount)
		copy(sorttimes, fixture.runtimes)
		sort.Slice(sorttimes, func(i, j int) bool { return sorttimes[i] < sorttimes[j] })

		sum := new(decimal.Big)
		sum2 := new(decimal.Big)
		bigT := new(decimal.Big)
		for _, t := range sorttimes {
			bigT.SetUint64(uint64(t))
			precCtx.Add(sum, sum, bigT)
			precCtx.Add(sum2, sum2, precCtx.Mul(bigT, bigT, bigT))
		}

		fSum := big2float(sum)
		fCount := float64(testCount)
		stats := RunStats{
			Count:     testCount,
			TotalTime: time.Duration(fSum),
			AvgTime:   time.Duration(fSum / fCount),
			MinTime:   sorttimes[0],
			MedTime:   sorttimes[testCount/2],
			MaxTime:   sorttimes[testCount-1],
			Fails:     fixture.fails,
			Values:    fixture.runtimes,
		}
		if testCount > 1 {
			variance := big2float(sum2)/(fCount-1) - fSum*fSum/fCount/(fCount-1)
			stats.StdDev = time.Duration(math.Sqrt(math.Max(variance, 0)))
		}

		ret = append(ret, stats)
	}
	return ret
}

func big2float(val *decimal.Big) float64 {
	conv, _ := val.Float64()
	return conv
}
