package classifier

import (
	"context"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/openshift/crater-report-analyzer/pkg/api"
	"github.com/openshift/crater-report-analyzer/pkg/signatures"
)

// fallbackConcurrency is used when the number of CPUs cannot be determined.
const fallbackConcurrency = 20

// DefaultConcurrency is the number of logs fetched and classified at once
// unless configured otherwise.
func DefaultConcurrency() int64 {
	if n := 2 * runtime.NumCPU(); n > 0 {
		return int64(n)
	}
	return fallbackConcurrency
}

// LogSource hands out the raw build log of a run.
type LogSource interface {
	FetchLog(ctx context.Context, experiment, log string) ([]byte, error)
}

// Outcome is what happened to a single eligible run.
type Outcome string

const (
	// OutcomeClassified means at least one finding matched the log.
	OutcomeClassified Outcome = "classified"
	// OutcomeUnclassified means the log matched nothing and needs manual triage.
	OutcomeUnclassified Outcome = "unclassified"
	// OutcomeFailed means the log could not be fetched and the run was dropped.
	OutcomeFailed Outcome = "failed"
)

// Progress is told about the work an analysis is doing. Calls for one
// experiment never happen concurrently.
type Progress interface {
	Start(experiment string, total int)
	Processed(experiment string, outcome Outcome, matches signatures.Matches)
	Finish(experiment string)
}

type noopProgress struct{}

func (noopProgress) Start(string, int)                             {}
func (noopProgress) Processed(string, Outcome, signatures.Matches) {}
func (noopProgress) Finish(string)                                 {}

// WorkItem is an eligible run: a run of a regressed crate with the expected result.
type WorkItem struct {
	Crate string
	Log   string
}

// Filter lists the eligible runs in manifest order and counts the regressed crates.
// Runs that did not execute are skipped.
func Filter(report *api.Report, crateResult, runResult string) ([]WorkItem, int) {
	var items []WorkItem
	var regressed int
	for _, crate := range report.Crates {
		if crate.Result != crateResult {
			continue
		}
		regressed++
		for _, run := range crate.Runs {
			if run == nil || run.Result != runResult {
				continue
			}
			items = append(items, WorkItem{Crate: crate.Name, Log: run.Log})
		}
	}
	return items, regressed
}

// Classifier fetches the logs of eligible runs and matches them against signatures.
type Classifier struct {
	Signatures  *signatures.Set
	CrateResult string
	RunResult   string
	Source      LogSource

	// Concurrency bounds the logs in flight. Defaults to DefaultConcurrency.
	Concurrency int64
	// Progress may be nil.
	Progress Progress
	Logger   *logrus.Entry
}

type result struct {
	item    WorkItem
	matches signatures.Matches
	err     error
}

// Classify runs the analysis of one experiment. Logs that cannot be fetched
// are logged and left out of both findings and unclassified runs, they only
// show up in EligibleRunCount and FailedFetches.
func (c *Classifier) Classify(ctx context.Context, experiment string, report *api.Report) api.AnalysisReport {
	logger := c.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithField("experiment", experiment)
	progress := c.Progress
	if progress == nil {
		progress = noopProgress{}
	}
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}

	items, regressed := Filter(report, c.CrateResult, c.RunResult)
	analysis := api.AnalysisReport{
		Experiment:          experiment,
		ExpectedCrateResult: c.CrateResult,
		ExpectedRunResult:   c.RunResult,
		RegressedCount:      regressed,
		EligibleRunCount:    len(items),
		Findings:            map[string]int{},
		Unclassified:        map[string][]string{},
	}
	progress.Start(experiment, len(items))
	defer progress.Finish(experiment)

	results := make(chan result, concurrency)
	wg := &sync.WaitGroup{}
	sem := semaphore.NewWeighted(concurrency)
	go func() {
		for _, item := range items {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- result{item: item, err: err}
				continue
			}
			wg.Add(1)
			go func(item WorkItem) {
				defer wg.Done()
				defer sem.Release(1)
				log, err := c.Source.FetchLog(ctx, experiment, item.Log)
				if err != nil {
					results <- result{item: item, err: err}
					return
				}
				results <- result{item: item, matches: c.Signatures.Classify(string(log))}
			}(item)
		}
	}()

	for range items {
		r := <-results
		switch {
		case r.err != nil:
			logger.WithFields(logrus.Fields{"crate": r.item.Crate, "log": r.item.Log}).WithError(r.err).Warn("Failed to fetch log, leaving it out of the analysis.")
			analysis.FailedFetches++
			progress.Processed(experiment, OutcomeFailed, nil)
		case len(r.matches) == 0:
			analysis.Unclassified[r.item.Crate] = append(analysis.Unclassified[r.item.Crate], r.item.Log)
			progress.Processed(experiment, OutcomeUnclassified, r.matches)
		default:
			for name, count := range r.matches {
				analysis.Findings[name] += count
			}
			progress.Processed(experiment, OutcomeClassified, r.matches)
		}
	}
	wg.Wait()
	return analysis
}
