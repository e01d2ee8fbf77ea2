package analyzer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/openshift/crater-report-analyzer/pkg/api"
	"github.com/openshift/crater-report-analyzer/pkg/classifier"
	"github.com/openshift/crater-report-analyzer/pkg/config"
	"github.com/openshift/crater-report-analyzer/pkg/fetcher"
	"github.com/openshift/crater-report-analyzer/pkg/report"
	"github.com/openshift/crater-report-analyzer/pkg/results"
	"github.com/openshift/crater-report-analyzer/pkg/signatures"
)

// DefaultExperimentConcurrency is the number of experiments analyzed at once.
const DefaultExperimentConcurrency = 5

// Options configure an analysis run over several experiments.
type Options struct {
	Experiments []string
	Config      *config.Config
	Fetcher     *fetcher.Fetcher

	// Concurrency bounds the logs in flight per experiment.
	Concurrency int64
	// ExperimentConcurrency bounds the experiments analyzed at once.
	ExperimentConcurrency int

	// OutputDir receives one {experiment}.report per experiment unless
	// Output is set, in which case all reports are printed there.
	OutputDir string
	Output    io.Writer

	Progress classifier.Progress
	// Observe is told about the result of every experiment. It may be nil.
	Observe func(err error)
	Logger  *logrus.Entry
}

type analyzer struct {
	options    Options
	signatures *signatures.Set
	logger     *logrus.Entry

	outputLock sync.Mutex
}

// Run analyzes every experiment. An experiment whose manifest cannot be
// loaded or whose report cannot be written does not stop the others. No
// report is written for an experiment whose analysis was interrupted. Once all
// are done the error of the first failed experiment, in the order given, is
// returned.
func Run(ctx context.Context, o Options) error {
	set, err := o.Config.SignatureSet()
	if err != nil {
		return results.ForReason(results.ReasonConfig).WithError(err).Errorf("invalid signatures")
	}
	logger := o.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	limit := o.ExperimentConcurrency
	if limit <= 0 {
		limit = DefaultExperimentConcurrency
	}
	a := &analyzer{options: o, signatures: set, logger: logger}

	errs := make([]error, len(o.Experiments))
	g := errgroup.Group{}
	g.SetLimit(limit)
	for i, experiment := range o.Experiments {
		g.Go(func() error {
			errs[i] = a.analyze(ctx, experiment)
			if o.Observe != nil {
				o.Observe(errs[i])
			}
			if errs[i] != nil {
				logger.WithField("experiment", experiment).WithField("reason", results.FullReason(errs[i])).WithError(errs[i]).Error("Failed to analyze experiment.")
			}
			return nil
		})
	}
	// the goroutines never fail, errors are collected per experiment
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) analyze(ctx context.Context, experiment string) error {
	if err := api.ValidateExperiment(experiment); err != nil {
		return results.ForReason(results.ReasonInvalidExperiment).WithError(err).Errorf("invalid experiment")
	}
	logger := a.logger.WithField("experiment", experiment)
	logger.Info("Getting crater report.")
	manifest, err := fetcher.LoadReport(ctx, a.options.Fetcher, experiment)
	if err != nil {
		return fmt.Errorf("experiment %s: %w", experiment, err)
	}

	c := &classifier.Classifier{
		Signatures:  a.signatures,
		CrateResult: a.options.Config.CrateResult,
		RunResult:   a.options.Config.RunResult,
		Source:      a.options.Fetcher,
		Concurrency: a.options.Concurrency,
		Progress:    a.options.Progress,
		Logger:      a.logger,
	}
	analysis := c.Classify(ctx, experiment, manifest)
	if err := ctx.Err(); err != nil {
		// logs dropped by the cancellation would make the report look complete
		return results.ForReason(results.ReasonInterrupted).WithError(err).Errorf("analysis of experiment %s was interrupted, not writing a report", experiment)
	}
	if analysis.FailedFetches > 0 {
		logger.WithField("failed", analysis.FailedFetches).Warn("Some logs could not be fetched, they are missing from the report.")
	}
	return a.write(logger, analysis)
}

func (a *analyzer) write(logger *logrus.Entry, analysis api.AnalysisReport) error {
	if a.options.Output != nil {
		rendered := report.String(analysis)
		a.outputLock.Lock()
		defer a.outputLock.Unlock()
		if _, err := io.WriteString(a.options.Output, rendered); err != nil {
			return results.ForReason(results.ReasonWritingReport).WithError(err).Errorf("could not print report for experiment %s", analysis.Experiment)
		}
		return nil
	}
	path, err := report.WriteFile(a.options.OutputDir, analysis)
	if err != nil {
		return err
	}
	logger.WithField("path", path).Info("Report written.")
	return nil
}
