package metrics

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/openshift/crater-report-analyzer/pkg/classifier"
	"github.com/openshift/crater-report-analyzer/pkg/signatures"
)

// steps is how many progress lines are logged for one experiment at most,
// besides the first and the last one.
const steps = 10

type experimentProgress struct {
	total     int
	processed int
	failed    int
	step      int
}

// Progress logs how far the analysis of every experiment got and records
// the outcome of every run.
type Progress struct {
	logger *logrus.Entry

	lock        sync.Mutex
	experiments map[string]*experimentProgress
}

var _ classifier.Progress = &Progress{}

// NewProgress creates a progress reporter logging to the entry.
func NewProgress(logger *logrus.Entry) *Progress {
	return &Progress{logger: logger, experiments: map[string]*experimentProgress{}}
}

func (p *Progress) Start(experiment string, total int) {
	step := total / steps
	if step < 1 {
		step = 1
	}
	p.lock.Lock()
	p.experiments[experiment] = &experimentProgress{total: total, step: step}
	p.lock.Unlock()
	p.logger.WithFields(logrus.Fields{"experiment": experiment, "total": total}).Info("Processing logs.")
}

func (p *Progress) Processed(experiment string, outcome classifier.Outcome, matches signatures.Matches) {
	observeRun(experiment, outcome, matches)

	p.lock.Lock()
	state, ok := p.experiments[experiment]
	if !ok {
		p.lock.Unlock()
		return
	}
	state.processed++
	if outcome == classifier.OutcomeFailed {
		state.failed++
	}
	processed, total, failed := state.processed, state.total, state.failed
	report := processed%state.step == 0 && processed != total
	p.lock.Unlock()

	if report {
		p.logger.WithFields(logrus.Fields{"experiment": experiment, "failed": failed}).Infof("Processed %d/%d logs.", processed, total)
	}
}

func (p *Progress) Finish(experiment string) {
	p.lock.Lock()
	state, ok := p.experiments[experiment]
	delete(p.experiments, experiment)
	p.lock.Unlock()
	if !ok {
		return
	}
	p.logger.WithFields(logrus.Fields{"experiment": experiment, "failed": state.failed}).Infof("Processed %d/%d logs.", state.processed, state.total)
}
