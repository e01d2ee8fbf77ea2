package metrics

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/openshift/crater-report-analyzer/pkg/classifier"
	"github.com/openshift/crater-report-analyzer/pkg/fetcher"
	"github.com/openshift/crater-report-analyzer/pkg/signatures"
)

func TestObserveFetch(t *testing.T) {
	cached := testutil.ToFloat64(contentFetched.WithLabelValues(string(fetcher.SourceCache)))
	remoteBytes := testutil.ToFloat64(bytesFetched.WithLabelValues(string(fetcher.SourceRemote)))

	ObserveFetch(fetcher.SourceCache, 10)
	ObserveFetch(fetcher.SourceRemote, 32)

	if diff := cmp.Diff(cached+1, testutil.ToFloat64(contentFetched.WithLabelValues(string(fetcher.SourceCache)))); diff != "" {
		t.Errorf("got incorrect cache fetches: %s", diff)
	}
	if diff := cmp.Diff(remoteBytes+32, testutil.ToFloat64(bytesFetched.WithLabelValues(string(fetcher.SourceRemote)))); diff != "" {
		t.Errorf("got incorrect remote bytes: %s", diff)
	}
}

func TestObserveExperiment(t *testing.T) {
	success := testutil.ToFloat64(experiments.WithLabelValues("success"))
	failure := testutil.ToFloat64(experiments.WithLabelValues("failure"))

	ObserveExperiment(nil)
	ObserveExperiment(errors.New("could not fetch pr-1/results.json"))
	ObserveExperiment(nil)

	if actual := testutil.ToFloat64(experiments.WithLabelValues("success")); actual != success+2 {
		t.Errorf("expected %v successful experiments, got %v", success+2, actual)
	}
	if actual := testutil.ToFloat64(experiments.WithLabelValues("failure")); actual != failure+1 {
		t.Errorf("expected %v failed experiments, got %v", failure+1, actual)
	}
}

func TestProgress(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	progress := NewProgress(logrus.NewEntry(logger))

	progress.Start("pr-progress", 20)
	for i := 0; i < 20; i++ {
		outcome, matches := classifier.OutcomeClassified, signatures.Matches{"no-space": 1}
		if i%5 == 0 {
			outcome, matches = classifier.OutcomeFailed, nil
		}
		progress.Processed("pr-progress", outcome, matches)
	}
	progress.Finish("pr-progress")

	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	expected := []string{
		"Processing logs.",
		"Processed 2/20 logs.",
		"Processed 4/20 logs.",
		"Processed 6/20 logs.",
		"Processed 8/20 logs.",
		"Processed 10/20 logs.",
		"Processed 12/20 logs.",
		"Processed 14/20 logs.",
		"Processed 16/20 logs.",
		"Processed 18/20 logs.",
		"Processed 20/20 logs.",
	}
	if diff := cmp.Diff(expected, messages); diff != "" {
		t.Errorf("got incorrect progress lines: %s", diff)
	}
	if failed := hook.LastEntry().Data["failed"]; failed != 4 {
		t.Errorf("expected 4 failed runs in the summary, got %v", failed)
	}

	if actual := testutil.ToFloat64(runsProcessed.WithLabelValues("pr-progress", string(classifier.OutcomeClassified))); actual != 16 {
		t.Errorf("expected 16 classified runs, got %v", actual)
	}
	if actual := testutil.ToFloat64(findings.WithLabelValues("pr-progress", "no-space")); actual != 16 {
		t.Errorf("expected 16 no-space findings, got %v", actual)
	}
}

func TestProgressWithoutRuns(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	progress := NewProgress(logrus.NewEntry(logger))
	progress.Start("pr-empty", 0)
	progress.Finish("pr-empty")
	progress.Finish("pr-empty")
	if len(hook.AllEntries()) != 2 {
		t.Errorf("expected a start and a summary line, got %d entries", len(hook.AllEntries()))
	}
}
