package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	prowconfig "sigs.k8s.io/prow/pkg/config"
	prowmetrics "sigs.k8s.io/prow/pkg/metrics"

	"github.com/openshift/crater-report-analyzer/pkg/classifier"
	"github.com/openshift/crater-report-analyzer/pkg/fetcher"
	"github.com/openshift/crater-report-analyzer/pkg/signatures"
)

const component = "crater-report-analyzer"

var (
	contentFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crater_report_analyzer_content_fetched_total",
			Help: "Number of manifests and logs handed out, by where they came from.",
		},
		[]string{"source"},
	)
	bytesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crater_report_analyzer_content_fetched_bytes_total",
			Help: "Size of the manifests and logs handed out, by where they came from.",
		},
		[]string{"source"},
	)
	runsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crater_report_analyzer_runs_processed_total",
			Help: "Number of eligible runs processed, by outcome.",
		},
		[]string{"experiment", "outcome"},
	)
	findings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crater_report_analyzer_findings_total",
			Help: "Number of signature occurrences found in logs.",
		},
		[]string{"experiment", "finding"},
	)
	experiments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crater_report_analyzer_experiments_total",
			Help: "Number of experiments analyzed, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(contentFetched, bytesFetched, runsProcessed, findings, experiments)
}

// Expose serves the registered metrics on the port.
func Expose(port int) {
	prowmetrics.ExposeMetrics(component, prowconfig.PushGateway{}, port)
}

// ObserveFetch records content handed out by a fetcher.Fetcher.
func ObserveFetch(source fetcher.Source, size int) {
	contentFetched.WithLabelValues(string(source)).Inc()
	bytesFetched.WithLabelValues(string(source)).Add(float64(size))
}

var _ fetcher.Observer = ObserveFetch

// ObserveExperiment records whether the analysis of an experiment succeeded.
func ObserveExperiment(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	experiments.WithLabelValues(result).Inc()
}

func observeRun(experiment string, outcome classifier.Outcome, matches signatures.Matches) {
	runsProcessed.WithLabelValues(experiment, string(outcome)).Inc()
	for name, count := range matches {
		findings.WithLabelValues(experiment, name).Add(float64(count))
	}
}
