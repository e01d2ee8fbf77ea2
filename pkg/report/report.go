package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/openshift/crater-report-analyzer/pkg/api"
	"github.com/openshift/crater-report-analyzer/pkg/results"
)

const separator = "----------------------------------"

// Render writes the analysis in its textual form. Findings and crates are
// sorted, logs of a crate keep the order they were recorded in.
func Render(w io.Writer, report api.AnalysisReport) error {
	buf := bufio.NewWriter(w)
	fmt.Fprintf(buf, "Report for Crater Experiment %s\n", report.Experiment)
	fmt.Fprintf(buf, "%s crates: %d\n", report.ExpectedCrateResult, report.RegressedCount)
	fmt.Fprintf(buf, "%s runs: %d\n", report.ExpectedRunResult, report.EligibleRunCount)
	fmt.Fprintln(buf, separator)
	fmt.Fprintln(buf, "Results:")
	for _, name := range sets.List(sets.KeySet(report.Findings)) {
		fmt.Fprintf(buf, "%s: %d\n", name, report.Findings[name])
	}
	fmt.Fprintln(buf, separator)
	fmt.Fprintf(buf, "sum: %d\n", report.FindingsSum())
	fmt.Fprintf(buf, "others: %d\n", len(report.Unclassified))
	fmt.Fprintln(buf, separator)
	for _, crate := range sets.List(sets.KeySet(report.Unclassified)) {
		fmt.Fprintf(buf, "%s:\n", crate)
		for _, log := range report.Unclassified[crate] {
			fmt.Fprintf(buf, "  - %s\n", log)
		}
	}
	return buf.Flush()
}

// String renders the analysis into a string.
func String(report api.AnalysisReport) string {
	var buf bytes.Buffer
	// writing to a bytes.Buffer does not fail
	_ = Render(&buf, report)
	return buf.String()
}

// Filename is the name of the report artifact of an experiment.
func Filename(experiment string) string {
	return experiment + ".report"
}

// WriteFile renders the analysis into {experiment}.report below dir and
// returns the path it was written to.
func WriteFile(dir string, report api.AnalysisReport) (string, error) {
	path := filepath.Join(dir, Filename(report.Experiment))
	file, err := os.Create(path)
	if err != nil {
		return "", results.ForReason(results.ReasonWritingReport).WithError(err).Errorf("could not create report for experiment %s", report.Experiment)
	}
	if err := Render(file, report); err != nil {
		_ = file.Close()
		return "", results.ForReason(results.ReasonWritingReport).WithError(err).Errorf("could not write report for experiment %s", report.Experiment)
	}
	if err := file.Close(); err != nil {
		return "", results.ForReason(results.ReasonWritingReport).WithError(err).Errorf("could not close report for experiment %s", report.Experiment)
	}
	return path, nil
}
