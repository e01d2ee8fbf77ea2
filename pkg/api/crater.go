package api

import (
	"encoding/json"
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Report is the results.json manifest published for a crater experiment.
type Report struct {
	Crates []CrateResult `json:"crates"`
}

// CrateResult holds the aggregate outcome for one crate and the outcome of
// every toolchain it was built with. A nil run means that configuration did
// not execute.
type CrateResult struct {
	Name   string       `json:"name"`
	URL    string       `json:"url,omitempty"`
	Result string       `json:"res"`
	Runs   []*RunResult `json:"runs"`
}

// RunResult is the outcome of a single configuration. Log is an opaque
// reference to the raw build log, relative to the experiment.
type RunResult struct {
	Result string `json:"res"`
	Log    string `json:"log"`
}

// UnmarshalJSON rejects crates that miss any of the fields the analysis depends on.
func (c *CrateResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name   *string       `json:"name"`
		URL    *string       `json:"url"`
		Result *string       `json:"res"`
		Runs   *[]*RunResult `json:"runs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var errs []error
	if raw.Name == nil {
		errs = append(errs, errors.New("missing field \"name\""))
	}
	if raw.Result == nil {
		errs = append(errs, errors.New("missing field \"res\""))
	}
	if raw.Runs == nil {
		errs = append(errs, errors.New("missing field \"runs\""))
	}
	if err := utilerrors.NewAggregate(errs); err != nil {
		if raw.Name != nil {
			return fmt.Errorf("crate %q: %w", *raw.Name, err)
		}
		return fmt.Errorf("crate: %w", err)
	}
	*c = CrateResult{Name: *raw.Name, Result: *raw.Result, Runs: *raw.Runs}
	if raw.URL != nil {
		c.URL = *raw.URL
	}
	return nil
}

// UnmarshalJSON rejects runs that miss their result or log reference.
func (r *RunResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Result *string `json:"res"`
		Log    *string `json:"log"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Result == nil:
		return errors.New("run: missing field \"res\"")
	case raw.Log == nil:
		return errors.New("run: missing field \"log\"")
	}
	*r = RunResult{Result: *raw.Result, Log: *raw.Log}
	return nil
}

// DecodeReport parses a results.json document.
func DecodeReport(data []byte) (*Report, error) {
	var raw struct {
		Crates *[]CrateResult `json:"crates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Crates == nil {
		return nil, errors.New("missing field \"crates\"")
	}
	return &Report{Crates: *raw.Crates}, nil
}

// AnalysisReport is the outcome of classifying the logs of one experiment.
type AnalysisReport struct {
	Experiment          string
	ExpectedCrateResult string
	ExpectedRunResult   string

	// RegressedCount is the number of crates whose result matched ExpectedCrateResult.
	RegressedCount int
	// EligibleRunCount is the number of runs of regressed crates whose result
	// matched ExpectedRunResult. Runs whose log could not be fetched are still
	// counted here even though they appear neither in Findings nor in Unclassified.
	EligibleRunCount int

	// Findings counts occurrences per finding name.
	Findings map[string]int
	// Unclassified maps a crate to the log references that matched no finding.
	Unclassified map[string][]string

	// FailedFetches is the number of eligible runs dropped because their log
	// could not be retrieved. It is never rendered.
	FailedFetches int
}

// FindingsSum is the total over all finding counts. It is not related to EligibleRunCount.
func (r AnalysisReport) FindingsSum() int {
	var sum int
	for _, count := range r.Findings {
		sum += count
	}
	return sum
}

// UnclassifiedRuns is the number of log references in Unclassified.
func (r AnalysisReport) UnclassifiedRuns() int {
	var total int
	for _, logs := range r.Unclassified {
		total += len(logs)
	}
	return total
}
