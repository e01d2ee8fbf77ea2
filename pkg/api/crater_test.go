package api

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeReport(t *testing.T) {
	var testCases = []struct {
		name        string
		data        string
		expected    *Report
		expectedErr string
	}{
		{
			name: "complete manifest",
			data: `{"crates":[{"name":"foo","url":"https://crates.io/crates/foo","res":"error","runs":[{"res":"error","log":"stable/reg/foo-1.0"},null]}]}`,
			expected: &Report{Crates: []CrateResult{{
				Name:   "foo",
				URL:    "https://crates.io/crates/foo",
				Result: "error",
				Runs:   []*RunResult{{Result: "error", Log: "stable/reg/foo-1.0"}, nil},
			}}},
		},
		{
			name:     "url is optional",
			data:     `{"crates":[{"name":"foo","res":"test-pass","runs":[]}]}`,
			expected: &Report{Crates: []CrateResult{{Name: "foo", Result: "test-pass", Runs: []*RunResult{}}}},
		},
		{
			name:        "missing crates",
			data:        `{}`,
			expectedErr: `missing field "crates"`,
		},
		{
			name:        "crate without result",
			data:        `{"crates":[{"name":"foo","runs":[]}]}`,
			expectedErr: `crate "foo": missing field "res"`,
		},
		{
			name:        "crate without anything",
			data:        `{"crates":[{}]}`,
			expectedErr: `crate: [missing field "name", missing field "res", missing field "runs"]`,
		},
		{
			name:        "run without log",
			data:        `{"crates":[{"name":"foo","res":"error","runs":[{"res":"error"}]}]}`,
			expectedErr: `run: missing field "log"`,
		},
		{
			name:        "wrong type",
			data:        `{"crates":[{"name":1,"res":"error","runs":[]}]}`,
			expectedErr: `cannot unmarshal number`,
		},
		{
			name:        "not json",
			data:        `<html>`,
			expectedErr: `invalid character '<'`,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			actual, err := DecodeReport([]byte(testCase.data))
			if testCase.expectedErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got none", testCase.expectedErr)
				}
				if !strings.Contains(err.Error(), testCase.expectedErr) {
					t.Fatalf("expected error containing %q, got %v", testCase.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(testCase.expected, actual); diff != "" {
				t.Errorf("got incorrect report: %s", diff)
			}
		})
	}
}

func TestAnalysisReportTotals(t *testing.T) {
	report := AnalysisReport{
		EligibleRunCount: 4,
		Findings:         map[string]int{"no-space": 3, "E0308": 2},
		Unclassified:     map[string][]string{"foo": {"a", "b"}, "bar": {"c"}},
	}
	if actual, expected := report.FindingsSum(), 5; actual != expected {
		t.Errorf("expected findings sum %d, got %d", expected, actual)
	}
	if actual, expected := report.UnclassifiedRuns(), 3; actual != expected {
		t.Errorf("expected %d unclassified runs, got %d", expected, actual)
	}
}
