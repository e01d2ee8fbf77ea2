package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"sigs.k8s.io/yaml"

	"github.com/openshift/crater-report-analyzer/pkg/results"
	"github.com/openshift/crater-report-analyzer/pkg/signatures"
)

func TestLoad(t *testing.T) {
	var testCases = []struct {
		name           string
		content        string
		expected       *Config
		expectedReason results.Reason
	}{
		{
			name: "valid configuration",
			content: `crate_result: error
run_result: error
targets:
  no-space:
  - all: ["no space left on device"]
  checksum mismatch:
  - all: ["error: checksum for ", " changed between lock files"]
`,
			expected: &Config{
				CrateResult: "error",
				RunResult:   "error",
				Targets: map[string][]Target{
					"no-space":          {{All: []string{"no space left on device"}}},
					"checksum mismatch": {{All: []string{"error: checksum for ", " changed between lock files"}}},
				},
			},
		},
		{
			name: "custom error code pattern",
			content: `crate_result: regressed
run_result: build-fail:unknown
error_code_pattern: 'error\[(E\d+)\]'
targets: {}
`,
			expected: &Config{
				CrateResult:      "regressed",
				RunResult:        "build-fail:unknown",
				ErrorCodePattern: `error\[(E\d+)\]`,
				Targets:          map[string][]Target{},
			},
		},
		{
			name:           "malformed yaml",
			content:        "crate_result: [",
			expectedReason: results.ReasonConfig,
		},
		{
			name:           "unknown field",
			content:        "crate_result: error\nrun_result: error\nothers: true\n",
			expectedReason: results.ReasonConfig,
		},
		{
			name:           "missing outcomes",
			content:        "targets: {}\n",
			expectedReason: results.ReasonConfig,
		},
		{
			name:           "empty fragment",
			content:        "crate_result: error\nrun_result: error\ntargets:\n  broken:\n  - all: [\"\"]\n",
			expectedReason: results.ReasonConfig,
		},
		{
			name:           "pattern without capture group",
			content:        "crate_result: error\nrun_result: error\nerror_code_pattern: 'E\\d+'\n",
			expectedReason: results.ReasonConfig,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "analysis-config.yaml")
			if err := os.WriteFile(path, []byte(testCase.content), 0644); err != nil {
				t.Fatal(err)
			}
			actual, err := Load(path)
			if testCase.expectedReason != "" {
				if !results.HasReason(err, testCase.expectedReason) {
					t.Fatalf("expected an error with reason %s, got %v", testCase.expectedReason, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(testCase.expected, actual); diff != "" {
				t.Errorf("got incorrect configuration: %s", diff)
			}
		})
	}
}

func TestLoadWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "analysis-config.yaml")
	_, err := Load(path)
	if !results.HasReason(err, results.ReasonMissingConfig) {
		t.Fatalf("expected a missing configuration error, got %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected the default configuration to be written: %v", err)
	}
	var written Config
	if err := yaml.Unmarshal(raw, &written); err != nil {
		t.Fatalf("written configuration is not valid yaml: %v", err)
	}
	if diff := cmp.Diff(Default(), &written); diff != "" {
		t.Errorf("written configuration differs from the default: %s", diff)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("expected the written default to load: %v", err)
	}
	if diff := cmp.Diff(Default(), loaded); diff != "" {
		t.Errorf("loaded configuration differs from the default: %s", diff)
	}
}

func TestDefault(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
	if config.CrateResult != "error" || config.RunResult != "error" {
		t.Errorf("expected failed crates and runs by default, got %q and %q", config.CrateResult, config.RunResult)
	}
	if diff := cmp.Diff([]Target{
		{All: []string{"error: failed to parse manifest at"}},
		{All: []string{"error: invalid table header"}},
		{All: []string{"error: invalid type: ", ", expected "}},
	}, config.Targets["invalid manifest"]); diff != "" {
		t.Errorf("alternatives of one name must keep their order: %s", diff)
	}
	if len(config.Targets) != 30 {
		t.Errorf("expected 30 built-in finding names, got %d", len(config.Targets))
	}
}

func TestSignatureSet(t *testing.T) {
	set, err := Default().SignatureSet()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log := `[INFO] [stdout] error[E0308]: mismatched types
[INFO] [stderr] error: failed to download from ` + "`https://static.crates.io`" + `
[ERROR] this task or one of its parent failed: No space left on device
error: checksum for ` + "`foo v1.0.0`" + ` changed between lock files`
	expected := signatures.Matches{
		"E0308":                            1,
		"download":                         1,
		"task or parent failed (no space)": 1,
		"checksum mismatch":                1,
	}
	if diff := cmp.Diff(expected, set.Classify(log)); diff != "" {
		t.Errorf("got incorrect matches: %s", diff)
	}

	custom := &Config{CrateResult: "error", RunResult: "error", ErrorCodePattern: `warning\[(W\d+)\]`}
	set, err = custom.SignatureSet()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(signatures.Matches{"W1": 1}, set.Classify("warning[W1] and error[E0308]")); diff != "" {
		t.Errorf("got incorrect matches for a custom pattern: %s", diff)
	}
}
