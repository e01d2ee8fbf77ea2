package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"

	"github.com/openshift/crater-report-analyzer/pkg/results"
	"github.com/openshift/crater-report-analyzer/pkg/signatures"
)

// DefaultPath is where the analysis configuration is looked up unless told otherwise.
const DefaultPath = "./analysis-config.yaml"

// Config selects the outcomes to analyze and the signatures logs are matched against.
type Config struct {
	// CrateResult is the crate outcome that marks a crate as regressed.
	CrateResult string `json:"crate_result"`
	// RunResult is the run outcome whose logs get classified.
	RunResult string `json:"run_result"`
	// ErrorCodePattern overrides the expression extracting compiler error
	// codes. Its first capture group names the finding.
	ErrorCodePattern string `json:"error_code_pattern,omitempty"`
	// Targets maps a finding name to the signatures that identify it.
	Targets map[string][]Target `json:"targets"`
}

// Target matches a log line that contains all of its fragments.
type Target struct {
	All []string `json:"all"`
}

// Validate checks the configuration for values the analysis cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.CrateResult == "" {
		errs = append(errs, errors.New("crate_result must be set"))
	}
	if c.RunResult == "" {
		errs = append(errs, errors.New("run_result must be set"))
	}
	for name, targets := range c.Targets {
		if len(targets) == 0 {
			errs = append(errs, fmt.Errorf("targets.%s: at least one target is required", name))
		}
		for i, target := range targets {
			if _, err := signatures.NewLiteral(target.All...); err != nil {
				errs = append(errs, fmt.Errorf("targets.%s[%d]: %w", name, i, err))
			}
		}
	}
	if _, err := c.errorCodeSignature(); err != nil {
		errs = append(errs, fmt.Errorf("error_code_pattern: %w", err))
	}
	return utilerrors.NewAggregate(errs)
}

func (c *Config) errorCodeSignature() (signatures.Signature, error) {
	pattern := c.ErrorCodePattern
	if pattern == "" {
		pattern = signatures.DefaultErrorCodePattern
	}
	return signatures.NewRegex(pattern, 1)
}

// SignatureSet builds the matchers for the configured targets and error codes.
func (c *Config) SignatureSet() (*signatures.Set, error) {
	literals := make(map[string][]signatures.Signature, len(c.Targets))
	for name, targets := range c.Targets {
		for _, target := range targets {
			signature, err := signatures.NewLiteral(target.All...)
			if err != nil {
				return nil, fmt.Errorf("targets.%s: %w", name, err)
			}
			literals[name] = append(literals[name], signature)
		}
	}
	code, err := c.errorCodeSignature()
	if err != nil {
		return nil, fmt.Errorf("error_code_pattern: %w", err)
	}
	return signatures.NewSet(literals, &code)
}

// Load reads the configuration at path. When nothing exists there yet, the
// built-in configuration is written to path and a ReasonMissingConfig error is
// returned so the user can review it before the first analysis.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, results.ForReason(results.ReasonConfig).WithError(err).Errorf("configuration %s not found and the default could not be written", path)
		}
		return nil, results.ForReason(results.ReasonMissingConfig).Errorf("configuration not found, default written to %s", path)
	}
	if err != nil {
		return nil, results.ForReason(results.ReasonConfig).WithError(err).Errorf("failed to read configuration %s", path)
	}

	var config Config
	if err := yaml.UnmarshalStrict(raw, &config); err != nil {
		return nil, results.ForReason(results.ReasonConfig).WithError(err).Errorf("failed to load configuration %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, results.ForReason(results.ReasonConfig).WithError(err).Errorf("invalid configuration %s", path)
	}
	return &config, nil
}

func writeDefault(path string) error {
	raw, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default configuration: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}
	}
	return os.WriteFile(path, raw, 0644)
}
