package results

type Reason string

const (
	// ReasonUnknown is default reason. Occurrences of this reason in logs
	// indicate a bug, a failure to identify the reason for an error somewhere.
	ReasonUnknown Reason = "unknown"

	// ReasonTransport means a remote or cached resource could not be read.
	ReasonTransport Reason = "transport"
	// ReasonDecode means the experiment manifest did not have the expected shape.
	ReasonDecode Reason = "decode"
	// ReasonConfig means the configuration file could not be read or is malformed.
	ReasonConfig Reason = "config"
	// ReasonMissingConfig means no configuration existed and a default one was written.
	ReasonMissingConfig Reason = "missing_config"
	// ReasonWritingReport means the rendered report could not be persisted.
	ReasonWritingReport Reason = "write_report"
	// ReasonInvalidExperiment means an experiment name cannot be used as a path segment.
	ReasonInvalidExperiment Reason = "invalid_experiment"
	// ReasonInterrupted means the analysis was cancelled before it completed.
	ReasonInterrupted Reason = "interrupted"
)
