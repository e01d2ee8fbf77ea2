package api

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CraterReportsURL is the public location crater publishes experiment results to.
	CraterReportsURL = "https://crater-reports.s3.amazonaws.com"
	// CraterReportsBucket is the S3 bucket behind CraterReportsURL.
	CraterReportsBucket = "crater-reports"

	ResultsJSON = "results.json"
	LogTXT      = "log.txt"

	logsDir = "logs"

	escape        = "%"
	escapedEscape = "%25"
	escapedDot    = "%2E"
)

// ValidateExperiment rejects identifiers that cannot name a single path
// segment, since they are used in cache keys and report file names.
func ValidateExperiment(experiment string) error {
	switch {
	case experiment == "":
		return errors.New("experiment name must not be empty")
	case experiment == "." || experiment == "..":
		return fmt.Errorf("experiment name must not be %q", experiment)
	case strings.ContainsAny(experiment, `/\`):
		return fmt.Errorf("experiment name %q must not contain a path separator", experiment)
	}
	return nil
}

// ReportKey is the location of an experiment's manifest, relative to the
// remote base URL and to the cache root alike.
func ReportKey(experiment string) string {
	return fmt.Sprintf("%s/%s", experiment, ResultsJSON)
}

// ReportURL is the remote location of an experiment's manifest.
func ReportURL(baseURL, experiment string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), ReportKey(experiment))
}

// LogKey is the remote key of a raw build log. The reference is used verbatim.
func LogKey(experiment, log string) string {
	return fmt.Sprintf("%s/%s/%s", experiment, log, LogTXT)
}

// LogURL is the remote location of a raw build log.
func LogURL(baseURL, experiment, log string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), LogKey(experiment, log))
}

// LogCacheKey is the cache location of a raw build log. The reference is
// sanitized so that it stays inside the experiment's log directory.
func LogCacheKey(experiment, log string) string {
	return fmt.Sprintf("%s/%s/%s/%s", experiment, logsDir, SanitizeLogReference(log), LogTXT)
}

// SanitizeLogReference maps a log reference to a relative path that neither
// escapes nor collapses the cache layout, and maps distinct references to
// distinct paths. Every segment is kept as exactly one segment: "%" is
// escaped as "%25", trailing dots as "%2E" and an empty segment becomes a
// lone "%". The result never contains "./" and never starts with "/".
func SanitizeLogReference(log string) string {
	segments := strings.Split(log, "/")
	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment)
	}
	return strings.Join(segments, "/")
}

func sanitizeSegment(segment string) string {
	if segment == "" {
		return escape
	}
	trimmed := strings.TrimRight(segment, ".")
	return strings.ReplaceAll(trimmed, escape, escapedEscape) + strings.Repeat(escapedDot, len(segment)-len(trimmed))
}
