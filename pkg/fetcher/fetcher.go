package fetcher

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/openshift/crater-report-analyzer/pkg/api"
	"github.com/openshift/crater-report-analyzer/pkg/cache"
	"github.com/openshift/crater-report-analyzer/pkg/results"
)

// Source reports where content handed out by a Fetcher came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// Observer is notified about every successful fetch.
type Observer func(source Source, size int)

// Fetcher serves experiment content from the cache and falls back to the
// remote transport, persisting whatever it downloads.
type Fetcher struct {
	cache     cache.Cache
	transport Transport
	observe   Observer
	logger    *logrus.Entry
}

// New creates a Fetcher. The observer may be nil.
func New(c cache.Cache, transport Transport, observe Observer, logger *logrus.Entry) *Fetcher {
	if observe == nil {
		observe = func(Source, int) {}
	}
	return &Fetcher{cache: c, transport: transport, observe: observe, logger: logger}
}

// Fetch returns the content cached under cacheKey, or downloads it from
// remoteKey. Failing to persist a download is logged and otherwise ignored.
func (f *Fetcher) Fetch(ctx context.Context, cacheKey, remoteKey string) ([]byte, error) {
	logger := f.logger.WithField("cache-key", cacheKey)
	data, err := cache.Read(ctx, f.cache, cacheKey)
	if err == nil {
		logger.Trace("Using cached content.")
		f.observe(SourceCache, len(data))
		return data, nil
	}
	logger.WithError(err).Debug("Failed to access cached content, falling back to downloading.")

	data, err = f.transport.Get(ctx, remoteKey)
	if err != nil {
		return nil, results.ForReason(results.ReasonTransport).WithError(err).Errorf("could not fetch %s", remoteKey)
	}
	if err := cache.Write(ctx, f.cache, cacheKey, data); err != nil {
		logger.WithError(err).Warn("Failed to cache downloaded content.")
	}
	f.observe(SourceRemote, len(data))
	return data, nil
}

// FetchLog retrieves the raw build log of a run.
func (f *Fetcher) FetchLog(ctx context.Context, experiment, log string) ([]byte, error) {
	return f.Fetch(ctx, api.LogCacheKey(experiment, log), api.LogKey(experiment, log))
}

// LoadReport retrieves and decodes the manifest of an experiment. Any
// failure here is fatal for the experiment.
func LoadReport(ctx context.Context, f *Fetcher, experiment string) (*api.Report, error) {
	data, err := f.Fetch(ctx, api.ReportKey(experiment), api.ReportKey(experiment))
	if err != nil {
		return nil, err
	}
	report, err := api.DecodeReport(data)
	if err != nil {
		return nil, results.ForReason(results.ReasonDecode).WithError(err).Errorf("could not decode %s for experiment %s", api.ResultsJSON, experiment)
	}
	return report, nil
}
