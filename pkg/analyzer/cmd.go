package analyzer

import (
	"context"
	goflag "flag"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"google.golang.org/api/option"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/prow/pkg/flagutil"
	"sigs.k8s.io/prow/pkg/interrupts"
	"sigs.k8s.io/prow/pkg/logrusutil"

	"github.com/openshift/crater-report-analyzer/pkg/api"
	"github.com/openshift/crater-report-analyzer/pkg/cache"
	"github.com/openshift/crater-report-analyzer/pkg/classifier"
	"github.com/openshift/crater-report-analyzer/pkg/config"
	"github.com/openshift/crater-report-analyzer/pkg/fetcher"
	"github.com/openshift/crater-report-analyzer/pkg/metrics"
	"github.com/openshift/crater-report-analyzer/pkg/results"
)

const (
	sourceHTTP = "http"
	sourceS3   = "s3"

	logStyleText = "text"
	logStyleJSON = "json"

	defaultS3Region = "us-west-1"
)

// Flags are the user input of the analyzer command.
type Flags struct {
	BaseURL  string
	Source   string
	S3Bucket string
	S3Region string

	CacheDir           string
	CacheBucket        string
	GCSCredentialsFile string

	OutputDir string
	Stdout    bool

	ConfigPath            string
	Concurrency           int64
	ExperimentConcurrency int

	LogLevel string
	LogStyle string

	Instrumentation flagutil.InstrumentationOptions
	exposeMetrics   bool
}

func NewFlags() *Flags {
	return &Flags{
		BaseURL:               api.CraterReportsURL,
		Source:                sourceHTTP,
		S3Bucket:              api.CraterReportsBucket,
		S3Region:              defaultS3Region,
		CacheDir:              "results",
		OutputDir:             ".",
		ConfigPath:            config.DefaultPath,
		Concurrency:           classifier.DefaultConcurrency(),
		ExperimentConcurrency: DefaultExperimentConcurrency,
		LogLevel:              logrus.InfoLevel.String(),
		LogStyle:              logStyleText,
	}
}

func (f *Flags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.BaseURL, "base-url", f.BaseURL, "Location crater publishes experiment results to.")
	fs.StringVar(&f.Source, "source", f.Source, "Where to download manifests and logs from: http or s3.")
	fs.StringVar(&f.S3Bucket, "s3-bucket", f.S3Bucket, "S3 bucket to read from when --source=s3.")
	fs.StringVar(&f.S3Region, "s3-region", f.S3Region, "Region of the S3 bucket.")
	fs.StringVar(&f.CacheDir, "cache-dir", f.CacheDir, "Directory downloaded manifests and logs are cached in.")
	fs.StringVar(&f.CacheBucket, "cache-bucket", f.CacheBucket, "GCS bucket to cache downloads in instead of --cache-dir.")
	fs.StringVar(&f.GCSCredentialsFile, "gcs-credentials-file", f.GCSCredentialsFile, "File with the credentials for --cache-bucket. Application default credentials are used when unset.")
	fs.StringVar(&f.OutputDir, "output-dir", f.OutputDir, "Directory the {experiment}.report files are written to.")
	fs.BoolVar(&f.Stdout, "stdout", f.Stdout, "Print the reports instead of writing them to --output-dir.")
	fs.StringVar(&f.ConfigPath, "config", f.ConfigPath, "Analysis configuration. A default one is written there when missing.")
	fs.Int64Var(&f.Concurrency, "concurrency", f.Concurrency, "Number of logs fetched and classified at once per experiment.")
	fs.IntVar(&f.ExperimentConcurrency, "experiment-concurrency", f.ExperimentConcurrency, "Number of experiments analyzed at once.")
	fs.StringVar(&f.LogLevel, "log-level", f.LogLevel, "Level at which to log output.")
	fs.StringVar(&f.LogStyle, "log-style", f.LogStyle, "Log format: text or json.")

	goFlags := goflag.NewFlagSet("instrumentation", goflag.ContinueOnError)
	f.Instrumentation.AddFlags(goFlags)
	fs.AddGoFlagSet(goFlags)
}

func NewCommand() *cobra.Command {
	f := NewFlags()

	cmd := &cobra.Command{
		Use:          "crater-report-analyzer EXPERIMENT...",
		Long:         `Classify the failed build logs of crater experiments and write a report per experiment`,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := interrupts.Context()
			f.exposeMetrics = cmd.Flags().Changed("metrics-port")

			if err := f.Validate(); err != nil {
				logrus.WithError(err).Fatal("Flags are invalid")
			}
			f.setupLogging()

			o, err := f.ToOptions(ctx, args)
			if err != nil {
				logrus.WithError(err).WithField("reason", results.FullReason(err)).Fatal("Failed to build runtime options")
			}

			if err := Run(ctx, *o); err != nil {
				logrus.WithError(err).WithField("reason", results.FullReason(err)).Fatal("Command failed")
			}

			return nil
		},

		Args: cobra.MatchAll(cobra.MinimumNArgs(1), validateExperiments),
	}

	f.BindFlags(cmd.Flags())

	return cmd
}

// Validate checks to see if the user-input is likely to produce functional runtime options
func (f *Flags) Validate() error {
	var errs []error
	switch f.Source {
	case sourceHTTP:
		if f.BaseURL == "" {
			errs = append(errs, fmt.Errorf("missing --base-url: like %s", api.CraterReportsURL))
		}
	case sourceS3:
		if f.S3Bucket == "" {
			errs = append(errs, fmt.Errorf("missing --s3-bucket: like %s", api.CraterReportsBucket))
		}
		if f.S3Region == "" {
			errs = append(errs, fmt.Errorf("missing --s3-region: like %s", defaultS3Region))
		}
	default:
		errs = append(errs, fmt.Errorf("--source must be one of %v, not %q", sets.List(sets.New(sourceHTTP, sourceS3)), f.Source))
	}
	if f.CacheDir == "" && f.CacheBucket == "" {
		errs = append(errs, fmt.Errorf("one of --cache-dir or --cache-bucket is required"))
	}
	if f.GCSCredentialsFile != "" && f.CacheBucket == "" {
		errs = append(errs, fmt.Errorf("--gcs-credentials-file requires --cache-bucket"))
	}
	if !f.Stdout && f.OutputDir == "" {
		errs = append(errs, fmt.Errorf("missing --output-dir: like ."))
	}
	if f.ConfigPath == "" {
		errs = append(errs, fmt.Errorf("missing --config: like %s", config.DefaultPath))
	}
	if f.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("--concurrency must be positive, not %d", f.Concurrency))
	}
	if f.ExperimentConcurrency < 1 {
		errs = append(errs, fmt.Errorf("--experiment-concurrency must be positive, not %d", f.ExperimentConcurrency))
	}
	if _, err := logrus.ParseLevel(f.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid --log-level: %w", err))
	}
	if f.LogStyle != logStyleText && f.LogStyle != logStyleJSON {
		errs = append(errs, fmt.Errorf("--log-style must be one of %s or %s, not %q", logStyleText, logStyleJSON, f.LogStyle))
	}
	if err := f.Instrumentation.Validate(false); err != nil {
		errs = append(errs, err)
	}
	return utilerrors.NewAggregate(errs)
}

func validateExperiments(_ *cobra.Command, args []string) error {
	var errs []error
	for _, experiment := range args {
		if err := api.ValidateExperiment(experiment); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

func (f *Flags) setupLogging() {
	if f.LogStyle == logStyleJSON {
		logrusutil.ComponentInit()
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	// validated before
	level, _ := logrus.ParseLevel(f.LogLevel)
	logrus.SetLevel(level)
}

// ToOptions goes from the user input to the runtime values need to run the command.
func (f *Flags) ToOptions(ctx context.Context, experiments []string) (*Options, error) {
	analysisConfig, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger := logrus.NewEntry(logrus.StandardLogger())

	contentCache, err := f.cache(ctx)
	if err != nil {
		return nil, err
	}
	transport, err := f.transport(ctx, logger)
	if err != nil {
		return nil, err
	}

	if f.exposeMetrics {
		metrics.Expose(f.Instrumentation.MetricsPort)
	}

	var output io.Writer
	if f.Stdout {
		output = os.Stdout
	}
	return &Options{
		Experiments:           experiments,
		Config:                analysisConfig,
		Fetcher:               fetcher.New(contentCache, transport, metrics.ObserveFetch, logger),
		Concurrency:           f.Concurrency,
		ExperimentConcurrency: f.ExperimentConcurrency,
		OutputDir:             f.OutputDir,
		Output:                output,
		Progress:              metrics.NewProgress(logger),
		Observe:               metrics.ObserveExperiment,
		Logger:                logger,
	}, nil
}

func (f *Flags) cache(ctx context.Context) (cache.Cache, error) {
	if f.CacheBucket == "" {
		return &cache.LocalCache{Dir: f.CacheDir}, nil
	}
	var opts []option.ClientOption
	if f.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(f.GCSCredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create GCS client: %w", err)
	}
	return &cache.BucketCache{Bucket: client.Bucket(f.CacheBucket)}, nil
}

func (f *Flags) transport(ctx context.Context, logger *logrus.Entry) (fetcher.Transport, error) {
	if f.Source == sourceS3 {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.S3Region))
		if err != nil {
			return nil, fmt.Errorf("could not load AWS configuration: %w", err)
		}
		return fetcher.NewS3Transport(cfg, f.S3Bucket), nil
	}
	return fetcher.NewHTTPTransport(f.BaseURL, logger), nil
}
