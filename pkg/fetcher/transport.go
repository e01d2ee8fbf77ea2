package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// Transport retrieves remote content. The location is a key relative to the
// experiment results root, like pr-1/results.json.
type Transport interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type adapter struct {
	logger logrus.FieldLogger
}

func (a adapter) fields(i []interface{}) *logrus.Entry {
	logger := a.logger.WithFields(logrus.Fields{})
	for idx := 0; idx+1 < len(i); idx += 2 {
		logger = logger.WithField(fmt.Sprintf("%v", i[idx]), i[idx+1])
	}
	return logger
}

func (a adapter) Error(s string, i ...interface{}) {
	a.fields(i).Error(s)
}

func (a adapter) Info(s string, i ...interface{}) {
	a.fields(i).Debug(s)
}

func (a adapter) Debug(s string, i ...interface{}) {
	a.fields(i).Trace(s)
}

func (a adapter) Warn(s string, i ...interface{}) {
	a.fields(i).Warn(s)
}

var _ retryablehttp.LeveledLogger = adapter{}

// HTTPTransport downloads content below BaseURL. Every request is attempted once.
type HTTPTransport struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPTransport creates a transport for the given base URL.
func NewHTTPTransport(baseURL string, logger logrus.FieldLogger) *HTTPTransport {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = adapter{logger: logger}
	return &HTTPTransport{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client.StandardClient(),
	}
}

func (t *HTTPTransport) Get(ctx context.Context, key string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", t.BaseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to construct request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for request to %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got unexpected http status code %d for url %s", resp.StatusCode, url)
	}
	return body, nil
}

type s3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Transport reads content straight from the bucket crater publishes to.
type S3Transport struct {
	Bucket string
	client s3Client
}

// NewS3Transport creates a transport reading from the bucket with an anonymous client.
func NewS3Transport(cfg aws.Config, bucket string) *S3Transport {
	cfg.Credentials = aws.AnonymousCredentials{}
	return &S3Transport{Bucket: bucket, client: s3.NewFromConfig(cfg)}
}

func (t *S3Transport) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("error getting %s from s3 bucket %s (%s): %w", key, t.Bucket, apiErr.ErrorCode(), err)
		}
		return nil, fmt.Errorf("error getting %s from s3 bucket %s: %w", key, t.Bucket, err)
	}
	defer result.Body.Close()
	content, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from s3 bucket %s: %w", key, t.Bucket, err)
	}
	return content, nil
}
