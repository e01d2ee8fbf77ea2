package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

func TestHTTPTransport(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		switch r.URL.Path {
		case "/pr-1/results.json":
			_, _ = w.Write([]byte(`{"crates":[]}`))
		case "/pr-1/broken/log.txt":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL+"/", logrus.NewEntry(logrus.StandardLogger()))

	data, err := transport.Get(context.Background(), "pr-1/results.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(`{"crates":[]}`, string(data)); diff != "" {
		t.Errorf("got incorrect body: %s", diff)
	}

	requests.Store(0)
	if _, err := transport.Get(context.Background(), "pr-1/missing/log.txt"); err == nil {
		t.Error("expected an error for a missing object")
	}
	if requests.Load() != 1 {
		t.Errorf("expected exactly one attempt for a missing object, got %d", requests.Load())
	}

	requests.Store(0)
	if _, err := transport.Get(context.Background(), "pr-1/broken/log.txt"); err == nil {
		t.Error("expected an error for a server error")
	}
	if requests.Load() != 1 {
		t.Errorf("expected exactly one attempt for a server error, got %d", requests.Load())
	}
}

type fakeS3Client struct {
	objects map[string]string
}

func (f *fakeS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if aws.ToString(params.Bucket) != "crater-reports" {
		return nil, errors.New("access denied")
	}
	content, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(content)))}, nil
}

func TestS3Transport(t *testing.T) {
	transport := &S3Transport{
		Bucket: "crater-reports",
		client: &fakeS3Client{objects: map[string]string{"pr-1/abc/log.txt": "error: internal compiler error: boom"}},
	}

	data, err := transport.Get(context.Background(), "pr-1/abc/log.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff("error: internal compiler error: boom", string(data)); diff != "" {
		t.Errorf("got incorrect body: %s", diff)
	}

	_, err = transport.Get(context.Background(), "pr-1/missing/log.txt")
	nsk := &s3types.NoSuchKey{}
	if !errors.As(err, &nsk) {
		t.Errorf("expected the s3 error to be wrapped, got %v", err)
	}
	if !strings.Contains(err.Error(), "(NoSuchKey)") {
		t.Errorf("expected the error code in the message, got %v", err)
	}

	_, err = (&S3Transport{Bucket: "elsewhere", client: transport.client}).Get(context.Background(), "pr-1/abc/log.txt")
	if err == nil || strings.Contains(err.Error(), "(") {
		t.Errorf("expected a plain error for a non-api failure, got %v", err)
	}
}
