// Package source reads configuration and scenario documents from a local
// path or an S3 location, and writes reports back the same way.
//
// A location is either a filesystem path or an "s3://bucket/key" URI:
//
//	data, err := source.ReadFile(ctx, "s3://configs/arena/nearest.yaml")
//	data, err := source.ReadFile(ctx, "testdata/arena.yaml")
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store reads and writes documents. Paths are forward-slash separated and
// relative to the store root. Implementations must be safe for concurrent
// use.
type Store interface {
	// Read opens the named document. A missing document yields an error
	// wrapping fs.ErrNotExist. The caller must close the reader.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or truncates the named document. The caller must close
	// the writer to commit the data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether the named document exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// ErrBadLocation is returned for malformed s3:// URIs.
var ErrBadLocation = errors.New("source: bad location")

// Resolver maps locations to stores.
type Resolver struct {
	// S3 serves s3:// locations. When nil, a client is built with
	// NewS3ClientFromEnv on first use.
	S3 S3Client

	mu sync.Mutex
}

// DefaultResolver is used by the package-level helpers.
var DefaultResolver = &Resolver{}

// Resolve returns the store holding location and the path of the document
// within it.
func (r *Resolver) Resolve(ctx context.Context, location string) (Store, string, error) {
	if !strings.HasPrefix(location, "s3://") {
		dir, file := filepath.Split(filepath.Clean(location))
		if dir == "" {
			dir = "."
		}
		return NewLocal(dir), file, nil
	}

	loc, err := ParseS3(location)
	if err != nil {
		return nil, "", err
	}
	client, err := r.s3Client(ctx)
	if err != nil {
		return nil, "", err
	}
	return NewS3(client, loc.Bucket, ""), loc.Key, nil
}

func (r *Resolver) s3Client(_ context.Context) (S3Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.S3 != nil {
		return r.S3, nil
	}
	client, err := NewS3ClientFromEnv()
	if err != nil {
		return nil, err
	}
	r.S3 = client
	return r.S3, nil
}

// NewS3ClientFromEnv builds an S3 client from the standard AWS environment:
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN (optional),
// AWS_REGION (default us-east-1) and AWS_ENDPOINT_URL_S3 (optional, for
// S3-compatible stores, which also switches to path-style addressing).
func NewS3ClientFromEnv() (*s3.Client, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, errors.New("source: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required for s3:// locations")
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region: region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		}),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL_S3"); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts), nil
}

// ReadFile returns the whole document at location.
func (r *Resolver) ReadFile(ctx context.Context, location string) ([]byte, error) {
	st, path, err := r.Resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	rc, err := st.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", location, err)
	}
	return data, nil
}

// WriteFile replaces the document at location with data.
func (r *Resolver) WriteFile(ctx context.Context, location string, data []byte) error {
	st, path, err := r.Resolve(ctx, location)
	if err != nil {
		return err
	}
	w, err := st.Write(ctx, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("source: write %s: %w", location, err)
	}
	return w.Close()
}

// ReadFile reads location with DefaultResolver.
func ReadFile(ctx context.Context, location string) ([]byte, error) {
	return DefaultResolver.ReadFile(ctx, location)
}

// WriteFile writes location with DefaultResolver.
func WriteFile(ctx context.Context, location string, data []byte) error {
	return DefaultResolver.WriteFile(ctx, location, data)
}
