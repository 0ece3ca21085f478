package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by [S3]. [s3.Client] satisfies
// it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Location names one document in a bucket.
type S3Location struct {
	Bucket string
	Key    string
}

// ParseS3 parses an "s3://bucket/key" URI. The key must name a document,
// not a directory.
func ParseS3(location string) (S3Location, error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return S3Location{}, fmt.Errorf("%w: %q is not an s3:// URI", ErrBadLocation, location)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return S3Location{}, fmt.Errorf("%w: %q (want s3://bucket/key)", ErrBadLocation, location)
	}
	return S3Location{Bucket: bucket, Key: key}, nil
}

func (l S3Location) String() string { return "s3://" + l.Bucket + "/" + l.Key }

// S3 keeps scenario, config and report documents in one bucket of Amazon S3
// or an S3-compatible service. Document paths live under an optional key
// prefix.
type S3 struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3 creates an S3 store. Pass "" for no key prefix.
func NewS3(client S3Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3) locate(p string) S3Location {
	if s.prefix == "" {
		return S3Location{Bucket: s.bucket, Key: p}
	}
	return S3Location{Bucket: s.bucket, Key: s.prefix + "/" + p}
}

func (s *S3) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	loc := s.locate(p)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, s3Error("read", loc, err)
	}
	return out.Body, nil
}

// Write buffers the document and uploads it in one PutObject call when the
// writer is closed. The content type follows the key's extension.
func (s *S3) Write(ctx context.Context, p string) (io.WriteCloser, error) {
	return &document{ctx: ctx, s: s, loc: s.locate(p)}, nil
}

func (s *S3) Exists(ctx context.Context, p string) (bool, error) {
	loc := s.locate(p)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err == nil {
		return true, nil
	}
	err = s3Error("stat", loc, err)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

type document struct {
	ctx    context.Context
	s      *S3
	loc    S3Location
	buf    bytes.Buffer
	closed bool
}

func (d *document) Write(p []byte) (int, error) {
	if d.closed {
		return 0, fs.ErrClosed
	}
	return d.buf.Write(p)
}

func (d *document) Close() error {
	if d.closed {
		return fs.ErrClosed
	}
	d.closed = true
	_, err := d.s.client.PutObject(d.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.loc.Bucket),
		Key:           aws.String(d.loc.Key),
		Body:          bytes.NewReader(d.buf.Bytes()),
		ContentLength: aws.Int64(int64(d.buf.Len())),
		ContentType:   aws.String(contentType(d.loc.Key)),
	})
	if err != nil {
		return s3Error("write", d.loc, err)
	}
	return nil
}

// contentType maps the document kinds the CLI reads and writes.
func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	case ".msgpack":
		return "application/msgpack"
	default:
		return "text/plain; charset=utf-8"
	}
}

// s3Error wraps err with the fs sentinel matching its S3 error code.
func s3Error(op string, loc S3Location, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("source: %s %s: %w: %w", op, loc, fs.ErrNotExist, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("source: %s %s: %w: %w", op, loc, fs.ErrPermission, err)
		}
	}
	return fmt.Errorf("source: %s %s: %w", op, loc, err)
}

var _ Store = (*S3)(nil)
