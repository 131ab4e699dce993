// Package publish uploads release report files to S3-compatible object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectPutter is the part of the S3 client the publisher needs
type objectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds the bucket and credentials
type Config struct {
	Bucket    string
	Prefix    string // key prefix, e.g. "releases/2026-10"
	Region    string
	Endpoint  string // custom endpoint for R2, MinIO and similar; empty uses AWS
	AccessKey string
	SecretKey string
}

// Publisher uploads files under a key prefix
type Publisher struct {
	client objectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

// New creates a publisher with an S3 client built from the config
func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := s3.Options{
		Region: cfg.Region,
	}
	if cfg.AccessKey != "" {
		opts.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		))
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return newPublisher(s3.New(opts), cfg, logger), nil
}

func newPublisher(client objectPutter, cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}
}

// Key returns the object key of a local file
func (p *Publisher) Key(file string) string {
	if p.prefix == "" {
		return filepath.Base(file)
	}
	return path.Join(p.prefix, filepath.Base(file))
}

// Upload uploads every file and returns the keys written
func (p *Publisher) Upload(ctx context.Context, files []string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key, err := p.uploadFile(ctx, file)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *Publisher) uploadFile(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", file, err)
	}

	key := p.Key(file)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(file)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3://%s/%s: %w", file, p.bucket, key, err)
	}

	p.logger.Info("Published report", "bucket", p.bucket, "key", key, "bytes", info.Size())
	return key, nil
}

func contentType(file string) string {
	switch {
	case strings.HasSuffix(file, ".gz"):
		return "application/gzip"
	default:
		return "text/tab-separated-values"
	}
}
