// Package storage provides object storage implementations for fiscal XML retention.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	fiscalapp "github.com/fiscaltms/backend/internal/application/fiscal"
	infraconfig "github.com/fiscaltms/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ensure S3XMLArchive implements XMLArchive
var _ fiscalapp.XMLArchive = (*S3XMLArchive)(nil)

// S3XMLArchive stores raw fiscal XML in an S3-compatible bucket. Brazilian
// tax law requires the original XML to be kept for five years, so imported
// documents are archived verbatim and the object URI recorded on the
// document.
// Compatible with any S3-compatible storage (AWS S3, MinIO, RustFS, etc.)
type S3XMLArchive struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// S3XMLArchiveOption is a functional option for configuring S3XMLArchive
type S3XMLArchiveOption func(*S3XMLArchive)

// WithLogger sets a custom logger for S3XMLArchive
func WithLogger(logger *zap.Logger) S3XMLArchiveOption {
	return func(a *S3XMLArchive) {
		a.logger = logger
	}
}

// NewS3XMLArchive creates a new S3XMLArchive from configuration
func NewS3XMLArchive(cfg *infraconfig.StorageConfig, opts ...S3XMLArchiveOption) (*S3XMLArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000" // MinIO default
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	archive := &S3XMLArchive{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (a *S3XMLArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating XML archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// Store uploads the raw XML and returns the object URI.
// Objects are keyed by organization and fiscal key so re-imports of the
// same document overwrite rather than duplicate.
func (a *S3XMLArchive) Store(ctx context.Context, organizationID uuid.UUID, fiscalKey string, xml []byte) (string, error) {
	if fiscalKey == "" {
		return "", errors.New("fiscal key is required")
	}
	if len(xml) == 0 {
		return "", errors.New("xml content is required")
	}

	key := fmt.Sprintf("%s/%s.xml", organizationID, fiscalKey)

	start := time.Now()
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(xml),
		ContentType: aws.String("application/xml"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive xml: %w", err)
	}

	a.logger.Debug("XML archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Duration("elapsed", time.Since(start)))

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// Fetch downloads an archived XML by organization and fiscal key
func (a *S3XMLArchive) Fetch(ctx context.Context, organizationID uuid.UUID, fiscalKey string) ([]byte, error) {
	if fiscalKey == "" {
		return nil, errors.New("fiscal key is required")
	}

	key := fmt.Sprintf("%s/%s.xml", organizationID, fiscalKey)
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived xml: %w", err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("failed to read archived xml: %w", err)
	}
	return buf.Bytes(), nil
}

// GetBucket returns the bucket name
func (a *S3XMLArchive) GetBucket() string {
	return a.bucket
}
