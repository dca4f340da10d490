// Package s3 implements the ObjectStore over Amazon S3 or any S3-compatible
// endpoint (MinIO, Cubbit DS3, localstack).
//
// Key design: namespace paths are used directly as object keys, with an
// optional keyPrefix in front. The bucket therefore mirrors the virtual
// folder tree and stays human-inspectable, and the namespace can be
// reconstructed from the bucket alone.
package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/dittodrive/internal/ratelimiter"
	"github.com/marmos91/dittodrive/pkg/store"
)

// S3Store implements store.ObjectStore backed by an S3 bucket.
//
// All primitive calls pass through a token bucket limiter so that recursive
// deletes and listing hydration cannot trip the backend's SlowDown
// throttling.
//
// Thread safety: safe for concurrent use by multiple goroutines.
type S3Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string
	urlTTL    time.Duration
	limiter   *ratelimiter.RateLimiter
}

// Config contains the settings for an S3Store.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket name. Must already exist.
	Bucket string

	// KeyPrefix is an optional prefix prepended to every object key,
	// e.g. "drive/" maps path "docs/a.txt" to key "drive/docs/a.txt".
	KeyPrefix string

	// DownloadURLTTL is the validity window for presigned download URLs.
	// Defaults to 15 minutes.
	DownloadURLTTL time.Duration

	// RequestsPerSecond throttles primitive store calls. 0 disables
	// throttling.
	RequestsPerSecond uint
}

// New creates an S3Store and verifies bucket access with a HeadBucket probe.
// The bucket is not created if missing.
func New(ctx context.Context, cfg Config) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	urlTTL := cfg.DownloadURLTTL
	if urlTTL == 0 {
		urlTTL = 15 * time.Minute
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Store{
		client:    cfg.Client,
		presign:   s3.NewPresignClient(cfg.Client),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		urlTTL:    urlTTL,
		limiter:   ratelimiter.New(cfg.RequestsPerSecond, cfg.RequestsPerSecond*2),
	}, nil
}

// objectKey maps a namespace path to the full S3 object key.
func (s *S3Store) objectKey(path string) string {
	if s.keyPrefix != "" {
		return s.keyPrefix + path
	}
	return path
}

// namespacePath strips the configured key prefix from an S3 object key.
func (s *S3Store) namespacePath(key string) string {
	if s.keyPrefix != "" && len(key) > len(s.keyPrefix) {
		return key[len(s.keyPrefix):]
	}
	return key
}

var _ store.ObjectStore = (*S3Store)(nil)
