package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/store"
	"github.com/marmos91/dittodrive/pkg/store/cache"
	"github.com/marmos91/dittodrive/pkg/store/memory"
	"github.com/marmos91/dittodrive/pkg/store/s3"
)

// s3YAMLConfig represents S3 configuration as loaded from YAML.
type s3YAMLConfig struct {
	Region            string        `mapstructure:"region"`
	Bucket            string        `mapstructure:"bucket"`
	KeyPrefix         string        `mapstructure:"key_prefix"`
	Endpoint          string        `mapstructure:"endpoint"`
	AccessKeyID       string        `mapstructure:"access_key_id"`
	SecretAccessKey   string        `mapstructure:"secret_access_key"`
	DownloadURLTTL    time.Duration `mapstructure:"download_url_ttl"`
	RequestsPerSecond uint          `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// CreateStore builds the configured object store backend, wraps it with the
// metadata cache when enabled, and instruments it for metrics.
//
// The returned shutdown function releases backend resources (the cache
// database); call it after the drive has closed.
func CreateStore(ctx context.Context, cfg StoreConfig) (store.ObjectStore, func() error, error) {
	var (
		backend store.ObjectStore
		err     error
	)

	switch cfg.Type {
	case "memory":
		backend = memory.NewMemoryStore()
	case "s3":
		backend, err = createS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}

	backend = store.Instrument(backend, metrics.NewStoreMetrics(cfg.Type))

	shutdown := func() error { return nil }
	if cfg.Cache.Enabled {
		cached, err := cache.New(backend, cache.Config{
			Path: cfg.Cache.Path,
			TTL:  cfg.Cache.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create metadata cache: %w", err)
		}
		backend = cached
		shutdown = cached.Close
		logger.Info("metadata cache enabled: path=%q ttl=%s", cfg.Cache.Path, cfg.Cache.TTL)
	}

	return backend, shutdown, nil
}

// createS3Store builds an S3-backed store from the YAML options.
func createS3Store(ctx context.Context, options map[string]any) (store.ObjectStore, error) {
	var storeCfg s3YAMLConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint support for MinIO, localstack and S3-compatible
	// providers.
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials when provided, default credential chain otherwise.
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awsS3.NewFromConfig(awsCfg, func(o *awsS3.Options) {
		// Path-style addressing is required by most S3-compatible
		// endpoints.
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	s3Store, err := s3.New(ctx, s3.Config{
		Client:            client,
		Bucket:            storeCfg.Bucket,
		KeyPrefix:         storeCfg.KeyPrefix,
		DownloadURLTTL:    storeCfg.DownloadURLTTL,
		RequestsPerSecond: storeCfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return s3Store, nil
}
