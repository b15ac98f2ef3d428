package clients

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hnguyen160596/fnsync/pkg/types"
	"github.com/rs/zerolog/log"
)

// StorageClient uploads build output to a single S3-compatible bucket
type StorageClient struct {
	uploader *manager.Uploader
	cfg      types.PublishConfig
}

func NewStorageClient(ctx context.Context, cfg types.PublishConfig) (*StorageClient, error) {
	if !cfg.IsConfigured() {
		return nil, &types.ConfigError{Field: "publish.bucket", Reason: "bucket and region are required to publish"}
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(3),
		config.WithRetryMode(aws.RetryModeStandard),
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointUrl != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointUrl)
			o.UsePathStyle = true
		}
	})

	log.Info().
		Str("region", cfg.Region).
		Str("endpoint", cfg.EndpointUrl).
		Str("bucket", cfg.Bucket).
		Msg("storage client initialized")

	return &StorageClient{
		uploader: manager.NewUploader(s3Client),
		cfg:      cfg,
	}, nil
}

func (c *StorageClient) Bucket() string { return c.cfg.Bucket }

// UploadObject streams body to key in the configured bucket
func (c *StorageClient) UploadObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", c.cfg.Bucket, key, err)
	}
	return nil
}
