package artifact

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 artifact backend, adapted from
// quarry/lode/client_s3.go's S3Config (bucket/prefix/region/endpoint/
// path-style), minus the Lode-specific Hive-layout dataset wiring this
// package doesn't need.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("artifact: S3 bucket is required")
	}
	return nil
}

// S3Store writes artifacts to an S3-compatible bucket via the AWS SDK's
// default credential chain.
type S3Store struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Store builds an S3Store using the AWS SDK default config chain,
// with optional region, custom endpoint, and path-style overrides for
// S3-compatible providers (R2, MinIO).
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("artifact: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = &endpoint })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &S3Store{client: s3.NewFromConfig(awsCfg, s3Opts...), cfg: cfg}, nil
}

// Put implements Store by issuing a PutObject call under cfg.Prefix.
func (s *S3Store) Put(ctx context.Context, path string, data []byte) error {
	key := path
	if s.cfg.Prefix != "" {
		key = s.cfg.Prefix + "/" + path
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("artifact: s3 put %s: %w", key, err)
	}
	return nil
}

var _ Store = (*S3Store)(nil)
