// Package archive persists completed chat turns and run logs to a Lode
// dataset, and reads them back for the history command.
//
// Records are partitioned kind/day/stream_id with a JSONL codec, on the
// local filesystem, S3 (or an S3-compatible provider), or in memory.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// DefaultDataset is the Lode dataset ID.
const DefaultDataset = "studio"

// Storage backends.
const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Config selects the archive storage.
type Config struct {
	// Dataset is the Lode dataset ID (default "studio").
	Dataset string
	// Backend is fs, s3 or memory. Empty disables archiving.
	Backend string
	// Path is the root directory (fs) or "bucket/prefix" (s3).
	Path string
	// Region is the AWS region (s3, optional).
	Region string
	// Endpoint is a custom S3 endpoint for S3-compatible providers (s3, optional).
	Endpoint string
	// UsePathStyle forces path-style addressing (s3).
	UsePathStyle bool
}

// Enabled reports whether an archive backend is configured.
func (c Config) Enabled() bool {
	return c.Backend != ""
}

// S3Config holds configuration for the S3 storage backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL (e.g. MinIO, R2).
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(strings.TrimPrefix(path, "s3://"), "/")
	return bucket, prefix
}

// SharedFactory returns a StoreFactory that always yields store, so a
// write dataset and a read dataset observe the same in-memory state.
func SharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

// NewDataset creates the archive dataset over factory.
// Write and read paths share this layout and codec.
func NewDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return ds, nil
}

// Open creates the dataset selected by cfg.
func Open(ctx context.Context, cfg Config) (lode.Dataset, error) {
	factory, err := storeFactory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewDataset(cfg.Dataset, factory)
}

func storeFactory(ctx context.Context, cfg Config) (lode.StoreFactory, error) {
	switch cfg.Backend {
	case BackendFS:
		if cfg.Path == "" {
			return nil, errors.New("archive: fs backend requires a path")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, WrapInitError(err, cfg.Path)
		}
		return lode.NewFSFactory(cfg.Path), nil
	case BackendMemory:
		return SharedFactory(lode.NewMemory()), nil
	case BackendS3:
		bucket, prefix := ParseS3Path(cfg.Path)
		return newS3Factory(ctx, S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.UsePathStyle,
		})
	case "":
		return nil, errors.New("archive: no backend configured")
	default:
		return nil, fmt.Errorf("archive: unknown backend %q (must be fs, s3, or memory)", cfg.Backend)
	}
}

// newS3Factory builds a Lode S3 store factory.
// Uses AWS SDK default credential chain (env vars, shared config, IAM role).
func newS3Factory(ctx context.Context, s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, WrapInitError(fmt.Errorf("failed to load AWS config: %w", err), s3cfg.Bucket)
	}

	var s3Opts []func(*s3.Options)
	if s3cfg.Endpoint != "" {
		endpoint := s3cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if s3cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: s3cfg.Bucket,
			Prefix: s3cfg.Prefix,
		})
	}, nil
}
