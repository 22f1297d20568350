package objectstore

import (
	"context"
	"io"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// S3Client adapts aws-sdk-go-v2's S3 client to the Client interface. It is
// safe for concurrent use by multiple goroutines (spec.md §5: "object-store
// client may be shared if the client is thread-safe"), which the AWS SDK v2
// clients are.
type S3Client struct {
	api *s3.Client
}

// NewS3Client builds an S3-compatible client from an ObjectStoreConfig. It
// works against both real S3 and S3-compatible stores (minio, noobaa) via
// a custom BaseEndpoint when cfg.Endpoint is set.
func NewS3Client(ctx context.Context, cfg model.ObjectStoreConfig) (*S3Client, error) {
	creds := awscreds.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(firstNonEmpty(cfg.Region, "us-east-1")),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, err
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if ep := nonEmptyPtr(cfg.Endpoint); ep != nil {
			o.BaseEndpoint = ep
		}
	})
	return &S3Client{api: api}, nil
}

func firstNonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return awsv2.String(s)
}

// ListObjects lists every key under prefix, paging through
// ListObjectsV2's continuation tokens.
func (c *S3Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            awsv2.String(bucket),
			Prefix:            awsv2.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

// GetObject opens key for reading.
func (c *S3Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awsv2.String(bucket),
		Key:    awsv2.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// WithTimeouts bundles the connect/read timeouts spec.md §5 requires on every
// object-store operation into a context deadline helper.
func WithTimeouts(parent context.Context, connect, read time.Duration) (context.Context, context.CancelFunc) {
	d := connect + read
	if d <= 0 {
		d = 60 * time.Second
	}
	return context.WithTimeout(parent, d)
}
