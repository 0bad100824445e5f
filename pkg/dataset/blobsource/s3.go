package blobsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/glint-ui/glint/pkg/dataset"
)

// S3Source stores blobs in an S3 bucket, one object per canonical key
// under a configurable prefix.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	src := blobsource.NewS3Source(s3.NewFromConfig(cfg), "my-bucket", "datasets/")
//	cache := dataset.New(src)
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source creates an S3 source. prefix may be empty; a non-empty
// prefix should end with "/".
func NewS3Source(client *s3.Client, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Source) objectKey(key dataset.Key) string {
	// Canonical keys are S3-safe: the "/" separators give the bucket a
	// browsable hierarchy per workspace.
	return s.prefix + key.Canonical()
}

// Fetch implements dataset.Source.
func (s *S3Source) Fetch(ctx context.Context, key dataset.Key) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, dataset.ErrNotFound
		}
		return nil, fmt.Errorf("blobsource: s3 fetch %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Store implements dataset.Source.
func (s *S3Source) Store(ctx context.Context, key dataset.Key, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("blobsource: s3 store %s: %w", key, err)
	}
	return nil
}
