package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 reads ranges from S3 objects. Paths are "bucket/key".
type S3 struct {
	client *s3.Client
}

// NewS3 creates an S3 backend using default AWS configuration.
func NewS3(ctx context.Context) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3{client: s3.NewFromConfig(cfg)}, nil
}

// NewS3WithConfig creates an S3 backend with a custom AWS config.
func NewS3WithConfig(cfg aws.Config) *S3 {
	return &S3{client: s3.NewFromConfig(cfg)}
}

// ReadRange issues a ranged GetObject for [offset, offset+length).
func (s *S3) ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error) {
	bucket, key, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	// The HTTP Range header is inclusive on both ends.
	rng := fmt.Sprintf("bytes=%d-%d", offset, offset+int64(length)-1)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s %s: %w", bucket, key, rng, err)
	}
	defer resp.Body.Close()

	buf := make([]byte, length)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return nil, fmt.Errorf("read s3://%s/%s %s: %w", bucket, key, rng, err)
	}
	return buf, nil
}

func splitPath(path string) (bucket, key string, err error) {
	path = strings.TrimPrefix(path, "s3://")
	i := strings.IndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("invalid s3 path %q, want bucket/key", path)
	}
	return path[:i], path[i+1:], nil
}
