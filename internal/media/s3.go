package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the settings for an S3-compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible services
	AccessKey string // optional; falls back to the default credential chain
	SecretKey string
	// PublicBaseURL is prefixed to object keys to build public URLs.
	// Defaults to the bucket's virtual-hosted URL.
	PublicBaseURL string
}

// S3Store is an ObjectStore backed by an S3 bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Store loads AWS configuration and creates an S3 client.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Store{client: client, bucket: cfg.Bucket, baseURL: base}, nil
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64, meta map[string]string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		Metadata:      meta,
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %q: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes every object whose key starts with id. Returns
// ErrObjectNotFound if there were none.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	keys, err := s.keys(ctx, id)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	for _, key := range keys {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("s3: delete %q: %w", key, err)
		}
	}
	return nil
}

// Meta returns the user metadata of the first object stored under id.
func (s *S3Store) Meta(ctx context.Context, id string) (map[string]string, error) {
	keys, err := s.keys(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(keys[0]),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: head %q: %w", keys[0], err)
	}
	return out.Metadata, nil
}

// keys lists object keys of the form "<id>" or "<id>.<ext>".
func (s *S3Store) keys(ctx context.Context, id string) ([]string, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: list %q: %w", id, err)
	}
	var keys []string
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if key == id || strings.HasPrefix(key, id+".") {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
