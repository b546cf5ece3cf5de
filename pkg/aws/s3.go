package aws

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options describes where objects are written and how their public URL is composed.
type S3Options struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	CDNDomain string
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads objects and resolves the URLs they are reachable at.
type S3Store struct {
	client s3API
	opts   S3Options
}

// NewS3Store creates an S3 client from cfg. Path style addressing is used when
// an explicit endpoint is configured (LocalStack, MinIO).
func NewS3Store(cfg sdkaws.Config, opts S3Options) *S3Store {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.UsePathStyle = true
			o.BaseEndpoint = sdkaws.String(opts.Endpoint)
		}
	})
	return &S3Store{client: client, opts: opts}
}

// Key joins the configured prefix and name with a single slash.
func (s *S3Store) Key(name string) string {
	name = strings.TrimLeft(name, "/")
	prefix := strings.Trim(s.opts.Prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// PublicURL returns the CDN URL, the endpoint URL or the virtual-hosted S3 URL, in that order of preference.
func (s *S3Store) PublicURL(key string) string {
	switch {
	case s.opts.CDNDomain != "":
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(s.opts.CDNDomain, "/"), key)
	case s.opts.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.opts.Endpoint, "/"), s.opts.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.opts.Bucket, key)
	}
}

// Upload writes data under key and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       &s.opts.Bucket,
		Key:          &key,
		Body:         bytes.NewReader(data),
		ContentType:  sdkaws.String(contentType),
		CacheControl: sdkaws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}
