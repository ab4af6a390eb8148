package photo

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/caarlos0/env/v11"
)

// ObjectStore persists photo blobs and returns their public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// s3API is the minimal AWS S3 interface required by S3Store.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// s3Env holds raw env values before post-parse validation.
type s3Env struct {
	Bucket string `env:"PAWTRAIL_S3_BUCKET"`
	Region string `env:"PAWTRAIL_S3_REGION" envDefault:"us-east-1"`
	Prefix string `env:"PAWTRAIL_S3_PREFIX" envDefault:"pets"`
}

// S3Config defines where photo objects live.
type S3Config struct {
	Bucket string
	Region string
	Prefix string
}

// LoadS3ConfigFromEnv reads object storage configuration. An empty
// bucket means photo uploads are disabled.
func LoadS3ConfigFromEnv() (S3Config, error) {
	var raw s3Env
	if err := env.Parse(&raw); err != nil {
		return S3Config{}, fmt.Errorf("parse s3 env: %w", err)
	}
	return S3Config{
		Bucket: strings.TrimSpace(raw.Bucket),
		Region: strings.TrimSpace(raw.Region),
		Prefix: strings.Trim(strings.TrimSpace(raw.Prefix), "/"),
	}, nil
}

// S3Store writes photo objects to an S3 bucket.
type S3Store struct {
	api s3API
	cfg S3Config
}

// NewS3Store validates cfg and returns a store backed by api.
func NewS3Store(api s3API, cfg S3Config) (*S3Store, error) {
	if api == nil {
		return nil, fmt.Errorf("s3 api is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return &S3Store{api: api, cfg: cfg}, nil
}

// Put uploads one object and returns its public URL.
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	fullKey := s.objectKey(key)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", fullKey, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, fullKey), nil
}

// Delete removes one object. Deleting a missing object is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	fullKey := s.objectKey(key)
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", fullKey, err)
	}
	return nil
}

func (s *S3Store) objectKey(key string) string {
	if s.cfg.Prefix == "" {
		return key
	}
	return s.cfg.Prefix + "/" + key
}
