package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the slice of the S3 client used by the document store, extracted
// for mocking.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3DocumentStore stores resume documents in an S3 bucket. Objects are
// keyed by a fresh UUID plus the original extension; the location reference
// handed back to callers is the public https URL.
type S3DocumentStore struct {
	client S3API
	bucket string
	region string
}

func NewS3DocumentStore(ctx context.Context, bucket, region string) (*S3DocumentStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3DocumentStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		region: region,
	}, nil
}

// NewS3DocumentStoreWithClient builds a store around an existing client,
// used by tests.
func NewS3DocumentStoreWithClient(client S3API, bucket, region string) *S3DocumentStore {
	return &S3DocumentStore{client: client, bucket: bucket, region: region}
}

func (s *S3DocumentStore) Put(ctx context.Context, content []byte, filename, contentType string) (string, error) {
	key := uuid.New().String()
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		key += ext
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading document: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *S3DocumentStore) Get(ctx context.Context, locationRef string) ([]byte, string, error) {
	// Location refs are https://bucket.s3.region.amazonaws.com/key; the key
	// is the last path segment.
	parts := strings.Split(locationRef, "/")
	key := parts[len(parts)-1]

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("error downloading document: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("error reading document body: %w", err)
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}

	return content, contentType, nil
}
