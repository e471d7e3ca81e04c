package images

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage writes product images to an S3 bucket under the products/ prefix.
type S3Storage struct {
	client s3API
	bucket string
	region string
	prefix string
}

// NewS3Storage creates a storage using ambient AWS credentials.
func NewS3Storage(ctx context.Context, bucket, region, prefix string) (*S3Storage, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOptions []func(*awsconfig.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3Storage(s3.NewFromConfig(cfg), bucket, cfg.Region, prefix), nil
}

func newS3Storage(client s3API, bucket, region, prefix string) *S3Storage {
	if prefix == "" {
		prefix = DefaultFolder
	}
	return &S3Storage{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Save puts the image at products/<uuid> and returns its virtual-hosted URL.
func (s *S3Storage) Save(ctx context.Context, img models.ImageUpload) (*models.StoredImage, error) {
	key := s.prefix + "/" + uuid.NewString()
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to s3: %w", err)
	}

	return &models.StoredImage{PublicID: key, URL: s.objectURL(key)}, nil
}

// Delete removes the object with the given key.
func (s *S3Storage) Delete(ctx context.Context, publicID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3 object %s: %w", publicID, err)
	}
	return nil
}

func (s *S3Storage) objectURL(key string) string {
	if s.region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
