package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// S3API is the subset of the S3 client the image service uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImageService stores uploaded recipe photos in S3.
type ImageService struct {
	s3     S3API
	bucket string
	logger *zap.Logger
}

// NewImageService creates an ImageService writing into the given bucket.
func NewImageService(client S3API, bucket string, logger *zap.Logger) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageService{
		s3:     client,
		bucket: bucket,
		logger: logger,
	}
}

// UploadRecipePhoto stores the photo bytes under a generated key and
// returns the public URL.
func (s *ImageService) UploadRecipePhoto(ctx context.Context, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := fmt.Sprintf("recipe-images/%s.jpg", uuid.New().String())
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	s.logger.Info("uploaded recipe photo", zap.String("url", url), zap.Int("bytes", len(data)))
	return url, nil
}
