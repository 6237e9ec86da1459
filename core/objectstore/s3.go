package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/joho/godotenv"
)

// S3Configuration holds the settings for the S3 backed store.
type S3Configuration struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// NewS3Configuration reads the S3 configuration from AWS_REGION, S3_BUCKET,
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY. A .env file is loaded first
// if present.
func NewS3Configuration() (*S3Configuration, error) {
	godotenv.Load()

	configuration := &S3Configuration{
		Region:    os.Getenv("AWS_REGION"),
		Bucket:    os.Getenv("S3_BUCKET"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}

	if configuration.Region == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}
	if configuration.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET not set")
	}
	if configuration.AccessKey == "" || configuration.SecretKey == "" {
		return nil, fmt.Errorf("AWS credentials not set")
	}

	return configuration, nil
}

// S3Store stores objects in an S3 bucket
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store connects to S3 with the given configuration
func NewS3Store(ctx context.Context, configuration *S3Configuration) (*S3Store, error) {
	if configuration == nil {
		return nil, fmt.Errorf("s3 configuration is nil")
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(configuration.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(configuration.AccessKey, configuration.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: configuration.Bucket,
	}, nil
}

// Get retrieves an object, returning ErrNotFound for unknown keys
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := s.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

// Put uploads an object
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	uploader := manager.NewUploader(s.client)

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := uploader.Upload(ctxUpload, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}

	return nil
}

// Delete removes an object. Deleting an unknown key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}
