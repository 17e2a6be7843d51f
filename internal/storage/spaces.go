package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	awstrace "github.com/DataDog/dd-trace-go/contrib/aws/aws-sdk-go/v2/aws"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// SpacesConfig contains configuration for Digital Ocean Spaces or any
// S3-compatible endpoint
type SpacesConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PathPrefix is prepended to every key, e.g. "streams/"
	PathPrefix string
	// PathStyle addresses the bucket in the path instead of the host name,
	// as required by most self-hosted S3 implementations
	PathStyle  bool
	DisableSSL bool
}

// NewSpacesConfigFromEnv reads SPACES_* variables
func NewSpacesConfigFromEnv() SpacesConfig {
	return SpacesConfig{
		Endpoint:   os.Getenv("SPACES_ENDPOINT"),
		Region:     getEnvOrDefault("SPACES_REGION", "us-east-1"),
		Bucket:     os.Getenv("SPACES_BUCKET"),
		AccessKey:  os.Getenv("SPACES_ACCESS_KEY"),
		SecretKey:  os.Getenv("SPACES_SECRET_KEY"),
		PathPrefix: getEnvOrDefault("SPACES_PATH_PREFIX", "streams/"),
		PathStyle:  os.Getenv("SPACES_PATH_STYLE") == "true",
	}
}

// SpacesStore is a BlobStore over Digital Ocean Spaces
type SpacesStore struct {
	client     *s3.S3
	bucket     string
	pathPrefix string
}

var _ BlobStore = (*SpacesStore)(nil)

// NewSpacesStore creates a new Digital Ocean Spaces client
func NewSpacesStore(config SpacesConfig) (*SpacesStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(config.Endpoint), // e.g., "nyc3.digitaloceanspaces.com"
		Region:           aws.String(config.Region),
		Credentials:      credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(config.PathStyle),
		DisableSSL:       aws.Bool(config.DisableSSL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// DataDog APM spans for every S3 call
	sess = awstrace.WrapSession(sess, awstrace.WithService("birb-baas-spaces"))

	return &SpacesStore{
		client:     s3.New(sess),
		bucket:     config.Bucket,
		pathPrefix: config.PathPrefix,
	}, nil
}

// Put uploads data under key
func (s *SpacesStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.pathPrefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]*string{
			"upload-time": aws.String(time.Now().UTC().Format(time.RFC3339)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Get downloads the object stored under key
func (s *SpacesStore) Get(ctx context.Context, key string) (*Blob, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.pathPrefix + key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	blob := &Blob{
		Key:         key,
		ContentType: aws.StringValue(result.ContentType),
		Data:        data,
	}
	if result.LastModified != nil {
		blob.ModifiedAt = *result.LastModified
	}
	return blob, nil
}

// Delete deletes an object from Spaces
func (s *SpacesStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.pathPrefix + key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// List pages through every object under prefix
func (s *SpacesStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.pathPrefix + prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.StringValue(obj.Key), s.pathPrefix))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var aerr awserr.RequestFailure
	if errors.As(err, &aerr) {
		return aerr.StatusCode() == http.StatusNotFound
	}
	var coded awserr.Error
	if errors.As(err, &coded) {
		return coded.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
