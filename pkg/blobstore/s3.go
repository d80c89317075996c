package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config - настройки бакета
// Учетные данные берутся стандартной цепочкой AWS SDK (env, профиль, IAM роль)
type S3Config struct {
	Bucket string
	Region string
	// PublicBaseURL - опциональный базовый URL (CDN) вместо адреса бакета
	PublicBaseURL string
}

// s3API - подмножество *s3.Client, которое использует хранилище
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store хранит картинки в бакете S3
type S3Store struct {
	client   s3API
	bucket   string
	baseURL  string
	baseHost string
	basePath string
}

// NewS3Store создает клиент S3 из стандартной конфигурации AWS
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" || strings.TrimSpace(cfg.Region) == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrNotConfigured)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newS3Store(s3.NewFromConfig(awsCfg), cfg)
}

func newS3Store(client s3API, cfg S3Config) (*S3Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	region := strings.TrimSpace(cfg.Region)
	if bucket == "" || region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrNotConfigured)
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" {
		base = bucketURL(bucket, region)
	}

	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid public base url %q", base)
	}

	return &S3Store{
		client:   client,
		bucket:   bucket,
		baseURL:  base,
		baseHost: strings.ToLower(parsed.Host),
		basePath: strings.TrimRight(parsed.Path, "/"),
	}, nil
}

// bucketURL строит виртуальный адрес бакета; us-east-1 не содержит региона в хосте
func bucketURL(bucket, region string) string {
	if region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

func (s *S3Store) Backend() string {
	return BackendS3
}

// PublicURL возвращает адрес объекта для браузера
func (s *S3Store) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return s.PublicURL(key), nil
}

func (s *S3Store) DeleteByURL(ctx context.Context, rawURL string) {
	deleteByURL(ctx, s, rawURL)
}

func (s *S3Store) Owns(rawURL string) bool {
	_, ok := s.KeyFromURL(rawURL)
	return ok
}

// KeyFromURL принимает только URL с хостом и путем настроенного бакета/CDN
func (s *S3Store) KeyFromURL(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	if strings.ToLower(parsed.Host) != s.baseHost {
		return "", false
	}

	prefix := s.basePath + "/"
	if !strings.HasPrefix(parsed.Path, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(parsed.Path, prefix)
	if key == "" || strings.HasSuffix(key, "/") {
		return "", false
	}
	return key, true
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, item := range page.Contents {
			key := aws.ToString(item.Key)
			objects = append(objects, Object{
				Key:          key,
				URL:          s.PublicURL(key),
				Size:         aws.ToInt64(item.Size),
				LastModified: aws.ToTime(item.LastModified),
			})
		}
	}

	return objects, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
