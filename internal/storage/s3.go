package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultRegion = "us-east-1"

// Settings параметры подключения к S3-совместимому хранилищу
type Settings struct {
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	Endpoint        string
	// Protocol задает схему (http/https) для сохраняемых URL
	Protocol string
}

func (s Settings) Validate() error {
	if s.AccessKeyID == "" {
		return fmt.Errorf("S3 access key id is required")
	}
	if s.SecretAccessKey == "" {
		return fmt.Errorf("S3 secret access key is required")
	}
	if s.Bucket == "" {
		return fmt.Errorf("S3 bucket is required")
	}
	switch s.Protocol {
	case "", "http", "https":
	default:
		return fmt.Errorf("unsupported S3 protocol %q", s.Protocol)
	}
	return nil
}

// PutResult ответ хранилища на загрузку объекта
type PutResult struct {
	StatusCode int
	URL        string
}

type S3Client struct {
	settings  Settings
	uploader  *manager.Uploader
	s3Client  *s3.Client
	presigner *s3.PresignClient
}

func NewS3Client(settings Settings) (*S3Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s3Opts := []func(*s3.Options){}
	if settings.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(settings.Endpoint)
			o.UsePathStyle = true // обязательно для MinIO
		})
	}

	region := settings.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg := aws.Config{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			settings.AccessKeyID,
			settings.SecretAccessKey,
			"",
		),
	}

	s3Client := s3.NewFromConfig(awsCfg, s3Opts...)

	log.Printf("🔧 S3 client initialized for bucket %s (endpoint: %s)", settings.Bucket, settings.Endpoint)
	return &S3Client{
		settings:  settings,
		uploader:  manager.NewUploader(s3Client),
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
	}, nil
}

// PutObject загружает файл с диска под ключом key. Ответ хранилища с
// кодом, отличным от 2xx, возвращается в PutResult без ошибки.
func (c *S3Client) PutObject(ctx context.Context, sourcePath, key string, headers http.Header) (*PutResult, error) {
	file, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.settings.Bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	applyHeaders(input, headers)

	log.Printf("📤 Uploading file: %s to %s/%s", sourcePath, c.settings.Bucket, key)

	result, err := c.uploader.Upload(ctx, input)
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			return &PutResult{StatusCode: respErr.HTTPStatusCode()}, nil
		}
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	log.Printf("✅ File uploaded successfully: %s", result.Location)
	return &PutResult{StatusCode: http.StatusOK, URL: result.Location}, nil
}

func (c *S3Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.settings.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (c *S3Client) PresignGetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	request, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.settings.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

func (c *S3Client) HealthCheck(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.settings.Bucket),
	})
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

// applyHeaders переносит HTTP-заголовки в поля PutObjectInput
func applyHeaders(input *s3.PutObjectInput, headers http.Header) {
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		lower := strings.ToLower(name)

		switch {
		case lower == "content-type":
			input.ContentType = aws.String(value)
		case lower == "cache-control":
			input.CacheControl = aws.String(value)
		case lower == "content-disposition":
			input.ContentDisposition = aws.String(value)
		case lower == "content-encoding":
			input.ContentEncoding = aws.String(value)
		case lower == "content-language":
			input.ContentLanguage = aws.String(value)
		case lower == "if-none-match":
			input.IfNoneMatch = aws.String(value)
		case lower == "x-amz-acl":
			input.ACL = types.ObjectCannedACL(value)
		case lower == "x-amz-storage-class":
			input.StorageClass = types.StorageClass(value)
		case strings.HasPrefix(lower, "x-amz-meta-"):
			if input.Metadata == nil {
				input.Metadata = make(map[string]string)
			}
			input.Metadata[strings.TrimPrefix(lower, "x-amz-meta-")] = value
		}
	}
}
