package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/viper"
)

// Client is the blob store used for payment-proof uploads.
type Client interface {
	Upload(ctx context.Context, data []byte, filename, mimeType string) (string, error)
	Ping(ctx context.Context) error
}

// S3Client implements Client on any S3-compatible storage.
type S3Client struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

var _ Client = (*S3Client)(nil)

// MustNewS3Client creates a new S3 blob store client. Credentials
// come from the environment; endpoint and bucket from config.
func MustNewS3Client() *S3Client {
	endpoint := viper.GetString("storage.endpoint")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	region := viper.GetString("storage.region")
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("ORDERBOT_S3_ACCESS_KEY"),
			os.Getenv("ORDERBOT_S3_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		panic(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = viper.GetBool("storage.use_path_style")
		o.BaseEndpoint = aws.String(endpoint)
	})

	bucket := viper.GetString("storage.bucket")
	if bucket == "" {
		panic("storage.bucket is not set in config")
	}

	baseURL := viper.GetString("storage.public_base_url")
	if baseURL == "" {
		baseURL = endpoint + "/" + bucket
	}

	return &S3Client{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Upload stores the blob under the given filename and returns its
// public view URL.
func (c *S3Client) Upload(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(filename),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	return c.baseURL + "/" + filename, nil
}

// Ping reports blob store connectivity.
func (c *S3Client) Ping(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})

	return err
}
