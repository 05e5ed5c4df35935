package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nikita-morkovkin/Aniveil/internal/domain/ports"
)

type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	PublicURL      string
	ForcePathStyle bool
}

// Client implements the pipeline's Uploader port on top of S3-compatible
// object storage.
type Client struct {
	api       *awss3.Client
	bucket    string
	publicURL string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Client{
		api:       api,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Upload stores a buffer under key and returns the key plus its public URL.
func (c *Client) Upload(ctx context.Context, key string, body []byte, contentType string) (ports.UploadResult, error) {
	if err := validateKey(key); err != nil {
		return ports.UploadResult{}, err
	}
	_, err := c.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return ports.UploadResult{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return ports.UploadResult{Key: key, URL: c.URL(key)}, nil
}

// Delete removes a single object. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every object under prefix and returns how many were
// deleted.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := validateKey(prefix); err != nil {
		return 0, err
	}

	deleted := 0
	paginator := awss3.NewListObjectsV2Paginator(c.api, &awss3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("list prefix %s: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]s3types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = c.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, fmt.Errorf("delete prefix %s: %w", prefix, err)
		}
		deleted += len(objects)
	}
	return deleted, nil
}

// URL returns the public URL for a key.
func (c *Client) URL(key string) string {
	if c.publicURL == "" {
		return key
	}
	return c.publicURL + "/" + key
}

// validateKey rejects keys that could escape the bucket namespace.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("empty object key")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") ||
		strings.Contains(key, "//") || strings.ContainsRune(key, 0) {
		return fmt.Errorf("invalid object key: %s", key)
	}
	return nil
}
