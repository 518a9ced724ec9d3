package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ParseS3URL parses s3://bucket/key into bucket and key parts. The key may
// be empty or end in "/" when the URL names a prefix.
func ParseS3URL(url string) (bucket, key string, err error) {
	path := url[len("s3://"):]
	bucket, key, _ = strings.Cut(path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return bucket, key, nil
}

// IsS3Prefix reports whether an s3:// URL names a prefix rather than an object
func IsS3Prefix(url string) bool {
	_, key, err := ParseS3URL(url)
	return err == nil && (key == "" || strings.HasSuffix(key, "/"))
}

// newS3Client creates an S3 client with the given configuration
func newS3Client(ctx context.Context, cfg *Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	// Set region if provided
	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Set explicit credentials if provided
	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// openS3Reader opens a reader for an S3 object
func openS3Reader(ctx context.Context, url string, cfg *Config) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(url)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("invalid S3 URL: %s has no object key", url)
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}

	return resp.Body, nil
}

// ListS3 returns the s3:// URLs of every object under a prefix URL whose
// key ends in suffix, in key order.
func ListS3(ctx context.Context, url, suffix string, cfg *Config) ([]string, error) {
	bucket, prefix, err := ParseS3URL(url)
	if err != nil {
		return nil, err
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var urls []string
	pages := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(strings.ToLower(key), suffix) {
				urls = append(urls, "s3://"+bucket+"/"+key)
			}
		}
	}
	return urls, nil
}

// s3Writer wraps S3 upload in a WriteCloser interface
type s3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buffer bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.buffer.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	// Upload the buffered content
	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buffer.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// openS3Writer opens a writer for an S3 object
func openS3Writer(ctx context.Context, url string, cfg *Config) (io.WriteCloser, error) {
	bucket, key, err := ParseS3URL(url)
	if err != nil {
		return nil, err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return nil, fmt.Errorf("invalid S3 URL: %s does not name an object", url)
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &s3Writer{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
	}, nil
}
