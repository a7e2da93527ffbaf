package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rohits-web03/sharegate/internal/config"
)

// R2Store keeps transfer content in a Cloudflare R2 (S3-compatible) bucket.
type R2Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewR2Store builds the R2 client using static credentials and the account endpoint.
// An explicit Endpoint in cfg overrides the account-derived one.
func NewR2Store(cfg config.R2Config) (*R2Store, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("r2: bucket name is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, errors.New("r2: account id or endpoint is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	slog.Info("r2 client initialized", "bucket", cfg.BucketName)

	return &R2Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.BucketName,
	}, nil
}

func (r *R2Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("r2 put %s: %w", key, err)
	}
	return nil
}

// PresignGet creates a temporary download URL. inline asks browsers to
// render the object instead of saving it.
func (r *R2Store) PresignGet(ctx context.Context, key, fileName string, inline bool, ttl time.Duration) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}

	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	if fileName != "" {
		input.ResponseContentDisposition = aws.String(mime.FormatMediaType(disposition, map[string]string{"filename": fileName}))
	} else {
		input.ResponseContentDisposition = aws.String(disposition)
	}

	req, err := r.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("r2 presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (r *R2Store) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("r2 delete %s: %w", key, err)
	}
	return nil
}
