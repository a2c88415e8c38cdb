package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type R2Options struct {
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint is https://<account-id>.r2.cloudflarestorage.com for R2.
	Endpoint string
	// PublicDomain is the custom domain or r2.dev URL objects are served from.
	PublicDomain string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// R2 stores images in Cloudflare R2 or any S3 compatible bucket.
type R2 struct {
	api    objectAPI
	bucket string
	domain string
}

func NewR2(ctx context.Context, o R2Options) (*R2, error) {
	if o.Bucket == "" || o.AccessKeyID == "" || o.SecretAccessKey == "" || o.Endpoint == "" {
		return nil, fmt.Errorf("r2: missing bucket, credentials or endpoint")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		opts.BaseEndpoint = aws.String(o.Endpoint)
		opts.UsePathStyle = true
	})
	return newR2(client, o.Bucket, o.PublicDomain), nil
}

func newR2(api objectAPI, bucket, domain string) *R2 {
	return &R2{api: api, bucket: bucket, domain: strings.TrimRight(domain, "/")}
}

func (r *R2) Name() string { return "r2" }

func (r *R2) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	key := objectName(folder, fh.Filename)
	_, err = r.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fh.Size),
		ContentType:   aws.String(contentType(fh)),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return r.publicURL(key), nil
}

func (r *R2) Delete(ctx context.Context, raw string) error {
	key, err := r.objectKey(raw)
	if err != nil {
		return err
	}
	_, err = r.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (r *R2) publicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", r.domain, r.bucket, key)
}

func (r *R2) objectKey(raw string) (string, error) {
	prefix := r.domain + "/" + r.bucket + "/"
	if r.domain == "" || !strings.HasPrefix(raw, prefix) || len(raw) == len(prefix) {
		return "", ErrForeignURL
	}
	return strings.TrimPrefix(raw, prefix), nil
}
