package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/bizportal/internal/filex"
)

// LocalSaver copies blobs into a downloads directory, never overwriting an
// existing file.
type LocalSaver struct {
	dir string
}

func NewLocalSaver(dir string) (*LocalSaver, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalSaver{dir: abs}, nil
}

func (s *LocalSaver) Save(ctx context.Context, blob Blob, filename string) (string, error) {
	src, err := blob.Open()
	if err != nil {
		return "", fmt.Errorf("open blob: %w", err)
	}
	defer src.Close()

	dst := filex.UniquePath(s.dir, filex.SanitizeFilename(filename))
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close %s: %w", dst, err)
	}
	return dst, nil
}

// PutObjectAPI is the part of *s3.Client used by S3Saver.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Saver archives downloaded documents into an S3-compatible bucket.
type S3Saver struct {
	api    PutObjectAPI
	bucket string
	prefix string
}

type S3Options struct {
	Bucket       string
	Prefix       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

func NewS3Saver(api PutObjectAPI, bucket, prefix string) *S3Saver {
	return &S3Saver{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewS3SaverFromOptions builds an S3 client with static credentials, as used
// with MinIO and similar endpoints.
func NewS3SaverFromOptions(ctx context.Context, o S3Options) (*S3Saver, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
			opts.UsePathStyle = true
		}
	})
	return NewS3Saver(client, o.Bucket, o.Prefix), nil
}

func (s *S3Saver) Save(ctx context.Context, blob Blob, filename string) (string, error) {
	src, err := blob.Open()
	if err != nil {
		return "", fmt.Errorf("open blob: %w", err)
	}
	defer src.Close()

	key := path.Join(s.prefix, filex.SanitizeFilename(filename))
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          src,
		ContentLength: aws.Int64(blob.Size),
	}
	if blob.ContentType != "" {
		in.ContentType = aws.String(blob.ContentType)
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
