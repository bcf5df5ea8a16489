// Package s3 implements the storage contract on an S3-compatible object
// store (AWS S3 or MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sdsc-ordes/modos-api/internal/storage/core"
)

// Store implements core.Storage against a bucket + archive prefix. Relative
// targets map to object keys under the prefix; List strips the prefix again
// so returned paths match the local backend's contract.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config holds explicit construction parameters. For prod use, credentials
// usually come from the default chain; tests inject static ones.
type Config struct {
	Endpoint        string // required for non-AWS endpoints (e.g. MinIO)
	Region          string // default us-east-1
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Environment variables:
//
//	MODOS_S3_ENDPOINT=<url>
//	MODOS_S3_REGION=<region> (default us-east-1)
//	MODOS_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// New opens the archive at url ("s3://bucket/prefix"), validated against the
// official bucket naming rules.
func New(ctx context.Context, url string, cfg Config) (*Store, error) {
	path, err := core.ParseS3Path(url)
	if err != nil {
		return nil, err
	}
	var loadOpts []func(*config.LoadOptions) error
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts = append(loadOpts, config.WithRegion(region))
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, path), nil
}

// NewWithClient wraps an existing client; used by tests and by callers that
// construct their own credentials (e.g. from an endpoint manager).
func NewWithClient(client *s3.Client, path core.S3Path) *Store {
	return &Store{client: client, bucket: path.Bucket, prefix: path.Key}
}

// OpenFromEnv opens the archive at url using process environment for the
// connection parameters.
func OpenFromEnv(ctx context.Context, url string) (*Store, error) {
	cfg := Config{
		Endpoint:  os.Getenv("MODOS_S3_ENDPOINT"),
		Region:    os.Getenv("MODOS_S3_REGION"),
		PathStyle: strings.EqualFold(os.Getenv("MODOS_S3_PATH_STYLE"), "true"),
	}
	return New(ctx, url, cfg)
}

func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Path returns "bucket/prefix".
func (s *Store) Path() string {
	return core.S3Path{Bucket: s.bucket, Key: s.prefix}.String()
}

func (s *Store) key(target string) string {
	target = strings.TrimPrefix(target, "/")
	if s.prefix == "" {
		return target
	}
	return s.prefix + "/" + target
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nk)
}

func (s *Store) Exists(ctx context.Context, target string) (bool, error) {
	key := s.key(target)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, target string) ([]string, error) {
	prefix := s.prefix
	if target != "" {
		prefix = s.key(target)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var paths []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			rel := key
			if s.prefix != "" {
				rel = strings.TrimPrefix(key, s.prefix+"/")
			}
			paths = append(paths, rel)
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Store) Open(ctx context.Context, target string) (io.ReadCloser, error) {
	key := s.key(target)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *Store) Put(ctx context.Context, source io.Reader, target string) error {
	key := s.key(target)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: source})
	return err
}

// Move emulates rename with CopyObject + DeleteObject; S3 has no native
// rename.
func (s *Store) Move(ctx context.Context, source, target string) error {
	srcKey := s.key(source)
	dstKey := s.key(target)
	copySource := s.bucket + "/" + srcKey
	if _, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &s.bucket,
		Key:        &dstKey,
		CopySource: &copySource,
	}); err != nil {
		return fmt.Errorf("copy %s to %s: %w", srcKey, dstKey, err)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &srcKey})
	return err
}

func (s *Store) Remove(ctx context.Context, target string) error {
	ok, err := s.Exists(ctx, target)
	if err != nil || !ok {
		return err
	}
	key := s.key(target)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return err
	}
	slog.Info("permanently deleted file from remote storage", "path", target, "bucket", s.bucket)
	return nil
}

func (s *Store) Empty(ctx context.Context) (bool, error) {
	return core.IsEmpty(ctx, s)
}
