package filestore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

// S3Store stores blobs in an S3-compatible bucket via the minio client.
type S3Store struct {
	client    *minio.Client
	bucket    string
	urlPrefix string
	publicURL string
}

var _ FileStore = (*S3Store)(nil)

func NewS3(client *minio.Client, bucket, urlPrefix, publicURL string) *S3Store {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	return &S3Store{
		client:    client,
		bucket:    bucket,
		urlPrefix: urlPrefix,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// EnsureBucket creates the bucket if it does not exist.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}
	return nil
}

func (s *S3Store) WriteRecipeImage(ctx context.Context, recipeID int64, suffix string, data []byte) (string, error) {
	key := recipeImagePath(recipeID, suffix)
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("putting object: %w", err)
	}
	return joinURL(s.urlPrefix, key), nil
}

func (s *S3Store) Delete(ctx context.Context, urlPath string) error {
	key, err := trimURLPrefix(urlPath, s.urlPrefix)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing object: %w", err)
	}
	return nil
}

func (s *S3Store) FileURL(urlPath string) string {
	if urlPath == "" {
		return ""
	}
	key, err := trimURLPrefix(urlPath, s.urlPrefix)
	if err != nil {
		return ""
	}
	return s.publicURL + "/" + s.bucket + "/" + key
}
