package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/ats_resume_server/config"
)

// OSSStore 阿里云 OSS 实现
type OSSStore struct {
	bucket *oss.Bucket
}

func NewOSSStore(cfg *config.StorageConfig) (*OSSStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStore{bucket: bucket}, nil
}

func (s *OSSStore) Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) error {
	opts := []oss.Option{
		oss.ContentType(contentType),
		oss.ServerSideEncryption("AES256"),
		oss.WithContext(ctx),
	}
	for k, v := range meta {
		opts = append(opts, oss.Meta(k, v))
	}

	if err := s.bucket.PutObject(key, bytes.NewReader(data), opts...); err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (s *OSSStore) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if svcErr, ok := err.(oss.ServiceError); ok && svcErr.StatusCode == 404 {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer body.Close()

	return io.ReadAll(body)
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// SignedURL 生成带签名的临时访问 URL
func (s *OSSStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	expire := int64(ttl.Seconds())
	if expire <= 0 {
		expire = 3600
	}

	signedURL, err := s.bucket.SignURL(key, oss.HTTPGet, expire)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return signedURL, nil
}
