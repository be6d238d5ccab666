package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qs3c/ats_resume_server/config"
)

// MetaUploadedAt 上传时间标签，供存储桶生命周期规则清理
const MetaUploadedAt = "uploaded-at"

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore 对象存储抽象，所有写入均开启服务端加密
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewFromConfig 根据 provider 创建存储实现
func NewFromConfig(cfg *config.StorageConfig) (ObjectStore, error) {
	switch cfg.Provider {
	case "", "s3":
		return NewS3Store(cfg)
	case "oss":
		return NewOSSStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// UserScope 登录用户的存储前缀
func UserScope(userID int64) string {
	return fmt.Sprintf("users/%d", userID)
}

// GenerateKey 生成 {scope}/{毫秒时间戳}-{随机串}.{扩展名}
func GenerateKey(scope, ext string, now time.Time) (string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate key suffix: %w", err)
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	return fmt.Sprintf("%s/%d-%s.%s", strings.Trim(scope, "/"), now.UnixMilli(), hex.EncodeToString(suffix), ext), nil
}

// UploadMeta 上传时统一附带的元数据
func UploadMeta(now time.Time) map[string]string {
	return map[string]string{MetaUploadedAt: now.UTC().Format(time.RFC3339)}
}
