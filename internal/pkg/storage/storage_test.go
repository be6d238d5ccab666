package storage

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ats_resume_server/config"
)

func TestGenerateKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	key, err := GenerateKey(UserScope(42), ".PDF", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^users/42/1700000000123-[0-9a-f]{16}\.pdf$`), key)

	anon, err := GenerateKey("anonymous", "docx", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^anonymous/1700000000123-[0-9a-f]{16}\.docx$`), anon)
}

func TestGenerateKey_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		key, err := GenerateKey(UserScope(1), "pdf", now)
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestUploadMeta(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, map[string]string{MetaUploadedAt: "2024-05-01T10:00:00Z"}, UploadMeta(now))
}

func TestNewFromConfig(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewFromConfig(&config.StorageConfig{Provider: "ftp"})
		assert.Error(t, err)
	})

	t.Run("s3 requires bucket and region", func(t *testing.T) {
		_, err := NewFromConfig(&config.StorageConfig{Provider: "s3"})
		assert.Error(t, err)
	})
}

func TestS3Store_SignedURL(t *testing.T) {
	store, err := NewS3Store(&config.StorageConfig{
		Bucket:          "resumes",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	signed, err := store.SignedURL(context.Background(), "users/1/123-abc.pdf", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/resumes/users/1/123-abc.pdf", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestOSSStore_SignedURL(t *testing.T) {
	store, err := NewOSSStore(&config.StorageConfig{
		Bucket:          "resumes",
		Endpoint:        "oss-cn-hangzhou.aliyuncs.com",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	signed, err := store.SignedURL(context.Background(), "reports/1/2-3.pdf", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.Contains(signed, "reports/1/2-3.pdf"))
	assert.Contains(t, signed, "Signature=")
}
