package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
)

type ShareRepository struct {
	db *gorm.DB
}

func NewShareRepository(db *gorm.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) Create(link *model.ShareLink) error {
	return r.db.Create(link).Error
}

func (r *ShareRepository) GetByToken(token string) (*model.ShareLink, error) {
	var link model.ShareLink
	err := r.db.Where("token = ?", token).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListActiveTokens 分析上仍有效的分享 token
func (r *ShareRepository) ListActiveTokens(analysisID int64) ([]string, error) {
	var tokens []string
	err := r.db.Model(&model.ShareLink{}).
		Where("analysis_id = ? AND revoked_at IS NULL", analysisID).
		Pluck("token", &tokens).Error
	return tokens, err
}

// RevokeByAnalysisID 撤销分析的全部分享链接
func (r *ShareRepository) RevokeByAnalysisID(analysisID int64, at time.Time) error {
	return r.db.Model(&model.ShareLink{}).
		Where("analysis_id = ? AND revoked_at IS NULL", analysisID).
		Update("revoked_at", at).Error
}

// DeleteExpired 删除已过期或已撤销的链接
func (r *ShareRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("(expires_at IS NOT NULL AND expires_at <= ?) OR revoked_at IS NOT NULL", now).
		Delete(&model.ShareLink{})
	return result.RowsAffected, result.Error
}

// CountExpired 统计可清理的链接数
func (r *ShareRepository) CountExpired(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.ShareLink{}).
		Where("(expires_at IS NOT NULL AND expires_at <= ?) OR revoked_at IS NOT NULL", now).
		Count(&count).Error
	return count, err
}
