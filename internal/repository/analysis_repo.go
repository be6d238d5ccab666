package repository

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
)

// ErrAlreadySet AI 结果已写入过
var ErrAlreadySet = errors.New("value already set")

type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(analysis *model.Analysis) error {
	return r.db.Create(analysis).Error
}

func (r *AnalysisRepository) GetByID(id int64) (*model.Analysis, error) {
	var analysis model.Analysis
	err := r.db.Where("id = ?", id).First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (r *AnalysisRepository) Delete(id int64) error {
	return r.db.Delete(&model.Analysis{}, id).Error
}

// ListByUserID 获取用户的分析列表
func (r *AnalysisRepository) ListByUserID(userID int64, page, pageSize int) ([]*model.Analysis, int64, error) {
	var analyses []*model.Analysis
	var total int64

	query := r.db.Model(&model.Analysis{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&analyses).Error; err != nil {
		return nil, 0, err
	}

	return analyses, total, nil
}

// UpdateReport 更新报告相关字段
func (r *AnalysisRepository) UpdateReport(id int64, key, digest string, expiresAt time.Time) error {
	return r.db.Model(&model.Analysis{}).Where("id = ?", id).Updates(map[string]interface{}{
		"report_key":            key,
		"report_digest":         digest,
		"report_url_expires_at": expiresAt,
	}).Error
}

// UpdateReportExpiry 仅刷新签名链接过期时间
func (r *AnalysisRepository) UpdateReportExpiry(id int64, expiresAt time.Time) error {
	return r.db.Model(&model.Analysis{}).Where("id = ?", id).
		Update("report_url_expires_at", expiresAt).Error
}

// SetAISuggestions 保存 AI 改写建议，只能写入一次
func (r *AnalysisRepository) SetAISuggestions(id int64, suggestions datatypes.JSON) error {
	result := r.db.Model(&model.Analysis{}).
		Where("id = ? AND ai_suggestions IS NULL", id).
		Update("ai_suggestions", suggestions)
	return setOnce(result)
}

// SetCoverLetter 保存生成的求职信，只能写入一次
func (r *AnalysisRepository) SetCoverLetter(id int64, letter string) error {
	result := r.db.Model(&model.Analysis{}).
		Where("id = ? AND (cover_letter IS NULL OR cover_letter = '')", id).
		Update("cover_letter", letter)
	return setOnce(result)
}

func setOnce(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadySet
	}
	return nil
}

// ListAnonymousBefore 匿名上传的过期记录，用于清理
func (r *AnalysisRepository) ListAnonymousBefore(before time.Time, limit int) ([]*model.Analysis, error) {
	var analyses []*model.Analysis
	err := r.db.Where("user_id IS NULL AND created_at < ?", before).
		Order("created_at ASC").
		Limit(limit).
		Find(&analyses).Error
	return analyses, err
}
