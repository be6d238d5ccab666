package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.AIJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.AIJob, error) {
	var job model.AIJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.AIJob) error {
	return r.db.Save(job).Error
}

// GetActive 获取分析上同类型的未完成任务
func (r *JobRepository) GetActive(analysisID int64, kind string) (*model.AIJob, error) {
	var job model.AIJob
	err := r.db.Where("analysis_id = ? AND kind = ? AND status IN ?",
		analysisID, kind, []string{model.JobQueued, model.JobProcessing}).
		Order("created_at DESC").First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FailStale 将长时间未完成的任务标记为失败
func (r *JobRepository) FailStale(before time.Time) (int64, error) {
	result := r.db.Model(&model.AIJob{}).
		Where("status IN ? AND created_at < ?", []string{model.JobQueued, model.JobProcessing}, before).
		Updates(map[string]interface{}{
			"status":        model.JobFailed,
			"error_message": "job timed out",
		})
	return result.RowsAffected, result.Error
}

// CountStale 统计超时任务数（清理工具 dry-run 使用）
func (r *JobRepository) CountStale(before time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.AIJob{}).
		Where("status IN ? AND created_at < ?", []string{model.JobQueued, model.JobProcessing}, before).
		Count(&count).Error
	return count, err
}

// DeleteByAnalysisID 删除分析关联的任务
func (r *JobRepository) DeleteByAnalysisID(analysisID int64) error {
	return r.db.Where("analysis_id = ?", analysisID).Delete(&model.AIJob{}).Error
}
