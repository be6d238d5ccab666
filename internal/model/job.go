package model

import (
	"time"
)

// AI 任务类型
const (
	AIJobSuggestions = "suggestions"
	AIJobCoverLetter = "cover_letter"
)

// AI 任务状态
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// AIJob 异步 AI 改写任务
type AIJob struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	AnalysisID   int64      `gorm:"not null;index" json:"analysis_id"`
	UserID       int64      `gorm:"not null;index" json:"user_id"`
	Kind         string     `gorm:"size:20;not null" json:"kind"`
	Status       string     `gorm:"size:20;default:queued;index" json:"status"`
	JobDesc      string     `gorm:"column:job_description;type:text" json:"job_description,omitempty"`
	CompanyName  string     `gorm:"size:200" json:"company_name,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (AIJob) TableName() string {
	return "ai_jobs"
}
