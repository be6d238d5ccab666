package model

import (
	"time"
)

// AuditLog 管理操作记录，只追加不修改
type AuditLog struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	ActorID      int64     `gorm:"not null;index" json:"actor_id"`
	Action       string    `gorm:"size:50;not null;index" json:"action"`
	TargetUserID *int64    `gorm:"index" json:"target_user_id,omitempty"`
	Detail       string    `gorm:"type:text" json:"detail"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
