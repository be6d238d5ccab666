package model

import (
	"time"
)

type ShareLink struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	Token      string     `gorm:"size:64;uniqueIndex;not null" json:"token"`
	AnalysisID int64      `gorm:"not null;index" json:"analysis_id"`
	UserID     int64      `gorm:"not null;index" json:"user_id"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (ShareLink) TableName() string {
	return "share_links"
}

// Active 链接未撤销且未过期
func (s *ShareLink) Active(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}
