package model

import (
	"time"
)

// 用户等级
const (
	TierAnonymous = "anonymous"
	TierFree      = "free"
	TierPremium   = "premium"
	TierAdmin     = "admin"
)

// 订阅状态
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

type User struct {
	ID                    int64      `gorm:"primaryKey" json:"id"`
	Email                 string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Name                  string     `gorm:"size:100" json:"name"`
	PasswordHash          *string    `gorm:"size:255" json:"-"`
	GithubID              *string    `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	Tier                  string     `gorm:"size:20;default:free;index" json:"tier"`
	SubscriptionStatus    string     `gorm:"size:20;default:active" json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `gorm:"index" json:"subscription_expires_at,omitempty"`
	StripeCustomerID      string     `gorm:"size:100" json:"-"`
	DailyUsage            int        `gorm:"default:0" json:"daily_usage"`
	UsageResetAt          *time.Time `json:"usage_reset_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u.Tier == TierAdmin
}
