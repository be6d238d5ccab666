package dto

import "encoding/json"

// UpdateTierRequest 管理员修改用户等级
type UpdateTierRequest struct {
	Tier               string `json:"tier" binding:"required,oneof=free premium admin"`
	SubscriptionStatus string `json:"subscriptionStatus" binding:"omitempty,oneof=active cancelled expired"`
	DurationDays       int    `json:"durationDays" binding:"omitempty,min=1,max=3650"`
	Reason             string `json:"reason" binding:"omitempty,max=500"`
}

// RefundRequest 管理员退款
type RefundRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// AdminUserItem 管理后台用户列表项
type AdminUserItem struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Tier               string `json:"tier"`
	SubscriptionStatus string `json:"subscriptionStatus"`
	DailyUsage         int    `json:"dailyUsage"`
	CreatedAt          string `json:"createdAt"`
}

// AuditLogItem 审计日志
type AuditLogItem struct {
	ID           int64           `json:"id"`
	ActorID      int64           `json:"actorId"`
	Action       string          `json:"action"`
	TargetUserID *int64          `json:"targetUserId,omitempty"`
	Detail       json.RawMessage `json:"detail"`
	CreatedAt    string          `json:"createdAt"`
}
