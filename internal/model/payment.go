package model

import (
	"time"
)

// 支付渠道
const (
	ProviderRazorpay = "razorpay"
	ProviderStripe   = "stripe"
)

// 支付状态
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

type Payment struct {
	ID                int64      `gorm:"primaryKey" json:"id"`
	UserID            int64      `gorm:"not null;index" json:"user_id"`
	Provider          string     `gorm:"size:20;not null" json:"provider"`
	ProviderOrderID   string     `gorm:"size:100;index" json:"provider_order_id"`
	ProviderPaymentID string     `gorm:"size:100;index" json:"provider_payment_id,omitempty"`
	Receipt           string     `gorm:"size:64;uniqueIndex" json:"receipt"`
	Amount            int64      `gorm:"not null" json:"amount"` // 最小货币单位
	Currency          string     `gorm:"size:10;not null" json:"currency"`
	PlanID            string     `gorm:"size:50;not null" json:"plan_id"`
	Status            string     `gorm:"size:20;default:pending;index" json:"status"`
	RefundReason      string     `gorm:"size:500" json:"refund_reason,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
