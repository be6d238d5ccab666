package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(payment *model.Payment) error {
	return r.db.Create(payment).Error
}

func (r *PaymentRepository) GetByID(id int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByOrderID 按渠道订单号（Razorpay order / Stripe PaymentIntent）查询
func (r *PaymentRepository) GetByOrderID(provider, orderID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("provider = ? AND provider_order_id = ?", provider, orderID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByPaymentID(provider, paymentID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("provider = ? AND provider_payment_id = ?", provider, paymentID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Transition 仅当当前状态为 from 时更新，返回是否发生了状态迁移
func (r *PaymentRepository) Transition(id int64, from, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// MarkRefunded 标记退款
func (r *PaymentRepository) MarkRefunded(id int64, reason string, at time.Time) (bool, error) {
	return r.Transition(id, model.PaymentCompleted, model.PaymentRefunded, map[string]interface{}{
		"refund_reason": reason,
		"refunded_at":   at,
	})
}

func (r *PaymentRepository) ListByUserID(userID int64, page, pageSize int) ([]*model.Payment, int64, error) {
	var payments []*model.Payment
	var total int64

	query := r.db.Model(&model.Payment{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}
