package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

// 审计动作
const (
	AuditTierUpdate    = "user.tier_update"
	AuditPaymentRefund = "payment.refund"
)

type AdminService struct {
	userRepo  *repository.UserRepository
	auditRepo *repository.AuditRepository
	payments  *PaymentService
	now       func() time.Time
}

func NewAdminService(userRepo *repository.UserRepository, auditRepo *repository.AuditRepository, payments *PaymentService) *AdminService {
	return &AdminService{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		payments:  payments,
		now:       time.Now,
	}
}

// ListUsers 用户列表
func (s *AdminService) ListUsers(page, pageSize int, tier, search string) ([]*dto.AdminUserItem, int64, error) {
	users, total, err := s.userRepo.List(page, pageSize, tier, search)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*dto.AdminUserItem, len(users))
	for i, u := range users {
		items[i] = &dto.AdminUserItem{
			ID:                 u.ID,
			Email:              u.Email,
			Name:               u.Name,
			Tier:               u.Tier,
			SubscriptionStatus: u.SubscriptionStatus,
			DailyUsage:         u.DailyUsage,
			CreatedAt:          u.CreatedAt.Format(time.RFC3339),
		}
	}
	return items, total, nil
}

// UpdateTier 修改用户等级与订阅状态
func (s *AdminService) UpdateTier(actorID, userID int64, req *dto.UpdateTierRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	status := req.SubscriptionStatus
	if status == "" {
		status = model.SubscriptionActive
	}

	fields := map[string]interface{}{
		"tier":                req.Tier,
		"subscription_status": status,
	}
	var expiresAt *time.Time
	if req.Tier == model.TierPremium && req.DurationDays > 0 {
		t := s.now().Add(time.Duration(req.DurationDays) * 24 * time.Hour)
		expiresAt = &t
		fields["subscription_expires_at"] = t
	} else if req.Tier != model.TierPremium {
		fields["subscription_expires_at"] = nil
	}

	if err := s.userRepo.UpdateFields(userID, fields); err != nil {
		return nil, err
	}

	s.audit(actorID, AuditTierUpdate, &userID, map[string]interface{}{
		"fromTier":   user.Tier,
		"fromStatus": user.SubscriptionStatus,
		"toTier":     req.Tier,
		"toStatus":   status,
		"reason":     req.Reason,
	})

	user.Tier = req.Tier
	user.SubscriptionStatus = status
	if expiresAt != nil || req.Tier != model.TierPremium {
		user.SubscriptionExpiresAt = expiresAt
	}
	return BuildUserInfo(user, nil), nil
}

// RefundPayment 退款并记录审计
func (s *AdminService) RefundPayment(ctx context.Context, actorID, paymentID int64, reason string) (*dto.PaymentItem, error) {
	p, err := s.payments.Refund(ctx, paymentID, reason)
	if err != nil {
		return nil, err
	}

	s.audit(actorID, AuditPaymentRefund, &p.UserID, map[string]interface{}{
		"paymentId": p.ID,
		"provider":  p.Provider,
		"amount":    p.Amount,
		"currency":  p.Currency,
		"reason":    reason,
	})
	return BuildPaymentItem(p), nil
}

// ListAuditLogs 审计日志
func (s *AdminService) ListAuditLogs(page, pageSize int, action string, actorID int64) ([]*dto.AuditLogItem, int64, error) {
	logs, total, err := s.auditRepo.List(page, pageSize, action, actorID)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*dto.AuditLogItem, len(logs))
	for i, l := range logs {
		detail := json.RawMessage(l.Detail)
		if !json.Valid(detail) {
			detail = json.RawMessage("{}")
		}
		items[i] = &dto.AuditLogItem{
			ID:           l.ID,
			ActorID:      l.ActorID,
			Action:       l.Action,
			TargetUserID: l.TargetUserID,
			Detail:       detail,
			CreatedAt:    l.CreatedAt.Format(time.RFC3339),
		}
	}
	return items, total, nil
}

// 审计写入失败只记录日志
func (s *AdminService) audit(actorID int64, action string, target *int64, detail map[string]interface{}) {
	raw, err := json.Marshal(detail)
	if err != nil {
		log.Printf("Failed to encode audit detail: %v", err)
		raw = []byte("{}")
	}
	entry := &model.AuditLog{
		ActorID:      actorID,
		Action:       action,
		TargetUserID: target,
		Detail:       string(raw),
	}
	if err := s.auditRepo.Create(entry); err != nil {
		log.Printf("Failed to write audit log %s by %d: %v", action, actorID, err)
	}
}
