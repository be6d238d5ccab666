package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/email"
	"github.com/qs3c/ats_resume_server/internal/pkg/payment"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotCompleted  = errors.New("payment has not succeeded")
	ErrPaymentState         = errors.New("payment is not in a valid state for this operation")
	ErrProviderNotAvailable = errors.New("payment provider is not available")
	ErrProviderRequest      = errors.New("payment provider request failed")
)

type PaymentService struct {
	userRepo    *repository.UserRepository
	paymentRepo *repository.PaymentRepository
	razorpay    payment.RazorpayGateway
	stripe      payment.StripeGateway
	mailer      *email.Service
	cfg         *config.Config
	now         func() time.Time
}

// NewPaymentService 未配置的渠道传 nil
func NewPaymentService(
	userRepo *repository.UserRepository,
	paymentRepo *repository.PaymentRepository,
	razorpay payment.RazorpayGateway,
	stripe payment.StripeGateway,
	mailer *email.Service,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		razorpay:    razorpay,
		stripe:      stripe,
		mailer:      mailer,
		cfg:         cfg,
		now:         time.Now,
	}
}

// CreateIntent 创建待支付记录和渠道订单
func (s *PaymentService) CreateIntent(ctx context.Context, userID int64, req *dto.CreateIntentRequest) (*dto.CreateIntentResponse, error) {
	plan, ok := s.cfg.Plan(req.PlanID)
	if !ok {
		return nil, ErrPlanNotFound
	}
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}

	currency := plan.Currency
	if currency == "" {
		currency = s.cfg.Payments.Currency
	}
	currency = strings.ToUpper(currency)

	p := &model.Payment{
		UserID:   userID,
		Provider: req.Provider,
		Receipt:  payment.NewReceipt(),
		Amount:   plan.Amount,
		Currency: currency,
		PlanID:   plan.ID,
		Status:   model.PaymentPending,
	}
	meta := map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
		"plan_id": plan.ID,
		"receipt": p.Receipt,
	}

	resp := &dto.CreateIntentResponse{
		Provider: req.Provider,
		Amount:   plan.Amount,
		Currency: currency,
		PlanID:   plan.ID,
	}

	switch req.Provider {
	case model.ProviderRazorpay:
		if s.razorpay == nil {
			return nil, ErrProviderNotAvailable
		}
		order, err := s.razorpay.CreateOrder(ctx, plan.Amount, currency, p.Receipt, meta)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
		}
		p.ProviderOrderID = order.ID
		resp.KeyID = s.razorpay.KeyID()
	case model.ProviderStripe:
		if s.stripe == nil {
			return nil, ErrProviderNotAvailable
		}
		intent, err := s.stripe.CreatePaymentIntent(ctx, plan.Amount, currency, user.StripeCustomerID, meta)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
		}
		p.ProviderOrderID = intent.ID
		resp.ClientSecret = intent.ClientSecret
	default:
		return nil, ErrProviderNotAvailable
	}

	if err := s.paymentRepo.Create(p); err != nil {
		return nil, err
	}
	resp.PaymentID = p.ID
	resp.OrderID = p.ProviderOrderID
	return resp, nil
}

// VerifyRazorpay 校验前端回调签名后完成支付
func (s *PaymentService) VerifyRazorpay(ctx context.Context, userID int64, req *dto.VerifyRazorpayRequest) (*dto.PaymentResult, error) {
	if s.razorpay == nil {
		return nil, ErrProviderNotAvailable
	}
	p, err := s.ownedByOrder(userID, model.ProviderRazorpay, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !s.razorpay.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature) {
		return nil, payment.ErrInvalidSignature
	}
	return s.complete(p, req.PaymentID, "")
}

// ConfirmStripe 向 Stripe 查询 PaymentIntent 状态后完成支付
func (s *PaymentService) ConfirmStripe(ctx context.Context, userID int64, req *dto.ConfirmStripeRequest) (*dto.PaymentResult, error) {
	if s.stripe == nil {
		return nil, ErrProviderNotAvailable
	}
	p, err := s.ownedByOrder(userID, model.ProviderStripe, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	intent, err := s.stripe.GetPaymentIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}
	if !intent.Succeeded() {
		return nil, ErrPaymentNotCompleted
	}
	return s.complete(p, intent.ID, intent.CustomerID)
}

// HandleRazorpayWebhook 验签并处理 Razorpay 事件
func (s *PaymentService) HandleRazorpayWebhook(ctx context.Context, body []byte, signature string) error {
	if s.razorpay == nil {
		return ErrProviderNotAvailable
	}
	if !s.razorpay.VerifyWebhookSignature(body, signature) {
		return payment.ErrInvalidSignature
	}
	evt, err := payment.ParseRazorpayEvent(body)
	if err != nil {
		return err
	}

	switch evt.Event {
	case "payment.captured":
		entity := evt.Payload.Payment.Entity
		p, err := s.findByOrder(model.ProviderRazorpay, entity.OrderID)
		if err != nil || p == nil {
			return err
		}
		_, err = s.complete(p, entity.ID, "")
		return ignoreState(err)
	case "payment.failed":
		p, err := s.findByOrder(model.ProviderRazorpay, evt.Payload.Payment.Entity.OrderID)
		if err != nil || p == nil {
			return err
		}
		return s.fail(p, evt.Payload.Payment.Entity.ID)
	case "refund.processed":
		p, err := s.findByPaymentID(model.ProviderRazorpay, evt.Payload.Refund.Entity.PaymentID)
		if err != nil || p == nil {
			return err
		}
		return ignoreState(s.applyRefund(p, "refund processed by provider"))
	case "subscription.cancelled":
		uid, err := strconv.ParseInt(evt.Payload.Subscription.Entity.Notes["user_id"], 10, 64)
		if err != nil {
			log.Printf("Razorpay subscription %s has no user_id note", evt.Payload.Subscription.Entity.ID)
			return nil
		}
		return s.cancelSubscription(uid)
	default:
		log.Printf("Ignoring razorpay event %s", evt.Event)
		return nil
	}
}

// HandleStripeWebhook 验签并处理 Stripe 事件
func (s *PaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if s.stripe == nil {
		return ErrProviderNotAvailable
	}
	evt, err := s.stripe.ConstructEvent(payload, sigHeader)
	if err != nil {
		return err
	}

	switch evt.Type {
	case "payment_intent.succeeded":
		intent, err := payment.DecodeIntent(evt.Raw)
		if err != nil {
			return err
		}
		p, err := s.findByOrder(model.ProviderStripe, intent.ID)
		if err != nil || p == nil {
			return err
		}
		_, err = s.complete(p, intent.ID, intent.CustomerID)
		return ignoreState(err)
	case "payment_intent.payment_failed":
		intent, err := payment.DecodeIntent(evt.Raw)
		if err != nil {
			return err
		}
		p, err := s.findByOrder(model.ProviderStripe, intent.ID)
		if err != nil || p == nil {
			return err
		}
		return s.fail(p, intent.ID)
	case "charge.refunded":
		intentID, err := payment.DecodeChargeIntentID(evt.Raw)
		if err != nil {
			return err
		}
		p, err := s.findByOrder(model.ProviderStripe, intentID)
		if err != nil || p == nil {
			return err
		}
		return ignoreState(s.applyRefund(p, "refund processed by provider"))
	case "customer.subscription.deleted":
		customerID, err := payment.DecodeSubscriptionCustomer(evt.Raw)
		if err != nil {
			return err
		}
		user, err := s.userRepo.GetByStripeCustomerID(customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("No user for stripe customer %s", customerID)
				return nil
			}
			return err
		}
		return s.cancelSubscription(user.ID)
	default:
		log.Printf("Ignoring stripe event %s", evt.Type)
		return nil
	}
}

// Refund 管理员发起退款：先调用渠道，再落库并降级
func (s *PaymentService) Refund(ctx context.Context, paymentID int64, reason string) (*model.Payment, error) {
	p, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if p.Status != model.PaymentCompleted || p.ProviderPaymentID == "" {
		return nil, ErrPaymentState
	}

	switch p.Provider {
	case model.ProviderRazorpay:
		if s.razorpay == nil {
			return nil, ErrProviderNotAvailable
		}
		_, err = s.razorpay.Refund(ctx, p.ProviderPaymentID, p.Amount)
	case model.ProviderStripe:
		if s.stripe == nil {
			return nil, ErrProviderNotAvailable
		}
		_, err = s.stripe.Refund(ctx, p.ProviderPaymentID, p.Amount)
	default:
		return nil, ErrProviderNotAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}

	// 渠道 webhook 可能先一步完成落库
	if err := s.applyRefund(p, reason); err != nil && !errors.Is(err, ErrPaymentState) {
		return nil, err
	}
	return s.paymentRepo.GetByID(p.ID)
}

// History 支付记录
func (s *PaymentService) History(userID int64, page, pageSize int) ([]*dto.PaymentItem, int64, error) {
	payments, total, err := s.paymentRepo.ListByUserID(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*dto.PaymentItem, len(payments))
	for i, p := range payments {
		items[i] = BuildPaymentItem(p)
	}
	return items, total, nil
}

// complete pending -> completed 并升级会员；重复调用返回当前结果
func (s *PaymentService) complete(p *model.Payment, providerPaymentID, customerID string) (*dto.PaymentResult, error) {
	if p.Status == model.PaymentCompleted {
		return s.result(p)
	}

	moved, err := s.paymentRepo.Transition(p.ID, model.PaymentPending, model.PaymentCompleted, map[string]interface{}{
		"provider_payment_id": providerPaymentID,
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		fresh, err := s.paymentRepo.GetByID(p.ID)
		if err != nil {
			return nil, err
		}
		if fresh.Status == model.PaymentCompleted {
			return s.result(fresh)
		}
		return nil, ErrPaymentState
	}
	p.Status = model.PaymentCompleted
	p.ProviderPaymentID = providerPaymentID

	user, err := s.loadUser(p.UserID)
	if err != nil {
		return nil, err
	}

	plan, ok := s.cfg.Plan(p.PlanID)
	duration := 30 * 24 * time.Hour
	planName := p.PlanID
	if ok {
		duration = time.Duration(plan.DurationDays) * 24 * time.Hour
		if plan.Name != "" {
			planName = plan.Name
		}
	}

	// 续费时从当前到期时间顺延
	now := s.now()
	start := now
	if user.Tier == model.TierPremium && user.SubscriptionStatus == model.SubscriptionActive &&
		user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.After(now) {
		start = *user.SubscriptionExpiresAt
	}
	expiresAt := start.Add(duration)

	fields := map[string]interface{}{
		"subscription_status":     model.SubscriptionActive,
		"subscription_expires_at": expiresAt,
	}
	if user.Tier != model.TierAdmin {
		fields["tier"] = model.TierPremium
	}
	if customerID != "" && user.StripeCustomerID == "" {
		fields["stripe_customer_id"] = customerID
	}
	if err := s.userRepo.UpdateFields(user.ID, fields); err != nil {
		return nil, err
	}

	if s.mailer != nil && s.mailer.Enabled() {
		go func(to string) {
			err := s.mailer.SendPaymentReceipt(to, planName, payment.FormatAmount(p.Amount, p.Currency), expiresAt.Format("2006-01-02"))
			if err != nil {
				log.Printf("Failed to send payment receipt to %s: %v", to, err)
			}
		}(user.Email)
	}

	return s.result(p)
}

func (s *PaymentService) fail(p *model.Payment, providerPaymentID string) error {
	_, err := s.paymentRepo.Transition(p.ID, model.PaymentPending, model.PaymentFailed, map[string]interface{}{
		"provider_payment_id": providerPaymentID,
	})
	return err
}

// applyRefund completed -> refunded 并取消会员
func (s *PaymentService) applyRefund(p *model.Payment, reason string) error {
	moved, err := s.paymentRepo.MarkRefunded(p.ID, reason, s.now())
	if err != nil {
		return err
	}
	if !moved {
		return ErrPaymentState
	}

	user, err := s.loadUser(p.UserID)
	if err != nil {
		return err
	}
	if user.Tier != model.TierAdmin {
		if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{
			"tier":                model.TierFree,
			"subscription_status": model.SubscriptionCancelled,
		}); err != nil {
			return err
		}
	}

	if s.mailer != nil && s.mailer.Enabled() {
		go func(to string) {
			if err := s.mailer.SendRefundNotice(to, payment.FormatAmount(p.Amount, p.Currency), reason); err != nil {
				log.Printf("Failed to send refund notice to %s: %v", to, err)
			}
		}(user.Email)
	}
	return nil
}

func (s *PaymentService) cancelSubscription(userID int64) error {
	user, err := s.loadUser(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.Tier != model.TierPremium {
		return nil
	}
	return s.userRepo.UpdateFields(userID, map[string]interface{}{
		"subscription_status": model.SubscriptionCancelled,
	})
}

func (s *PaymentService) result(p *model.Payment) (*dto.PaymentResult, error) {
	user, err := s.loadUser(p.UserID)
	if err != nil {
		return nil, err
	}
	res := &dto.PaymentResult{
		PaymentID: p.ID,
		Status:    p.Status,
		Tier:      user.Tier,
	}
	if user.SubscriptionExpiresAt != nil {
		res.SubscriptionExpiresAt = user.SubscriptionExpiresAt.Format(time.RFC3339)
	}
	return res, nil
}

func (s *PaymentService) ownedByOrder(userID int64, provider, orderID string) (*model.Payment, error) {
	p, err := s.paymentRepo.GetByOrderID(provider, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// webhook 中找不到对应记录时忽略事件
func (s *PaymentService) findByOrder(provider, orderID string) (*model.Payment, error) {
	p, err := s.paymentRepo.GetByOrderID(provider, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("No %s payment for order %s", provider, orderID)
		return nil, nil
	}
	return p, err
}

func (s *PaymentService) findByPaymentID(provider, paymentID string) (*model.Payment, error) {
	p, err := s.paymentRepo.GetByPaymentID(provider, paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("No %s payment with id %s", provider, paymentID)
		return nil, nil
	}
	return p, err
}

func (s *PaymentService) loadUser(userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// 重复投递的 webhook 不应触发渠道重试
func ignoreState(err error) error {
	if errors.Is(err, ErrPaymentState) {
		return nil
	}
	return err
}

// BuildPaymentItem 组装支付记录
func BuildPaymentItem(p *model.Payment) *dto.PaymentItem {
	item := &dto.PaymentItem{
		ID:           p.ID,
		Provider:     p.Provider,
		Amount:       p.Amount,
		Currency:     p.Currency,
		PlanID:       p.PlanID,
		Status:       p.Status,
		RefundReason: p.RefundReason,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
	if p.RefundedAt != nil {
		item.RefundedAt = p.RefundedAt.Format(time.RFC3339)
	}
	return item
}
