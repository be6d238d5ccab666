package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/qs3c/ats_resume_server/config"
)

// Stripe 基于 stripe-go 的实现，使用独立的 client.API 而非全局 Key
type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(cfg *config.StripeConfig) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Stripe{api: api, webhookSecret: cfg.WebhookSecret}, nil
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return toIntent(pi), nil
}

func (s *Stripe) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get payment intent: %w", err)
	}
	return toIntent(pi), nil
}

func (s *Stripe) ConstructEvent(payload []byte, sigHeader string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, ErrNotConfigured
	}
	return constructStripeEvent(payload, sigHeader, s.webhookSecret)
}

func (s *Stripe) Refund(ctx context.Context, intentID string, amount int64) (string, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}
	r, err := s.api.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe refund: %w", err)
	}
	return r.ID, nil
}

func constructStripeEvent(payload []byte, sigHeader, secret string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}
	return &Event{ID: event.ID, Type: string(event.Type), Raw: raw}, nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
	if pi.Customer != nil {
		intent.CustomerID = pi.Customer.ID
	}
	return intent
}

// DecodeIntent 解析 payment_intent.* 事件
func DecodeIntent(raw json.RawMessage) (*Intent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, fmt.Errorf("invalid payment intent payload: %w", err)
	}
	return toIntent(&pi), nil
}

// DecodeChargeIntentID 从 charge.refunded 事件取出关联的 PaymentIntent ID
func DecodeChargeIntentID(raw json.RawMessage) (string, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return "", fmt.Errorf("invalid charge payload: %w", err)
	}
	if ch.PaymentIntent == nil || ch.PaymentIntent.ID == "" {
		return "", fmt.Errorf("charge has no payment intent")
	}
	return ch.PaymentIntent.ID, nil
}

// DecodeSubscriptionCustomer 从 customer.subscription.deleted 事件取出客户 ID
func DecodeSubscriptionCustomer(raw json.RawMessage) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("invalid subscription payload: %w", err)
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return "", fmt.Errorf("subscription has no customer")
	}
	return sub.Customer.ID, nil
}
