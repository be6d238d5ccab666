package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotConfigured    = errors.New("payment provider not configured")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Order Razorpay 订单
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// RazorpayGateway Razorpay 能力
type RazorpayGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	Refund(ctx context.Context, paymentID string, amount int64) (string, error)
}

// Intent Stripe PaymentIntent 的必要字段
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	CustomerID   string            `json:"customer_id"`
	Metadata     map[string]string `json:"metadata"`
}

// Succeeded 扣款成功
func (i *Intent) Succeeded() bool {
	return i.Status == "succeeded"
}

// Event 已验签的 webhook 事件
type Event struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

// StripeGateway Stripe 能力
type StripeGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
	ConstructEvent(payload []byte, sigHeader string) (*Event, error)
	Refund(ctx context.Context, intentID string, amount int64) (string, error)
}

// NewReceipt 生成唯一收据号（Razorpay 限制 40 字符）
func NewReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// FormatAmount 将最小货币单位格式化为展示金额
func FormatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", strings.ToUpper(currency), amount/100, amount%100)
}
