package payment

import (
	"context"
	"encoding/json"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/qs3c/ats_resume_server/config"
)

// Razorpay 基于官方 SDK 的实现
type Razorpay struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpay(cfg *config.RazorpayConfig) (*Razorpay, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, ErrNotConfigured
	}
	return &Razorpay{
		client:        razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

func (r *Razorpay) KeyID() string {
	return r.keyID
}

// CreateOrder 创建订单，金额为最小货币单位
func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	order := &Order{Currency: currency, Receipt: receipt, Amount: amount}
	if err := remarshal(body, order); err != nil {
		return nil, fmt.Errorf("razorpay decode order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay create order: empty order id")
	}
	return order, nil
}

func (r *Razorpay) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, signature, r.keySecret)
}

func (r *Razorpay) VerifyWebhookSignature(body []byte, signature string) bool {
	if r.webhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, r.webhookSecret)
}

// Refund 发起全额或部分退款，返回退款 ID
func (r *Razorpay) Refund(ctx context.Context, paymentID string, amount int64) (string, error) {
	body, err := r.client.Payment.Refund(paymentID, int(amount), nil, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay refund: %w", err)
	}
	id, _ := body["id"].(string)
	return id, nil
}

func remarshal(src map[string]interface{}, dst interface{}) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// RazorpayEvent webhook 事件中用到的字段
type RazorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Amount  int64             `json:"amount"`
				Status  string            `json:"status"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
			} `json:"entity"`
		} `json:"refund"`
		Subscription struct {
			Entity struct {
				ID    string            `json:"id"`
				Notes map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

// ParseRazorpayEvent 解析 webhook 报文（需先验签）
func ParseRazorpayEvent(body []byte) (*RazorpayEvent, error) {
	var evt RazorpayEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("invalid razorpay payload: %w", err)
	}
	if evt.Event == "" {
		return nil, fmt.Errorf("invalid razorpay payload: missing event")
	}
	return &evt, nil
}
