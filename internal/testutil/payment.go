package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/qs3c/ats_resume_server/internal/pkg/payment"
)

// ValidSignature 假网关认可的签名
const ValidSignature = "valid-signature"

// FakeRazorpay 记录调用的 Razorpay 网关
type FakeRazorpay struct {
	mu       sync.Mutex
	seq      int
	Orders   []*payment.Order
	Notes    []map[string]string
	Refunds  []string
	OrderErr error
}

func (f *FakeRazorpay) KeyID() string { return "rzp_test_key" }

func (f *FakeRazorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*payment.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OrderErr != nil {
		return nil, f.OrderErr
	}
	f.seq++
	order := &payment.Order{
		ID:       fmt.Sprintf("order_fake_%d", f.seq),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	f.Orders = append(f.Orders, order)
	f.Notes = append(f.Notes, notes)
	return order, nil
}

func (f *FakeRazorpay) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return signature == ValidSignature
}

func (f *FakeRazorpay) VerifyWebhookSignature(body []byte, signature string) bool {
	return signature == ValidSignature
}

func (f *FakeRazorpay) Refund(ctx context.Context, paymentID string, amount int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refunds = append(f.Refunds, paymentID)
	return "rfnd_" + paymentID, nil
}

// FakeStripe 内存中的 Stripe 网关，事件报文格式与 Stripe 一致
type FakeStripe struct {
	mu      sync.Mutex
	seq     int
	Intents map[string]*payment.Intent
	Refunds []string
}

func NewFakeStripe() *FakeStripe {
	return &FakeStripe{Intents: make(map[string]*payment.Intent)}
}

func (f *FakeStripe) CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("pi_fake_%d", f.seq)
	intent := &payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		Amount:       amount,
		Currency:     currency,
		CustomerID:   customerID,
		Metadata:     metadata,
	}
	f.Intents[id] = intent
	return intent, nil
}

// Succeed 模拟客户端完成扣款
func (f *FakeStripe) Succeed(id, customerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if intent, ok := f.Intents[id]; ok {
		intent.Status = "succeeded"
		intent.CustomerID = customerID
	}
}

func (f *FakeStripe) GetPaymentIntent(ctx context.Context, id string) (*payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.Intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment_intent: %s", id)
	}
	copied := *intent
	return &copied, nil
}

func (f *FakeStripe) ConstructEvent(payload []byte, sigHeader string) (*payment.Event, error) {
	if sigHeader != ValidSignature {
		return nil, payment.ErrInvalidSignature
	}
	var evt struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}
	return &payment.Event{ID: evt.ID, Type: evt.Type, Raw: evt.Data.Object}, nil
}

func (f *FakeStripe) Refund(ctx context.Context, intentID string, amount int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refunds = append(f.Refunds, intentID)
	return "re_" + intentID, nil
}

// StripeEvent 构造 Stripe webhook 报文
func StripeEvent(eventType string, object interface{}) []byte {
	raw, _ := json.Marshal(map[string]interface{}{
		"id":     "evt_test",
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})
	return raw
}

// RazorpayEvent 构造 Razorpay webhook 报文
func RazorpayEvent(event string, payload map[string]interface{}) []byte {
	raw, _ := json.Marshal(map[string]interface{}{
		"entity":  "event",
		"event":   event,
		"payload": payload,
	})
	return raw
}
