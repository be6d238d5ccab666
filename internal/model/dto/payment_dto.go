package dto

// CreateIntentRequest 创建支付
type CreateIntentRequest struct {
	Provider string `json:"provider" binding:"required,oneof=razorpay stripe"`
	PlanID   string `json:"planId" binding:"required"`
}

// CreateIntentResponse 前端拉起支付所需的信息
type CreateIntentResponse struct {
	PaymentID    int64  `json:"paymentId"`
	Provider     string `json:"provider"`
	OrderID      string `json:"orderId"`
	ClientSecret string `json:"clientSecret,omitempty"`
	KeyID        string `json:"keyId,omitempty"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PlanID       string `json:"planId"`
}

// VerifyRazorpayRequest Razorpay 前端回调参数
type VerifyRazorpayRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// ConfirmStripeRequest Stripe 前端确认
type ConfirmStripeRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

// PaymentResult 支付确认结果
type PaymentResult struct {
	PaymentID             int64  `json:"paymentId"`
	Status                string `json:"status"`
	Tier                  string `json:"tier"`
	SubscriptionExpiresAt string `json:"subscriptionExpiresAt,omitempty"`
}

// PaymentItem 支付记录
type PaymentItem struct {
	ID           int64  `json:"id"`
	Provider     string `json:"provider"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PlanID       string `json:"planId"`
	Status       string `json:"status"`
	RefundReason string `json:"refundReason,omitempty"`
	RefundedAt   string `json:"refundedAt,omitempty"`
	CreatedAt    string `json:"createdAt"`
}
