package handler

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/service"
)

// webhook 请求体上限
const maxWebhookBody = 1 << 16

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateIntent 创建支付订单
// POST /api/payments/create-intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	resp, err := h.paymentService.CreateIntent(c.Request.Context(), userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Created(c, resp)
}

// VerifyRazorpay 校验 Razorpay 回调签名并开通会员
// POST /api/payments/verify-razorpay
func (h *PaymentHandler) VerifyRazorpay(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.VerifyRazorpayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	result, err := h.paymentService.VerifyRazorpay(c.Request.Context(), userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Payment verified", result)
}

// ConfirmStripe 确认 Stripe 支付结果
// POST /api/payments/confirm-stripe
func (h *PaymentHandler) ConfirmStripe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.ConfirmStripeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	result, err := h.paymentService.ConfirmStripe(c.Request.Context(), userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Payment confirmed", result)
}

// History 支付记录
// GET /api/payments/history
func (h *PaymentHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	items, total, err := h.paymentService.History(userID, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// RazorpayWebhook 签名基于原始请求体
// POST /api/payments/webhook/razorpay
func (h *PaymentHandler) RazorpayWebhook(c *gin.Context) {
	body, ok := readWebhookBody(c)
	if !ok {
		return
	}

	if err := h.paymentService.HandleRazorpayWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature")); err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"received": true})
}

// StripeWebhook 签名基于原始请求体
// POST /api/payments/webhook/stripe
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	body, ok := readWebhookBody(c)
	if !ok {
		return
	}

	if err := h.paymentService.HandleStripeWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature")); err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"received": true})
}

func readWebhookBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Printf("Failed to read webhook body: %v", err)
		response.ValidationError(c, "Unreadable request body")
		return nil, false
	}
	return body, true
}
