package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeForbidden              = "FORBIDDEN"
	CodePremiumRequired        = "PREMIUM_REQUIRED"
	CodePremiumFeatureLocked   = "PREMIUM_FEATURE_LOCKED"
	CodeSubscriptionInactive   = "SUBSCRIPTION_INACTIVE"
	CodeUsageLimitExceeded     = "USAGE_LIMIT_EXCEEDED"
	CodeFileTooLarge           = "FILE_TOO_LARGE"
	CodeInvalidFile            = "INVALID_FILE"
	CodeUploadError            = "UPLOAD_ERROR"
	CodeValidationError        = "VALIDATION_ERROR"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeNotFound               = "NOT_FOUND"
	CodeEmailExists            = "EMAIL_EXISTS"
	CodeConflict               = "CONFLICT"
	CodeInvalidSignature       = "INVALID_SIGNATURE"
	CodePaymentError           = "PAYMENT_ERROR"
	CodeInternalServerError    = "INTERNAL_SERVER_ERROR"
)

// 错误码对应的默认消息
var codeMessages = map[string]string{
	CodeAuthenticationRequired: "Authentication required",
	CodeInvalidToken:           "Invalid or expired token",
	CodeInvalidCredentials:     "Invalid email or password",
	CodeForbidden:              "You do not have permission to perform this action",
	CodePremiumRequired:        "This feature requires a premium subscription",
	CodePremiumFeatureLocked:   "This feature is available on the premium plan",
	CodeSubscriptionInactive:   "Your premium subscription is not active",
	CodeUsageLimitExceeded:     "Daily analysis limit reached",
	CodeFileTooLarge:           "File exceeds the maximum allowed size",
	CodeInvalidFile:            "Only PDF and DOCX files are accepted",
	CodeUploadError:            "Upload failed",
	CodeValidationError:        "Invalid request",
	CodeUserNotFound:           "User not found",
	CodeNotFound:               "Resource not found",
	CodeEmailExists:            "Email is already registered",
	CodeConflict:               "Conflicting request",
	CodeInvalidSignature:       "Signature verification failed",
	CodePaymentError:           "Payment processing failed",
	CodeInternalServerError:    "Internal server error",
}

// Response 统一响应结构
type Response struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
	Error   map[string]interface{} `json:"error,omitempty"`
}

// PageData 分页数据结构
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Items    interface{} `json:"items"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	Success(c, PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// Error 错误响应，details 中的字段与 code/message 平铺在 error 对象里
func Error(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	if message == "" {
		message = codeMessages[code]
	}
	body := make(map[string]interface{}, len(details)+2)
	for k, v := range details {
		body[k] = v
	}
	body["code"] = code
	body["message"] = message

	c.AbortWithStatusJSON(status, Response{Success: false, Error: body})
}

// AuthRequired 未提供凭证
func AuthRequired(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeAuthenticationRequired, message, nil)
}

// InvalidToken 凭证无效或过期
func InvalidToken(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeInvalidToken, message, nil)
}

// Forbidden 权限不足
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, message, nil)
}

// ValidationError 参数错误
func ValidationError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeValidationError, message, nil)
}

// NotFound 资源不存在
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message, nil)
}

// Conflict 资源冲突
func Conflict(c *gin.Context, code, message string) {
	Error(c, http.StatusConflict, code, message, nil)
}

// ServerError 未分类错误，生产环境不返回内部信息
func ServerError(c *gin.Context, err error) {
	message := ""
	if err != nil && gin.Mode() != gin.ReleaseMode {
		message = err.Error()
	}
	Error(c, http.StatusInternalServerError, CodeInternalServerError, message, nil)
}
