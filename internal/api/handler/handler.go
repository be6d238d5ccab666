package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/api/middleware"
	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/pkg/payment"
	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// currentUserID 取认证中间件写入的用户 ID，缺失时直接响应 401
func currentUserID(c *gin.Context) (int64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		response.AuthRequired(c, "")
		return 0, false
	}
	return userID, true
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

// writeServiceError 把服务层错误翻译为统一错误响应
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAnalysisNotFound),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrShareNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, "", nil)
	case errors.Is(err, service.ErrAnalysisPermission):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, "", nil)
	case errors.Is(err, service.ErrInvalidFile):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidFile, "", nil)
	case errors.Is(err, service.ErrStorage):
		log.Printf("Storage failure: %v", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServerError, "Failed to store file", nil)
	case errors.Is(err, ats.ErrJobDescriptionTooLong),
		errors.Is(err, ats.ErrJobDescriptionEmpty),
		errors.Is(err, service.ErrResumeTextRequired),
		errors.Is(err, service.ErrUnsupportedAIKind):
		response.ValidationError(c, err.Error())
	case errors.Is(err, service.ErrAIResultExists),
		errors.Is(err, service.ErrPaymentState):
		response.Conflict(c, response.CodeConflict, err.Error())
	case errors.Is(err, payment.ErrInvalidSignature):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidSignature, "", nil)
	case errors.Is(err, service.ErrPaymentNotCompleted):
		response.Error(c, http.StatusBadRequest, response.CodePaymentError, err.Error(), nil)
	case errors.Is(err, service.ErrProviderNotAvailable),
		errors.Is(err, payment.ErrNotConfigured):
		response.Error(c, http.StatusBadRequest, response.CodePaymentError, "Payment provider is not available", nil)
	case errors.Is(err, service.ErrProviderRequest):
		log.Printf("Payment provider error: %v", err)
		response.Error(c, http.StatusBadGateway, response.CodePaymentError, "Payment provider request failed", nil)
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c, err)
	}
}
