package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/service"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers 用户列表，支持按等级和邮箱/昵称筛选
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, pageSize := pagination(c)

	items, total, err := h.adminService.ListUsers(page, pageSize, c.Query("tier"), c.Query("search"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// UpdateTier 修改用户等级
// PUT /api/admin/users/:id/tier
func (h *AdminHandler) UpdateTier(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	user, err := h.adminService.UpdateTier(actorID, userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, user)
}

// RefundPayment 退款
// POST /api/admin/payments/:id/refund
func (h *AdminHandler) RefundPayment(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	item, err := h.adminService.RefundPayment(c.Request.Context(), actorID, paymentID, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, item)
}

// AuditLogs 审计日志
// GET /api/admin/audit-logs
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	page, pageSize := pagination(c)
	actorID, _ := strconv.ParseInt(c.Query("actorId"), 10, 64)

	items, total, err := h.adminService.ListAuditLogs(page, pageSize, c.Query("action"), actorID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}
