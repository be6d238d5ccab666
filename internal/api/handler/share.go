package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/service"
)

type ShareHandler struct {
	shareService *service.ShareService
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// Get 公开的只读分享页
// GET /api/share/:token
func (h *ShareHandler) Get(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.NotFound(c, "")
		return
	}

	shared, err := h.shareService.Resolve(c.Request.Context(), token)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	response.Success(c, shared)
}
