package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/service"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Generate 生成或复用 PDF 报告，返回临时下载地址
// POST /api/reports/generate/:analysisId
func (h *ReportHandler) Generate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	analysisID, ok := parseIDParam(c, "analysisId")
	if !ok {
		return
	}

	resp, err := h.reportService.Generate(c.Request.Context(), userID, analysisID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, resp)
}
