package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/api/middleware"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/service"
)

// 表单字段
const (
	resumeField         = "resume"
	jobDescriptionField = "jobDescription"
)

// multipart 边界和其它字段的余量
const multipartOverhead = 1 << 20

type ResumeHandler struct {
	uploadService   *service.UploadService
	analysisService *service.AnalysisService
	shareService    *service.ShareService
	aiService       *service.AIService
	usageService    *service.UsageService
	userService     *service.UserService
	maxUploadSize   int64
}

func NewResumeHandler(
	uploadService *service.UploadService,
	analysisService *service.AnalysisService,
	shareService *service.ShareService,
	aiService *service.AIService,
	usageService *service.UsageService,
	userService *service.UserService,
	maxUploadSize int64,
) *ResumeHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	return &ResumeHandler{
		uploadService:   uploadService,
		analysisService: analysisService,
		shareService:    shareService,
		aiService:       aiService,
		usageService:    usageService,
		userService:     userService,
		maxUploadSize:   maxUploadSize,
	}
}

// Upload 上传简历并评分，可匿名
// POST /api/resume/upload
func (h *ResumeHandler) Upload(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)

	fh, err := c.FormFile(resumeField)
	if err != nil {
		if bodyTooLarge(err) {
			response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, "", map[string]interface{}{
				"maxSize": h.maxUploadSize,
			})
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeUploadError,
			`No file uploaded. Send the resume in the "resume" form field`, nil)
		return
	}

	file, err := fh.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeUploadError, "Failed to read uploaded file", nil)
		return
	}
	defer file.Close()

	detail, err := h.uploadService.Upload(c.Request.Context(), &service.UploadInput{
		UserID:         userID,
		Filename:       fh.Filename,
		DeclaredType:   fh.Header.Get("Content-Type"),
		Size:           fh.Size,
		Body:           file,
		JobDescription: c.PostForm(jobDescriptionField),
	})
	if err != nil {
		if errors.Is(err, service.ErrFileTooLarge) {
			response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, "", map[string]interface{}{
				"maxSize": h.maxUploadSize,
			})
			return
		}
		writeServiceError(c, err)
		return
	}

	response.Created(c, detail)
}

func bodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// ListAnalyses 我的分析列表
// GET /api/resume/analyses
func (h *ResumeHandler) ListAnalyses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	items, total, err := h.analysisService.List(userID, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// GetAnalysis 分析详情
// GET /api/resume/analysis/:id
func (h *ResumeHandler) GetAnalysis(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	analysisID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.analysisService.GetByID(userID, analysisID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, detail)
}

// DeleteAnalysis 删除分析及其文件
// DELETE /api/resume/analysis/:id
func (h *ResumeHandler) DeleteAnalysis(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	analysisID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.analysisService.Delete(c.Request.Context(), userID, analysisID); err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Analysis deleted", nil)
}

// FileURL 原始文件的临时下载地址
// GET /api/resume/analysis/:id/file-url
func (h *ResumeHandler) FileURL(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	analysisID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.analysisService.FileURL(c.Request.Context(), userID, analysisID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, resp)
}

// CreateShare 生成分享链接
// POST /api/resume/analysis/:id/share
func (h *ResumeHandler) CreateShare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	analysisID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CreateShareRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, err.Error())
			return
		}
	}

	link, err := h.shareService.Create(userID, analysisID, time.Duration(req.ExpiresInHours)*time.Hour)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Created(c, link)
}

// RevokeShare 撤销分享
// DELETE /api/resume/analysis/:id/share
func (h *ResumeHandler) RevokeShare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	analysisID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.shareService.Revoke(c.Request.Context(), userID, analysisID); err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Share link revoked", nil)
}

// MatchJD 简历与岗位描述匹配，结果不落库
// POST /api/resume/match-jd
func (h *ResumeHandler) MatchJD(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.MatchJDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	result, err := h.analysisService.MatchJD(userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// AISuggestions 提交 AI 改写建议任务
// POST /api/resume/analysis/:id/ai-suggestions
func (h *ResumeHandler) AISuggestions(c *gin.Context) {
	h.createAIJob(c, model.AIJobSuggestions)
}

// CoverLetter 提交求职信生成任务
// POST /api/resume/analysis/:id/cover-letter
func (h *ResumeHandler) CoverLetter(c *gin.Context) {
	h.createAIJob(c, model.AIJobCoverLetter)
}

func (h *ResumeHandler) createAIJob(c *gin.Context, kind string) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	analysisID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AIJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, err.Error())
			return
		}
	}

	job, err := h.aiService.CreateJob(c.Request.Context(), userID, analysisID, kind, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, response.Response{Success: true, Data: job})
}

// GetAIJob 查询 AI 任务状态
// GET /api/resume/ai-jobs/:id
func (h *ResumeHandler) GetAIJob(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.aiService.GetJob(userID, jobID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, job)
}

// Usage 今日用量
// GET /api/resume/usage
func (h *ResumeHandler) Usage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	info, err := h.usageService.GetUsage(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, info)
}

// Features 当前用户可用的功能
// GET /api/resume/features
func (h *ResumeHandler) Features(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	features, err := h.userService.GetFeatures(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, features)
}
