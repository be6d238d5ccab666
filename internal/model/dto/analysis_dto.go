package dto

import (
	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/pkg/ai"
)

// ScoreBreakdown 评分明细
type ScoreBreakdown struct {
	Total       int `json:"total"`
	Structure   int `json:"structure"`
	Keywords    int `json:"keywords"`
	Readability int `json:"readability"`
	Formatting  int `json:"formatting"`
}

// AnalysisDetail 分析详情
type AnalysisDetail struct {
	ID               int64             `json:"id"`
	OriginalFilename string            `json:"originalFilename"`
	MimeType         string            `json:"mimeType"`
	FileSize         int64             `json:"fileSize"`
	FileKey          string            `json:"fileKey"`
	Scores           ScoreBreakdown    `json:"scores"`
	Parsed           *ats.ParsedResume `json:"parsedContent,omitempty"`
	ParseError       string            `json:"parseError,omitempty"`
	JobDescription   string            `json:"jobDescription,omitempty"`
	Match            *ats.MatchResult  `json:"matchResult,omitempty"`
	MatchLocked      bool              `json:"matchLocked,omitempty"`
	AISuggestions    []ai.Suggestion   `json:"aiSuggestions,omitempty"`
	CoverLetter      string            `json:"coverLetter,omitempty"`
	ReportKey        string            `json:"reportKey,omitempty"`
	ReportExpiresAt  string            `json:"reportUrlExpiresAt,omitempty"`
	CreatedAt        string            `json:"createdAt"`
}

// AnalysisListItem 分析列表项
type AnalysisListItem struct {
	ID               int64          `json:"id"`
	OriginalFilename string         `json:"originalFilename"`
	Scores           ScoreBreakdown `json:"scores"`
	MatchPercentage  *int           `json:"matchPercentage,omitempty"`
	HasReport        bool           `json:"hasReport"`
	CreatedAt        string         `json:"createdAt"`
}

// MatchJDRequest JD 匹配请求，analysisId 与 resumeText 二选一
type MatchJDRequest struct {
	JobDescription string `json:"jobDescription" binding:"required"`
	AnalysisID     int64  `json:"analysisId,omitempty"`
	ResumeText     string `json:"resumeText,omitempty"`
}

// FileURLResponse 源文件签名链接
type FileURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// AIJobRequest AI 任务请求
type AIJobRequest struct {
	JobDescription string `json:"jobDescription,omitempty" binding:"omitempty,max=10000"`
	CompanyName    string `json:"companyName,omitempty" binding:"omitempty,max=200"`
}

// AIJobResponse 创建 AI 任务响应
type AIJobResponse struct {
	JobID  int64  `json:"jobId"`
	Status string `json:"status"`
}

// AIJobDetail AI 任务状态
type AIJobDetail struct {
	ID           int64  `json:"id"`
	AnalysisID   int64  `json:"analysisId"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt"`
	CompletedAt  string `json:"completedAt,omitempty"`
}

// FeaturesResponse 功能开关
type FeaturesResponse struct {
	Tier               string          `json:"tier"`
	SubscriptionStatus string          `json:"subscriptionStatus"`
	Features           map[string]bool `json:"features"`
}
