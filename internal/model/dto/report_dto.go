package dto

// ReportResponse 报告生成结果
type ReportResponse struct {
	ReportKey   string `json:"reportKey"`
	URL         string `json:"url"`
	ExpiresAt   string `json:"expiresAt"`
	Regenerated bool   `json:"regenerated"`
}

// CreateShareRequest 创建分享链接，expiresInHours 为 0 时使用默认有效期
type CreateShareRequest struct {
	ExpiresInHours int `json:"expiresInHours,omitempty" binding:"omitempty,min=1,max=720"`
}

// ShareLinkResponse 分享链接
type ShareLinkResponse struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// SharedAnalysis 公开只读视图，不包含文件 key 和联系方式
type SharedAnalysis struct {
	Scores          ScoreBreakdown `json:"scores"`
	Sections        []string       `json:"sections"`
	Skills          []string       `json:"skills"`
	MatchPercentage *int           `json:"matchPercentage,omitempty"`
	MatchedKeywords []string       `json:"matchedKeywords,omitempty"`
	MissingKeywords []string       `json:"missingKeywords,omitempty"`
	CreatedAt       string         `json:"createdAt"`
}
