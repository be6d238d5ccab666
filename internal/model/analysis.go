package model

import (
	"time"

	"gorm.io/datatypes"
)

// Analysis 一次简历上传对应的评分结果
type Analysis struct {
	ID               int64          `gorm:"primaryKey" json:"id"`
	UserID           *int64         `gorm:"index" json:"user_id,omitempty"` // 匿名上传为空
	FileKey          string         `gorm:"size:255;not null" json:"file_key"`
	OriginalFilename string         `gorm:"size:255" json:"original_filename"`
	MimeType         string         `gorm:"size:100" json:"mime_type"`
	FileSize         int64          `json:"file_size"`
	TotalScore       int            `json:"total_score"`
	StructureScore   int            `json:"structure_score"`
	KeywordScore     int            `json:"keyword_score"`
	ReadabilityScore int            `json:"readability_score"`
	FormattingScore  int            `json:"formatting_score"`
	ParsedContent    datatypes.JSON `json:"parsed_content"`
	ParseError       string         `gorm:"type:text" json:"parse_error,omitempty"`
	JobDescription   string         `gorm:"type:text" json:"job_description,omitempty"`
	MatchResult      datatypes.JSON `json:"match_result,omitempty"`
	AISuggestions    datatypes.JSON `json:"ai_suggestions,omitempty"`
	CoverLetter      string         `gorm:"type:text" json:"cover_letter,omitempty"`
	ReportKey        string         `gorm:"size:255" json:"report_key,omitempty"`
	ReportDigest     string         `gorm:"size:64" json:"-"`
	ReportURLExpires *time.Time     `gorm:"column:report_url_expires_at" json:"report_url_expires_at,omitempty"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (Analysis) TableName() string {
	return "analyses"
}

// OwnedBy 判断分析是否属于指定用户
func (a *Analysis) OwnedBy(userID int64) bool {
	return a.UserID != nil && *a.UserID == userID
}
