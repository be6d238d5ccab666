package ai

import (
	"context"
	"errors"
)

var ErrEmptyResume = errors.New("resume text is empty")

// Suggestion 一条改写建议
type Suggestion struct {
	Section  string `json:"section,omitempty"`
	Original string `json:"original"`
	Improved string `json:"improved"`
	Reason   string `json:"reason,omitempty"`
}

// Rewriter AI 改写能力，实现可以是外部服务或本地规则
type Rewriter interface {
	Suggest(ctx context.Context, resumeText, jobDescription string) ([]Suggestion, error)
	CoverLetter(ctx context.Context, resumeText, jobDescription, companyName string) (string, error)
}
