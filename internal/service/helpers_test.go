package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/ats"
)

const sampleResume = `Jane Doe
jane@example.com | +1 555 123 4567

SUMMARY
Backend engineer with 6 years of Python and AWS experience.

EXPERIENCE
- Built data pipelines in Python processing 2M events per day
- Reduced AWS costs by 30% through right-sizing
- Led a team of 4 engineers

EDUCATION
B.Sc. Computer Science

SKILLS
Python, AWS, Docker, PostgreSQL`

// stubParser 直接对固定文本做结构化，绕过文件解析
type stubParser struct {
	text string
	err  error
}

func (p *stubParser) Parse(ctx context.Context, data []byte, mimeType string) (*ats.ParsedResume, error) {
	if p.err != nil {
		return ats.ParseText(""), p.err
	}
	return ats.ParseText(p.text), nil
}

var errBrokenFile = errors.New("broken file")

// pdfBytes 构造指定大小、可被识别为 PDF 的内容
func pdfBytes(size int) []byte {
	head := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	if size < len(head) {
		size = len(head)
	}
	return append(head, bytes.Repeat([]byte{' '}, size-len(head))...)
}

func serviceTestConfig() *config.Config {
	cfg := testConfig()
	cfg.Upload = config.UploadConfig{
		MaxSize:          5 * 1024 * 1024,
		AllowedMimeTypes: []string{ats.MimePDF, ats.MimeDOCX},
	}
	cfg.Storage = config.StorageConfig{
		SignedURLTTL:    time.Hour,
		AnonymousPrefix: "anonymous",
	}
	cfg.Scoring = config.ScoringConfig{JDMaxChars: 10000}
	cfg.Report = config.ReportConfig{URLTTL: time.Hour, ShareTTL: 7 * 24 * time.Hour}
	cfg.Payments = config.PaymentsConfig{
		Currency: "INR",
		Plans: []config.PlanConfig{
			{ID: "premium_monthly", Name: "Premium Monthly", Amount: 49900, DurationDays: 30},
			{ID: "premium_yearly", Name: "Premium Yearly", Amount: 499900, Currency: "usd", DurationDays: 365},
		},
	}
	return cfg
}
