package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/pkg/ai"
)

// Input 渲染报告所需的数据
type Input struct {
	AnalysisID  int64
	Filename    string
	CreatedAt   time.Time
	Scores      ats.Breakdown
	Sections    []string
	Match       *ats.MatchResult
	Suggestions []ai.Suggestion
	CoverLetter string
}

// Digest 报告内容摘要，内容不变时无需重新渲染
func Digest(in *Input) string {
	payload := struct {
		ID          int64            `json:"id"`
		Scores      ats.Breakdown    `json:"scores"`
		Sections    []string         `json:"sections"`
		Match       *ats.MatchResult `json:"match"`
		Suggestions []ai.Suggestion  `json:"suggestions"`
		CoverLetter string           `json:"cover_letter"`
	}{in.AnalysisID, in.Scores, in.Sections, in.Match, in.Suggestions, in.CoverLetter}

	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

type scoreRow struct {
	label string
	value int
	max   int
}

// Render 生成 PDF 报告
func Render(in *Input) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("ATS Resume Report", true)
	pdf.SetCreator("ats_resume_server", true)
	pdf.SetCreationDate(in.CreatedAt)
	pdf.SetModificationDate(in.CreatedAt)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(37, 99, 235)
	pdf.CellFormat(0, 10, "ATS Resume Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s  |  %s", in.Filename, in.CreatedAt.Format("2006-01-02 15:04"))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(17, 24, 39)
	pdf.SetFont("Helvetica", "B", 36)
	pdf.CellFormat(40, 16, fmt.Sprintf("%d", in.Scores.Total), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 16, fmt.Sprintf("/ %d overall ATS score", ats.MaxTotalScore), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	rows := []scoreRow{
		{"Structure", in.Scores.Structure, ats.MaxStructureScore},
		{"Keywords", in.Scores.Keywords, ats.MaxKeywordScore},
		{"Readability", in.Scores.Readability, ats.MaxReadabilityScore},
		{"Formatting", in.Scores.Formatting, ats.MaxFormattingScore},
	}
	for _, r := range rows {
		drawBar(pdf, r)
	}
	pdf.Ln(4)

	if len(in.Sections) > 0 {
		heading(pdf, "Detected sections")
		body(pdf, tr, joinList(in.Sections))
	}

	if in.Match != nil {
		heading(pdf, fmt.Sprintf("Job description match: %d%%", in.Match.MatchPercentage))
		body(pdf, tr, "Matched: "+keywordList(in.Match.MatchedKeywords))
		body(pdf, tr, "Missing: "+keywordList(in.Match.MissingKeywords))
		for _, s := range in.Match.Suggestions {
			body(pdf, tr, fmt.Sprintf("[%s] %s", s.Priority, s.Message))
		}
	}

	if len(in.Suggestions) > 0 {
		heading(pdf, "Rewrite suggestions")
		for _, s := range in.Suggestions {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, tr("Before: "+s.Original), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr("After: "+s.Improved), "", "L", false)
			pdf.Ln(2)
		}
	}

	if in.CoverLetter != "" {
		pdf.AddPage()
		heading(pdf, "Cover letter")
		body(pdf, tr, in.CoverLetter)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBar(pdf *fpdf.Fpdf, r scoreRow) {
	const barWidth = 100.0
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(35, 8, r.label, "", 0, "L", false, 0, "")

	x, y := pdf.GetXY()
	pdf.SetFillColor(229, 231, 235)
	pdf.Rect(x, y+2, barWidth, 4, "F")
	if r.max > 0 && r.value > 0 {
		pdf.SetFillColor(37, 99, 235)
		pdf.Rect(x, y+2, barWidth*float64(r.value)/float64(r.max), 4, "F")
	}
	pdf.SetX(x + barWidth + 5)
	pdf.CellFormat(0, 8, fmt.Sprintf("%d / %d", r.value, r.max), "", 1, "L", false, 0, "")
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, text, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func body(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(text), "", "L", false)
}

func keywordList(list []ats.KeywordWeight) string {
	if len(list) == 0 {
		return "none"
	}
	words := make([]string, len(list))
	for i, kw := range list {
		words[i] = kw.Keyword
	}
	return joinList(words)
}

func joinList(items []string) string {
	var b bytes.Buffer
	for i, s := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s)
	}
	return b.String()
}
