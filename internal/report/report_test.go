package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/pkg/ai"
)

func sampleInput() *Input {
	match, _ := ats.MatchJobDescription("Python, AWS", "Python, AWS, Kubernetes")
	return &Input{
		AnalysisID:  1,
		Filename:    "résumé.pdf",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Scores:      ats.Breakdown{Total: 70, Structure: 20, Keywords: 20, Readability: 15, Formatting: 15},
		Sections:    []string{"experience", "skills"},
		Match:       match,
		Suggestions: []ai.Suggestion{{Original: "Worked on X", Improved: "Delivered X"}},
		CoverLetter: "Dear Hiring Manager,\n\nThanks.",
	}
}

func TestRender(t *testing.T) {
	out, err := Render(sampleInput())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}

func TestRender_Minimal(t *testing.T) {
	out, err := Render(&Input{CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestDigest(t *testing.T) {
	a := sampleInput()
	b := sampleInput()
	assert.Equal(t, Digest(a), Digest(b))
	assert.Len(t, Digest(a), 64)

	// 文件名和时间不影响摘要
	b.Filename = "other.pdf"
	b.CreatedAt = time.Now()
	assert.Equal(t, Digest(a), Digest(b))

	b.Scores.Total = 71
	assert.NotEqual(t, Digest(a), Digest(b))

	c := sampleInput()
	c.CoverLetter = "changed"
	assert.NotEqual(t, Digest(a), Digest(c))
}
