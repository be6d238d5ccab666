package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/storage"
	"github.com/qs3c/ats_resume_server/internal/report"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

const reportContentType = "application/pdf"

type ReportService struct {
	analysisRepo *repository.AnalysisRepository
	store        storage.ObjectStore
	cfg          *config.Config
	now          func() time.Time
}

func NewReportService(analysisRepo *repository.AnalysisRepository, store storage.ObjectStore, cfg *config.Config) *ReportService {
	return &ReportService{
		analysisRepo: analysisRepo,
		store:        store,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *ReportService) urlTTL() time.Duration {
	if s.cfg.Report.URLTTL > 0 {
		return s.cfg.Report.URLTTL
	}
	return time.Hour
}

// Generate 内容未变化时只重新签名，否则重新渲染并替换报告文件
func (s *ReportService) Generate(ctx context.Context, userID, analysisID int64) (*dto.ReportResponse, error) {
	analysis, err := loadOwnedAnalysis(s.analysisRepo, userID, analysisID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	input := reportInput(analysis)
	digest := report.Digest(input)

	key := analysis.ReportKey
	regenerated := false
	if key == "" || analysis.ReportDigest != digest {
		pdf, err := report.Render(input)
		if err != nil {
			return nil, fmt.Errorf("failed to render report: %w", err)
		}

		key = fmt.Sprintf("reports/%d/%d-%d.pdf", userID, analysisID, now.UnixMilli())
		if err := s.store.Put(ctx, key, pdf, reportContentType, storage.UploadMeta(now)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		regenerated = true

		if old := analysis.ReportKey; old != "" && old != key {
			if err := s.store.Delete(ctx, old); err != nil {
				log.Printf("Failed to delete stale report %s: %v", old, err)
			}
		}
	}

	ttl := s.urlTTL()
	url, err := s.store.SignedURL(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(ttl)

	if regenerated {
		err = s.analysisRepo.UpdateReport(analysisID, key, digest, expiresAt)
	} else {
		err = s.analysisRepo.UpdateReportExpiry(analysisID, expiresAt)
	}
	if err != nil {
		return nil, err
	}

	return &dto.ReportResponse{
		ReportKey:   key,
		URL:         url,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		Regenerated: regenerated,
	}, nil
}

func reportInput(a *model.Analysis) *report.Input {
	parsed := ParsedOf(a)
	sections := make([]string, 0, len(parsed.Sections))
	for _, sec := range parsed.Sections {
		sections = append(sections, sec.Name)
	}
	return &report.Input{
		AnalysisID: a.ID,
		Filename:   a.OriginalFilename,
		CreatedAt:  a.CreatedAt,
		Scores: ats.Breakdown{
			Total:       a.TotalScore,
			Structure:   a.StructureScore,
			Keywords:    a.KeywordScore,
			Readability: a.ReadabilityScore,
			Formatting:  a.FormattingScore,
		},
		Sections:    sections,
		Match:       MatchOf(a),
		Suggestions: SuggestionsOf(a),
		CoverLetter: a.CoverLetter,
	}
}
