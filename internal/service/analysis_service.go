package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/ai"
	"github.com/qs3c/ats_resume_server/internal/pkg/storage"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

var (
	ErrAnalysisNotFound   = errors.New("analysis not found")
	ErrAnalysisPermission = errors.New("you do not have access to this analysis")
	ErrResumeTextRequired = errors.New("either analysisId or resumeText is required")
)

type AnalysisService struct {
	analysisRepo *repository.AnalysisRepository
	jobRepo      *repository.JobRepository
	shares       *ShareService
	store        storage.ObjectStore
	matcher      *ats.Matcher
	cfg          *config.Config
}

func NewAnalysisService(
	analysisRepo *repository.AnalysisRepository,
	jobRepo *repository.JobRepository,
	shares *ShareService,
	store storage.ObjectStore,
	cfg *config.Config,
) *AnalysisService {
	return &AnalysisService{
		analysisRepo: analysisRepo,
		jobRepo:      jobRepo,
		shares:       shares,
		store:        store,
		matcher:      ats.NewMatcher(cfg.Scoring.JDMaxChars),
		cfg:          cfg,
	}
}

// GetByID 获取分析详情，仅限本人
func (s *AnalysisService) GetByID(userID, analysisID int64) (*dto.AnalysisDetail, error) {
	analysis, err := loadOwnedAnalysis(s.analysisRepo, userID, analysisID)
	if err != nil {
		return nil, err
	}
	return BuildAnalysisDetail(analysis), nil
}

// List 获取用户的分析列表
func (s *AnalysisService) List(userID int64, page, pageSize int) ([]*dto.AnalysisListItem, int64, error) {
	analyses, total, err := s.analysisRepo.ListByUserID(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.AnalysisListItem, len(analyses))
	for i, a := range analyses {
		items[i] = buildAnalysisListItem(a)
	}
	return items, total, nil
}

// Delete 删除分析，同时撤销分享链接；存储对象尽力删除
func (s *AnalysisService) Delete(ctx context.Context, userID, analysisID int64) error {
	analysis, err := loadOwnedAnalysis(s.analysisRepo, userID, analysisID)
	if err != nil {
		return err
	}

	if err := s.analysisRepo.Delete(analysisID); err != nil {
		return err
	}

	if err := s.jobRepo.DeleteByAnalysisID(analysisID); err != nil {
		log.Printf("Failed to delete ai jobs of analysis %d: %v", analysisID, err)
	}
	if s.shares != nil {
		if err := s.shares.RevokeAll(ctx, analysisID); err != nil {
			log.Printf("Failed to revoke share links of analysis %d: %v", analysisID, err)
		}
	}

	for _, key := range []string{analysis.FileKey, analysis.ReportKey} {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			log.Printf("Failed to delete object %s: %v", key, err)
		}
	}
	return nil
}

// FileURL 为源文件生成短期签名链接
func (s *AnalysisService) FileURL(ctx context.Context, userID, analysisID int64) (*dto.FileURLResponse, error) {
	analysis, err := loadOwnedAnalysis(s.analysisRepo, userID, analysisID)
	if err != nil {
		return nil, err
	}

	ttl := s.cfg.Storage.SignedURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	url, err := s.store.SignedURL(ctx, analysis.FileKey, ttl)
	if err != nil {
		return nil, err
	}
	return &dto.FileURLResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(ttl).Format(time.RFC3339),
	}, nil
}

// MatchJD 将简历与职位描述匹配；结果直接返回，不修改已保存的分析
func (s *AnalysisService) MatchJD(userID int64, req *dto.MatchJDRequest) (*ats.MatchResult, error) {
	resumeText := req.ResumeText
	if req.AnalysisID != 0 {
		analysis, err := loadOwnedAnalysis(s.analysisRepo, userID, req.AnalysisID)
		if err != nil {
			return nil, err
		}
		resumeText = ParsedOf(analysis).Text
	}
	if req.AnalysisID == 0 && strings.TrimSpace(resumeText) == "" {
		return nil, ErrResumeTextRequired
	}

	return s.matcher.Match(resumeText, req.JobDescription)
}

func loadOwnedAnalysis(repo *repository.AnalysisRepository, userID, analysisID int64) (*model.Analysis, error) {
	analysis, err := repo.GetByID(analysisID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	if !analysis.OwnedBy(userID) {
		return nil, ErrAnalysisPermission
	}
	return analysis, nil
}

// ParsedOf 反序列化解析结果，损坏时返回空结构
func ParsedOf(a *model.Analysis) *ats.ParsedResume {
	var parsed ats.ParsedResume
	if len(a.ParsedContent) > 0 {
		if err := json.Unmarshal(a.ParsedContent, &parsed); err != nil {
			log.Printf("Corrupt parsed content on analysis %d: %v", a.ID, err)
		}
	}
	return &parsed
}

// MatchOf 反序列化匹配结果
func MatchOf(a *model.Analysis) *ats.MatchResult {
	if len(a.MatchResult) == 0 || string(a.MatchResult) == "null" {
		return nil
	}
	var result ats.MatchResult
	if err := json.Unmarshal(a.MatchResult, &result); err != nil {
		log.Printf("Corrupt match result on analysis %d: %v", a.ID, err)
		return nil
	}
	return &result
}

// SuggestionsOf 反序列化 AI 建议
func SuggestionsOf(a *model.Analysis) []ai.Suggestion {
	if len(a.AISuggestions) == 0 || string(a.AISuggestions) == "null" {
		return nil
	}
	var list []ai.Suggestion
	if err := json.Unmarshal(a.AISuggestions, &list); err != nil {
		log.Printf("Corrupt ai suggestions on analysis %d: %v", a.ID, err)
		return nil
	}
	return list
}

func scoresOf(a *model.Analysis) dto.ScoreBreakdown {
	return dto.ScoreBreakdown{
		Total:       a.TotalScore,
		Structure:   a.StructureScore,
		Keywords:    a.KeywordScore,
		Readability: a.ReadabilityScore,
		Formatting:  a.FormattingScore,
	}
}

// BuildAnalysisDetail 组装分析详情
func BuildAnalysisDetail(a *model.Analysis) *dto.AnalysisDetail {
	detail := &dto.AnalysisDetail{
		ID:               a.ID,
		OriginalFilename: a.OriginalFilename,
		MimeType:         a.MimeType,
		FileSize:         a.FileSize,
		FileKey:          a.FileKey,
		Scores:           scoresOf(a),
		Parsed:           ParsedOf(a),
		ParseError:       a.ParseError,
		JobDescription:   a.JobDescription,
		Match:            MatchOf(a),
		AISuggestions:    SuggestionsOf(a),
		CoverLetter:      a.CoverLetter,
		ReportKey:        a.ReportKey,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
	if a.ReportURLExpires != nil {
		detail.ReportExpiresAt = a.ReportURLExpires.Format(time.RFC3339)
	}
	return detail
}

func buildAnalysisListItem(a *model.Analysis) *dto.AnalysisListItem {
	item := &dto.AnalysisListItem{
		ID:               a.ID,
		OriginalFilename: a.OriginalFilename,
		Scores:           scoresOf(a),
		HasReport:        a.ReportKey != "",
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
	if m := MatchOf(a); m != nil {
		pct := m.MatchPercentage
		item.MatchPercentage = &pct
	}
	return item
}
