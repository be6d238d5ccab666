package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/cache"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

const shareCacheTTL = 10 * time.Minute

var ErrShareNotFound = errors.New("share link not found or expired")

type ShareService struct {
	shareRepo    *repository.ShareRepository
	analysisRepo *repository.AnalysisRepository
	cache        *cache.Cache
	cfg          *config.Config
	now          func() time.Time
}

func NewShareService(
	shareRepo *repository.ShareRepository,
	analysisRepo *repository.AnalysisRepository,
	c *cache.Cache,
	cfg *config.Config,
) *ShareService {
	return &ShareService{
		shareRepo:    shareRepo,
		analysisRepo: analysisRepo,
		cache:        c,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Create 为分析生成不可猜测的分享 token；ttl 为 0 时使用默认有效期
func (s *ShareService) Create(userID, analysisID int64, ttl time.Duration) (*dto.ShareLinkResponse, error) {
	if _, err := loadOwnedAnalysis(s.analysisRepo, userID, analysisID); err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = s.cfg.Report.ShareTTL
	}

	link := &model.ShareLink{
		Token:      strings.ReplaceAll(uuid.NewString(), "-", ""),
		AnalysisID: analysisID,
		UserID:     userID,
	}
	if ttl > 0 {
		expiresAt := s.now().Add(ttl)
		link.ExpiresAt = &expiresAt
	}
	if err := s.shareRepo.Create(link); err != nil {
		return nil, err
	}

	resp := &dto.ShareLinkResponse{
		Token: link.Token,
		URL:   strings.TrimRight(s.cfg.Server.PublicBaseURL, "/") + "/share/" + link.Token,
	}
	if link.ExpiresAt != nil {
		resp.ExpiresAt = link.ExpiresAt.Format(time.RFC3339)
	}
	return resp, nil
}

// Revoke 撤销本人分析上的全部分享链接
func (s *ShareService) Revoke(ctx context.Context, userID, analysisID int64) error {
	if _, err := loadOwnedAnalysis(s.analysisRepo, userID, analysisID); err != nil {
		return err
	}
	return s.RevokeAll(ctx, analysisID)
}

// RevokeAll 撤销并清除缓存
func (s *ShareService) RevokeAll(ctx context.Context, analysisID int64) error {
	tokens, err := s.shareRepo.ListActiveTokens(analysisID)
	if err != nil {
		return err
	}
	if err := s.shareRepo.RevokeByAnalysisID(analysisID, s.now()); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, tokens...); err != nil {
			log.Printf("Failed to evict share cache: %v", err)
		}
	}
	return nil
}

// Resolve 公开只读视图，优先读缓存
func (s *ShareService) Resolve(ctx context.Context, token string) (*dto.SharedAnalysis, error) {
	if token == "" {
		return nil, ErrShareNotFound
	}

	if s.cache != nil {
		var cached dto.SharedAnalysis
		hit, err := s.cache.GetJSON(ctx, token, &cached)
		if err != nil {
			log.Printf("Share cache read failed: %v", err)
		}
		if hit {
			return &cached, nil
		}
	}

	link, err := s.shareRepo.GetByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	now := s.now()
	if !link.Active(now) {
		return nil, ErrShareNotFound
	}

	analysis, err := s.analysisRepo.GetByID(link.AnalysisID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}

	view := buildSharedAnalysis(analysis)

	if s.cache != nil {
		ttl := shareCacheTTL
		if link.ExpiresAt != nil && link.ExpiresAt.Sub(now) < ttl {
			ttl = link.ExpiresAt.Sub(now)
		}
		if err := s.cache.SetJSON(ctx, token, view, ttl); err != nil {
			log.Printf("Share cache write failed: %v", err)
		}
	}
	return view, nil
}

// 只暴露评分和关键词，不包含文件 key 与联系方式
func buildSharedAnalysis(a *model.Analysis) *dto.SharedAnalysis {
	parsed := ParsedOf(a)
	view := &dto.SharedAnalysis{
		Scores:    scoresOf(a),
		Sections:  make([]string, 0, len(parsed.Sections)),
		Skills:    parsed.Skills,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if view.Skills == nil {
		view.Skills = []string{}
	}
	for _, sec := range parsed.Sections {
		view.Sections = append(view.Sections, sec.Name)
	}
	if m := MatchOf(a); m != nil {
		pct := m.MatchPercentage
		view.MatchPercentage = &pct
		view.MatchedKeywords = keywordsOf(m.MatchedKeywords)
		view.MissingKeywords = keywordsOf(m.MissingKeywords)
	}
	return view
}

func keywordsOf(list []ats.KeywordWeight) []string {
	out := make([]string, len(list))
	for i, kw := range list {
		out[i] = kw.Keyword
	}
	return out
}
