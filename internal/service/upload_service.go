package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/entitlement"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/storage"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

var (
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
	ErrInvalidFile  = errors.New("only PDF and DOCX files are accepted")
	ErrStorage      = errors.New("failed to store file")
)

// 扩展名与规范 MIME 的对应关系
var extMimeTypes = map[string]string{
	".pdf":  ats.MimePDF,
	".docx": ats.MimeDOCX,
}

// UploadInput 一次上传请求
type UploadInput struct {
	UserID         int64 // 匿名为 0
	Filename       string
	DeclaredType   string
	Size           int64 // multipart 头中的大小，未知时为 0
	Body           io.Reader
	JobDescription string
}

type UploadService struct {
	userRepo     *repository.UserRepository
	analysisRepo *repository.AnalysisRepository
	store        storage.ObjectStore
	parser       ats.Parser
	scorer       *ats.Scorer
	matcher      *ats.Matcher
	cfg          *config.Config
	now          func() time.Time
}

func NewUploadService(
	userRepo *repository.UserRepository,
	analysisRepo *repository.AnalysisRepository,
	store storage.ObjectStore,
	parser ats.Parser,
	cfg *config.Config,
) *UploadService {
	return &UploadService{
		userRepo:     userRepo,
		analysisRepo: analysisRepo,
		store:        store,
		parser:       parser,
		scorer:       ats.NewScorer(),
		matcher:      ats.NewMatcher(cfg.Scoring.JDMaxChars),
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *UploadService) maxSize() int64 {
	if s.cfg.Upload.MaxSize > 0 {
		return s.cfg.Upload.MaxSize
	}
	return 5 * 1024 * 1024
}

// Upload 校验、存储、解析并评分，返回新建的分析结果。
// 所有校验都在写入存储之前完成；存储之后的失败不回滚已写入的文件。
func (s *UploadService) Upload(ctx context.Context, in *UploadInput) (*dto.AnalysisDetail, error) {
	maxSize := s.maxSize()
	if in.Size > maxSize {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	mimeType, ok := extMimeTypes[ext]
	if !ok || !s.mimeAllowed(mimeType) || !declaredTypeMatches(in.DeclaredType, mimeType) {
		return nil, ErrInvalidFile
	}

	// 多读 1 字节判断是否超限
	data, err := io.ReadAll(io.LimitReader(in.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 || !mimetype.Detect(data).Is(mimeType) {
		return nil, ErrInvalidFile
	}

	jd := strings.TrimSpace(in.JobDescription)
	if jd != "" && len([]rune(jd)) > s.matcher.MaxChars {
		return nil, ats.ErrJobDescriptionTooLong
	}

	var user *model.User
	if in.UserID != 0 {
		user, err = s.userRepo.GetByID(in.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}

	now := s.now()
	scope := s.cfg.Storage.AnonymousPrefix
	if scope == "" {
		scope = "anonymous"
	}
	if user != nil {
		scope = storage.UserScope(user.ID)
	}

	key, err := storage.GenerateKey(scope, ext, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, key, data, mimeType, storage.UploadMeta(now)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	analysis := &model.Analysis{
		FileKey:          key,
		OriginalFilename: filepath.Base(in.Filename),
		MimeType:         mimeType,
		FileSize:         int64(len(data)),
	}
	if user != nil {
		analysis.UserID = &user.ID
	}

	// 解析失败时仍保存部分结果
	parsed, perr := s.parser.Parse(ctx, data, mimeType)
	if perr != nil {
		log.Printf("Failed to parse %s: %v", key, perr)
		analysis.ParseError = perr.Error()
	}
	if parsed == nil {
		parsed = ats.ParseText("")
	}

	scores := s.scorer.Score(parsed)
	analysis.TotalScore = scores.Total
	analysis.StructureScore = scores.Structure
	analysis.KeywordScore = scores.Keywords
	analysis.ReadabilityScore = scores.Readability
	analysis.FormattingScore = scores.Formatting

	if analysis.ParsedContent, err = json.Marshal(parsed); err != nil {
		return nil, err
	}

	matchLocked := false
	if jd != "" {
		if entitlement.Check(user, entitlement.FeatureJDMatch) != nil {
			matchLocked = true
		} else {
			result, err := s.matcher.Match(parsed.Text, jd)
			if err != nil {
				return nil, err
			}
			raw, err := json.Marshal(result)
			if err != nil {
				return nil, err
			}
			analysis.JobDescription = jd
			analysis.MatchResult = datatypes.JSON(raw)
		}
	}

	if err := s.analysisRepo.Create(analysis); err != nil {
		return nil, err
	}

	detail := BuildAnalysisDetail(analysis)
	detail.MatchLocked = matchLocked
	return detail, nil
}

// 浏览器可能不带类型或给出通用类型，此时只依赖扩展名和内容嗅探
func declaredTypeMatches(declared, expected string) bool {
	declared = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	switch declared {
	case "", "application/octet-stream", expected:
		return true
	}
	return false
}

func (s *UploadService) mimeAllowed(mimeType string) bool {
	if len(s.cfg.Upload.AllowedMimeTypes) == 0 {
		return true
	}
	for _, m := range s.cfg.Upload.AllowedMimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}
