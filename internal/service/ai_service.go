package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/pubsub"
	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

var (
	ErrJobNotFound       = errors.New("ai job not found")
	ErrAIResultExists    = errors.New("this content has already been generated for the analysis")
	ErrUnsupportedAIKind = errors.New("unsupported ai job kind")
)

type AIService struct {
	analysisRepo *repository.AnalysisRepository
	jobRepo      *repository.JobRepository
	queue        *queue.Queue
	publisher    *pubsub.Publisher
}

func NewAIService(
	analysisRepo *repository.AnalysisRepository,
	jobRepo *repository.JobRepository,
	q *queue.Queue,
	publisher *pubsub.Publisher,
) *AIService {
	return &AIService{
		analysisRepo: analysisRepo,
		jobRepo:      jobRepo,
		queue:        q,
		publisher:    publisher,
	}
}

// CreateJob 创建 AI 任务并入队；同类未完成任务存在时直接返回该任务
func (s *AIService) CreateJob(ctx context.Context, userID, analysisID int64, kind string, req *dto.AIJobRequest) (*dto.AIJobResponse, error) {
	if kind != model.AIJobSuggestions && kind != model.AIJobCoverLetter {
		return nil, ErrUnsupportedAIKind
	}

	analysis, err := loadOwnedAnalysis(s.analysisRepo, userID, analysisID)
	if err != nil {
		return nil, err
	}

	// 结果只写一次
	if kind == model.AIJobSuggestions && SuggestionsOf(analysis) != nil {
		return nil, ErrAIResultExists
	}
	if kind == model.AIJobCoverLetter && analysis.CoverLetter != "" {
		return nil, ErrAIResultExists
	}

	active, err := s.jobRepo.GetActive(analysisID, kind)
	if err == nil {
		return &dto.AIJobResponse{JobID: active.ID, Status: active.Status}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	job := &model.AIJob{
		AnalysisID: analysisID,
		UserID:     userID,
		Kind:       kind,
		Status:     model.JobQueued,
	}
	if req != nil {
		job.JobDesc = strings.TrimSpace(req.JobDescription)
		job.CompanyName = strings.TrimSpace(req.CompanyName)
	}
	if job.JobDesc == "" {
		job.JobDesc = analysis.JobDescription
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}

	msg := &queue.JobMessage{JobID: job.ID, AnalysisID: analysisID, UserID: userID, Kind: kind}
	if err := s.queue.Push(ctx, msg); err != nil {
		now := time.Now()
		job.Status = model.JobFailed
		job.ErrorMessage = "failed to enqueue job"
		job.CompletedAt = &now
		if uerr := s.jobRepo.Update(job); uerr != nil {
			log.Printf("Failed to mark job %d as failed: %v", job.ID, uerr)
		}
		return nil, fmt.Errorf("failed to enqueue ai job: %w", err)
	}

	if s.publisher != nil {
		progress := &pubsub.ProgressMessage{
			UserID:     userID,
			AnalysisID: analysisID,
			JobID:      job.ID,
			Kind:       kind,
			Status:     model.JobQueued,
			Step:       pubsub.StepQueued,
			Progress:   pubsub.StepProgress[pubsub.StepQueued],
			Message:    pubsub.StepMessages[pubsub.StepQueued],
		}
		if err := s.publisher.PublishProgress(ctx, progress); err != nil {
			log.Printf("Failed to publish progress for job %d: %v", job.ID, err)
		}
	}

	return &dto.AIJobResponse{JobID: job.ID, Status: job.Status}, nil
}

// GetJob 查询任务状态，仅限本人
func (s *AIService) GetJob(userID, jobID int64) (*dto.AIJobDetail, error) {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrJobNotFound
	}

	detail := &dto.AIJobDetail{
		ID:           job.ID,
		AnalysisID:   job.AnalysisID,
		Kind:         job.Kind,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		detail.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return detail, nil
}
