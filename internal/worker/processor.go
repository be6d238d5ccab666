package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/pkg/ai"
	"github.com/qs3c/ats_resume_server/internal/pkg/pubsub"
	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/service"
)

const (
	defaultMaxAttempts = 3
	defaultAITimeout   = 60 * time.Second
)

// Processor 处理 AI 改写任务
type Processor struct {
	jobRepo      *repository.JobRepository
	analysisRepo *repository.AnalysisRepository
	rewriter     ai.Rewriter
	publisher    *pubsub.Publisher
	queue        *queue.Queue
	maxAttempts  int
	timeout      time.Duration
	now          func() time.Time
}

// NewProcessor queue 为 nil 时失败不重试
func NewProcessor(
	jobRepo *repository.JobRepository,
	analysisRepo *repository.AnalysisRepository,
	rewriter ai.Rewriter,
	publisher *pubsub.Publisher,
	q *queue.Queue,
) *Processor {
	return &Processor{
		jobRepo:      jobRepo,
		analysisRepo: analysisRepo,
		rewriter:     rewriter,
		publisher:    publisher,
		queue:        q,
		maxAttempts:  defaultMaxAttempts,
		timeout:      defaultAITimeout,
		now:          time.Now,
	}
}

// WithRetry 设置最大尝试次数和单次调用超时
func (p *Processor) WithRetry(maxAttempts int, timeout time.Duration) *Processor {
	if maxAttempts > 0 {
		p.maxAttempts = maxAttempts
	}
	if timeout > 0 {
		p.timeout = timeout
	}
	return p
}

// Process 处理一条任务消息。结果只写一次；已结束的任务直接跳过。
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Job %d: not found, dropping message", msg.JobID)
			return nil
		}
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Status == model.JobCompleted || job.Status == model.JobFailed {
		return nil
	}

	started := p.now()
	job.Status = model.JobProcessing
	job.StartedAt = &started
	job.ErrorMessage = ""
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	p.publish(ctx, job, model.JobProcessing, pubsub.StepReading, "")

	analysis, err := p.analysisRepo.GetByID(job.AnalysisID)
	if err != nil {
		return p.fail(ctx, job, pubsub.StepReading, fmt.Errorf("failed to load analysis: %w", err))
	}

	if hasResult(analysis, job.Kind) {
		return p.complete(ctx, job)
	}

	var resumeText string
	if parsed := service.ParsedOf(analysis); parsed != nil {
		resumeText = strings.TrimSpace(parsed.Text)
	}
	if resumeText == "" {
		return p.fail(ctx, job, pubsub.StepReading, ai.ErrEmptyResume)
	}

	p.publish(ctx, job, model.JobProcessing, pubsub.StepGenerating, "")

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch job.Kind {
	case model.AIJobSuggestions:
		suggestions, err := p.rewriter.Suggest(callCtx, resumeText, job.JobDesc)
		if err != nil {
			return p.retryOrFail(ctx, job, msg, err)
		}
		data, err := json.Marshal(suggestions)
		if err != nil {
			return p.fail(ctx, job, pubsub.StepSaving, err)
		}
		p.publish(ctx, job, model.JobProcessing, pubsub.StepSaving, "")
		err = p.analysisRepo.SetAISuggestions(analysis.ID, datatypes.JSON(data))
		if err != nil && !errors.Is(err, repository.ErrAlreadySet) {
			return p.fail(ctx, job, pubsub.StepSaving, err)
		}
	case model.AIJobCoverLetter:
		letter, err := p.rewriter.CoverLetter(callCtx, resumeText, job.JobDesc, job.CompanyName)
		if err != nil {
			return p.retryOrFail(ctx, job, msg, err)
		}
		p.publish(ctx, job, model.JobProcessing, pubsub.StepSaving, "")
		err = p.analysisRepo.SetCoverLetter(analysis.ID, letter)
		if err != nil && !errors.Is(err, repository.ErrAlreadySet) {
			return p.fail(ctx, job, pubsub.StepSaving, err)
		}
	default:
		return p.fail(ctx, job, pubsub.StepReading, fmt.Errorf("unknown job kind %q", job.Kind))
	}

	return p.complete(ctx, job)
}

func hasResult(a *model.Analysis, kind string) bool {
	switch kind {
	case model.AIJobSuggestions:
		return service.SuggestionsOf(a) != nil
	case model.AIJobCoverLetter:
		return a.CoverLetter != ""
	}
	return false
}

// AI 服务失败时重新入队，次数用尽才标记失败
func (p *Processor) retryOrFail(ctx context.Context, job *model.AIJob, msg *queue.JobMessage, cause error) error {
	if p.queue != nil && ctx.Err() == nil {
		retried, err := p.queue.Retry(ctx, msg, p.maxAttempts)
		if err != nil {
			log.Printf("Job %d: failed to requeue: %v", job.ID, err)
		}
		if retried {
			job.Status = model.JobQueued
			job.ErrorMessage = cause.Error()
			if err := p.jobRepo.Update(job); err != nil {
				log.Printf("Job %d: failed to update job: %v", job.ID, err)
			}
			p.publish(ctx, job, model.JobQueued, pubsub.StepQueued, "")
			log.Printf("Job %d: attempt %d failed, requeued: %v", job.ID, msg.Attempt+1, cause)
			return cause
		}
	}
	return p.fail(ctx, job, pubsub.StepGenerating, cause)
}

func (p *Processor) fail(ctx context.Context, job *model.AIJob, step string, cause error) error {
	completed := p.now()
	job.Status = model.JobFailed
	job.ErrorMessage = cause.Error()
	job.CompletedAt = &completed
	if err := p.jobRepo.Update(job); err != nil {
		log.Printf("Job %d: failed to mark as failed: %v", job.ID, err)
	}
	p.publish(ctx, job, model.JobFailed, step, cause.Error())
	return cause
}

func (p *Processor) complete(ctx context.Context, job *model.AIJob) error {
	completed := p.now()
	job.Status = model.JobCompleted
	job.ErrorMessage = ""
	job.CompletedAt = &completed
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	p.publish(ctx, job, model.JobCompleted, pubsub.StepDone, "")

	elapsed := time.Duration(0)
	if job.StartedAt != nil {
		elapsed = completed.Sub(*job.StartedAt)
	}
	log.Printf("Job %d: %s completed in %s", job.ID, job.Kind, elapsed.Round(time.Millisecond))
	return nil
}

// 进度推送失败不影响任务
func (p *Processor) publish(ctx context.Context, job *model.AIJob, status, step, errMsg string) {
	if p.publisher == nil {
		return
	}
	// 任务被取消时仍然要把最终状态推出去
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	err := p.publisher.PublishProgress(pubCtx, &pubsub.ProgressMessage{
		UserID:     job.UserID,
		AnalysisID: job.AnalysisID,
		JobID:      job.ID,
		Kind:       job.Kind,
		Status:     status,
		Step:       step,
		Error:      errMsg,
	})
	if err != nil {
		log.Printf("Job %d: failed to publish progress: %v", job.ID, err)
	}
}
