package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/pkg/ai"
	"github.com/qs3c/ats_resume_server/internal/pkg/pubsub"
	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/service"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

type fakeRewriter struct {
	suggestions []ai.Suggestion
	letter      string
	err         error
	calls       int32
	lastCompany string
}

func (f *fakeRewriter) Suggest(ctx context.Context, resumeText, jobDescription string) ([]ai.Suggestion, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.suggestions, f.err
}

func (f *fakeRewriter) CoverLetter(ctx context.Context, resumeText, jobDescription, companyName string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.lastCompany = companyName
	return f.letter, f.err
}

type processorFixture struct {
	proc     *Processor
	db       *gorm.DB
	jobRepo  *repository.JobRepository
	queue    *queue.Queue
	rewriter *fakeRewriter
	progress chan *pubsub.ProgressMessage
}

func setupProcessor(t *testing.T) *processorFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rdb, _ := testutil.SetupTestRedis(t)

	progress := make(chan *pubsub.ProgressMessage, 32)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ready := make(chan struct{})
	go func() {
		sub := rdb.Subscribe(ctx, pubsub.ChannelJobProgress)
		defer sub.Close()
		if _, err := sub.Receive(ctx); err != nil {
			close(ready)
			return
		}
		close(ready)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg pubsub.ProgressMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil {
					progress <- &msg
				}
			}
		}
	}()
	<-ready

	jobRepo := repository.NewJobRepository(db)
	q := queue.NewQueue(rdb, "ai_jobs_test")
	rw := &fakeRewriter{
		suggestions: []ai.Suggestion{{Section: "experience", Original: "Did work", Improved: "Delivered work", Reason: "stronger verb"}},
		letter:      "Dear hiring manager",
	}
	proc := NewProcessor(jobRepo, repository.NewAnalysisRepository(db), rw, pubsub.NewPublisher(rdb), q).
		WithRetry(2, time.Second)

	return &processorFixture{proc: proc, db: db, jobRepo: jobRepo, queue: q, rewriter: rw, progress: progress}
}

func (f *processorFixture) createJob(t *testing.T, analysis *model.Analysis, kind string) (*model.AIJob, *queue.JobMessage) {
	t.Helper()
	job := &model.AIJob{
		AnalysisID:  analysis.ID,
		UserID:      *analysis.UserID,
		Kind:        kind,
		Status:      model.JobQueued,
		JobDesc:     "Python and AWS",
		CompanyName: "Acme",
	}
	require.NoError(t, f.jobRepo.Create(job))
	return job, &queue.JobMessage{JobID: job.ID, AnalysisID: analysis.ID, UserID: job.UserID, Kind: kind}
}

func (f *processorFixture) reload(t *testing.T, id int64) (*model.AIJob, *model.Analysis) {
	t.Helper()
	job, err := f.jobRepo.GetByID(id)
	require.NoError(t, err)
	var a model.Analysis
	require.NoError(t, f.db.First(&a, job.AnalysisID).Error)
	return job, &a
}

func (f *processorFixture) steps(timeout time.Duration) []string {
	var steps []string
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-f.progress:
			steps = append(steps, msg.Step)
			if msg.Step == pubsub.StepDone || msg.Status == model.JobFailed {
				return steps
			}
		case <-deadline:
			return steps
		}
	}
}

func TestProcessor_Suggestions(t *testing.T) {
	f := setupProcessor(t)
	user := testutil.TestUser(t, f.db)
	analysis := testutil.TestAnalysis(t, f.db, &user.ID)
	job, msg := f.createJob(t, analysis, model.AIJobSuggestions)

	require.NoError(t, f.proc.Process(context.Background(), msg))

	got, a := f.reload(t, job.ID)
	assert.Equal(t, model.JobCompleted, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	suggestions := service.SuggestionsOf(a)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Delivered work", suggestions[0].Improved)

	assert.Equal(t, []string{pubsub.StepReading, pubsub.StepGenerating, pubsub.StepSaving, pubsub.StepDone}, f.steps(2*time.Second))
}

func TestProcessor_CoverLetter(t *testing.T) {
	f := setupProcessor(t)
	user := testutil.TestUser(t, f.db)
	analysis := testutil.TestAnalysis(t, f.db, &user.ID)
	job, msg := f.createJob(t, analysis, model.AIJobCoverLetter)

	require.NoError(t, f.proc.Process(context.Background(), msg))

	got, a := f.reload(t, job.ID)
	assert.Equal(t, model.JobCompleted, got.Status)
	assert.Equal(t, "Dear hiring manager", a.CoverLetter)
	assert.Equal(t, "Acme", f.rewriter.lastCompany)
}

func TestProcessor_ResultWrittenOnce(t *testing.T) {
	f := setupProcessor(t)
	user := testutil.TestUser(t, f.db)
	analysis := testutil.TestAnalysis(t, f.db, &user.ID, func(a *model.Analysis) {
		a.CoverLetter = "Existing letter"
	})
	job, msg := f.createJob(t, analysis, model.AIJobCoverLetter)

	require.NoError(t, f.proc.Process(context.Background(), msg))

	got, a := f.reload(t, job.ID)
	assert.Equal(t, model.JobCompleted, got.Status)
	assert.Equal(t, "Existing letter", a.CoverLetter)
	assert.Zero(t, atomic.LoadInt32(&f.rewriter.calls))
}

func TestProcessor_FinishedJobSkipped(t *testing.T) {
	f := setupProcessor(t)
	user := testutil.TestUser(t, f.db)
	analysis := testutil.TestAnalysis(t, f.db, &user.ID)
	job, msg := f.createJob(t, analysis, model.AIJobSuggestions)
	job.Status = model.JobFailed
	require.NoError(t, f.jobRepo.Update(job))

	require.NoError(t, f.proc.Process(context.Background(), msg))
	assert.Zero(t, atomic.LoadInt32(&f.rewriter.calls))
}

func TestProcessor_MissingJobDropped(t *testing.T) {
	f := setupProcessor(t)
	assert.NoError(t, f.proc.Process(context.Background(), &queue.JobMessage{JobID: 4242}))
}

func TestProcessor_EmptyResumeFails(t *testing.T) {
	f := setupProcessor(t)
	user := testutil.TestUser(t, f.db)
	analysis := testutil.TestAnalysis(t, f.db, &user.ID, func(a *model.Analysis) {
		a.ParsedContent = datatypes.JSON(`{"text":""}`)
	})
	job, msg := f.createJob(t, analysis, model.AIJobSuggestions)

	err := f.proc.Process(context.Background(), msg)
	assert.ErrorIs(t, err, ai.ErrEmptyResume)

	got, _ := f.reload(t, job.ID)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, ai.ErrEmptyResume.Error(), got.ErrorMessage)
}

func TestProcessor_RetryThenFail(t *testing.T) {
	f := setupProcessor(t)
	f.rewriter.err = errors.New("upstream 503")
	user := testutil.TestUser(t, f.db)
	analysis := testutil.TestAnalysis(t, f.db, &user.ID)
	job, msg := f.createJob(t, analysis, model.AIJobSuggestions)
	ctx := context.Background()

	// 第一次失败：重新入队
	require.Error(t, f.proc.Process(ctx, msg))
	got, _ := f.reload(t, job.ID)
	assert.Equal(t, model.JobQueued, got.Status)
	assert.Equal(t, "upstream 503", got.ErrorMessage)

	retry, err := f.queue.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 1, retry.Attempt)

	// 第二次失败：次数用尽
	require.Error(t, f.proc.Process(ctx, retry))
	got, a := f.reload(t, job.ID)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Nil(t, service.SuggestionsOf(a))

	length, err := f.queue.Length(ctx)
	require.NoError(t, err)
	assert.Zero(t, length)
}
