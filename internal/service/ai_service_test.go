package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/pubsub"
	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

const testAIQueue = "ai_jobs_test"

type aiFixture struct {
	svc     *AIService
	db      *gorm.DB
	mr      *miniredis.Miniredis
	queue   *queue.Queue
	jobRepo *repository.JobRepository
}

func setupAIService(t *testing.T) *aiFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rdb, mr := testutil.SetupTestRedis(t)
	q := queue.NewQueue(rdb, testAIQueue)
	jobRepo := repository.NewJobRepository(db)
	svc := NewAIService(repository.NewAnalysisRepository(db), jobRepo, q, pubsub.NewPublisher(rdb))
	return &aiFixture{svc: svc, db: db, mr: mr, queue: q, jobRepo: jobRepo}
}

func TestAIService_CreateJob(t *testing.T) {
	f := setupAIService(t)
	ctx := context.Background()
	user := testutil.TestUser(t, f.db, testutil.WithTier(model.TierPremium, model.SubscriptionActive))
	a := testutil.TestAnalysis(t, f.db, &user.ID, func(a *model.Analysis) {
		a.JobDescription = "Senior Go engineer"
	})

	resp, err := f.svc.CreateJob(ctx, user.ID, a.ID, model.AIJobSuggestions, nil)
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, resp.Status)

	job, err := f.jobRepo.GetByID(resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, job.AnalysisID)
	assert.Equal(t, user.ID, job.UserID)
	assert.Equal(t, "Senior Go engineer", job.JobDesc)

	length, err := f.queue.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	msg, err := f.queue.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, resp.JobID, msg.JobID)
	assert.Equal(t, model.AIJobSuggestions, msg.Kind)
	assert.Equal(t, 0, msg.Attempt)
}

func TestAIService_CreateJob_ReusesActiveJob(t *testing.T) {
	f := setupAIService(t)
	ctx := context.Background()
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID)

	first, err := f.svc.CreateJob(ctx, user.ID, a.ID, model.AIJobCoverLetter, &dto.AIJobRequest{
		JobDescription: "  Platform engineer  ",
		CompanyName:    "Acme",
	})
	require.NoError(t, err)

	second, err := f.svc.CreateJob(ctx, user.ID, a.ID, model.AIJobCoverLetter, nil)
	require.NoError(t, err)
	assert.Equal(t, first.JobID, second.JobID)

	length, err := f.queue.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	job, err := f.jobRepo.GetByID(first.JobID)
	require.NoError(t, err)
	assert.Equal(t, "Platform engineer", job.JobDesc)
	assert.Equal(t, "Acme", job.CompanyName)

	// 不同类型互不影响
	other, err := f.svc.CreateJob(ctx, user.ID, a.ID, model.AIJobSuggestions, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, other.JobID)
}

func TestAIService_CreateJob_ResultExists(t *testing.T) {
	f := setupAIService(t)
	ctx := context.Background()
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID, func(a *model.Analysis) {
		a.AISuggestions = datatypes.JSON(`[{"original":"did stuff","improved":"Delivered stuff"}]`)
		a.CoverLetter = "Dear team"
	})

	_, err := f.svc.CreateJob(ctx, user.ID, a.ID, model.AIJobSuggestions, nil)
	assert.ErrorIs(t, err, ErrAIResultExists)

	_, err = f.svc.CreateJob(ctx, user.ID, a.ID, model.AIJobCoverLetter, nil)
	assert.ErrorIs(t, err, ErrAIResultExists)
}

func TestAIService_CreateJob_Errors(t *testing.T) {
	f := setupAIService(t)
	ctx := context.Background()
	owner := testutil.TestUser(t, f.db)
	other := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &owner.ID)

	_, err := f.svc.CreateJob(ctx, other.ID, a.ID, model.AIJobSuggestions, nil)
	assert.ErrorIs(t, err, ErrAnalysisPermission)

	_, err = f.svc.CreateJob(ctx, owner.ID, a.ID, "poem", nil)
	assert.ErrorIs(t, err, ErrUnsupportedAIKind)

	_, err = f.svc.CreateJob(ctx, owner.ID, 99999, model.AIJobSuggestions, nil)
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestAIService_CreateJob_QueueUnavailable(t *testing.T) {
	f := setupAIService(t)
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID)

	f.mr.Close()
	_, err := f.svc.CreateJob(context.Background(), user.ID, a.ID, model.AIJobSuggestions, nil)
	require.Error(t, err)

	var jobs []model.AIJob
	require.NoError(t, f.db.Find(&jobs).Error)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobFailed, jobs[0].Status)
	assert.NotNil(t, jobs[0].CompletedAt)
}

func TestAIService_GetJob(t *testing.T) {
	f := setupAIService(t)
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID)

	resp, err := f.svc.CreateJob(context.Background(), user.ID, a.ID, model.AIJobSuggestions, nil)
	require.NoError(t, err)

	detail, err := f.svc.GetJob(user.ID, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.AIJobSuggestions, detail.Kind)
	assert.Equal(t, model.JobQueued, detail.Status)
	assert.Empty(t, detail.CompletedAt)

	other := testutil.TestUser(t, f.db)
	_, err = f.svc.GetJob(other.ID, resp.JobID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = f.svc.GetJob(user.ID, 99999)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
