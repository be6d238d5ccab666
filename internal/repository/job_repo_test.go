package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

func TestJobRepository_CreateAndActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	analysis := testutil.TestAnalysis(t, db, &user.ID)

	job := &model.AIJob{AnalysisID: analysis.ID, UserID: user.ID, Kind: model.AIJobSuggestions, Status: model.JobQueued}
	require.NoError(t, repo.Create(job))
	assert.NotZero(t, job.ID)

	active, err := repo.GetActive(analysis.ID, model.AIJobSuggestions)
	require.NoError(t, err)
	assert.Equal(t, job.ID, active.ID)

	_, err = repo.GetActive(analysis.ID, model.AIJobCoverLetter)
	assert.Error(t, err)

	now := time.Now()
	job.Status = model.JobCompleted
	job.CompletedAt = &now
	require.NoError(t, repo.Update(job))

	_, err = repo.GetActive(analysis.ID, model.AIJobSuggestions)
	assert.Error(t, err)

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, found.Status)
}

func TestJobRepository_FailStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	analysis := testutil.TestAnalysis(t, db, &user.ID)

	stale := &model.AIJob{AnalysisID: analysis.ID, UserID: user.ID, Kind: model.AIJobSuggestions, Status: model.JobProcessing}
	require.NoError(t, repo.Create(stale))
	require.NoError(t, db.Model(stale).Update("created_at", time.Now().Add(-2*time.Hour)).Error)

	fresh := &model.AIJob{AnalysisID: analysis.ID, UserID: user.ID, Kind: model.AIJobCoverLetter, Status: model.JobQueued}
	require.NoError(t, repo.Create(fresh))

	cutoff := time.Now().Add(-time.Hour)
	count, err := repo.CountStale(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n, err := repo.FailStale(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, _ := repo.GetByID(stale.ID)
	assert.Equal(t, model.JobFailed, found.Status)
	assert.Equal(t, "job timed out", found.ErrorMessage)

	found, _ = repo.GetByID(fresh.ID)
	assert.Equal(t, model.JobQueued, found.Status)

	require.NoError(t, repo.DeleteByAnalysisID(analysis.ID))
	_, err = repo.GetByID(fresh.ID)
	assert.Error(t, err)
}
