package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

func TestAuditRepository_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAuditRepository(db)
	admin := testutil.TestUser(t, db, testutil.WithTier(model.TierAdmin, model.SubscriptionActive))
	target := testutil.TestUser(t, db)

	require.NoError(t, repo.Create(&model.AuditLog{ActorID: admin.ID, Action: "user.tier_changed", TargetUserID: &target.ID}))
	require.NoError(t, repo.Create(&model.AuditLog{ActorID: admin.ID, Action: "payment.refunded"}))
	require.NoError(t, repo.Create(&model.AuditLog{ActorID: target.ID, Action: "payment.refunded"}))

	logs, total, err := repo.List(1, 10, "", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 3)

	_, total, err = repo.List(1, 10, "payment.refunded", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	logs, total, err = repo.List(1, 10, "payment.refunded", admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, admin.ID, logs[0].ActorID)
}
