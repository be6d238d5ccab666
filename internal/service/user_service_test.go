package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/entitlement"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

func setupUserService(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	userRepo := repository.NewUserRepository(db)
	return NewUserService(userRepo, NewUsageService(userRepo, &config.Config{})), db
}

func TestUserService_GetProfile(t *testing.T) {
	svc, db := setupUserService(t)
	user := testutil.TestUser(t, db, testutil.WithUsage(2))

	info, err := svc.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, info.Email)
	require.NotNil(t, info.Usage)
	assert.Equal(t, 2, info.Usage.CurrentUsage)
	assert.Equal(t, 3, info.Usage.Limit)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	svc, _ := setupUserService(t)
	_, err := svc.GetProfile(12345)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, db := setupUserService(t)
	user := testutil.TestUser(t, db)

	name := "  Renamed  "
	info, err := svc.UpdateProfile(user.ID, &dto.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", info.Name)

	var fresh model.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, "Renamed", fresh.Name)

	blank := "   "
	_, err = svc.UpdateProfile(user.ID, &dto.UpdateProfileRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestUserService_GetFeatures(t *testing.T) {
	svc, db := setupUserService(t)

	free := testutil.TestUser(t, db)
	resp, err := svc.GetFeatures(free.ID)
	require.NoError(t, err)
	assert.False(t, resp.Features[entitlement.FeatureJDMatch])

	premium := testutil.TestUser(t, db, testutil.WithTier(model.TierPremium, model.SubscriptionActive))
	resp, err = svc.GetFeatures(premium.ID)
	require.NoError(t, err)
	for _, f := range entitlement.Features {
		assert.True(t, resp.Features[f], f)
	}

	lapsed := testutil.TestUser(t, db, testutil.WithTier(model.TierPremium, model.SubscriptionCancelled))
	resp, err = svc.GetFeatures(lapsed.ID)
	require.NoError(t, err)
	assert.False(t, resp.Features[entitlement.FeatureAISuggestions])
}
