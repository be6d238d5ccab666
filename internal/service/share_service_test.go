package service

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/pkg/cache"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

type shareFixture struct {
	svc *ShareService
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func setupShareService(t *testing.T) *shareFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rdb, mr := testutil.SetupTestRedis(t)
	svc := NewShareService(
		repository.NewShareRepository(db),
		repository.NewAnalysisRepository(db),
		cache.New(rdb, "share:"),
		serviceTestConfig(),
	)
	return &shareFixture{svc: svc, db: db, mr: mr}
}

func TestShareService_Create(t *testing.T) {
	f := setupShareService(t)
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID)

	link, err := f.svc.Create(user.ID, a.ID, 0)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), link.Token)
	assert.Equal(t, "https://app.example.com/share/"+link.Token, link.URL)

	expiresAt, err := time.Parse(time.RFC3339, link.ExpiresAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, 5*time.Second)

	again, err := f.svc.Create(user.ID, a.ID, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, link.Token, again.Token)

	other := testutil.TestUser(t, f.db)
	_, err = f.svc.Create(other.ID, a.ID, 0)
	assert.ErrorIs(t, err, ErrAnalysisPermission)
}

func TestShareService_Resolve_HidesPrivateFields(t *testing.T) {
	f := setupShareService(t)
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID, func(a *model.Analysis) {
		a.ParsedContent = datatypes.JSON(`{"text":"jane@example.com python","contact":{"email":"jane@example.com"},"sections":[{"name":"skills","heading":"SKILLS","content":"python"}],"bullets":[],"skills":["python"]}`)
		a.MatchResult = datatypes.JSON(`{"match_percentage":50,"matched_keywords":[{"keyword":"python","frequency":1,"resume_frequency":1,"weight":2}],"missing_keywords":[{"keyword":"aws","frequency":1,"resume_frequency":0,"weight":2}],"suggestions":[]}`)
	})

	link, err := f.svc.Create(user.ID, a.ID, time.Hour)
	require.NoError(t, err)

	view, err := f.svc.Resolve(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, 70, view.Scores.Total)
	assert.Equal(t, []string{"skills"}, view.Sections)
	assert.Equal(t, []string{"python"}, view.Skills)
	require.NotNil(t, view.MatchPercentage)
	assert.Equal(t, 50, *view.MatchPercentage)
	assert.Equal(t, []string{"python"}, view.MatchedKeywords)
	assert.Equal(t, []string{"aws"}, view.MissingKeywords)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), a.FileKey)
	assert.NotContains(t, string(raw), "jane@example.com")
}

func TestShareService_Resolve_Cached(t *testing.T) {
	f := setupShareService(t)
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID)

	link, err := f.svc.Create(user.ID, a.ID, time.Hour)
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), link.Token)
	require.NoError(t, err)
	assert.True(t, f.mr.Exists("share:"+link.Token))
	assert.LessOrEqual(t, f.mr.TTL("share:"+link.Token), shareCacheTTL)

	// 缓存命中时不再查库
	require.NoError(t, f.db.Exec("DELETE FROM share_links").Error)
	view, err := f.svc.Resolve(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, 70, view.Scores.Total)
}

func TestShareService_Resolve_ShortLinkCapsCacheTTL(t *testing.T) {
	f := setupShareService(t)
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID)

	link, err := f.svc.Create(user.ID, a.ID, 2*time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), link.Token)
	require.NoError(t, err)
	assert.LessOrEqual(t, f.mr.TTL("share:"+link.Token), 2*time.Minute)
}

func TestShareService_Resolve_Expired(t *testing.T) {
	f := setupShareService(t)
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID)

	link, err := f.svc.Create(user.ID, a.ID, time.Hour)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.Resolve(context.Background(), link.Token)
	assert.ErrorIs(t, err, ErrShareNotFound)
}

func TestShareService_Revoke(t *testing.T) {
	f := setupShareService(t)
	ctx := context.Background()
	user := testutil.TestUser(t, f.db)
	a := testutil.TestAnalysis(t, f.db, &user.ID)

	first, err := f.svc.Create(user.ID, a.ID, time.Hour)
	require.NoError(t, err)
	second, err := f.svc.Create(user.ID, a.ID, time.Hour)
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, first.Token)
	require.NoError(t, err)

	other := testutil.TestUser(t, f.db)
	assert.ErrorIs(t, f.svc.Revoke(ctx, other.ID, a.ID), ErrAnalysisPermission)

	require.NoError(t, f.svc.Revoke(ctx, user.ID, a.ID))
	assert.False(t, f.mr.Exists("share:"+first.Token))

	for _, token := range []string{first.Token, second.Token} {
		_, err := f.svc.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrShareNotFound)
	}
}

func TestShareService_Resolve_UnknownToken(t *testing.T) {
	f := setupShareService(t)

	_, err := f.svc.Resolve(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrShareNotFound)

	_, err = f.svc.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrShareNotFound)
}
