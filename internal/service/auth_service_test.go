package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/email"
	"github.com/qs3c/ats_resume_server/internal/pkg/jwt"
	"github.com/qs3c/ats_resume_server/internal/pkg/oauth"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

const testJWTSecret = "test-secret-key-for-testing"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{PublicBaseURL: "https://app.example.com"},
		JWT: config.JWTConfig{
			Secret:      testJWTSecret,
			ExpireHours: 24,
		},
		OAuth: config.OAuthConfig{
			Github: config.GithubOAuthConfig{
				ClientID:     "test-client-id",
				ClientSecret: "test-client-secret",
				RedirectURI:  "http://localhost:8080/callback",
			},
		},
	}
}

type authFixture struct {
	svc      *AuthService
	db       *gorm.DB
	userRepo *repository.UserRepository
	states   *oauth.StateStore
	mails    chan string
}

func setupAuthService(t *testing.T) *authFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	rdb, _ := testutil.SetupTestRedis(t)
	userRepo := repository.NewUserRepository(db)
	states := oauth.NewStateStore(rdb)

	mails := make(chan string, 4)
	mailer := email.NewService(&config.EmailConfig{SMTPHost: "smtp.test", SMTPPort: 25, From: "noreply@example.com"}).
		WithSender(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			mails <- to[0]
			return nil
		})

	svc := NewAuthService(userRepo, testConfig(), states, jwt.NewBlacklist(rdb), mailer)
	return &authFixture{svc: svc, db: db, userRepo: userRepo, states: states, mails: mails}
}

func TestAuthService_Register_Success(t *testing.T) {
	f := setupAuthService(t)

	resp, err := f.svc.Register(&dto.RegisterRequest{
		Email:    "NewUser@Example.com ",
		Password: "password123",
		Name:     "New User",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "newuser@example.com", resp.User.Email)
	assert.Equal(t, model.TierFree, resp.User.Tier)
	assert.Equal(t, model.SubscriptionActive, resp.User.SubscriptionStatus)

	claims, err := jwt.ParseToken(resp.Token, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	user, err := f.userRepo.GetByID(resp.User.ID)
	require.NoError(t, err)
	require.NotNil(t, user.UsageResetAt)
	assert.True(t, user.UsageResetAt.After(time.Now()))
	assert.Equal(t, 0, user.DailyUsage)

	select {
	case to := <-f.mails:
		assert.Equal(t, "newuser@example.com", to)
	case <-time.After(2 * time.Second):
		t.Fatal("welcome email was not sent")
	}
}

func TestAuthService_Register_DefaultName(t *testing.T) {
	f := setupAuthService(t)

	resp, err := f.svc.Register(&dto.RegisterRequest{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "jane", resp.User.Name)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := setupAuthService(t)
	req := &dto.RegisterRequest{Email: "duplicate@example.com", Password: "password123"}

	_, err := f.svc.Register(req)
	require.NoError(t, err)

	_, err = f.svc.Register(req)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Login(t *testing.T) {
	f := setupAuthService(t)
	_, err := f.svc.Register(&dto.RegisterRequest{Email: "login@example.com", Password: "password123"})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		resp, err := f.svc.Login(&dto.LoginRequest{Email: "login@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(&dto.LoginRequest{Email: "login@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("oauth account has no password", func(t *testing.T) {
		testutil.TestUser(t, f.db, testutil.WithEmail("oauth@example.com"), testutil.WithoutPassword())
		_, err := f.svc.Login(&dto.LoginRequest{Email: "oauth@example.com", Password: "anything"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_Logout(t *testing.T) {
	f := setupAuthService(t)
	resp, err := f.svc.Register(&dto.RegisterRequest{Email: "out@example.com", Password: "password123"})
	require.NoError(t, err)

	claims, err := jwt.ParseToken(resp.Token, testJWTSecret)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(context.Background(), claims))

	revoked, err := f.svc.blacklist.IsRevoked(context.Background(), claims)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_GetUserByID(t *testing.T) {
	f := setupAuthService(t)
	user := testutil.TestUser(t, f.db)

	got, err := f.svc.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = f.svc.GetUserByID(99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func newFakeGithub(t *testing.T, user oauth.GithubUser) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login/oauth/access_token":
			w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
		case "/user":
			json.NewEncoder(w).Encode(user)
		case "/user/emails":
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func withFakeGithub(f *authFixture, server *httptest.Server) {
	f.svc.WithGithubOAuth(oauth.NewGithubOAuth("id", "secret", "http://localhost/callback").WithEndpoints(oauth2.Endpoint{
		AuthURL:  server.URL + "/login/oauth/authorize",
		TokenURL: server.URL + "/login/oauth/access_token",
	}, server.URL))
}

func TestAuthService_GithubFlow_NewUser(t *testing.T) {
	f := setupAuthService(t)
	withFakeGithub(f, newFakeGithub(t, oauth.GithubUser{ID: 42, Login: "octo", Email: "Octo@Example.com"}))
	ctx := context.Background()

	authURL, err := f.svc.GetGithubAuthURL(ctx, "/dashboard")
	require.NoError(t, err)
	assert.Contains(t, authURL, "state=")

	state, err := f.states.GenerateState(ctx, "/dashboard")
	require.NoError(t, err)

	resp, redirect, err := f.svc.GithubCallback(ctx, "code", state)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", redirect)
	assert.Equal(t, "octo@example.com", resp.User.Email)
	assert.Equal(t, "octo", resp.User.Name)

	// state 只能使用一次
	_, _, err = f.svc.GithubCallback(ctx, "code", state)
	assert.ErrorIs(t, err, oauth.ErrInvalidState)
}

func TestAuthService_GithubFlow_LinksExistingEmail(t *testing.T) {
	f := setupAuthService(t)
	existing := testutil.TestUser(t, f.db, testutil.WithEmail("linked@example.com"))
	withFakeGithub(f, newFakeGithub(t, oauth.GithubUser{ID: 77, Login: "linked", Email: "linked@example.com"}))
	ctx := context.Background()

	state, err := f.states.GenerateState(ctx, "")
	require.NoError(t, err)

	resp, _, err := f.svc.GithubCallback(ctx, "code", state)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, resp.User.ID)

	user, err := f.userRepo.GetByGithubID("77")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
}

func TestAuthService_GithubDisabled(t *testing.T) {
	f := setupAuthService(t)
	f.svc.WithGithubOAuth(oauth.NewGithubOAuth("", "", ""))

	_, err := f.svc.GetGithubAuthURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrOAuthDisabled)
}
