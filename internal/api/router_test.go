package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/api/handler"
	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/pkg/cache"
	"github.com/qs3c/ats_resume_server/internal/pkg/jwt"
	"github.com/qs3c/ats_resume_server/internal/pkg/oauth"
	"github.com/qs3c/ats_resume_server/internal/pkg/pubsub"
	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/pkg/ws"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/service"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "router-test-secret"

const testResume = `Jane Doe
jane@example.com | +1 555 123 4567

SUMMARY
Backend engineer with 6 years of Python and AWS experience.

EXPERIENCE
- Built data pipelines in Python processing 2M events per day
- Reduced AWS costs by 30% through right-sizing

EDUCATION
B.Sc. Computer Science

SKILLS
Python, AWS, Docker, PostgreSQL`

type textParser struct{}

func (textParser) Parse(ctx context.Context, data []byte, mimeType string) (*ats.ParsedResume, error) {
	return ats.ParseText(testResume), nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	store  *testutil.MemoryStore
	queue  *queue.Queue
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test", PublicBaseURL: "https://app.example.com"},
		JWT:    config.JWTConfig{Secret: testSecret, ExpireHours: 24},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"https://app.example.com"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
		Upload: config.UploadConfig{
			MaxSize:          5 * 1024 * 1024,
			AllowedMimeTypes: []string{ats.MimePDF, ats.MimeDOCX},
		},
		Storage: config.StorageConfig{SignedURLTTL: time.Hour, AnonymousPrefix: "anonymous"},
		Scoring: config.ScoringConfig{JDMaxChars: 10000},
		Report:  config.ReportConfig{URLTTL: time.Hour, ShareTTL: 7 * 24 * time.Hour},
		Payments: config.PaymentsConfig{
			Currency: "INR",
			Plans: []config.PlanConfig{
				{ID: "premium_monthly", Name: "Premium Monthly", Amount: 49900, DurationDays: 30},
			},
		},
	}
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig()
	db := testutil.SetupTestDB(t)
	rdb, _ := testutil.SetupTestRedis(t)
	store := testutil.NewMemoryStore()
	jobQueue := queue.NewQueue(rdb, "ai_jobs_test")
	blacklist := jwt.NewBlacklist(rdb)
	hub := ws.NewHub()

	userRepo := repository.NewUserRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	jobRepo := repository.NewJobRepository(db)
	shareRepo := repository.NewShareRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	usageService := service.NewUsageService(userRepo, cfg)
	authService := service.NewAuthService(userRepo, cfg, oauth.NewStateStore(rdb), blacklist, nil)
	userService := service.NewUserService(userRepo, usageService)
	shareService := service.NewShareService(shareRepo, analysisRepo, cache.New(rdb, "share:"), cfg)
	uploadService := service.NewUploadService(userRepo, analysisRepo, store, textParser{}, cfg)
	analysisService := service.NewAnalysisService(analysisRepo, jobRepo, shareService, store, cfg)
	aiService := service.NewAIService(analysisRepo, jobRepo, jobQueue, pubsub.NewPublisher(rdb))
	reportService := service.NewReportService(analysisRepo, store, cfg)
	paymentService := service.NewPaymentService(userRepo, paymentRepo, &testutil.FakeRazorpay{}, testutil.NewFakeStripe(), nil, cfg)
	adminService := service.NewAdminService(userRepo, auditRepo, paymentService)

	router := NewRouter(Handlers{
		Auth:      handler.NewAuthHandler(authService, userService, hub, cfg.Server.PublicBaseURL),
		Resume:    handler.NewResumeHandler(uploadService, analysisService, shareService, aiService, usageService, userService, cfg.Upload.MaxSize),
		Report:    handler.NewReportHandler(reportService),
		Share:     handler.NewShareHandler(shareService),
		Payment:   handler.NewPaymentHandler(paymentService),
		Admin:     handler.NewAdminHandler(adminService),
		WebSocket: handler.NewWebSocketHandler(hub, cfg.JWT.Secret, blacklist, cfg.CORS.AllowedOrigins),
		Health:    handler.NewHealthHandler(db, rdb),
	}, userRepo, usageService, blacklist, cfg)

	return &testServer{engine: router.Setup(), db: db, store: store, queue: jobQueue}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, token, field, filename, contentType string, data []byte, jd string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if jd != "" {
		require.NoError(t, mw.WriteField("jobDescription", jd))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/resume/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := jwt.GenerateToken(user.ID, user.Email, user.Tier, testSecret, 24)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   map[string]interface{} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, w)
	require.False(t, env.Success)
	code, _ := env.Error["code"].(string)
	return code
}

func pdf(size int) []byte {
	head := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	if size < len(head) {
		size = len(head)
	}
	return append(head, bytes.Repeat([]byte{' '}, size-len(head))...)
}

func premiumUser(t *testing.T, db *gorm.DB) *model.User {
	return testutil.TestUser(t, db, testutil.WithTier(model.TierPremium, model.SubscriptionActive))
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	w := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestAuthFlow(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email": "Jane@Example.com", "password": "correct-horse", "name": "Jane",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email": "jane@example.com", "password": "another-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeEmailExists, errCode(t, w))

	w = s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "jane@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.CodeInvalidCredentials, errCode(t, w))

	w = s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "jane@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decode(t, w).Data["token"].(string)
	require.NotEmpty(t, token)

	w = s.do(t, "GET", "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w).Data
	assert.Equal(t, "jane@example.com", me["email"])
	assert.Equal(t, model.TierFree, me["tier"])

	w = s.do(t, "PUT", "/api/auth/me", token, map[string]string{"name": "Jane D."})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jane D.", decode(t, w).Data["name"])

	w = s.do(t, "POST", "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "GET", "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.CodeInvalidToken, errCode(t, w))
}

func TestAuthRequired(t *testing.T) {
	s := setupServer(t)
	for _, path := range []string{"/api/resume/analyses", "/api/resume/usage", "/api/payments/history", "/api/admin/users"} {
		w := s.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, response.CodeAuthenticationRequired, errCode(t, w), path)
	}
}

func TestUpload(t *testing.T) {
	s := setupServer(t)

	t.Run("anonymous pdf", func(t *testing.T) {
		w := s.upload(t, "", "resume", "resume.pdf", "application/pdf", pdf(4096), "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := decode(t, w).Data
		assert.True(t, strings.HasPrefix(data["fileKey"].(string), "anonymous/"))
		scores := data["scores"].(map[string]interface{})
		assert.Greater(t, scores["total"].(float64), float64(0))
	})

	t.Run("missing field", func(t *testing.T) {
		w := s.upload(t, "", "", "", "", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeUploadError, errCode(t, w))
	})

	t.Run("wrong field name", func(t *testing.T) {
		w := s.upload(t, "", "file", "resume.pdf", "application/pdf", pdf(512), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeUploadError, errCode(t, w))
	})

	t.Run("text file", func(t *testing.T) {
		w := s.upload(t, "", "resume", "resume.txt", "text/plain", []byte("plain resume"), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeInvalidFile, errCode(t, w))
	})

	t.Run("too large", func(t *testing.T) {
		w := s.upload(t, "", "resume", "resume.pdf", "application/pdf", pdf(5*1024*1024+1), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeFileTooLarge, errCode(t, w))
	})
}

func TestUpload_FreeUserDailyLimit(t *testing.T) {
	s := setupServer(t)
	user := testutil.TestUser(t, s.db)
	token := tokenFor(t, user)

	// 失败的上传不计入用量
	w := s.upload(t, token, "resume", "resume.txt", "text/plain", []byte("nope"), "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	for i := 0; i < 3; i++ {
		w := s.upload(t, token, "resume", "resume.pdf", "application/pdf", pdf(1024), "")
		require.Equal(t, http.StatusCreated, w.Code, "upload %d: %s", i+1, w.Body.String())
	}

	w = s.upload(t, token, "resume", "resume.pdf", "application/pdf", pdf(1024), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	env := decode(t, w)
	assert.Equal(t, response.CodeUsageLimitExceeded, env.Error["code"])
	assert.Equal(t, float64(3), env.Error["limit"])

	w = s.do(t, "GET", "/api/resume/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w).Data["currentUsage"])
	assert.Equal(t, float64(0), decode(t, w).Data["remaining"])
}

func TestUpload_JobDescriptionLockedForFree(t *testing.T) {
	s := setupServer(t)
	user := testutil.TestUser(t, s.db)

	w := s.upload(t, tokenFor(t, user), "resume", "resume.pdf", "application/pdf", pdf(1024), "Python and AWS engineer")
	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w).Data
	assert.Equal(t, true, data["matchLocked"])
	assert.Nil(t, data["matchResult"])
}

func TestAnalysisLifecycle(t *testing.T) {
	s := setupServer(t)
	owner := testutil.TestUser(t, s.db)
	other := testutil.TestUser(t, s.db)
	a := testutil.TestAnalysis(t, s.db, &owner.ID)
	path := fmt.Sprintf("/api/resume/analysis/%d", a.ID)

	w := s.do(t, "GET", path, tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(a.ID), decode(t, w).Data["id"])

	w = s.do(t, "GET", path, tokenFor(t, other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodeForbidden, errCode(t, w))

	w = s.do(t, "GET", "/api/resume/analysis/abc", tokenFor(t, owner), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeValidationError, errCode(t, w))

	w = s.do(t, "GET", path+"/file-url", tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w).Data["url"])

	w = s.do(t, "GET", "/api/resume/analyses", tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w).Data["total"])

	w = s.do(t, "DELETE", path, tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "GET", path, tokenFor(t, owner), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeNotFound, errCode(t, w))
}

func TestShareFlow(t *testing.T) {
	s := setupServer(t)
	owner := testutil.TestUser(t, s.db)
	a := testutil.TestAnalysis(t, s.db, &owner.ID)
	sharePath := fmt.Sprintf("/api/resume/analysis/%d/share", a.ID)

	w := s.do(t, "POST", sharePath, tokenFor(t, owner), map[string]int{"expiresInHours": 24})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode(t, w).Data["token"].(string)
	assert.Len(t, token, 32)

	w = s.do(t, "GET", "/api/share/"+token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), a.FileKey)

	w = s.do(t, "DELETE", sharePath, tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "GET", "/api/share/"+token, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatchJD_Gate(t *testing.T) {
	s := setupServer(t)
	body := map[string]string{"jobDescription": "Python AWS Kubernetes", "resumeText": testResume}

	free := testutil.TestUser(t, s.db)
	w := s.do(t, "POST", "/api/resume/match-jd", tokenFor(t, free), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	env := decode(t, w)
	assert.Equal(t, response.CodePremiumFeatureLocked, env.Error["code"])
	assert.Equal(t, "jd_match", env.Error["feature"])
	assert.Equal(t, "https://app.example.com/pricing", env.Error["upgradeUrl"])

	premium := premiumUser(t, s.db)
	w = s.do(t, "POST", "/api/resume/match-jd", tokenFor(t, premium), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Greater(t, decode(t, w).Data["match_percentage"].(float64), float64(0))

	w = s.do(t, "POST", "/api/resume/match-jd", tokenFor(t, premium), map[string]string{
		"jobDescription": strings.Repeat("a", 10001), "resumeText": testResume,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeValidationError, errCode(t, w))
}

func TestAIJobs(t *testing.T) {
	s := setupServer(t)

	cancelled := testutil.TestUser(t, s.db, testutil.WithTier(model.TierPremium, model.SubscriptionCancelled))
	a1 := testutil.TestAnalysis(t, s.db, &cancelled.ID)
	w := s.do(t, "POST", fmt.Sprintf("/api/resume/analysis/%d/ai-suggestions", a1.ID), tokenFor(t, cancelled), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodeSubscriptionInactive, errCode(t, w))

	free := testutil.TestUser(t, s.db)
	a2 := testutil.TestAnalysis(t, s.db, &free.ID)
	w = s.do(t, "POST", fmt.Sprintf("/api/resume/analysis/%d/cover-letter", a2.ID), tokenFor(t, free), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodePremiumRequired, errCode(t, w))

	premium := premiumUser(t, s.db)
	a3 := testutil.TestAnalysis(t, s.db, &premium.ID)
	w = s.do(t, "POST", fmt.Sprintf("/api/resume/analysis/%d/cover-letter", a3.ID), tokenFor(t, premium),
		map[string]string{"companyName": "Acme"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	jobID := decode(t, w).Data["jobId"].(float64)

	length, err := s.queue.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	w = s.do(t, "GET", fmt.Sprintf("/api/resume/ai-jobs/%d", int64(jobID)), tokenFor(t, premium), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.JobQueued, decode(t, w).Data["status"])

	w = s.do(t, "GET", fmt.Sprintf("/api/resume/ai-jobs/%d", int64(jobID)), tokenFor(t, free), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportGenerate(t *testing.T) {
	s := setupServer(t)

	free := testutil.TestUser(t, s.db)
	a := testutil.TestAnalysis(t, s.db, &free.ID)
	w := s.do(t, "POST", fmt.Sprintf("/api/reports/generate/%d", a.ID), tokenFor(t, free), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodePremiumFeatureLocked, errCode(t, w))

	premium := premiumUser(t, s.db)
	b := testutil.TestAnalysis(t, s.db, &premium.ID)
	w = s.do(t, "POST", fmt.Sprintf("/api/reports/generate/%d", b.ID), tokenFor(t, premium), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w).Data
	assert.Equal(t, true, data["regenerated"])
	assert.NotEmpty(t, data["url"])
}

func TestFeatures(t *testing.T) {
	s := setupServer(t)
	premium := premiumUser(t, s.db)

	w := s.do(t, "GET", "/api/resume/features", tokenFor(t, premium), nil)
	require.Equal(t, http.StatusOK, w.Code)
	features := decode(t, w).Data["features"].(map[string]interface{})
	assert.Equal(t, true, features["jd_match"])
	assert.Equal(t, true, features["pdf_report"])
}

func TestPayments(t *testing.T) {
	s := setupServer(t)
	user := testutil.TestUser(t, s.db)
	token := tokenFor(t, user)

	w := s.do(t, "POST", "/api/payments/create-intent", token, map[string]string{"provider": "razorpay", "planId": "premium_monthly"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := decode(t, w).Data["orderId"].(string)

	w = s.do(t, "POST", "/api/payments/create-intent", token, map[string]string{"provider": "paypal", "planId": "premium_monthly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeValidationError, errCode(t, w))

	w = s.do(t, "POST", "/api/payments/verify-razorpay", token, map[string]string{
		"razorpay_order_id": orderID, "razorpay_payment_id": "pay_1", "razorpay_signature": "forged",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeInvalidSignature, errCode(t, w))

	w = s.do(t, "POST", "/api/payments/verify-razorpay", token, map[string]string{
		"razorpay_order_id": orderID, "razorpay_payment_id": "pay_1", "razorpay_signature": testutil.ValidSignature,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.TierPremium, decode(t, w).Data["tier"])

	w = s.do(t, "GET", "/api/payments/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w).Data["total"])
}

func TestPaymentWebhooks_InvalidSignature(t *testing.T) {
	s := setupServer(t)

	req := httptest.NewRequest("POST", "/api/payments/webhook/razorpay",
		bytes.NewReader(testutil.RazorpayEvent("payment.captured", map[string]interface{}{})))
	req.Header.Set("X-Razorpay-Signature", "forged")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeInvalidSignature, errCode(t, w))

	req = httptest.NewRequest("POST", "/api/payments/webhook/stripe",
		bytes.NewReader(testutil.StripeEvent("payment_intent.succeeded", map[string]interface{}{"id": "pi_x"})))
	req.Header.Set("Stripe-Signature", "t=1,v1=forged")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeInvalidSignature, errCode(t, w))
}

func TestAdmin(t *testing.T) {
	s := setupServer(t)
	admin := testutil.TestUser(t, s.db, testutil.WithTier(model.TierAdmin, model.SubscriptionActive))
	target := testutil.TestUser(t, s.db)

	w := s.do(t, "GET", "/api/admin/users", tokenFor(t, target), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodeForbidden, errCode(t, w))

	w = s.do(t, "PUT", fmt.Sprintf("/api/admin/users/%d/tier", target.ID), tokenFor(t, admin), map[string]interface{}{
		"tier": "premium", "durationDays": 30, "reason": "support ticket",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.TierPremium, decode(t, w).Data["tier"])

	w = s.do(t, "PUT", fmt.Sprintf("/api/admin/users/%d/tier", target.ID), tokenFor(t, admin), map[string]string{"tier": "gold"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "GET", "/api/admin/audit-logs", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w).Data["total"])

	w = s.do(t, "POST", "/api/admin/payments/999/refund", tokenFor(t, admin), map[string]string{"reason": "duplicate"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := setupServer(t)
	req := httptest.NewRequest("OPTIONS", "/api/resume/upload", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
