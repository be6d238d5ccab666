package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户，默认为 free/active 且今日未使用
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	resetAt := time.Now().Add(24 * time.Hour)
	user := &model.User{
		Email:              fmt.Sprintf("test_%d_%d@example.com", time.Now().UnixNano(), nextSeq()),
		Name:               "Test User",
		PasswordHash:       &passwordHash,
		Tier:               model.TierFree,
		SubscriptionStatus: model.SubscriptionActive,
		DailyUsage:         0,
		UsageResetAt:       &resetAt,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = &hash
	}
}

// WithoutPassword 模拟 OAuth 注册的账号
func WithoutPassword() func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = nil
	}
}

// WithTier 设置等级和订阅状态
func WithTier(tier, status string) func(*model.User) {
	return func(u *model.User) {
		u.Tier = tier
		u.SubscriptionStatus = status
	}
}

// WithUsage 设置今日用量
func WithUsage(used int) func(*model.User) {
	return func(u *model.User) {
		u.DailyUsage = used
	}
}

// WithResetAt 设置用量重置时间
func WithResetAt(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.UsageResetAt = &at
	}
}

// WithSubscriptionExpiresAt 设置订阅到期时间
func WithSubscriptionExpiresAt(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.SubscriptionExpiresAt = &at
	}
}

// TestAnalysis 创建测试分析
func TestAnalysis(t *testing.T, db *gorm.DB, userID *int64, opts ...func(*model.Analysis)) *model.Analysis {
	t.Helper()

	analysis := &model.Analysis{
		UserID:           userID,
		FileKey:          fmt.Sprintf("users/%d/%d-0011223344556677.pdf", derefID(userID), time.Now().UnixMilli()),
		OriginalFilename: "resume.pdf",
		MimeType:         "application/pdf",
		FileSize:         1024,
		TotalScore:       70,
		StructureScore:   20,
		KeywordScore:     20,
		ReadabilityScore: 15,
		FormattingScore:  15,
		ParsedContent:    datatypes.JSON(`{"text":"Experienced Go engineer with Python and AWS","sections":[],"bullets":[],"skills":["go","python","aws"]}`),
	}

	for _, opt := range opts {
		opt(analysis)
	}

	if err := db.Create(analysis).Error; err != nil {
		t.Fatalf("Failed to create test analysis: %v", err)
	}

	return analysis
}

// WithParsedText 设置解析文本
func WithParsedText(text string) func(*model.Analysis) {
	return func(a *model.Analysis) {
		a.ParsedContent = datatypes.JSON(fmt.Sprintf(`{"text":%q,"sections":[],"bullets":[],"skills":[]}`, text))
	}
}

// WithReport 设置报告字段
func WithReport(key, digest string, expiresAt time.Time) func(*model.Analysis) {
	return func(a *model.Analysis) {
		a.ReportKey = key
		a.ReportDigest = digest
		a.ReportURLExpires = &expiresAt
	}
}

// TestPayment 创建测试支付记录
func TestPayment(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Payment)) *model.Payment {
	t.Helper()

	n := nextSeq()
	payment := &model.Payment{
		UserID:          userID,
		Provider:        model.ProviderRazorpay,
		ProviderOrderID: fmt.Sprintf("order_%d", n),
		Receipt:         fmt.Sprintf("rcpt_%d_%d", time.Now().UnixNano(), n),
		Amount:          49900,
		Currency:        "INR",
		PlanID:          "premium_monthly",
		Status:          model.PaymentPending,
	}

	for _, opt := range opts {
		opt(payment)
	}

	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}

	return payment
}

// WithPaymentStatus 设置支付状态
func WithPaymentStatus(status string) func(*model.Payment) {
	return func(p *model.Payment) {
		p.Status = status
	}
}

// WithProvider 设置支付渠道与订单号
func WithProvider(provider, orderID string) func(*model.Payment) {
	return func(p *model.Payment) {
		p.Provider = provider
		p.ProviderOrderID = orderID
	}
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// Int64Ptr 返回指针
func Int64Ptr(v int64) *int64 {
	return &v
}
