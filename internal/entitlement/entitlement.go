package entitlement

import (
	"fmt"

	"github.com/qs3c/ats_resume_server/internal/model"
)

// 受控功能
const (
	FeatureJDMatch           = "jd_match"
	FeatureAISuggestions     = "ai_suggestions"
	FeatureCoverLetter       = "cover_letter"
	FeaturePDFReport         = "pdf_report"
	FeatureUnlimitedAnalyses = "unlimited_analyses"
)

// Features 全部受控功能，顺序用于展示
var Features = []string{
	FeatureJDMatch,
	FeatureAISuggestions,
	FeatureCoverLetter,
	FeaturePDFReport,
	FeatureUnlimitedAnalyses,
}

// 拒绝原因码
const (
	CodeFeatureLocked        = "PREMIUM_FEATURE_LOCKED"
	CodePremiumRequired      = "PREMIUM_REQUIRED"
	CodeSubscriptionInactive = "SUBSCRIPTION_INACTIVE"
)

// Any 通配
const Any = "*"

// Rule 一条授权规则，按顺序匹配，首条命中生效
type Rule struct {
	Tier    string
	Status  string
	Feature string
	Allow   bool
}

// Table 授权表：(tier, subscriptionStatus, feature) -> allow/deny
var Table = []Rule{
	{Tier: model.TierAdmin, Status: Any, Feature: Any, Allow: true},
	{Tier: model.TierPremium, Status: model.SubscriptionActive, Feature: Any, Allow: true},
	{Tier: Any, Status: Any, Feature: Any, Allow: false},
}

// Decision 授权判定结果
type Decision struct {
	Allow   bool
	Feature string
	Tier    string
	Status  string
}

// Evaluate 唯一的授权判定函数
func Evaluate(tier, status, feature string) Decision {
	d := Decision{Feature: feature, Tier: tier, Status: status}
	for _, r := range Table {
		if match(r.Tier, tier) && match(r.Status, status) && match(r.Feature, feature) {
			d.Allow = r.Allow
			return d
		}
	}
	return d
}

func match(pattern, value string) bool {
	return pattern == Any || pattern == value
}

// DenyError 授权失败，携带用于升级提示的上下文
type DenyError struct {
	Code    string
	Feature string
	Tier    string
	Status  string
}

func (e *DenyError) Error() string {
	return fmt.Sprintf("%s: feature %q not available for tier %q (subscription %q)", e.Code, e.Feature, e.Tier, e.Status)
}

// Check 功能级检查：任何拒绝都报告为 PREMIUM_FEATURE_LOCKED
func Check(user *model.User, feature string) error {
	tier, status := identity(user)
	d := Evaluate(tier, status, feature)
	if d.Allow {
		return nil
	}
	return &DenyError{Code: CodeFeatureLocked, Feature: feature, Tier: tier, Status: status}
}

// CheckPremium 会员级检查：区分未订阅与订阅失效
func CheckPremium(user *model.User, feature string) error {
	tier, status := identity(user)
	d := Evaluate(tier, status, feature)
	if d.Allow {
		return nil
	}

	code := CodePremiumRequired
	if tier == model.TierPremium {
		code = CodeSubscriptionInactive
	}
	return &DenyError{Code: code, Feature: feature, Tier: tier, Status: status}
}

// FeatureMap 返回每个功能是否可用
func FeatureMap(user *model.User) map[string]bool {
	tier, status := identity(user)
	out := make(map[string]bool, len(Features))
	for _, f := range Features {
		out[f] = Evaluate(tier, status, f).Allow
	}
	return out
}

func identity(user *model.User) (string, string) {
	if user == nil {
		return model.TierAnonymous, ""
	}
	return user.Tier, user.SubscriptionStatus
}
