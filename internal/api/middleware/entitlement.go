package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/entitlement"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/pkg/response"
)

// UserLoader 按 ID 读取最新的用户信息
type UserLoader interface {
	GetByID(id int64) (*model.User, error)
}

const userKey = "currentUser"

// RequireFeature 功能级授权，拒绝时返回 PREMIUM_FEATURE_LOCKED
func RequireFeature(users UserLoader, upgradeURL, feature string) gin.HandlerFunc {
	return gate(users, upgradeURL, feature, entitlement.Check)
}

// RequirePremium 会员级授权，区分 PREMIUM_REQUIRED 与 SUBSCRIPTION_INACTIVE
func RequirePremium(users UserLoader, upgradeURL, feature string) gin.HandlerFunc {
	return gate(users, upgradeURL, feature, entitlement.CheckPremium)
}

// RequireAdmin 仅管理员可访问
func RequireAdmin(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadUser(c, users)
		if !ok {
			return
		}
		if !user.IsAdmin() {
			response.Forbidden(c, "Administrator access required")
			return
		}
		c.Next()
	}
}

// GetCurrentUser 返回授权中间件已加载的用户
func GetCurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

// 令牌签发后等级可能已变化，每次都从库中读取
func gate(users UserLoader, upgradeURL, feature string, check func(*model.User, string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadUser(c, users)
		if !ok {
			return
		}

		if err := check(user, feature); err != nil {
			var deny *entitlement.DenyError
			if !errors.As(err, &deny) {
				response.ServerError(c, err)
				return
			}
			response.Error(c, http.StatusForbidden, deny.Code, "", map[string]interface{}{
				"feature":            deny.Feature,
				"tier":               deny.Tier,
				"subscriptionStatus": deny.Status,
				"upgradeUrl":         upgradeLink(upgradeURL),
				"upgradeMessage":     upgradeMessage(deny),
			})
			return
		}

		c.Next()
	}
}

func loadUser(c *gin.Context, users UserLoader) (*model.User, bool) {
	userID, ok := GetUserID(c)
	if !ok || userID == 0 {
		response.AuthRequired(c, "")
		return nil, false
	}

	user, err := users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.InvalidToken(c, "User no longer exists")
			return nil, false
		}
		response.ServerError(c, err)
		return nil, false
	}

	c.Set(userKey, user)
	return user, true
}

func upgradeLink(base string) string {
	return strings.TrimRight(base, "/") + "/pricing"
}

func upgradeMessage(deny *entitlement.DenyError) string {
	name := strings.ReplaceAll(deny.Feature, "_", " ")
	switch deny.Code {
	case entitlement.CodeSubscriptionInactive:
		return "Your premium subscription is " + deny.Status + ". Renew it to keep using " + name + "."
	default:
		return "Upgrade to premium to unlock " + name + "."
	}
}
