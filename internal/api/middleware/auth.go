package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/pkg/jwt"
	"github.com/qs3c/ats_resume_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	EmailKey  = "email"
	TierKey   = "tier"
	ClaimsKey = "claims"
)

// Auth JWT 认证中间件，blacklist 为 nil 时不检查注销状态
func Auth(jwtSecret string, blacklist *jwt.Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthRequired(c, "")
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			response.InvalidToken(c, "Authorization header must use the Bearer scheme")
			return
		}

		claims, err := verify(c, tokenString, jwtSecret, blacklist)
		if err != nil {
			message := "Invalid or expired token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				message = "Token has expired"
			}
			response.InvalidToken(c, message)
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录），令牌无效时按匿名处理
func OptionalAuth(jwtSecret string, blacklist *jwt.Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		if claims, err := verify(c, tokenString, jwtSecret, blacklist); err == nil {
			setIdentity(c, claims)
		}

		c.Next()
	}
}

// VerifyToken 校验令牌并检查是否已注销，供 WebSocket 等无法使用请求头的入口复用
func VerifyToken(c *gin.Context, tokenString, jwtSecret string, blacklist *jwt.Blacklist) (*jwt.Claims, error) {
	return verify(c, tokenString, jwtSecret, blacklist)
}

func verify(c *gin.Context, tokenString, jwtSecret string, blacklist *jwt.Blacklist) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(tokenString, jwtSecret)
	if err != nil {
		return nil, err
	}
	if blacklist != nil {
		revoked, err := blacklist.IsRevoked(c.Request.Context(), claims)
		if err != nil {
			// Redis 不可用时不阻断请求
			log.Printf("Failed to check token blacklist: %v", err)
		} else if revoked {
			return nil, jwt.ErrInvalidToken
		}
	}
	return claims, nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func setIdentity(c *gin.Context, claims *jwt.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(EmailKey, claims.Email)
	c.Set(TierKey, claims.Tier)
	c.Set(ClaimsKey, claims)
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetClaims 从上下文获取令牌声明
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
