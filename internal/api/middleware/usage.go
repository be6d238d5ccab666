package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/internal/pkg/response"
	"github.com/qs3c/ats_resume_server/internal/service"
)

// UsageLimit 预占一次分析次数，处理失败时退还
func UsageLimit(usageService *service.UsageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := GetUserID(c)

		if err := usageService.Reserve(c.Request.Context(), userID); err != nil {
			if le, ok := service.IsUsageLimit(err); ok {
				response.Error(c, http.StatusForbidden, response.CodeUsageLimitExceeded,
					"You have reached your daily analysis limit", map[string]interface{}{
						"currentUsage": le.Used,
						"limit":        le.Limit,
						"resetAt":      le.ResetAt.Format(time.RFC3339),
					})
				return
			}
			if errors.Is(err, service.ErrUserNotFound) {
				response.InvalidToken(c, "User no longer exists")
				return
			}
			response.ServerError(c, err)
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			usageService.Refund(userID)
		}
	}
}
