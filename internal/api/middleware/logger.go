package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger 记录每个请求的方法、路径、状态码、耗时和用户
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		userID, _ := GetUserID(c)
		log.Printf("%s %s %d %s user=%d ip=%s",
			c.Request.Method, path, c.Writer.Status(), time.Since(start).Round(time.Microsecond), userID, c.ClientIP())
	}
}
