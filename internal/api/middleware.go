package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shopdesk/internal/auth"
	"shopdesk/internal/redisclient"
	"shopdesk/internal/service"
	"shopdesk/internal/util"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"
const tokenKey = "token"

// AuthRequired resolves the bearer token into a session and aborts with 401
// when it is missing, unknown or expired
func AuthRequired(staff *service.StaffService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing bearer token",
			})
			return
		}

		sess, err := staff.ResolveSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to resolve session",
			})
			return
		}
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(sessionKey, sess)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// RequireAction consults the role policy table and aborts with 403 when the
// session's role may not perform the action
func RequireAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionFrom(c)
		if sess == nil || !auth.Allowed(sess.Role, action) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Not permitted",
			})
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *redisclient.Session {
	val, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := val.(*redisclient.Session)
	return sess
}

func tokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
