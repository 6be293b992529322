package middleware

import (
	"context"
	"net/http"
	"time"

	"studiobook/internal/cache"
	"studiobook/internal/logger"
	"studiobook/internal/models"
	"studiobook/internal/repository"
	"studiobook/internal/service"

	"github.com/gin-gonic/gin"
)

// Ctx keys and helpers for the authenticated member.
// Unexported type to avoid collisions.

type ctxKey string

const (
	memberIDKey ctxKey = "member_id"
	roleKey     ctxKey = "member_role"
)

func ContextWithMember(ctx context.Context, memberID int64, role string) context.Context {
	ctx = context.WithValue(ctx, memberIDKey, memberID)
	return context.WithValue(ctx, roleKey, role)
}

func MemberIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(memberIDKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func RoleFromContext(ctx context.Context) string {
	v := ctx.Value(roleKey)
	if v == nil {
		return ""
	}
	role, _ := v.(string)
	return role
}

// CORS middleware for browser clients
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	}
}

// Logger middleware for structured request logging
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := logger.NewRequestID()
		c.Request = c.Request.WithContext(
			logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		memberID, exists := c.Get("member_id")

		logFields := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		if exists {
			logFields = append(logFields, "member_id", memberID)
		}

		if c.Writer.Status() >= 400 {
			if len(c.Errors) > 0 {
				logFields = append(logFields, "error", c.Errors.String())
			}
			logger.Get().Error("Request completed with error", logFields...)
		}
	}
}

// Recovery middleware turns panics into 500 responses with full logging
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Get().Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
	})
}

// BasicAuth authenticates via HTTP Basic Auth, checking the Valkey auth
// cache first, then the database. On a cache miss that resolves in the
// database the entry is written back to the cache.
func BasicAuth(memberRepo *repository.MemberRepository, valkeyClient *cache.ValkeyClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", "Basic realm=\"Restricted\"")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := c.Request.Context()
		passwordHash := service.HashPassword(password)

		if valkeyClient != nil {
			memberID, err := valkeyClient.GetMemberIDByAuth(ctx, email, passwordHash)
			if err == nil {
				// Cached entries only exist for members, staff always
				// round-trips to the database for the role.
				setMember(c, memberID, models.RoleMember)
				c.Next()
				return
			}
		}

		member, err := memberRepo.GetByEmail(ctx, email)
		if err != nil || member == nil || !member.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if member.PasswordHash == "" || passwordHash != member.PasswordHash {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if valkeyClient != nil && member.Role == models.RoleMember {
			if err := valkeyClient.SetMemberAuth(ctx, email, passwordHash, member.ID); err != nil {
				logger.WithContext(ctx).Warn("Failed to cache auth entry", "error", err)
			}
		}

		setMember(c, member.ID, member.Role)
		c.Next()
	}
}

// RequireStaff gates staff-only routes. Must run after BasicAuth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if RoleFromContext(c.Request.Context()) != models.RoleStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
			return
		}
		c.Next()
	}
}

func setMember(c *gin.Context, memberID int64, role string) {
	c.Set("member_id", memberID)
	c.Request = c.Request.WithContext(
		ContextWithMember(c.Request.Context(), memberID, role))
}
