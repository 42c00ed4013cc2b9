package middleware

import (
	"strings"
	"time"

	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/scheduling"
	"healthcare-booking-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const callerContextKey = "caller"

// AuthMiddleware creates a middleware for JWT authentication. It resolves
// the bearer token into an explicit scheduling.Caller value for downstream
// handlers instead of scattering identity fields across context keys.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		c.Set(callerContextKey, scheduling.Caller{
			UserID: claims.UserID,
			Role:   claims.Role,
		})

		c.Next()
	}
}

// RequireRoles creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RequireRoles(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			utils.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}

		for _, allowed := range allowedRoles {
			if caller.Role == allowed {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// CallerFromContext returns the resolved caller for the request.
func CallerFromContext(c *gin.Context) (scheduling.Caller, bool) {
	v, exists := c.Get(callerContextKey)
	if !exists {
		return scheduling.Caller{}, false
	}
	caller, ok := v.(scheduling.Caller)
	return caller, ok
}

// RequestLogger logs each request with the structured logger.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}
