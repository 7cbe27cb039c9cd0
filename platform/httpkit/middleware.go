package httpkit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"studio_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// ContextStudioIDKey is the gin context key for the studio (tenant) ID.
	ContextStudioIDKey = "studioID"
	// ContextUserIDKey is the gin context key for the acting user ID.
	ContextUserIDKey = "userID"
	// ContextLoggerKey is the gin context key for the request logger.
	ContextLoggerKey = "logger"

	// HeaderStudioID carries the studio scope set by the upstream gateway.
	HeaderStudioID = "X-Studio-ID"
	// HeaderUserID carries the acting user set by the upstream gateway.
	HeaderUserID = "X-User-ID"
	// HeaderRequestID correlates logs for one request.
	HeaderRequestID = "X-Request-ID"
)

// RequestLogger logs HTTP requests with timing and stamps a request id.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ContextLoggerKey, log)

		c.Next()

		latency := time.Since(start)
		log.WithRequestID(requestID).HTTPRequest(c.Request.Method, path, c.Writer.Status(), float64(latency.Milliseconds()), c.ClientIP())
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// StudioScope requires a valid studio id header and stores it, plus the
// optional acting user, on both the gin and request contexts.
func StudioScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		studioID, err := uuid.Parse(strings.TrimSpace(c.GetHeader(HeaderStudioID)))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "studio scope required"})
			return
		}
		c.Set(ContextStudioIDKey, studioID)
		ctx := context.WithValue(c.Request.Context(), logger.StudioIDKey, studioID.String())

		if raw := strings.TrimSpace(c.GetHeader(HeaderUserID)); raw != "" {
			if userID, err := uuid.Parse(raw); err == nil {
				c.Set(ContextUserIDKey, userID)
				ctx = context.WithValue(ctx, logger.UserIDKey, userID.String())
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// MustGetStudioID returns the scoped studio id or writes a 401 and returns false.
func MustGetStudioID(c *gin.Context) (uuid.UUID, bool) {
	if v, ok := c.Get(ContextStudioIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	Error(c, http.StatusUnauthorized, "studio scope required", nil)
	return uuid.Nil, false
}

// GetUserID returns the acting user when the gateway supplied one.
func GetUserID(c *gin.Context) *uuid.UUID {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}

// ParseUUIDParam parses a path parameter as a UUID or writes a 400.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// IPRateLimiter manages per-IP rate limiters.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !i.getLimiter(ip).Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
