package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/observ"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request through zap and feeds the
// request counters. Routes are labelled by their pattern, not the raw path,
// so ids don't blow up metric cardinality.
func RequestLogger(logger *zap.Logger, metrics *observ.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		took := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.Request(route, c.Request.Method, status, took)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("took", took),
		}
		if owner := GetOwnerID(c); owner != uuid.Nil {
			fields = append(fields, zap.String("owner_id", owner.String()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}
