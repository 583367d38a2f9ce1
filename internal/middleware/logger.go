package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// ErrorLogger logs the errors handlers attached with c.Error and any 5xx
// response. Panics are handled by the recovery middleware.
func ErrorLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if len(c.Errors) == 0 {
			if c.Writer.Status() >= http.StatusInternalServerError {
				log.Error("request failed", requestFields(c, start)...)
			}
			return
		}

		for _, err := range c.Errors {
			fields := append(requestFields(c, start), zap.Error(err.Err))
			if err.Meta != nil {
				fields = append(fields, zap.Any("meta", err.Meta))
			}
			log.Error("request error", fields...)
		}
	}
}

func requestFields(c *gin.Context, start time.Time) []zap.Field {
	return []zap.Field{
		zap.Int("status", c.Writer.Status()),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.String("client_ip", c.ClientIP()),
		zap.Int64("user_id", c.GetInt64("user_id")),
		zap.String("request_id", c.GetString("request_id")),
		zap.Duration("latency", time.Since(start)),
	}
}
