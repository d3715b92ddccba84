package logger

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const correlationKey = "storacctCorrelationID"

// CorrelationHeader carries the request correlation ID to and from clients.
const CorrelationHeader = "X-Correlation-ID"

// Init builds the process-wide zap logger, honoring LOG_LEVEL.
func Init() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	if lvl, ok := os.LookupEnv("LOG_LEVEL"); ok {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(lvl)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	return cfg.Build()
}

// Middleware assigns a correlation ID to each request and emits a request log line.
func Middleware(logg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationKey, id)
		c.Header(CorrelationHeader, id)

		start := time.Now()
		c.Next()

		if logg != nil {
			logg.Info("request",
				zap.String("correlation_id", id),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}
}

// CorrelationID returns the correlation ID assigned by Middleware, if any.
func CorrelationID(c *gin.Context) string {
	value, exists := c.Get(correlationKey)
	if !exists {
		return ""
	}
	id, _ := value.(string)
	return id
}
