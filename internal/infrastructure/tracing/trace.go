package tracing

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Header carries the trace ID in both directions
const Header = "X-Trace-ID"

type contextKey int

const (
	traceIDKey contextKey = iota
	loggerKey
)

// NewID returns a fresh trace ID
func NewID() string {
	return uuid.NewString()
}

// WithTraceID stores id and a logger tagged with it on ctx
func WithTraceID(ctx context.Context, id string, logger *zap.Logger) context.Context {
	ctx = context.WithValue(ctx, traceIDKey, id)
	if logger != nil {
		ctx = context.WithValue(ctx, loggerKey, logger.With(zap.String("trace_id", id)))
	}
	return ctx
}

// TraceID returns the trace ID on ctx, or ""
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// Logger returns the request logger on ctx, or a no-op logger
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// Middleware assigns a trace ID to every request and logs its completion
func Middleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if _, err := uuid.Parse(id); err != nil {
			id = NewID()
		}

		c.Request = c.Request.WithContext(WithTraceID(c.Request.Context(), id, logger))
		c.Header(Header, id)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("trace_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			logger.Warn("Request failed", append(fields, zap.String("error", c.Errors.Last().Error()))...)
			return
		}
		logger.Debug("Request", fields...)
	}
}
