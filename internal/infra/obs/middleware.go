package obs

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hotelres/internal/app/outbox"
)

const RequestIDHeader = "X-Request-ID"

type Middleware struct {
	Logger  *slog.Logger
	Metrics *Metrics
}

// RequestID tags the request with an id and forwards it to recorded events.
func (m Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		headers := map[string]string{"request_id": id}
		if trace := c.GetHeader("traceparent"); trace != "" {
			headers["traceparent"] = trace
		}
		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, id)
		ctx = outbox.ContextWithHeaders(ctx, headers)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (m Middleware) LoggerMiddleware() gin.HandlerFunc {
	log := m.Logger
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m.Metrics != nil {
			m.Metrics.ObserveHTTP(c.Request.Method+" "+route, strconv.Itoa(c.Writer.Status()), elapsed)
		}
		if log == nil {
			return
		}
		log.Info("http", "method", c.Request.Method, "path", route, "status", c.Writer.Status(), "duration", elapsed, "request_id", c.GetString("request_id"))
	}
}

type requestIDKey struct{}

func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
