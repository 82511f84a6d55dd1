package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/knowledge-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stamps every request with a trace id and request id.
// An active otel span wins over the inbound header so logs join the trace.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, rd := ctxutil.EnsureRequestData(c.Request.Context())

		rd.RequestID = strings.TrimSpace(c.GetHeader(headerRequestID))
		if rd.RequestID == "" {
			rd.RequestID = uuid.NewString()
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			rd.TraceID = sc.TraceID().String()
		} else if h := strings.TrimSpace(c.GetHeader(headerTraceID)); h != "" {
			rd.TraceID = h
		} else {
			rd.TraceID = strings.ReplaceAll(uuid.NewString(), "-", "")
		}

		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(headerTraceID, rd.TraceID)
		c.Writer.Header().Set(headerRequestID, rd.RequestID)
		c.Next()
	}
}
