package ctxmanage

import (
	"github.com/gin-gonic/gin"
)

type key string

// TraceIDKey is the gin context key under which middleware.Logger stores the
// per-request trace id.
const TraceIDKey key = "trace_id"

func GetTraceIdOfRequest(c *gin.Context) string {
	traceId, ok := c.Value(string(TraceIDKey)).(string)
	if !ok {
		return "unknown"
	}
	return traceId
}
