package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the header a caller may use to propagate its own
// request ID; absent that, one is generated.
const HeaderRequestID = "X-Request-ID"

// ContextKeyRequestID is the gin context key under which the request ID is
// stored for handlers and downstream middleware.
const ContextKeyRequestID = "request_id"

// RequestID ensures every request carries an ID, echoed back in the
// response so clients can correlate logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID, or "" if the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}
