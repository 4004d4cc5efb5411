package middleware

import (
	"time"

	"vodgate/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware propagates or assigns a request id and logs the
// request once it completes.
func RequestIDMiddleware(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		if cl != nil {
			cl.LogRequest(c.Request.Context(), c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Milliseconds())
		}
	}
}
