package middleware

import (
	"net/http"

	"vodgate/pkg/errors"
	"vodgate/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware handles application errors and returns appropriate HTTP responses.
// Opaque errors are answered with the bare status code.
func ErrorHandlerMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		requestID := logger.RequestIDFromContext(c.Request.Context())

		appErr := errors.GetAppError(err)
		if appErr == nil {
			log.Errorw("unhandled error",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"request_id", requestID,
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   string(errors.ErrCodeInternal),
				"message": "Internal server error",
			})
			return
		}

		if appErr.Opaque {
			log.Debugw("request refused",
				"code", appErr.Code,
				"status", appErr.HTTPStatus,
				"path", c.Request.URL.Path,
				"request_id", requestID,
			)
			c.AbortWithStatus(appErr.HTTPStatus)
			return
		}

		log.Errorw("application error",
			"code", appErr.Code,
			"message", appErr.Message,
			"status", appErr.HTTPStatus,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"context", appErr.Context,
			"request_id", requestID,
		)
		c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
			"details": appErr.Context,
		})
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"request_id", logger.RequestIDFromContext(c.Request.Context()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
