package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/frostdev-ops/agent-dashboard-backend/pkg/errors"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/utils"
)

// ContextRequestID is the context key holding the request id
const ContextRequestID = "request_id"

// ErrorHandlingMiddleware recovers panics into a 500 AppError envelope
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"ip":          c.ClientIP(),
			"request_id":  c.GetString(ContextRequestID),
			"panic":       fmt.Sprintf("%v", recovered),
			"stack_trace": string(debug.Stack()),
		}).Error("Panic recovered in API middleware")

		utils.SendAppError(c, apperrors.ErrInternalServer)
	})
}

// ErrorResponseMiddleware renders the last error a handler attached with
// c.Error when the handler wrote no response itself
func ErrorResponseMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if apperrors.GetStatusCode(err) >= 500 {
			logger.WithError(err).WithFields(logrus.Fields{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(ContextRequestID),
			}).Error("Request failed")
		}

		utils.SendAppError(c, err)
	}
}

// RequestIDMiddleware propagates X-Request-ID, generating one when absent
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(ContextRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
