package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/pkg/logger"
)

// LoggingMiddleware logs each request through the batch logger; 200s are
// folded into summaries, everything else is logged immediately
func LoggingMiddleware(log *logger.BatchLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := logrus.Fields{
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"request_id": c.GetString(ContextRequestID),
		}
		if len(c.Errors) > 0 {
			fields["error_message"] = c.Errors.String()
		}

		log.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), fields)
	}
}
