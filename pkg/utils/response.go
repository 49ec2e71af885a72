package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/frostdev-ops/agent-dashboard-backend/pkg/errors"
)

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Meta      interface{} `json:"meta,omitempty"`
}

// ErrorResponse represents an error response with request context
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Timestamp string      `json:"timestamp"`
	Request   RequestInfo `json:"request"`
	Details   interface{} `json:"details,omitempty"`
}

// RequestInfo provides context about the failed request
type RequestInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SendSuccess sends a successful response
func SendSuccess(c *gin.Context, data interface{}) {
	SendSuccessWithStatus(c, http.StatusOK, data)
}

// SendSuccessWithStatus sends a successful response with an explicit status code
func SendSuccessWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success:   true,
		Data:      data,
		Timestamp: timestamp(),
	})
}

// SendSuccessWithMeta sends a successful response with metadata
func SendSuccessWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: timestamp(),
	})
}

// SendError sends an error response with request context
func SendError(c *gin.Context, statusCode int, message string) {
	sendError(c, statusCode, message, nil)
}

// SendAppError sends err using its AppError status and details when present
func SendAppError(c *gin.Context, err error) {
	status := apperrors.GetStatusCode(err)
	message := err.Error()
	var details interface{}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Details != "" {
			details = appErr.Details
		}
	}

	if status >= http.StatusInternalServerError && details == nil {
		message = apperrors.ErrInternalServer.Message
	}

	sendError(c, status, message, details)
}

func sendError(c *gin.Context, statusCode int, message string, details interface{}) {
	resp := ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      statusCode,
		Timestamp: timestamp(),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
		Details: details,
	}

	if statusCode == http.StatusNotFound && details == nil {
		if suggestions := notFoundSuggestions(c.Request.URL.Path); len(suggestions) > 0 {
			resp.Details = map[string]interface{}{
				"suggestions": suggestions,
				"message":     "The requested endpoint does not exist. Check the suggestions below for similar endpoints.",
			}
		}
	}

	c.AbortWithStatusJSON(statusCode, resp)
}

var knownEndpoints = []string{
	"/health",
	"/metrics",
	"/ws",
	"/api/v1/alerts",
	"/api/v1/alerts/history",
	"/api/v1/alerts/summary",
	"/api/v1/alert-rules",
	"/api/v1/monitoring/status",
	"/api/v1/telemetry/execution-logs",
	"/api/v1/system/resources",
}

// notFoundSuggestions returns up to five known endpoints sharing a path
// segment with path
func notFoundSuggestions(path string) []string {
	var segments []string
	for _, s := range strings.Split(strings.ToLower(path), "/") {
		if s != "" && s != "api" && s != "v1" {
			segments = append(segments, strings.TrimSuffix(s, "s"))
		}
	}

	var suggestions []string
	for _, endpoint := range knownEndpoints {
		for _, seg := range segments {
			if strings.Contains(endpoint, seg) {
				suggestions = append(suggestions, endpoint)
				break
			}
		}
		if len(suggestions) == 5 {
			break
		}
	}

	return suggestions
}
