package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Problem is the RFC 7807 error envelope with a stable underscored code and
// optional per-field details.
type Problem struct {
	Type    string          `json:"type"`
	Title   string          `json:"title"`
	Status  int             `json:"status"`
	Detail  string          `json:"detail,omitempty"`
	Code    string          `json:"code"`
	TraceID string          `json:"trace_id,omitempty"`
	Details []ProblemDetail `json:"details,omitempty"`
}

// ProblemDetail names one invalid field.
type ProblemDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ErrorHandler recovers panics and renders them as an internal problem.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger := GetLogger()
				logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.FullPath()))
				JSONProblem(c, http.StatusInternalServerError, "internal", "An unexpected error occurred. Please try again later.")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONProblem sends a standardized problem+json response.
func JSONProblem(c *gin.Context, status int, code, detail string, details ...ProblemDetail) {
	c.Header("Content-Type", "application/problem+json")
	c.JSON(status, Problem{
		Type:    "about:blank",
		Title:   http.StatusText(status),
		Status:  status,
		Detail:  detail,
		Code:    code,
		TraceID: c.GetString("trace_id"),
		Details: details,
	})
}
