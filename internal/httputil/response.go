// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"context"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the canonical request ID.
const RequestIDKey = "request_id"

type requestIDCtxKey struct{}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)

	return id
}

// ErrorResponse is the JSON error envelope every endpoint uses.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Detail    any    `json:"detail,omitempty"`
}

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	RespondErrorDetail(c, status, code, message, nil)
}

// RespondErrorDetail is RespondError with a structured detail payload, such
// as the estimate behind a safety-limit rejection.
func RespondErrorDetail(c *gin.Context, status int, code, message string, detail any) {
	resp := ErrorResponse{
		Code:    code,
		Message: message,
		Detail:  detail,
	}

	if rid, exists := c.Get(RequestIDKey); exists {
		if s, ok := rid.(string); ok {
			resp.RequestID = s
		}
	}

	c.AbortWithStatusJSON(status, resp)
}
