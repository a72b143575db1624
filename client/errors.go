package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error codes returned by the relgraph API.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeValidation           = "validation_error"
	CodeNotFound             = "not_found"
	CodeUnsupportedOperation = "unsupported_operation"
	CodeInvalidMapping       = "invalid_mapping"
	CodeSafetyLimit          = "safety_limit"
	CodeTimeout              = "timeout"
	CodeCanceled             = "canceled"
	CodeStore                = "store_error"
	CodeBusy                 = "busy"
)

// APIError represents a structured error response from the relgraph API.
type APIError struct {
	StatusCode int             `json:"-"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	RequestID  string          `json:"request_id,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	RetryAfter time.Duration   `json:"-"`

	body []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("relgraph: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("relgraph: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// SafetyLimit decodes the detail of a safety_limit error. ok is false for any
// other error.
func (e *APIError) SafetyLimit() (*SafetyLimit, bool) {
	if e.Code != CodeSafetyLimit || len(e.Detail) == 0 {
		return nil, false
	}
	var sl SafetyLimit
	if err := json.Unmarshal(e.Detail, &sl); err != nil {
		return nil, false
	}
	return &sl, true
}

// MappingProblems decodes the detail of an invalid_mapping error.
func (e *APIError) MappingProblems() []MappingProblem {
	if e.Code != CodeInvalidMapping || len(e.Detail) == 0 {
		return nil
	}
	var detail struct {
		Errors []MappingProblem `json:"errors"`
	}
	if err := json.Unmarshal(e.Detail, &detail); err != nil {
		return nil
	}
	return detail.Errors
}

func asAPIError(err error) (*APIError, bool) {
	var e *APIError
	ok := errors.As(err, &e)
	return e, ok
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == http.StatusNotFound
}

// IsSafetyLimit returns true if a query was refused or aborted by a safety ceiling.
func IsSafetyLimit(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.Code == CodeSafetyLimit
}

// IsTimeout returns true if the server gave up on the query after its time budget.
func IsTimeout(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.Code == CodeTimeout
}

// IsBusy returns true if the server refused the request for lack of a free
// query slot. RetryAfter on the error holds the server's hint.
func IsBusy(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == http.StatusServiceUnavailable && e.Code == CodeBusy
}

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, retryAfter string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, body: body}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}
