package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/httputil"
	"github.com/persistorai/relgraph/internal/metrics"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeValidationError = "validation_error"
	ErrCodeNotFound        = "not_found"
	ErrCodeUnsupported     = "unsupported_operation"
	ErrCodeInvalidMapping  = "invalid_mapping"
	ErrCodeSafetyLimit     = "safety_limit"
	ErrCodeTimeout         = "timeout"
	ErrCodeCanceled        = "canceled"
	ErrCodeStoreError      = "store_error"
	ErrCodeInternalError   = "internal_error"
)

// statusClientClosedRequest reports a request the client abandoned.
const statusClientClosedRequest = 499

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondEngineError maps the engine error taxonomy onto HTTP. Mapping
// problems are 422 and never worth retrying; store faults are 502 and may be.
// A safety-limit rejection carries the ceiling and estimate in the body so
// callers can tell "too broad" from "nothing found".
func respondEngineError(c *gin.Context, log *logrus.Logger, op string, err error) {
	var (
		safety *models.SafetyLimitError
		verrs  *ontology.ValidationErrors
	)

	switch {
	case errors.As(err, &safety):
		metrics.ErrorsTotal.WithLabelValues(ErrCodeSafetyLimit).Inc()
		httputil.RespondErrorDetail(c, http.StatusRequestEntityTooLarge, ErrCodeSafetyLimit, err.Error(), safety)
	case errors.As(err, &verrs):
		metrics.ErrorsTotal.WithLabelValues(ErrCodeInvalidMapping).Inc()
		httputil.RespondErrorDetail(c, http.StatusUnprocessableEntity, ErrCodeInvalidMapping, "schema mapping is invalid", verrs)
	case errors.Is(err, models.ErrInvalidMapping):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeInvalidMapping, err.Error())
	case errors.Is(err, models.ErrNodeNotFound),
		errors.Is(err, ontology.ErrRelationshipNotFound),
		errors.Is(err, ontology.ErrEntityNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, models.ErrUnsupportedOperation):
		respondError(c, http.StatusBadRequest, ErrCodeUnsupported, err.Error())
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, models.ErrMissingStart),
		errors.Is(err, models.ErrMissingEnd),
		errors.Is(err, models.ErrMissingRelationship),
		errors.Is(err, models.ErrUnknownWeight):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, models.ErrTimeout):
		respondError(c, http.StatusGatewayTimeout, ErrCodeTimeout, "operation timed out")
	case errors.Is(err, models.ErrCanceled):
		respondError(c, statusClientClosedRequest, ErrCodeCanceled, "operation canceled")
	case errors.Is(err, models.ErrStore):
		log.WithError(err).WithField("op", op).Error("store error")
		respondError(c, http.StatusBadGateway, ErrCodeStoreError, err.Error())
	default:
		log.WithError(err).WithField("op", op).Error("graph operation failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
