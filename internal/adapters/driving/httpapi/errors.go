package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Error types reported in error bodies.
const (
	errTypeValidation  = "validation_error"
	errTypeNotFound    = "not_found"
	errTypeDimension   = "dimension_mismatch"
	errTypeUnsupported = "unsupported_type"
	errTypeProvider    = "provider_error"
	errTypeUnavailable = "service_unavailable"
	errTypeTimeout     = "timeout"
	errTypeInternal    = "internal_error"
)

type errorBody struct {
	Error   errorDetail `json:"error"`
	Success bool        `json:"success"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// classifyError maps the domain error taxonomy onto an HTTP status.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errTypeNotFound
	case errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity, errTypeDimension
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errTypeValidation
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, errTypeUnsupported
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, errTypeUnavailable
	case errors.Is(err, domain.ErrTransientProvider):
		return http.StatusServiceUnavailable, errTypeProvider
	case errors.Is(err, domain.ErrPermanentProvider):
		return http.StatusBadGateway, errTypeProvider
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errTypeTimeout
	default:
		return http.StatusInternalServerError, errTypeInternal
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
	} else {
		logger.Debug("request rejected: %v", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Type: kind, Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response: %v", err)
	}
}
