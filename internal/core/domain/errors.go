package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrValidation indicates malformed input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a requested document or collection does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransientProvider indicates a provider hiccup (network, rate limit, 5xx).
	// Callers may retry with backoff.
	ErrTransientProvider = errors.New("transient provider error")

	// ErrPermanentProvider indicates an auth or configuration failure at a provider.
	ErrPermanentProvider = errors.New("permanent provider error")

	// ErrDimensionMismatch indicates a vector whose size differs from the collection's.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyDocument indicates a document that produced no chunks.
	ErrEmptyDocument = fmt.Errorf("%w: document is empty", ErrValidation)

	// ErrUnsupportedType indicates an unknown provider, backend or normaliser type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// ValidationErrorf returns an error wrapping ErrValidation.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ProviderError describes a failed call to an embedding, LLM or vector store backend.
type ProviderError struct {
	// Provider names the backend, e.g. "openai" or "qdrant".
	Provider string

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Transient reports whether a retry may succeed.
	Transient bool

	// Err is the underlying cause.
	Err error
}

// NewProviderError classifies a failure by HTTP status.
// Transport failures (status 0), 408, 429 and 5xx are transient.
func NewProviderError(provider string, status int, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Transient:  isTransientStatus(status),
		Err:        err,
	}
}

func isTransientStatus(status int) bool {
	switch {
	case status == 0:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

// Error implements error.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap exposes both the cause and the taxonomy sentinel to errors.Is.
func (e *ProviderError) Unwrap() []error {
	kind := ErrPermanentProvider
	if e.Transient {
		kind = ErrTransientProvider
	}
	return []error{kind, e.Err}
}

// DimensionMismatchError reports a vector whose length differs from its collection.
type DimensionMismatchError struct {
	Collection string
	Expected   int
	Got        int
}

// Error implements error.
func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("collection %q expects dimension %d, got %d", e.Collection, e.Expected, e.Got)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientProvider)
}
