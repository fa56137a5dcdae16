package errx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// StoreErrorMessage describes persistent store failures.
	StoreErrorMessage = "store operation failed"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// UpstreamErrorMessage describes embedding or completion service failures.
	UpstreamErrorMessage = "upstream service unavailable"
	// QuotaErrorMessage describes upstream quota or rate-limit exhaustion.
	QuotaErrorMessage = "upstream quota exceeded"
	// ValidationErrorMessage describes rejected input.
	ValidationErrorMessage = "validation failed"
)

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrEmbedding           = errors.New("embedding failed")
	ErrValidation          = errors.New("validation failure")
	ErrNotFound            = errors.New("not found")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Validation wraps a request validation problem as a 400.
func Validation(err error) *AppError {
	return New(fmt.Errorf("%w: %v", ErrValidation, err), http.StatusBadRequest, ValidationErrorMessage)
}

// WrapStore tags a persistent store failure as ErrStoreUnavailable.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err), http.StatusBadGateway, StoreErrorMessage)
}

// WrapUpstream classifies an embedding/completion failure as quota or plain unavailability.
func WrapUpstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsQuotaExceeded(err) {
		return New(fmt.Errorf("%s: %w: %w", op, ErrQuotaExceeded, err), http.StatusTooManyRequests, QuotaErrorMessage)
	}
	return New(fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err), http.StatusBadGateway, UpstreamErrorMessage)
}

var quotaMarkers = []string{
	"quota",
	"resource_exhausted",
	"resource exhausted",
	"rate limit",
	"too many requests",
	"status 429",
	"code 429",
}

// IsQuotaExceeded reports whether err looks like a quota/resource-exhaustion condition.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
