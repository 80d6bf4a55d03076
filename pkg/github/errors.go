package github

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

// ErrorType represents different categories of GitHub API errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// APIError represents a structured error from a GitHub operation. Every
// remote failure carries the operation name, an optional HTTP status code,
// and a human-readable reason.
type APIError struct {
	Type       ErrorType `json:"type"`
	Operation  string    `json:"operation"`
	StatusCode int       `json:"status_code,omitempty"`
	Reason     string    `json:"reason"`
	Cause      error     `json:"-"`
	Retryable  bool      `json:"retryable"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s error in %s: %s", e.Type, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Reason)
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// IsValidationRejection reports whether the error is a validation rejection
// from the remote, which settings sync treats as a soft warning rather than a
// failure (org policies can pin individual settings).
func (e *APIError) IsValidationRejection() bool {
	return e.Type == ErrorTypeValidation
}

// NewAPIError creates a new APIError with the specified type and reason
func NewAPIError(errorType ErrorType, operation, reason string, cause error) *APIError {
	return &APIError{
		Type:      errorType,
		Operation: operation,
		Reason:    reason,
		Cause:     cause,
		Retryable: isRetryableErrorType(errorType),
	}
}

// WrapAPIError wraps a GitHub API error into our structured error type
func WrapAPIError(err error, operation string) *APIError {
	if err == nil {
		return nil
	}

	// If it's already an APIError, keep it and fill in the operation
	if apiErr, ok := err.(*APIError); ok {
		if apiErr.Operation == "" {
			apiErr.Operation = operation
		}
		return apiErr
	}

	if ghErr, ok := err.(*github.ErrorResponse); ok {
		return parseErrorResponse(ghErr, operation)
	}

	if rlErr, ok := err.(*github.RateLimitError); ok {
		return &APIError{
			Type:      ErrorTypeRateLimit,
			Operation: operation,
			Reason:    fmt.Sprintf("rate limit exceeded, resets at %v", rlErr.Rate.Reset.Time),
			Cause:     err,
			Retryable: true,
		}
	}

	if isNetworkError(err) {
		return &APIError{
			Type:      ErrorTypeNetwork,
			Operation: operation,
			Reason:    "network error, check your connection and try again",
			Cause:     err,
			Retryable: true,
		}
	}

	return &APIError{
		Type:      ErrorTypeUnknown,
		Operation: operation,
		Reason:    err.Error(),
		Cause:     err,
		Retryable: false,
	}
}

// parseErrorResponse classifies GitHub API error responses by status code
func parseErrorResponse(ghErr *github.ErrorResponse, operation string) *APIError {
	baseErr := &APIError{
		Operation: operation,
		Cause:     ghErr,
	}
	if ghErr.Response != nil {
		baseErr.StatusCode = ghErr.Response.StatusCode
	}

	switch baseErr.StatusCode {
	case http.StatusUnauthorized:
		baseErr.Type = ErrorTypeAuth
		baseErr.Reason = "authentication failed, check your GitHub token"
		baseErr.Retryable = false

	case http.StatusForbidden:
		if strings.Contains(ghErr.Message, "rate limit") {
			baseErr.Type = ErrorTypeRateLimit
			baseErr.Reason = "GitHub API rate limit exceeded"
			baseErr.Retryable = true
		} else {
			baseErr.Type = ErrorTypePermission
			baseErr.Reason = "insufficient permissions, the token may be missing required scopes"
			baseErr.Retryable = false
		}

	case http.StatusNotFound:
		baseErr.Type = ErrorTypeNotFound
		baseErr.Reason = "resource not found, check the name and your access permissions"
		baseErr.Retryable = false

	case http.StatusConflict:
		baseErr.Type = ErrorTypeConflict
		baseErr.Reason = "resource conflict"
		baseErr.Retryable = false
		if strings.Contains(ghErr.Message, "already exists") {
			baseErr.Reason = "resource already exists"
		}

	case http.StatusUnprocessableEntity:
		baseErr.Type = ErrorTypeValidation
		baseErr.Reason = "validation failed"
		baseErr.Retryable = false

		if len(ghErr.Errors) > 0 {
			var details []string
			for _, e := range ghErr.Errors {
				if e.Field != "" {
					details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Message))
				} else {
					details = append(details, e.Message)
				}
			}
			baseErr.Reason = fmt.Sprintf("validation failed: %s", strings.Join(details, "; "))
		}

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		baseErr.Type = ErrorTypeNetwork
		baseErr.Reason = "GitHub API is temporarily unavailable"
		baseErr.Retryable = true

	default:
		baseErr.Type = ErrorTypeUnknown
		baseErr.Reason = ghErr.Message
		baseErr.Retryable = baseErr.StatusCode >= 500
	}

	return baseErr
}

// isNetworkError checks if an error is a network-related error
func isNetworkError(err error) bool {
	errStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"network is unreachable",
		"no such host",
		"timeout",
		"dial tcp",
		"i/o timeout",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isRetryableErrorType determines if an error type is generally retryable
func isRetryableErrorType(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimit, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// RetryConfig defines configuration for retry logic
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func() error

// WithRetry executes an operation with retry logic
func WithRetry(operation RetryableOperation, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)

			delay = time.Duration(float64(delay) * config.BackoffFactor)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return err
		}

		// Rate limit errors wait for the reset when it is near
		if apiErr.Type == ErrorTypeRateLimit {
			if rlErr, ok := apiErr.Cause.(*github.RateLimitError); ok {
				waitTime := time.Until(rlErr.Rate.Reset.Time)
				if waitTime > 0 && waitTime < 5*time.Minute {
					time.Sleep(waitTime)
					continue
				}
			}
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, lastErr)
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation error for field '%s' (value: %s): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return e[0].Error()
	}

	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e), strings.Join(messages, "; "))
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, value, message string) {
	*e = append(*e, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
