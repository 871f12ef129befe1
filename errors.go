package moderation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// ErrorCategory groups errors by how the pipeline reacts to them.
type ErrorCategory string

const (
	ErrorCategoryNetwork    ErrorCategory = "network"    // Backend unreachable
	ErrorCategoryRateLimit  ErrorCategory = "rate_limit" // Backend or local limiter said slow down
	ErrorCategoryTimeout    ErrorCategory = "timeout"    // Call exceeded its deadline
	ErrorCategoryAuth       ErrorCategory = "auth"       // Missing or rejected credentials
	ErrorCategoryConfig     ErrorCategory = "config"     // Bad local configuration
	ErrorCategoryValidation ErrorCategory = "validation" // Bad caller input
	ErrorCategoryResponse   ErrorCategory = "response"   // Backend answered outside its contract
	ErrorCategoryProvider   ErrorCategory = "provider"   // Other backend-reported errors
	ErrorCategoryInternal   ErrorCategory = "internal"
)

// Common errors
var (
	ErrNoItems            = errors.New("moderation: no items to moderate")
	ErrProviderNotFound   = errors.New("moderation: provider not found")
	ErrStoreNotConfigured = errors.New("moderation: store not configured")
	ErrRecordNotFound     = errors.New("moderation: record not found")
	ErrRevisionConflict   = errors.New("moderation: revision conflict, stale update")

	// Backend call outcomes. The screener, judge and fact-checker turn
	// all of these into their sentinel results.
	ErrTimeout           = errors.New("moderation: operation timeout")
	ErrRateLimited       = errors.New("moderation: rate limited by provider")
	ErrCircuitOpen       = errors.New("moderation: provider circuit open")
	ErrEmptyResponse     = errors.New("moderation: empty response from provider")
	ErrMalformedResponse = errors.New("moderation: malformed response from provider")
	ErrUnsupportedShape  = errors.New("moderation: unsupported response shape")
	ErrContentBlocked    = errors.New("moderation: provider refused to evaluate content")

	// Network errors
	ErrNetworkUnreachable = errors.New("moderation: network unreachable")
	ErrConnectionRefused  = errors.New("moderation: connection refused")
	ErrDNSResolution      = errors.New("moderation: DNS resolution failed")

	// Credentials and configuration
	ErrAuthFailed         = errors.New("moderation: authentication failed")
	ErrMissingCredentials = errors.New("moderation: missing API credentials")
	ErrMissingConfig      = errors.New("moderation: missing required configuration")
	ErrInvalidConfig      = errors.New("moderation: invalid configuration")
)

// ProviderError is an error reported by a classifier or model backend.
type ProviderError struct {
	Provider   string        // googlenl, huggingface, gemini, tencent, ...
	Code       string        // Backend error code
	Message    string        // Backend error message
	StatusCode int           // HTTP status, when the backend speaks HTTP
	Category   ErrorCategory // Drives retry and breaker decisions
	Retryable  bool
	Raw        any // Request ID or raw body, for support tickets
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("moderation: %s returned %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("moderation: %s error %s: %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's category, so callers can test
// errors.Is(err, ErrAuthFailed) without caring which backend failed.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Category == ErrorCategoryAuth
	case ErrRateLimited:
		return e.Category == ErrorCategoryRateLimit
	case ErrTimeout:
		return e.Category == ErrorCategoryTimeout
	}
	return false
}

// NewProviderError creates a provider error in the provider category.
func NewProviderError(provider, code, message string) *ProviderError {
	pe := &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
		Category: ErrorCategoryProvider,
	}
	pe.Retryable = pe.isRetryable()
	return pe
}

// WithStatusCode sets the HTTP status and derives the category from it.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	e.Category = categoryForStatus(code)
	e.Retryable = e.isRetryable()
	return e
}

// WithCategory overrides the category.
func (e *ProviderError) WithCategory(cat ErrorCategory) *ProviderError {
	e.Category = cat
	e.Retryable = e.isRetryable()
	return e
}

// WithRaw attaches the raw backend payload.
func (e *ProviderError) WithRaw(raw any) *ProviderError {
	e.Raw = raw
	return e
}

// WithCause sets the underlying error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Err = err
	return e
}

func (e *ProviderError) isRetryable() bool {
	switch e.Category {
	case ErrorCategoryNetwork, ErrorCategoryRateLimit, ErrorCategoryTimeout:
		return true
	}
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func categoryForStatus(code int) ErrorCategory {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorCategoryAuth
	case code == http.StatusTooManyRequests:
		return ErrorCategoryRateLimit
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrorCategoryTimeout
	case code >= 500:
		return ErrorCategoryInternal
	default:
		return ErrorCategoryProvider
	}
}

// ValidationError reports invalid caller input or configuration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("moderation: invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Operation string // create, update, query, migrate
	Table     string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("moderation: store %s on %s: %v", e.Operation, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new store error.
func NewStoreError(operation, table string, err error) *StoreError {
	return &StoreError{Operation: operation, Table: table, Err: err}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStoreError checks if an error is a store error.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// asProviderError returns the first ProviderError in err's chain.
func asProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable reports whether calling the backend again may succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrNetworkUnreachable) || errors.Is(err, ErrConnectionRefused) {
		return true
	}
	if pe, ok := asProviderError(err); ok {
		return pe.Retryable
	}
	return IsNetworkError(err)
}

// networkPatterns match transport failures that SDKs flatten into strings.
var networkPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"connection timed out",
	"dial tcp",
	"dial udp",
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNetworkUnreachable) || errors.Is(err, ErrConnectionRefused) ||
		errors.Is(err, ErrDNSResolution) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsAuthError reports missing or rejected credentials.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrMissingCredentials) {
		return true
	}
	pe, ok := asProviderError(err)
	return ok && pe.Category == ErrorCategoryAuth
}

// IsConfigError reports local configuration problems.
func IsConfigError(err error) bool {
	if errors.Is(err, ErrMissingConfig) || errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrProviderNotFound) {
		return true
	}
	pe, ok := asProviderError(err)
	return ok && pe.Category == ErrorCategoryConfig
}

// IsRateLimitError reports backend or local rate limiting.
func IsRateLimitError(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	pe, ok := asProviderError(err)
	return ok && (pe.Category == ErrorCategoryRateLimit || pe.StatusCode == http.StatusTooManyRequests)
}

// IsMalformedResponse checks if an error means the provider answered
// but the payload did not match the expected contract.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrUnsupportedShape)
}

// GetErrorCategory classifies err for logs and metrics.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	if pe, ok := asProviderError(err); ok {
		return pe.Category
	}

	var ve *ValidationError
	switch {
	case errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryTimeout
	case IsNetworkError(err):
		return ErrorCategoryNetwork
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimit
	case IsMalformedResponse(err) || errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrContentBlocked):
		return ErrorCategoryResponse
	case IsAuthError(err):
		return ErrorCategoryAuth
	case IsConfigError(err):
		return ErrorCategoryConfig
	case errors.As(err, &ve):
		return ErrorCategoryValidation
	}
	return ErrorCategoryInternal
}

// WrapNetworkError tags a transport failure with the matching sentinel
// so retry and breaker decisions do not depend on message text.
func WrapNetworkError(err error) error {
	if err == nil {
		return nil
	}

	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return fmt.Errorf("%w: %v", ErrDNSResolution, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	case errors.Is(err, syscall.ENETUNREACH):
		return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	// SDK errors often arrive as plain strings.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	case strings.Contains(msg, "no such host"):
		return fmt.Errorf("%w: %v", ErrDNSResolution, err)
	case strings.Contains(msg, "network is unreachable"):
		return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
