// Package errors categorizes service failures and maps them to HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/id-scanner/internal/types"
)

// Sentinel causes. Categorized errors wrap them so callers can test with errors.Is.
var (
	ErrQuotaExceeded = stderrors.New("daily scan limit reached")
	ErrPersistence   = stderrors.New("store rejected the write")
	ErrInvalidPlan   = stderrors.New("invalid plan")
	ErrPaymentFailed = stderrors.New("payment failed")
	ErrNotFound      = stderrors.New("not found")
	ErrInvalidInput  = stderrors.New("invalid input")
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryUserInput represents user input errors (4xx)
	CategoryUserInput ErrorCategory = "user_input"
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryDatabase represents database and profile store errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthorization represents authorization errors
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryEntitlement represents plan and quota denials
	CategoryEntitlement ErrorCategory = "entitlement"
	// CategoryPayment represents payment gateway failures
	CategoryPayment ErrorCategory = "payment"
	// CategoryRateLimit represents request rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
		Cause: ErrInvalidInput,
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
		Cause: ErrNotFound,
	}
}

// NewQuotaExceededError reports that the daily scan allowance of plan is used up
func NewQuotaExceededError(plan types.Plan, limit int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryEntitlement,
		StatusCode: http.StatusForbidden,
		Code:       "QUOTA_EXCEEDED",
		Message:    fmt.Sprintf("daily scan limit reached for %s plan (limit: %d)", plan, limit),
		Details: map[string]interface{}{
			"plan":           plan,
			"limit":          limit,
			"remainingScans": 0,
		},
		Cause: ErrQuotaExceeded,
	}
}

// NewInvalidPlanError reports a plan that cannot be purchased
func NewInvalidPlanError(plan string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PLAN",
		Message:    fmt.Sprintf("plan cannot be purchased: %q", plan),
		Details: map[string]interface{}{
			"plan": plan,
		},
		Cause: ErrInvalidPlan,
	}
}

// NewPaymentError reports a charge that did not succeed
func NewPaymentError(status string, cause error) *CategorizedError {
	wrapped := ErrPaymentFailed
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", ErrPaymentFailed, cause)
	}
	return &CategorizedError{
		Category:   CategoryPayment,
		StatusCode: http.StatusPaymentRequired,
		Code:       "PAYMENT_FAILED",
		Message:    fmt.Sprintf("payment was not completed (status: %s)", status),
		Details: map[string]interface{}{
			"status": status,
		},
		Cause: wrapped,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// System Errors (5xx)

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewPersistenceError reports a profile write that did not commit. The
// state computed for the request must be treated as not applied.
func NewPersistenceError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "PERSISTENCE_ERROR",
		Message:    fmt.Sprintf("could not save subscription during %s", operation),
		Cause:      fmt.Errorf("%w: %w", ErrPersistence, cause),
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewPaymentRecordError reports a gateway charge whose payment row did not
// commit. The reference identifies the charge at the gateway.
func NewPaymentRecordError(reference string, cause error) *CategorizedError {
	err := NewPersistenceError("store payment", cause)
	err.Message = fmt.Sprintf("payment %s could not be recorded, retry the upgrade", reference)
	err.Details["reference"] = reference
	return err
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(service string) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    fmt.Sprintf("service unavailable: %s", service),
		Details: map[string]interface{}{
			"service": service,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return categorizeServiceError(svcErr)
	}

	switch {
	case stderrors.Is(err, ErrNotFound):
		return &CategorizedError{Category: CategoryNotFound, StatusCode: http.StatusNotFound, Code: "NOT_FOUND", Message: err.Error(), Cause: err}
	case stderrors.Is(err, ErrInvalidInput), stderrors.Is(err, ErrInvalidPlan):
		return &CategorizedError{Category: CategoryValidation, StatusCode: http.StatusBadRequest, Code: "INVALID_PARAMETER", Message: err.Error(), Cause: err}
	}

	return NewInternalError("unexpected error", err)
}

// categorizeServiceError categorizes a ServiceError
func categorizeServiceError(err *types.ServiceError) *CategorizedError {
	status := http.StatusInternalServerError
	category := CategorySystem
	switch err.Code {
	case "INVALID_PARAMETER", "INVALID_PLAN", "INVALID_CARD":
		status, category = http.StatusBadRequest, CategoryValidation
	case "NOT_FOUND", "USER_NOT_FOUND", "RECORD_NOT_FOUND":
		status, category = http.StatusNotFound, CategoryNotFound
	case "QUOTA_EXCEEDED":
		status, category = http.StatusForbidden, CategoryEntitlement
	case "UNAUTHORIZED":
		status, category = http.StatusUnauthorized, CategoryAuthorization
	case "PAYMENT_FAILED":
		status, category = http.StatusPaymentRequired, CategoryPayment
	}
	return &CategorizedError{
		Category:   category,
		StatusCode: status,
		Code:       err.Code,
		Message:    err.Message,
		Details:    err.Details,
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSystemError determines if an error is a system error (5xx)
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 500
}
