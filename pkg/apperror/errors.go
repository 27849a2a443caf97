package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the AppError code carried by err, or "" when err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Retryable reports whether repeating the same request may succeed without the
// caller changing it. A wrong challenge code can be retried on the same
// challenge; an expired or used challenge cannot.
func Retryable(err error) bool {
	switch code := CodeOf(err); code {
	case "CHAL_005", "CONF_002", "RATE_001":
		return true
	default:
		return strings.HasPrefix(code, "DEP_")
	}
}

// ---- Validation (VAL) ----

func ErrInvalidAmount() *AppError {
	return New("VAL_001", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrSelfTransfer() *AppError {
	return New("VAL_002", "Sender and recipient must differ", http.StatusBadRequest)
}

func ErrAccountNotFound(owner string) *AppError {
	return New("VAL_003", fmt.Sprintf("No account found for owner %s", owner), http.StatusNotFound)
}

func ErrCurrencyMismatch() *AppError {
	return New("VAL_004", "Account currency does not match requested currency", http.StatusBadRequest)
}

func ErrConversionTooSmall() *AppError {
	return New("VAL_005", "Converted amount rounds to zero in destination currency", http.StatusUnprocessableEntity)
}

func ErrAmountPrecision() *AppError {
	return New("VAL_006", "Amount has more than 2 decimal places", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("VAL_007", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Conflicts (CONF) ----

func ErrIdempotencyKeyReused() *AppError {
	return New("CONF_001", "Idempotency key reused with a different payload", http.StatusUnprocessableEntity)
}

func ErrRequestInProgress() *AppError {
	return New("CONF_002", "A request with this idempotency key is still processing", http.StatusConflict)
}

func ErrHoldAlreadyResolved() *AppError {
	return New("CONF_003", "Hold already resolved", http.StatusConflict)
}

func ErrHoldNotPending() *AppError {
	return New("CONF_004", "Transfer is not pending review", http.StatusConflict)
}

// ---- Payment (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient available balance", http.StatusPaymentRequired)
}

func ErrAccountFrozen() *AppError {
	return New("PAY_002", "Account is frozen", http.StatusForbidden)
}

// ---- Risk (RISK) ----

func ErrRiskFrozen() *AppError {
	return New("RISK_001", "Account frozen after risk evaluation", http.StatusForbidden)
}

// ---- Step-up challenge (CHAL) ----

func ErrChallengeNotFound() *AppError {
	return New("CHAL_001", "Challenge not found", http.StatusNotFound)
}

func ErrChallengeExpired() *AppError {
	return New("CHAL_002", "Challenge expired, start over", http.StatusGone)
}

func ErrChallengeNotPending() *AppError {
	return New("CHAL_003", "Challenge already used or expired", http.StatusConflict)
}

func ErrChallengeOwnerMismatch() *AppError {
	return New("CHAL_004", "Challenge belongs to another owner", http.StatusForbidden)
}

func ErrChallengeCodeMismatch() *AppError {
	return New("CHAL_005", "Invalid verification code", http.StatusUnauthorized)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "Insufficient permissions", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Dependencies (DEP) ----

func ErrRateUnavailable(err error) *AppError {
	return Wrap("DEP_001", "Exchange rate unavailable", http.StatusBadGateway, err)
}

func ErrDeliveryFailed(err error) *AppError {
	return Wrap("DEP_002", "Verification code delivery failed", http.StatusBadGateway, err)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_000 validation error with a custom message.
func Validation(message string) *AppError {
	return New("VAL_000", message, http.StatusBadRequest)
}
