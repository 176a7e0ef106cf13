package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error with a stable code. HTTPStatus maps the
// error onto the collaborator REST surface; transport-local errors carry the
// closest equivalent.
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

// ---- Transport (TRN) ----

func ErrConnectFailed(err error) *AppError {
	return Wrap("TRN_001", "Failed to open sync connection", http.StatusBadGateway, err)
}

func ErrNotConnected() *AppError {
	return New("TRN_002", "Sync connection is not established", http.StatusServiceUnavailable)
}

func ErrReconnectExhausted() *AppError {
	return New("TRN_003", "Reconnect attempts exhausted", http.StatusServiceUnavailable)
}

// ---- Protocol (PRO) ----

func ErrMalformedFrame(err error) *AppError {
	return Wrap("PRO_001", "Malformed sync frame", http.StatusBadRequest, err)
}

// ---- Escrow state machine (STM) ----

func ErrInvalidTransition(action string, status string) *AppError {
	return New("STM_001",
		fmt.Sprintf("Action %q is not permitted while escrow is %s", action, status),
		http.StatusConflict)
}

func ErrEscrowNotTracked(escrowID string) *AppError {
	return New("STM_002",
		fmt.Sprintf("Escrow %s is not tracked locally", escrowID),
		http.StatusNotFound)
}

// ---- Matchmaking (MCH) ----

func ErrMalformedCode() *AppError {
	return New("MCH_001", "Escrow code must be exactly 6 alphanumeric characters", http.StatusBadRequest)
}

func ErrCodeNotFound() *AppError {
	return New("MCH_002", "No escrow found for this code", http.StatusNotFound)
}

func ErrCodeConsumed() *AppError {
	return New("MCH_003", "Escrow code has already been used", http.StatusConflict)
}

func ErrSelfJoin() *AppError {
	return New("MCH_004", "Cannot join an escrow you created", http.StatusConflict)
}

// ---- Escrow records (ESC) ----

func ErrInvalidAmount() *AppError {
	return New("ESC_001", "Amount must be a positive number of paise", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("ESC_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrNotConfirmable(status string) *AppError {
	return New("ESC_003",
		fmt.Sprintf("Escrow is not in a confirmable status: %s", status),
		http.StatusConflict)
}

func ErrAlreadyConfirmed() *AppError {
	return New("ESC_004", "Party has already confirmed this escrow", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request-shape validation error.
func Validation(message string) *AppError {
	return New("SYS_002", message, http.StatusBadRequest)
}

func ErrRateLimitExceeded() *AppError {
	return New("SYS_003", "Rate limit exceeded", http.StatusTooManyRequests)
}

// FromStatus maps an HTTP status with no recognisable error body onto the
// closest coded error.
func FromStatus(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	switch status {
	case http.StatusUnauthorized:
		return New("AUTH_002", message, status)
	case http.StatusNotFound:
		return New("ESC_002", message, status)
	case http.StatusConflict:
		return New("ESC_003", message, status)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return New("SYS_002", message, status)
	default:
		return New("SYS_001", message, status)
	}
}
