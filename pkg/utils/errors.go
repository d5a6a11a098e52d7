package utils

import (
	"errors"
	"net/http"
)

// ErrInvalidInput marks request-level problems found before the core runs.
var ErrInvalidInput = errors.New("invalid input")

// API error codes.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeOptimization = "OPTIMIZATION_ERROR"
	ErrCodeSolver       = "SOLVER_ERROR"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[string]int{
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeOptimization: http.StatusInternalServerError,
	ErrCodeSolver:       http.StatusBadGateway,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,
}

// AppError is the error body returned by the API. Status defaults from Code
// and can be overridden with WithStatus.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"-"`
}

func NewAppError(code, message string, details ...string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	e := &AppError{Code: code, Message: message, Status: status}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

// WithStatus returns a copy of e answered with status.
func (e *AppError) WithStatus(status int) *AppError {
	cp := *e
	cp.Status = status
	return &cp
}

func (e *AppError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Details == "" {
		return msg
	}
	return msg + " - " + e.Details
}
