package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Stable machine-readable error codes surfaced to API callers.
const (
	CodeTicketNotFound         = "ticket-not-found"
	CodeStatusNotFound         = "status-not-found"
	CodeActionNotFound         = "action-not-found"
	CodeUserNotFound           = "user-not-found"
	CodeTenantNotFound         = "tenant-not-found"
	CodeTargetUserNotFound     = "target-user-not-found"
	CodeInvalidStatusForAction = "invalid-status-for-action"
	CodeDefaultStatusAction    = "default-status-action"
	CodeMissingTargetStatus    = "missing-target-status"
	CodeInvalidTransition      = "invalid-status-transition"
	CodeNoNextTargetUser       = "no-next-target-user"
	CodeInvalidOrderPosition   = "invalid-order-position"
	CodeNotTicketRequester     = "not-ticket-requester"
	CodeNotCurrentTargetUser   = "not-current-target-user"
	CodeDuplicateCustomID      = "duplicate-custom-id"
)

// DomainError standardizes application errors. Code is stable and
// machine-readable; HTTPStatus is what callers map it to.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("validation-failed", message, http.StatusBadRequest, details)
}

// NewNotFound builds a 404 with a stable code such as CodeTicketNotFound.
func NewNotFound(code, message string, details map[string]any) error {
	return NewDomainError(code, message, http.StatusNotFound, details)
}

// NewForbidden builds a 403 for legal-but-disallowed operations.
func NewForbidden(code, message string) error {
	return NewDomainError(code, message, http.StatusForbidden, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError("unauthorized", message, http.StatusUnauthorized, nil)
}

// NewConflict marks invariant violations; these are fatal, not retried.
func NewConflict(code, message string, details map[string]any) error {
	return NewDomainError(code, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "internal-error",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &DomainError{
			Code:       "not-found",
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
		}
	}
	return &DomainError{
		Code:       "internal-error",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsNoRows reports whether err is the pgx empty-result sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
