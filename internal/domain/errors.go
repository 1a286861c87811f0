package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every *Error matches exactly one of these with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrExternalProvider = errors.New("external provider error")
	ErrMalformedPayload = errors.New("malformed payload")
)

type ErrorCode string

const (
	CodeInvalidArgument         ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound                ErrorCode = "NOT_FOUND"
	CodeNotOwner                ErrorCode = "NOT_OWNER"
	CodeInsufficientInventory   ErrorCode = "INSUFFICIENT_INVENTORY"
	CodeNotApplicable           ErrorCode = "NOT_APPLICABLE"
	CodePendingPaymentsExist    ErrorCode = "PENDING_PAYMENTS_EXIST"
	CodeAmountMismatch          ErrorCode = "AMOUNT_MISMATCH"
	CodePaymentAlreadyPaid      ErrorCode = "PAYMENT_ALREADY_PAID"
	CodePaymentExpired          ErrorCode = "PAYMENT_EXPIRED"
	CodeSessionMismatch         ErrorCode = "SESSION_MISMATCH"
	CodeRentalClosed            ErrorCode = "RENTAL_CLOSED"
	CodeDuplicate               ErrorCode = "DUPLICATE"
	CodeLockTimeout             ErrorCode = "LOCK_TIMEOUT"
	CodeInvalidSignature        ErrorCode = "INVALID_SIGNATURE"
	CodeProviderUnavailable     ErrorCode = "PROVIDER_UNAVAILABLE"
	CodeMalformedPayload        ErrorCode = "MALFORMED_PAYLOAD"
	CodeMalformedSessionPayload ErrorCode = "MALFORMED_SESSION_PAYLOAD"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    error
	Code    ErrorCode
	Message string
	Fields  []FieldError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable marks errors the caller may retry with backoff. Only lock
// timeouts qualify; the core never retries on its own.
func (e *Error) Retryable() bool {
	return e.Code == CodeLockTimeout
}

// ClientError reports whether the caller, not the system, caused the error.
func (e *Error) ClientError() bool {
	return e.Kind == ErrValidation || e.Kind == ErrConflict || e.Kind == ErrNotFound
}

func NewValidationError(code ErrorCode, msg string, fields ...FieldError) *Error {
	return &Error{Kind: ErrValidation, Code: code, Message: msg, Fields: fields}
}

func NewNotFoundError(entity string, id any) *Error {
	return &Error{Kind: ErrNotFound, Code: CodeNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// NewNotOwnerError hides another user's entity behind the not-found kind.
func NewNotOwnerError(entity string, id any) *Error {
	return &Error{Kind: ErrNotFound, Code: CodeNotOwner, Message: fmt.Sprintf("%s %v does not belong to the caller", entity, id)}
}

func NewConflictError(code ErrorCode, msg string) *Error {
	return &Error{Kind: ErrConflict, Code: code, Message: msg}
}

func NewProviderError(code ErrorCode, msg string, cause error) *Error {
	return &Error{Kind: ErrExternalProvider, Code: code, Message: msg, Cause: cause}
}

func NewMalformedPayloadError(code ErrorCode, msg string, cause error) *Error {
	return &Error{Kind: ErrMalformedPayload, Code: code, Message: msg, Cause: cause}
}

// AmountMismatchError is returned when a provider-reported amount differs
// from the expected amount at full decimal precision.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", CodeAmountMismatch, e.Expected.StringFixed(2), e.Actual.String())
}

func (e *AmountMismatchError) Is(target error) bool {
	return target == ErrConflict
}

func (e *AmountMismatchError) ClientError() bool {
	return true
}

// CodeOf extracts the error code from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	var am *AmountMismatchError
	if errors.As(err, &am) {
		return CodeAmountMismatch
	}
	return ""
}

func IsRetryable(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Retryable()
}
