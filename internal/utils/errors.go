// internal/utils/errors.go
package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation       ErrorKind = "VALIDATION_ERROR"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindStock            ErrorKind = "INSUFFICIENT_STOCK"
	KindAlreadyDelivered ErrorKind = "ALREADY_DELIVERED"
	KindUnauthorized     ErrorKind = "UNAUTHORIZED"
	KindForbidden        ErrorKind = "FORBIDDEN"
	KindConflict         ErrorKind = "CONFLICT"
	KindExternalService  ErrorKind = "EXTERNAL_SERVICE_ERROR"
	KindInternal         ErrorKind = "INTERNAL_ERROR"
)

// AppError is the discriminated failure returned by services.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindAlreadyDelivered:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStock, KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

func NewStockError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindStock, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewAlreadyDeliveredError(err error) *AppError {
	return &AppError{Kind: KindAlreadyDelivered, Message: "This order has already been delivered", Err: err}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewExternalServiceError(service string, err error) *AppError {
	return &AppError{Kind: KindExternalService, Message: service + " request failed", Err: err}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal for anything that is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
