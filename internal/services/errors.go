package services

import (
	"errors"
	"fmt"

	"github.com/studioflow/class-payroll-service/internal/repositories"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidationFailed = validator.ErrValidationFailed
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidToken     = errors.New("invalid or expired token")
)

type (
	ValidationError  = validator.ValidationError
	ValidationErrors = validator.ValidationErrors
)

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value, Rule: "business_logic"}
}

// NotFoundError names the missing resource and unwraps to ErrNotFound
type NotFoundError struct {
	Resource string
	Key      interface{}
}

func NewNotFoundError(resource string, key interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// mapRepoError turns repository sentinels into service errors
func mapRepoError(resource string, key interface{}, err error) error {
	switch {
	case err == nil:
		return nil
	case repositories.IsNotFoundError(err):
		return NewNotFoundError(resource, key)
	case repositories.IsDuplicateError(err):
		return fmt.Errorf("%s already exists: %w", resource, ErrConflict)
	case errors.Is(err, repositories.ErrInUse):
		return fmt.Errorf("%s %v is still referenced: %w", resource, key, ErrConflict)
	default:
		return err
	}
}
