package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a BusinessError. The set is closed; the HTTP layer maps
// every value to exactly one status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindInvalidCredentials
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimited:
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type BusinessError struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Kind, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Kind, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func NewBusinessError(kind Kind, message string) *BusinessError {
	return &BusinessError{Kind: kind, Message: message}
}

func NewValidationError(fields ...FieldError) *BusinessError {
	return &BusinessError{
		Kind:    KindValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

func NewNotFound(resource string) *BusinessError {
	return &BusinessError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewConflict names the unique field that is already taken.
func NewConflict(field string) *BusinessError {
	return &BusinessError{
		Kind:    KindConflict,
		Message: fmt.Sprintf("%s already exists", capitalize(field)),
		Fields:  []FieldError{{Field: field, Message: fmt.Sprintf("%s is already taken", capitalize(field))}},
	}
}

func NewInvalidCredentials(message string) *BusinessError {
	return &BusinessError{Kind: KindInvalidCredentials, Message: message}
}

func NewInternal(err error) *BusinessError {
	return &BusinessError{
		Kind:    KindInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// AsBusinessError unwraps err into a BusinessError. Anything else is reported
// as an internal error wrapping err.
func AsBusinessError(err error) *BusinessError {
	var be *BusinessError
	if errors.As(err, &be) {
		return be
	}
	return NewInternal(err)
}

func KindOf(err error) Kind {
	return AsBusinessError(err).Kind
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
