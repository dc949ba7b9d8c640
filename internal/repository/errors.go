package repository

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// DuplicateError reports a unique constraint violation on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

func NewDuplicate(field string) error {
	return &DuplicateError{Field: field}
}

// DuplicateField returns the offending field when err is a DuplicateError.
func DuplicateField(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}
