package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"taskflow/internal/models/task"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	minPasswordLength = 6
	maxPasswordLength = 128
	maxEmailLength    = 254
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type fieldErrors []FieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, FieldError{Field: field, Message: message})
}

// err returns nil when nothing was collected.
func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return NewValidationError(f...)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(username string, errs *fieldErrors) {
	switch n := utf8.RuneCountInString(username); {
	case username == "":
		errs.add("username", "Username is required")
	case n < minUsernameLength || n > maxUsernameLength:
		errs.add("username", fmt.Sprintf("Username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	case !usernameRegex.MatchString(username):
		errs.add("username", "Username can only contain letters, numbers and underscores")
	}
}

// validateEmail expects an already normalized address.
func validateEmail(email string, errs *fieldErrors) {
	if email == "" {
		errs.add("email", "Email is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLength || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		errs.add("email", "Please provide a valid email")
	}
}

func validatePassword(field, password string, errs *fieldErrors) {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		errs.add(field, fmt.Sprintf("Password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
		return
	}

	var hasLetter, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		errs.add(field, "Password must contain at least one letter and one number")
	}
}

// validateTask checks a task about to be persisted. The due date is only
// required to lie in the future when checkDueDate is set.
func validateTask(t *task.Task, checkDueDate bool, now time.Time) error {
	var errs fieldErrors

	switch n := utf8.RuneCountInString(t.Title); {
	case n == 0:
		errs.add("title", "Task title is required")
	case n > task.MaxTitleLength:
		errs.add("title", fmt.Sprintf("Title cannot exceed %d characters", task.MaxTitleLength))
	}
	if utf8.RuneCountInString(t.Description) > task.MaxDescriptionLength {
		errs.add("description", fmt.Sprintf("Description cannot exceed %d characters", task.MaxDescriptionLength))
	}
	if utf8.RuneCountInString(t.Category) > task.MaxCategoryLength {
		errs.add("category", fmt.Sprintf("Category cannot exceed %d characters", task.MaxCategoryLength))
	}
	if !t.Priority.Valid() {
		errs.add("priority", "Priority must be low, medium, or high")
	}
	if checkDueDate && t.DueDate != nil && !t.DueDate.After(now) {
		errs.add("dueDate", "Due date must be in the future")
	}

	return errs.err()
}
