package task

import (
	"strings"
	"time"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = strings.TrimSpace(title)
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = strings.TrimSpace(description)
	}
}

func WithPriority(priority Priority) TaskOption {
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithCategory(category string) TaskOption {
	return func(task *Task) {
		category = strings.TrimSpace(category)
		if category == "" {
			category = DefaultCategory
		}
		task.Category = category
	}
}

// WithDueDate sets or, with nil, clears the due date.
func WithDueDate(dueDate *time.Time) TaskOption {
	return func(task *Task) {
		if dueDate == nil {
			task.DueDate = nil
			return
		}
		due := dueDate.UTC()
		task.DueDate = &due
	}
}

func WithCompleted(completed bool) TaskOption {
	return func(task *Task) {
		task.Completed = completed
	}
}
