package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"userId" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty" db:"due_date"`
	Priority    Priority   `json:"priority" db:"priority"`
	Category    string     `json:"category" db:"category"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completedAt" db:"completed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

type Priority string
type Status string

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"

const StatusPending Status = "pending"
const StatusDueSoon Status = "due-soon"
const StatusOverdue Status = "overdue"
const StatusCompleted Status = "completed"

const DefaultCategory = "uncategorized"

// DueSoonWindow is how far ahead a due date still counts as due-soon.
const DueSoonWindow = 7 * 24 * time.Hour

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
	MaxCategoryLength    = 50
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities for sorting, high first when descending.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDueSoon, StatusOverdue, StatusCompleted:
		return true
	}
	return false
}

// DeriveStatus computes the read-side status of a task. Completed always wins.
func DeriveStatus(completed bool, dueDate *time.Time, now time.Time) Status {
	if completed {
		return StatusCompleted
	}
	if dueDate == nil {
		return StatusPending
	}
	if dueDate.Before(now) {
		return StatusOverdue
	}
	if !dueDate.After(now.Add(DueSoonWindow)) {
		return StatusDueSoon
	}
	return StatusPending
}

func (t *Task) Status(now time.Time) Status {
	return DeriveStatus(t.Completed, t.DueDate, now)
}

// ApplyCompletion keeps CompletedAt in step with Completed. It must run right
// before every persist of a task.
func ApplyCompletion(t *Task, now time.Time) {
	if !t.Completed {
		t.CompletedAt = nil
		return
	}
	if t.CompletedAt == nil {
		completedAt := now
		t.CompletedAt = &completedAt
	}
}

// CalculateDueDate suggests a due date for a priority. Nothing enforces it.
func CalculateDueDate(priority Priority, now time.Time) time.Time {
	switch priority {
	case PriorityHigh:
		return now.AddDate(0, 0, 1)
	case PriorityLow:
		return now.AddDate(0, 0, 7)
	default:
		return now.AddDate(0, 0, 3)
	}
}

func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		c.CompletedAt = &completedAt
	}
	return &c
}
