package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"taskflow/internal/models/task"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// OptionalTime tells an absent field apart from an explicit null. It accepts
// RFC 3339 timestamps and plain dates.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dueDate must be a string: %w", err)
	}
	if raw == "" {
		o.Value = nil
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, dateLayout} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			o.Value = &parsed
			return nil
		}
	}
	return fmt.Errorf("dueDate %q is not a valid date", raw)
}

type CreateTaskRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DueDate     OptionalTime  `json:"dueDate"`
	Priority    task.Priority `json:"priority"`
	Category    string        `json:"category"`
	Completed   bool          `json:"completed"`
}

type UpdateTaskRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	DueDate     OptionalTime   `json:"dueDate"`
	Priority    *task.Priority `json:"priority,omitempty"`
	Category    *string        `json:"category,omitempty"`
	Completed   *bool          `json:"completed,omitempty"`
}

// Options turns the supplied fields into task options.
func (r UpdateTaskRequest) Options() []task.TaskOption {
	var options []task.TaskOption
	if r.Title != nil {
		options = append(options, task.WithTitle(*r.Title))
	}
	if r.Description != nil {
		options = append(options, task.WithDescription(*r.Description))
	}
	if r.DueDate.Set {
		options = append(options, task.WithDueDate(r.DueDate.Value))
	}
	if r.Priority != nil {
		options = append(options, task.WithPriority(*r.Priority))
	}
	if r.Category != nil {
		options = append(options, task.WithCategory(*r.Category))
	}
	if r.Completed != nil {
		options = append(options, task.WithCompleted(*r.Completed))
	}
	return options
}

type TaskResponse struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"userId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DueDate     *time.Time    `json:"dueDate"`
	Priority    task.Priority `json:"priority"`
	Category    string        `json:"category"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completedAt"`
	Status      task.Status   `json:"status"`
	IsOverdue   bool          `json:"isOverdue"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func FromTask(t *task.Task, now time.Time) TaskResponse {
	status := t.Status(now)
	return TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Category:    t.Category,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		Status:      status,
		IsOverdue:   status == task.StatusOverdue,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}

type SuggestedDueDateResponse struct {
	Priority task.Priority `json:"priority"`
	DueDate  time.Time     `json:"dueDate"`
}

type DeletedCountResponse struct {
	Deleted int64 `json:"deleted"`
}
