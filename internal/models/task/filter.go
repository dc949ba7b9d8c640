package task

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Filter selects tasks of a single user. Zero values mean "any".
type Filter struct {
	UserID    uuid.UUID
	Completed *bool
	Priority  Priority
	Category  string
	Search    string

	// DueFrom and DueTo bound the due date inclusively.
	DueFrom *time.Time
	DueTo   *time.Time
	// DueBefore is a strict upper bound.
	DueBefore *time.Time
	// DueAfterOrNone matches tasks without a due date or due strictly after it.
	DueAfterOrNone *time.Time

	Sort Sort
	// Limit 0 returns every match.
	Page  int
	Limit int
}

type SortField string

const SortCreatedAt SortField = "createdAt"
const SortDueDate SortField = "dueDate"
const SortPriority SortField = "priority"
const SortTitle SortField = "title"

type Sort struct {
	Field SortField
	Desc  bool
}

var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

// ParseSort reads "field" or "-field". ok is false for unknown fields.
func ParseSort(raw string) (Sort, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, true
	}
	s := Sort{}
	if strings.HasPrefix(raw, "-") {
		s.Desc = true
		raw = raw[1:]
	}
	switch SortField(raw) {
	case SortCreatedAt, SortDueDate, SortPriority, SortTitle:
		s.Field = SortField(raw)
		return s, true
	}
	return DefaultSort, false
}

// ForStatus narrows the filter to tasks whose derived status is st at now.
func (f *Filter) ForStatus(st Status, now time.Time) {
	notCompleted := false
	switch st {
	case StatusCompleted:
		completed := true
		f.Completed = &completed
	case StatusOverdue:
		f.Completed = &notCompleted
		f.DueBefore = &now
	case StatusDueSoon:
		until := now.Add(DueSoonWindow)
		f.Completed = &notCompleted
		f.DueFrom = &now
		f.DueTo = &until
	case StatusPending:
		until := now.Add(DueSoonWindow)
		f.Completed = &notCompleted
		f.DueAfterOrNone = &until
	}
}

func (f *Filter) Offset() int {
	if f.Limit <= 0 || f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

func (f *Filter) Match(t *Task) bool {
	if t.UserID != f.UserID {
		return false
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if f.DueFrom != nil || f.DueTo != nil || f.DueBefore != nil {
		if t.DueDate == nil {
			return false
		}
		if f.DueFrom != nil && t.DueDate.Before(*f.DueFrom) {
			return false
		}
		if f.DueTo != nil && t.DueDate.After(*f.DueTo) {
			return false
		}
		if f.DueBefore != nil && !t.DueDate.Before(*f.DueBefore) {
			return false
		}
	}
	if f.DueAfterOrNone != nil && t.DueDate != nil && !t.DueDate.After(*f.DueAfterOrNone) {
		return false
	}
	return true
}

// SortTasks orders tasks in place. Tasks without a due date go last when
// sorting by due date, in either direction.
func SortTasks(tasks []*Task, s Sort) {
	less := func(a, b *Task) bool {
		switch s.Field {
		case SortDueDate:
			return a.DueDate.Before(*b.DueDate)
		case SortPriority:
			return a.Priority.Rank() < b.Priority.Rank()
		case SortTitle:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if s.Field == SortDueDate && (a.DueDate == nil || b.DueDate == nil) {
			return a.DueDate != nil && b.DueDate == nil
		}
		if s.Desc {
			return less(b, a)
		}
		return less(a, b)
	})
}
