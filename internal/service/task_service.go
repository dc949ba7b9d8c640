package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/models/task"
	"taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPage    = 1
	DefaultLimit   = 10
	MaxLimit       = 100
	DefaultDueSoon = 7
	MaxDueSoonDays = 365
	taskResource   = "Task"
)

type TaskService struct {
	repo TaskRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewTaskService(repo TaskRepository, log *zap.Logger) *TaskService {
	return &TaskService{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    task.Priority
	Category    string
	Completed   bool
}

type ListTasksInput struct {
	Completed *bool
	Priority  task.Priority
	Category  string
	Search    string
	Status    task.Status
	Sort      task.Sort
	Page      int
	Limit     int
}

type TaskPage struct {
	Tasks []*task.Task
	Total int
	Page  int
	Limit int
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("store health check: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*task.Task, error) {
	now := s.now()
	priority := input.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}

	newTask := &task.Task{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range []task.TaskOption{
		task.WithTitle(input.Title),
		task.WithDescription(input.Description),
		task.WithPriority(priority),
		task.WithCategory(input.Category),
		task.WithDueDate(input.DueDate),
		task.WithCompleted(input.Completed),
	} {
		opt(newTask)
	}

	if err := validateTask(newTask, true, now); err != nil {
		return nil, err
	}
	task.ApplyCompletion(newTask, now)

	if err := s.repo.Create(ctx, newTask); err != nil {
		return nil, s.storeError("creating task", err)
	}
	s.log.Info("Service: task created", zap.String("user_id", userID.String()), zap.String("task_id", newTask.ID.String()))
	return newTask, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	found, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, s.storeError("getting task", err)
	}
	return found, nil
}

// UpdateTask applies options to the stored task. A due date is checked for
// being in the future only when the options change it.
func (s *TaskService) UpdateTask(ctx context.Context, userID, id uuid.UUID, options ...task.TaskOption) (*task.Task, error) {
	found, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, s.storeError("getting task", err)
	}

	previousDue := found.DueDate
	for _, opt := range options {
		opt(found)
	}

	now := s.now()
	if err := validateTask(found, !sameTime(previousDue, found.DueDate), now); err != nil {
		return nil, err
	}
	found.UserID = userID
	found.UpdatedAt = now
	task.ApplyCompletion(found, now)

	if err := s.repo.Update(ctx, found); err != nil {
		return nil, s.storeError("updating task", err)
	}
	return found, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return s.storeError("deleting task", err)
	}
	s.log.Info("Service: task deleted", zap.String("user_id", userID.String()), zap.String("task_id", id.String()))
	return nil
}

func (s *TaskService) ToggleTask(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	found, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, s.storeError("getting task", err)
	}

	now := s.now()
	found.Completed = !found.Completed
	found.UpdatedAt = now
	task.ApplyCompletion(found, now)

	if err := s.repo.Update(ctx, found); err != nil {
		return nil, s.storeError("toggling task", err)
	}
	return found, nil
}

func (s *TaskService) ListTasks(ctx context.Context, userID uuid.UUID, input ListTasksInput) (*TaskPage, error) {
	var errs fieldErrors
	if input.Priority != "" && !input.Priority.Valid() {
		errs.add("priority", "Priority must be low, medium, or high")
	}
	if input.Status != "" && !input.Status.Valid() {
		errs.add("status", "Status must be pending, due-soon, overdue, or completed")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	page, limit := NormalizePage(input.Page, input.Limit)
	sort := input.Sort
	if sort.Field == "" {
		sort = task.DefaultSort
	}

	filter := task.Filter{
		UserID:    userID,
		Completed: input.Completed,
		Priority:  input.Priority,
		Category:  input.Category,
		Search:    input.Search,
		Sort:      sort,
		Page:      page,
		Limit:     limit,
	}
	if input.Status != "" {
		filter.ForStatus(input.Status, s.now())
	}

	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storeError("listing tasks", err)
	}
	return &TaskPage{Tasks: tasks, Total: total, Page: page, Limit: limit}, nil
}

func (s *TaskService) FindOverdueTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	filter := task.Filter{UserID: userID, Sort: task.Sort{Field: task.SortDueDate}}
	filter.ForStatus(task.StatusOverdue, s.now())

	tasks, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storeError("listing overdue tasks", err)
	}
	return tasks, nil
}

// FindDueSoonTasks returns open tasks due between now and now+days inclusive.
func (s *TaskService) FindDueSoonTasks(ctx context.Context, userID uuid.UUID, days int) ([]*task.Task, error) {
	if days < 1 || days > MaxDueSoonDays {
		return nil, NewValidationError(FieldError{
			Field:   "days",
			Message: fmt.Sprintf("Days must be between 1 and %d", MaxDueSoonDays),
		})
	}

	now := s.now()
	until := now.AddDate(0, 0, days)
	notCompleted := false
	filter := task.Filter{
		UserID:    userID,
		Completed: &notCompleted,
		DueFrom:   &now,
		DueTo:     &until,
		Sort:      task.Sort{Field: task.SortDueDate},
	}

	tasks, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storeError("listing due-soon tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) DeleteCompletedTasks(ctx context.Context, userID uuid.UUID) (int64, error) {
	deleted, err := s.repo.DeleteCompleted(ctx, userID)
	if err != nil {
		return 0, s.storeError("deleting completed tasks", err)
	}
	s.log.Info("Service: completed tasks cleared", zap.String("user_id", userID.String()), zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *TaskService) GetTaskStats(ctx context.Context, userID uuid.UUID) (*task.Stats, error) {
	tasks, err := s.allTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return task.Summarize(tasks, s.now()), nil
}

func (s *TaskService) ListCategories(ctx context.Context, userID uuid.UUID) ([]string, error) {
	tasks, err := s.allTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return task.Categories(tasks), nil
}

// SuggestDueDate proposes a due date for priority; medium when empty.
func (s *TaskService) SuggestDueDate(priority task.Priority) (time.Time, error) {
	if priority == "" {
		priority = task.PriorityMedium
	}
	if !priority.Valid() {
		return time.Time{}, NewValidationError(FieldError{Field: "priority", Message: "Priority must be low, medium, or high"})
	}
	return task.CalculateDueDate(priority, s.now()), nil
}

func (s *TaskService) allTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	tasks, _, err := s.repo.List(ctx, task.Filter{UserID: userID, Sort: task.DefaultSort})
	if err != nil {
		return nil, s.storeError("listing tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) storeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Debug("Service: task not found", zap.String("op", op))
		return NewNotFound(taskResource)
	}
	return NewInternal(fmt.Errorf("%s: %w", op, err))
}

// NormalizePage maps page < 1 to 1 and clamps limit to 1..MaxLimit, with
// DefaultLimit for a missing or non-positive limit.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
