package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const taskColumns = "id, user_id, title, description, due_date, priority, category, completed, completed_at, created_at, updated_at"

const priorityRank = "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END"

type TaskStorage struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	sb   sq.StatementBuilderType
}

func NewTaskStorage(pool *pgxpool.Pool, log *zap.Logger) *TaskStorage {
	return &TaskStorage{
		pool: pool,
		log:  log,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	defer logger.WarnIfSlow(s.log, "task.create", time.Now())

	query := `INSERT INTO tasks
				(id, user_id, title, description, due_date, priority, category, completed, completed_at, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		taskToCreate.ID,
		taskToCreate.UserID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.DueDate,
		string(taskToCreate.Priority),
		taskToCreate.Category,
		taskToCreate.Completed,
		taskToCreate.CompletedAt,
		taskToCreate.CreatedAt,
		taskToCreate.UpdatedAt,
	)
	if err != nil {
		s.log.Error("Repository: inserting task failed", zap.String("task_id", taskToCreate.ID.String()), zap.Error(err))
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of a task owned by taskToUpdate.UserID.
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	defer logger.WarnIfSlow(s.log, "task.update", time.Now())

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				due_date = $3,
				priority = $4,
				category = $5,
				completed = $6,
				completed_at = $7,
				updated_at = $8
			WHERE id = $9 AND user_id = $10`

	tag, err := s.pool.Exec(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.DueDate,
		string(taskToUpdate.Priority),
		taskToUpdate.Category,
		taskToUpdate.Completed,
		taskToUpdate.CompletedAt,
		taskToUpdate.UpdatedAt,
		taskToUpdate.ID,
		taskToUpdate.UserID,
	)
	if err != nil {
		s.log.Error("Repository: updating task failed", zap.String("task_id", taskToUpdate.ID.String()), zap.Error(err))
		return fmt.Errorf("updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	defer logger.WarnIfSlow(s.log, "task.get", time.Now())

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	found, err := scanTask(s.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return found, nil
}

func (s *TaskStorage) Delete(ctx context.Context, userID, id uuid.UUID) error {
	defer logger.WarnIfSlow(s.log, "task.delete", time.Now())

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// List returns one page of matches plus the total number of matches
func (s *TaskStorage) List(ctx context.Context, filter task.Filter) ([]*task.Task, int, error) {
	defer logger.WarnIfSlow(s.log, "task.list", time.Now())

	total, err := s.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	builder := s.sb.Select(taskColumns).
		From("tasks").
		Where(whereClause(filter)).
		OrderBy(orderBy(filter.Sort)...)
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset()))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("Repository: listing tasks failed", zap.Error(err))
		return nil, 0, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, total, nil
}

func (s *TaskStorage) Count(ctx context.Context, filter task.Filter) (int, error) {
	query, args, err := s.sb.Select("COUNT(*)").
		From("tasks").
		Where(whereClause(filter)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count query: %w", err)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return count, nil
}

func (s *TaskStorage) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting user tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *TaskStorage) DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1 AND completed`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting completed tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func whereClause(f task.Filter) sq.And {
	where := sq.And{sq.Eq{"user_id": f.UserID}}

	if f.Completed != nil {
		where = append(where, sq.Eq{"completed": *f.Completed})
	}
	if f.Priority != "" {
		where = append(where, sq.Eq{"priority": string(f.Priority)})
	}
	if f.Category != "" {
		where = append(where, sq.Expr("LOWER(category) = LOWER(?)", f.Category))
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		})
	}
	if f.DueFrom != nil {
		where = append(where, sq.GtOrEq{"due_date": *f.DueFrom})
	}
	if f.DueTo != nil {
		where = append(where, sq.LtOrEq{"due_date": *f.DueTo})
	}
	if f.DueBefore != nil {
		where = append(where, sq.Lt{"due_date": *f.DueBefore})
	}
	if f.DueAfterOrNone != nil {
		where = append(where, sq.Or{
			sq.Eq{"due_date": nil},
			sq.Gt{"due_date": *f.DueAfterOrNone},
		})
	}
	return where
}

// orderBy mirrors task.SortTasks: missing due dates go last in both directions
// and ties fall back to insertion order.
func orderBy(s task.Sort) []string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}

	switch s.Field {
	case task.SortDueDate:
		return []string{"due_date " + dir + " NULLS LAST", "created_at ASC"}
	case task.SortPriority:
		return []string{priorityRank + " " + dir, "created_at ASC"}
	case task.SortTitle:
		return []string{"LOWER(title) " + dir, "created_at ASC"}
	default:
		return []string{"created_at " + dir}
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t        task.Task
		priority string
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&priority,
		&t.Category,
		&t.Completed,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = task.Priority(priority)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.DueDate != nil {
		due := t.DueDate.UTC()
		t.DueDate = &due
	}
	if t.CompletedAt != nil {
		completedAt := t.CompletedAt.UTC()
		t.CompletedAt = &completedAt
	}
	return &t, nil
}
