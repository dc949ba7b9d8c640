package service

import (
	"context"

	"taskflow/internal/models/task"
	"taskflow/internal/models/user"

	"github.com/google/uuid"
)

// TaskRepository is implemented by every task store. Lookups and deletes are
// scoped to the owner; a task of another user is reported as not found.
type TaskRepository interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context, t *task.Task) error
	Update(ctx context.Context, t *task.Task) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*task.Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, filter task.Filter) ([]*task.Task, int, error)
	Count(ctx context.Context, filter task.Filter) (int, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	Update(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, page, limit int) ([]*user.User, int, error)
}

type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
	VerifyDummy(password string)
}
