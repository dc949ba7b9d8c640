package handlers

import (
	"context"
	"time"

	"taskflow/internal/models/task"
	"taskflow/internal/models/user"
	"taskflow/internal/service"

	"github.com/google/uuid"
)

type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (*service.AuthResult, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	RefreshToken(ctx context.Context, userID uuid.UUID) (string, error)
	CheckEmailAvailability(ctx context.Context, email string) (bool, error)
	CheckUsernameAvailability(ctx context.Context, username string) (bool, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*user.User, error)
}

type TaskService interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, userID uuid.UUID, input service.CreateTaskInput) (*task.Task, error)
	GetTask(ctx context.Context, userID, id uuid.UUID) (*task.Task, error)
	UpdateTask(ctx context.Context, userID, id uuid.UUID, options ...task.TaskOption) (*task.Task, error)
	DeleteTask(ctx context.Context, userID, id uuid.UUID) error
	ToggleTask(ctx context.Context, userID, id uuid.UUID) (*task.Task, error)
	ListTasks(ctx context.Context, userID uuid.UUID, input service.ListTasksInput) (*service.TaskPage, error)
	FindOverdueTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error)
	FindDueSoonTasks(ctx context.Context, userID uuid.UUID, days int) ([]*task.Task, error)
	DeleteCompletedTasks(ctx context.Context, userID uuid.UUID) (int64, error)
	GetTaskStats(ctx context.Context, userID uuid.UUID) (*task.Stats, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]string, error)
	SuggestDueDate(priority task.Priority) (time.Time, error)
}

type UserService interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*service.Profile, error)
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, input service.UpdateProfileInput) (*user.User, error)
	DeleteUserAccount(ctx context.Context, userID uuid.UUID, password string) error
	ExportUserData(ctx context.Context, userID uuid.UUID) (*service.Export, error)
	SearchUsers(ctx context.Context, query string, page, limit int) (*service.UserPage, error)
}

var (
	_ AuthService = (*service.AuthService)(nil)
	_ TaskService = (*service.TaskService)(nil)
	_ UserService = (*service.UserService)(nil)
)
