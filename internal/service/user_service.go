package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/models/task"
	"taskflow/internal/models/user"
	"taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type UserService struct {
	users  UserRepository
	tasks  TaskRepository
	hasher PasswordHasher
	log    *zap.Logger
	now    func() time.Time
}

func NewUserService(users UserRepository, tasks TaskRepository, hasher PasswordHasher, log *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		tasks:  tasks,
		hasher: hasher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type ProfileStats struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	PendingTasks      int `json:"pendingTasks"`
	HighPriorityTasks int `json:"highPriorityTasks"`
}

type Profile struct {
	User  *user.User   `json:"user"`
	Stats ProfileStats `json:"stats"`
}

// UpdateProfileInput leaves a field untouched when it is nil.
type UpdateProfileInput struct {
	Username *string
	Email    *string
}

type Export struct {
	ExportedAt time.Time    `json:"exportedAt"`
	User       *user.User   `json:"user"`
	Tasks      []*task.Task `json:"tasks"`
	Statistics *task.Stats  `json:"statistics"`
}

type UserPage struct {
	Users []*user.User
	Total int
	Page  int
	Limit int
}

func (s *UserService) GetUserProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	found, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var stats ProfileStats
	completed, pending := true, false
	counts := []struct {
		dst    *int
		filter task.Filter
	}{
		{&stats.TotalTasks, task.Filter{UserID: userID}},
		{&stats.CompletedTasks, task.Filter{UserID: userID, Completed: &completed}},
		{&stats.PendingTasks, task.Filter{UserID: userID, Completed: &pending}},
		{&stats.HighPriorityTasks, task.Filter{UserID: userID, Priority: task.PriorityHigh}},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := s.tasks.Count(gctx, c.filter)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, NewInternal(fmt.Errorf("counting tasks: %w", err))
	}

	return &Profile{User: found.Public(), Stats: stats}, nil
}

func (s *UserService) UpdateUserProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*user.User, error) {
	found, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var errs fieldErrors
	var username, email string
	if input.Username != nil {
		username = strings.TrimSpace(*input.Username)
		validateUsername(username, &errs)
	}
	if input.Email != nil {
		email = normalizeEmail(*input.Email)
		validateEmail(email, &errs)
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if input.Username != nil && username != found.Username {
		if err := s.ensureFree(s.users.GetByUsername(ctx, username)); err != nil {
			return nil, translateTaken("username", err)
		}
		found.Username = username
	}
	if input.Email != nil && email != found.Email {
		if err := s.ensureFree(s.users.GetByEmail(ctx, email)); err != nil {
			return nil, translateTaken("email", err)
		}
		found.Email = email
	}

	found.UpdatedAt = s.now()
	if err := s.users.Update(ctx, found); err != nil {
		return nil, userStoreError("updating profile", err)
	}
	s.log.Info("Service: profile updated", zap.String("user_id", userID.String()))
	return found.Public(), nil
}

// DeleteUserAccount removes the user's tasks and then the user.
func (s *UserService) DeleteUserAccount(ctx context.Context, userID uuid.UUID, password string) error {
	if password == "" {
		return NewValidationError(FieldError{Field: "password", Message: "Password is required to delete account"})
	}

	found, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(password, found.PasswordHash)
	if err != nil {
		return NewInternal(err)
	}
	if !ok {
		return NewInvalidCredentials("Password is incorrect")
	}

	deleted, err := s.tasks.DeleteByUser(ctx, userID)
	if err != nil {
		return NewInternal(fmt.Errorf("deleting tasks: %w", err))
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return userStoreError("deleting user", err)
	}

	s.log.Info("Service: account deleted", zap.String("user_id", userID.String()), zap.Int64("tasks_deleted", deleted))
	return nil
}

func (s *UserService) ExportUserData(ctx context.Context, userID uuid.UUID) (*Export, error) {
	var (
		found *user.User
		tasks []*task.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		found, err = s.loadUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, _, err = s.tasks.List(gctx, task.Filter{UserID: userID, Sort: task.DefaultSort})
		if err != nil {
			return NewInternal(fmt.Errorf("listing tasks: %w", err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	return &Export{
		ExportedAt: now,
		User:       found.Public(),
		Tasks:      tasks,
		Statistics: task.Summarize(tasks, now),
	}, nil
}

func (s *UserService) SearchUsers(ctx context.Context, query string, page, limit int) (*UserPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError(FieldError{Field: "q", Message: "Search query is required"})
	}
	page, limit = NormalizePage(page, limit)

	users, total, err := s.users.Search(ctx, query, page, limit)
	if err != nil {
		return nil, NewInternal(fmt.Errorf("searching users: %w", err))
	}
	public := make([]*user.User, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return &UserPage{Users: public, Total: total, Page: page, Limit: limit}, nil
}

func (s *UserService) loadUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	found, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("User")
		}
		return nil, NewInternal(fmt.Errorf("loading user: %w", err))
	}
	return found, nil
}

// ensureFree turns a successful lookup into errTaken.
func (s *UserService) ensureFree(_ *user.User, err error) error {
	switch {
	case err == nil:
		return errTaken
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

var errTaken = errors.New("value taken")

func translateTaken(field string, err error) error {
	if errors.Is(err, errTaken) {
		return NewConflict(field)
	}
	return NewInternal(fmt.Errorf("checking %s: %w", field, err))
}
