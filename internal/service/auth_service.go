package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/models/user"
	"taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgInvalidLogin = "Invalid email or password"

type AuthService struct {
	users  UserRepository
	tokens TokenIssuer
	hasher PasswordHasher
	admins map[string]struct{}
	log    *zap.Logger
}

func NewAuthService(users UserRepository, tokens TokenIssuer, hasher PasswordHasher, adminEmails []string, log *zap.Logger) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[normalizeEmail(email)] = struct{}{}
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		admins: admins,
		log:    log,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  *user.User
	Token string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)

	var errs fieldErrors
	validateUsername(username, &errs)
	validateEmail(email, &errs)
	validatePassword("password", input.Password, &errs)
	if err := errs.err(); err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, email, username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, NewInternal(err)
	}

	role := user.RoleUser
	if _, ok := s.admins[email]; ok {
		role = user.RoleAdmin
	}

	now := time.Now().UTC()
	newUser := &user.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, newUser); err != nil {
		return nil, userStoreError("creating user", err)
	}
	s.log.Info("Service: user registered", zap.String("user_id", newUser.ID.String()), zap.String("role", string(role)))

	return s.authResult(newUser)
}

// Login never reveals whether the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	var errs fieldErrors
	if email == "" {
		errs.add("email", "Email is required")
	}
	if input.Password == "" {
		errs.add("password", "Password is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	found, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(input.Password)
			return nil, NewInvalidCredentials(msgInvalidLogin)
		}
		return nil, NewInternal(fmt.Errorf("loading user: %w", err))
	}

	ok, err := s.hasher.Verify(input.Password, found.PasswordHash)
	if err != nil {
		return nil, NewInternal(err)
	}
	if !ok {
		s.log.Debug("Service: password mismatch", zap.String("user_id", found.ID.String()))
		return nil, NewInvalidCredentials(msgInvalidLogin)
	}

	return s.authResult(found)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	var errs fieldErrors
	if currentPassword == "" {
		errs.add("currentPassword", "Current password is required")
	}
	validatePassword("newPassword", newPassword, &errs)
	if err := errs.err(); err != nil {
		return err
	}

	found, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(currentPassword, found.PasswordHash)
	if err != nil {
		return NewInternal(err)
	}
	if !ok {
		return NewInvalidCredentials("Current password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return NewInternal(err)
	}
	found.PasswordHash = hash
	found.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, found); err != nil {
		return userStoreError("updating password", err)
	}
	s.log.Info("Service: password changed", zap.String("user_id", userID.String()))
	return nil
}

// RefreshToken issues a fresh token to an already authenticated user.
func (s *AuthService) RefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", NewInternal(err)
	}
	return token, nil
}

func (s *AuthService) CheckEmailAvailability(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	var errs fieldErrors
	validateEmail(email, &errs)
	if err := errs.err(); err != nil {
		return false, err
	}
	return s.available(s.users.GetByEmail(ctx, email))
}

func (s *AuthService) CheckUsernameAvailability(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	var errs fieldErrors
	validateUsername(username, &errs)
	if err := errs.err(); err != nil {
		return false, err
	}
	return s.available(s.users.GetByUsername(ctx, username))
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	found, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return found.Public(), nil
}

func (s *AuthService) available(_ *user.User, err error) (bool, error) {
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, repository.ErrNotFound):
		return true, nil
	default:
		return false, NewInternal(err)
	}
}

func (s *AuthService) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return NewConflict("email")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return NewInternal(fmt.Errorf("checking email: %w", err))
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return NewConflict("username")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return NewInternal(fmt.Errorf("checking username: %w", err))
	}
	return nil
}

func (s *AuthService) loadUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	found, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("User")
		}
		return nil, NewInternal(fmt.Errorf("loading user: %w", err))
	}
	return found, nil
}

func (s *AuthService) authResult(u *user.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, NewInternal(err)
	}
	return &AuthResult{User: u.Public(), Token: token}, nil
}

// userStoreError translates store failures on user writes.
func userStoreError(op string, err error) error {
	if field, ok := repository.DuplicateField(err); ok {
		return NewConflict(field)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return NewNotFound("User")
	}
	return NewInternal(fmt.Errorf("%s: %w", op, err))
}
