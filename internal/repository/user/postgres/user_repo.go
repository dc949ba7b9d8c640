package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/database"
	"taskflow/internal/logger"
	"taskflow/internal/models/user"
	repo "taskflow/internal/repository"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const userColumns = "id, username, email, password_hash, role, created_at, updated_at"

// constraintFields maps unique constraints to the field they guard.
var constraintFields = map[string]string{
	"users_username_key": "username",
	"users_email_key":    "email",
}

type UserStorage struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	sb   sq.StatementBuilderType
}

func NewUserStorage(pool *pgxpool.Pool, log *zap.Logger) *UserStorage {
	return &UserStorage{
		pool: pool,
		log:  log,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *UserStorage) Create(ctx context.Context, userToCreate *user.User) error {
	defer logger.WarnIfSlow(s.log, "user.create", time.Now())

	query := `INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		userToCreate.ID,
		userToCreate.Username,
		userToCreate.Email,
		userToCreate.PasswordHash,
		string(userToCreate.Role),
		userToCreate.CreatedAt,
		userToCreate.UpdatedAt,
	)
	if err != nil {
		return translate("inserting user", err)
	}
	return nil
}

func (s *UserStorage) Update(ctx context.Context, userToUpdate *user.User) error {
	defer logger.WarnIfSlow(s.log, "user.update", time.Now())

	query := `UPDATE users
			SET username = $1,
				email = $2,
				password_hash = $3,
				role = $4,
				updated_at = $5
			WHERE id = $6`

	tag, err := s.pool.Exec(ctx, query,
		userToUpdate.Username,
		userToUpdate.Email,
		userToUpdate.PasswordHash,
		string(userToUpdate.Role),
		userToUpdate.UpdatedAt,
		userToUpdate.ID,
	)
	if err != nil {
		return translate("updating user", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *UserStorage) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.getBy(ctx, "id", id)
}

func (s *UserStorage) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.getBy(ctx, "email", email)
}

func (s *UserStorage) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getBy(ctx, "username", username)
}

func (s *UserStorage) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// Search matches username or email case-insensitively, ordered by username
func (s *UserStorage) Search(ctx context.Context, query string, page, limit int) ([]*user.User, int, error) {
	defer logger.WarnIfSlow(s.log, "user.search", time.Now())

	pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query) + "%"
	where := sq.Or{sq.ILike{"username": pattern}, sq.ILike{"email": pattern}}

	countSQL, countArgs, err := s.sb.Select("COUNT(*)").From("users").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building count query: %w", err)
	}
	var total int
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	selectSQL, args, err := s.sb.Select(userColumns).
		From("users").
		Where(where).
		OrderBy("username ASC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building search query: %w", err)
	}

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating users: %w", err)
	}
	return users, total, nil
}

func (s *UserStorage) getBy(ctx context.Context, column string, value any) (*user.User, error) {
	defer logger.WarnIfSlow(s.log, "user.get_by_"+column, time.Now())

	query, args, err := s.sb.Select(userColumns).From("users").Where(sq.Eq{column: value}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	found, err := scanUser(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("getting user by %s: %w", column, err)
	}
	return found, nil
}

func translate(op string, err error) error {
	if constraint, ok := database.UniqueViolation(err); ok {
		if field, known := constraintFields[constraint]; known {
			return repo.NewDuplicate(field)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u    user.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
