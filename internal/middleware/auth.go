package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"taskflow/internal/auth"
	"taskflow/internal/models/user"
	"taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgNoValidToken  = "Access denied. No valid token provided."
	msgNoToken       = "Access denied. No token provided."
	msgInvalidToken  = "Invalid token."
	msgTokenExpired  = "Token expired."
	msgAuthServer    = "Server error during authentication."
	msgUserNotFound  = "Token is not valid. User not found."
	msgAdminRequired = "Admin access required."
	bearerPrefix     = "Bearer "
)

type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Authenticator resolves bearer tokens to users of the credential store.
type Authenticator struct {
	tokens TokenVerifier
	users  UserLookup
	log    *zap.Logger
}

func NewAuthenticator(tokens TokenVerifier, users UserLookup, log *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, log: log}
}

// authError is a rejected authentication attempt.
type authError struct {
	status  int
	message string
	err     error
}

// Require rejects requests without a valid token of an existing user.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, rejected := a.authenticate(r)
		if rejected != nil {
			fields := []zap.Field{
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("path", r.URL.Path),
				zap.String("reason", rejected.message),
			}
			if rejected.err != nil {
				fields = append(fields, zap.Error(rejected.err))
			}
			if rejected.status >= http.StatusInternalServerError {
				a.log.Error("HTTP: authentication failed", fields...)
			} else {
				a.log.Warn("HTTP: authentication rejected", fields...)
			}
			respondError(w, rejected.status, rejected.message)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// Optional attaches the user when the token is good and never rejects.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, rejected := a.authenticate(r); rejected == nil {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must be mounted after Require.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, msgAdminRequired)
			return
		}
		if !u.IsAdmin() {
			a.log.Warn("HTTP: admin access denied",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("user_id", u.ID.String()),
			)
			respondError(w, http.StatusForbidden, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) authenticate(r *http.Request) (*user.User, *authError) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, &authError{status: http.StatusUnauthorized, message: msgNoValidToken}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return nil, &authError{status: http.StatusUnauthorized, message: msgNoToken}
	}

	userID, err := a.tokens.Verify(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, &authError{status: http.StatusUnauthorized, message: msgTokenExpired}
	case errors.Is(err, auth.ErrTokenInvalid):
		return nil, &authError{status: http.StatusUnauthorized, message: msgInvalidToken}
	case err != nil:
		return nil, &authError{status: http.StatusInternalServerError, message: msgAuthServer, err: err}
	}

	found, err := a.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &authError{status: http.StatusUnauthorized, message: msgUserNotFound}
		}
		return nil, &authError{status: http.StatusInternalServerError, message: msgAuthServer, err: err}
	}
	return found.Public(), nil
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey).(*user.User)
	return u, ok && u != nil
}
