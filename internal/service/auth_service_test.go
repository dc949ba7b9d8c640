package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/models/user"
	"taskflow/internal/repository"
	userinmemory "taskflow/internal/repository/user/inmemory"
	"taskflow/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTokenService() *auth.TokenService {
	return auth.NewTokenService(config.AuthConfig{
		JWTSecret: "service-test-secret-0123456789",
		TokenTTL:  time.Hour,
		Issuer:    "taskflow-api",
		Audience:  "taskflow-client",
	})
}

type AuthServiceSuite struct {
	suite.Suite
	ctx    context.Context
	users  *userinmemory.UserStorage
	tokens *auth.TokenService
	svc    *service.AuthService
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.users = userinmemory.NewUserStorage()
	s.tokens = newTokenService()
	s.svc = service.NewAuthService(
		s.users,
		s.tokens,
		auth.NewPasswordHasher(bcrypt.MinCost),
		[]string{"Boss@Example.com"},
		zap.NewNop(),
	)
}

func (s *AuthServiceSuite) register(username, email string) *service.AuthResult {
	res, err := s.svc.Register(s.ctx, service.RegisterInput{Username: username, Email: email, Password: "secret123"})
	s.Require().NoError(err)
	return res
}

func (s *AuthServiceSuite) TestRegister_IssuesVerifiableToken() {
	res := s.register("alice", "  Alice@Example.com ")

	s.Equal("alice@example.com", res.User.Email)
	s.Equal(user.RoleUser, res.User.Role)
	s.Empty(res.User.PasswordHash)

	userID, err := s.tokens.Verify(res.Token)
	s.Require().NoError(err)
	s.Equal(res.User.ID, userID)

	stored, err := s.users.GetByID(s.ctx, userID)
	s.Require().NoError(err)
	s.NotEmpty(stored.PasswordHash)
	s.NotEqual("secret123", stored.PasswordHash)
}

func (s *AuthServiceSuite) TestRegister_AdminEmail() {
	res := s.register("boss", "boss@example.com")
	s.Equal(user.RoleAdmin, res.User.Role)
}

func (s *AuthServiceSuite) TestRegister_Conflicts() {
	s.register("alice", "alice@example.com")

	_, err := s.svc.Register(s.ctx, service.RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret123"})
	assertConflict(s.T(), err, "username")

	_, err = s.svc.Register(s.ctx, service.RegisterInput{Username: "bob", Email: "ALICE@example.com", Password: "secret123"})
	assertConflict(s.T(), err, "email")
}

func (s *AuthServiceSuite) TestRegister_Validation() {
	tests := []struct {
		name   string
		input  service.RegisterInput
		fields []string
	}{
		{name: "everything missing", input: service.RegisterInput{}, fields: []string{"username", "email", "password"}},
		{name: "short username", input: service.RegisterInput{Username: "ab", Email: "a@b.io", Password: "secret123"}, fields: []string{"username"}},
		{name: "username with dash", input: service.RegisterInput{Username: "bad-name", Email: "a@b.io", Password: "secret123"}, fields: []string{"username"}},
		{name: "invalid email", input: service.RegisterInput{Username: "valid", Email: "not-an-email", Password: "secret123"}, fields: []string{"email"}},
		{name: "email without tld", input: service.RegisterInput{Username: "valid", Email: "a@localhost", Password: "secret123"}, fields: []string{"email"}},
		{name: "short password", input: service.RegisterInput{Username: "valid", Email: "a@b.io", Password: "a1"}, fields: []string{"password"}},
		{name: "password without digit", input: service.RegisterInput{Username: "valid", Email: "a@b.io", Password: "secretpw"}, fields: []string{"password"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Register(s.ctx, tt.input)
			be := service.AsBusinessError(err)
			s.Equal(service.KindValidation, be.Kind)

			var got []string
			for _, f := range be.Fields {
				got = append(got, f.Field)
			}
			s.ElementsMatch(tt.fields, got)
		})
	}
}

func (s *AuthServiceSuite) TestLogin() {
	registered := s.register("alice", "alice@example.com")

	res, err := s.svc.Login(s.ctx, service.LoginInput{Email: "ALICE@example.com", Password: "secret123"})
	s.Require().NoError(err)
	s.Equal(registered.User.ID, res.User.ID)

	userID, err := s.tokens.Verify(res.Token)
	s.Require().NoError(err)
	s.Equal(registered.User.ID, userID)

	_, wrongPassword := s.svc.Login(s.ctx, service.LoginInput{Email: "alice@example.com", Password: "wrong123"})
	_, unknownEmail := s.svc.Login(s.ctx, service.LoginInput{Email: "nobody@example.com", Password: "secret123"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		be := service.AsBusinessError(err)
		s.Equal(service.KindInvalidCredentials, be.Kind)
		s.Equal("Invalid email or password", be.Message)
	}
}

func (s *AuthServiceSuite) TestChangePassword() {
	registered := s.register("alice", "alice@example.com")
	userID := registered.User.ID

	err := s.svc.ChangePassword(s.ctx, userID, "wrong123", "newpass456")
	be := service.AsBusinessError(err)
	s.Equal(service.KindInvalidCredentials, be.Kind)
	s.Equal("Current password is incorrect", be.Message)

	err = s.svc.ChangePassword(s.ctx, userID, "secret123", "short")
	s.Equal(service.KindValidation, service.KindOf(err))

	s.Require().NoError(s.svc.ChangePassword(s.ctx, userID, "secret123", "newpass456"))

	_, err = s.svc.Login(s.ctx, service.LoginInput{Email: "alice@example.com", Password: "secret123"})
	s.Equal(service.KindInvalidCredentials, service.KindOf(err))
	_, err = s.svc.Login(s.ctx, service.LoginInput{Email: "alice@example.com", Password: "newpass456"})
	s.NoError(err)
}

func (s *AuthServiceSuite) TestAvailability() {
	s.register("alice", "alice@example.com")

	ok, err := s.svc.CheckEmailAvailability(s.ctx, "Alice@example.com")
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.svc.CheckEmailAvailability(s.ctx, "free@example.com")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.svc.CheckUsernameAvailability(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.svc.CheckUsernameAvailability(s.ctx, "carol")
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.svc.CheckUsernameAvailability(s.ctx, "x")
	s.Equal(service.KindValidation, service.KindOf(err))
}

func (s *AuthServiceSuite) TestRefreshAndCurrentUser() {
	registered := s.register("alice", "alice@example.com")

	token, err := s.svc.RefreshToken(s.ctx, registered.User.ID)
	s.Require().NoError(err)
	userID, err := s.tokens.Verify(token)
	s.Require().NoError(err)
	s.Equal(registered.User.ID, userID)

	me, err := s.svc.CurrentUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal("alice", me.Username)
	s.Empty(me.PasswordHash)

	_, err = s.svc.CurrentUser(s.ctx, uuid.New())
	s.Equal(service.KindNotFound, service.KindOf(err))
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

// TestAuthService_RegisterRace tests a duplicate reported by the store after the up-front checks passed
func TestAuthService_RegisterRace(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByEmail", mock.Anything, "late@example.com").Return(nil, repository.ErrNotFound)
	users.On("GetByUsername", mock.Anything, "late").Return(nil, repository.ErrNotFound)
	users.On("Create", mock.Anything, mock.Anything).Return(repository.NewDuplicate("email"))

	svc := service.NewAuthService(users, newTokenService(), auth.NewPasswordHasher(bcrypt.MinCost), nil, zap.NewNop())
	_, err := svc.Register(context.Background(), service.RegisterInput{Username: "late", Email: "late@example.com", Password: "secret123"})

	assertConflict(t, err, "email")
	users.AssertExpectations(t)
}

// TestAuthService_StoreFailure tests that store errors become internal errors
func TestAuthService_StoreFailure(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, errors.New("socket closed"))

	svc := service.NewAuthService(users, newTokenService(), auth.NewPasswordHasher(bcrypt.MinCost), nil, zap.NewNop())
	_, err := svc.Login(context.Background(), service.LoginInput{Email: "alice@example.com", Password: "secret123"})

	be := service.AsBusinessError(err)
	assert.Equal(t, service.KindInternal, be.Kind)
	assert.Equal(t, "Internal server error", be.Message)
}

func assertConflict(t *testing.T, err error, field string) {
	t.Helper()
	be := service.AsBusinessError(err)
	require.Equal(t, service.KindConflict, be.Kind)
	require.Len(t, be.Fields, 1)
	assert.Equal(t, field, be.Fields[0].Field)
}
