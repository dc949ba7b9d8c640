package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"taskflow/internal/handlers"
	"taskflow/internal/handlers/dto"
	"taskflow/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthHandler(m *MockAuthService) *handlers.AuthHandler {
	return handlers.NewAuthHandler(m, zap.NewNop(), false)
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockAuthService)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "registered",
			body: `{"username":"alice","email":"alice@example.com","password":"secret1"}`,
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, service.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"}).
					Return(&service.AuthResult{User: alice, Token: "signed"}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "User registered successfully",
		},
		{
			name: "email taken",
			body: `{"username":"alice2","email":"alice@example.com","password":"secret1"}`,
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, service.NewConflict("email"))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "Email already exists",
		},
		{
			name:           "malformed",
			body:           `[`,
			setupMock:      func(m *MockAuthService) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			tt.setupMock(mockService)
			h := newAuthHandler(mockService)

			w, env := serve(t, h.Register, request{
				method: http.MethodPost, pattern: "/api/auth/register", target: "/api/auth/register", body: tt.body,
			})

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedMsg, env.Message)
			if tt.expectedStatus == http.StatusCreated {
				var res dto.AuthResponse
				require.NoError(t, json.Unmarshal(env.Data, &res))
				assert.Equal(t, "signed", res.Token)
				assert.Equal(t, alice.ID, res.User.ID)
				assert.NotContains(t, string(env.Data), "password")
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("Login", mock.Anything, service.LoginInput{Email: "alice@example.com", Password: "wrong1"}).
		Return(nil, service.NewInvalidCredentials("Invalid email or password"))
	mockService.On("Login", mock.Anything, service.LoginInput{Email: "alice@example.com", Password: "secret1"}).
		Return(&service.AuthResult{User: alice, Token: "signed"}, nil)
	h := newAuthHandler(mockService)

	w, env := serve(t, h.Login, request{
		method: http.MethodPost, pattern: "/login", target: "/login",
		body: `{"email":"alice@example.com","password":"wrong1"}`,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", env.Message)

	w, env = serve(t, h.Login, request{
		method: http.MethodPost, pattern: "/login", target: "/login",
		body: `{"email":"alice@example.com","password":"secret1"}`,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", env.Message)
}

func TestAuthHandler_Availability(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("CheckEmailAvailability", mock.Anything, "alice@example.com").Return(false, nil)
	mockService.On("CheckUsernameAvailability", mock.Anything, "newbie").Return(true, nil)
	mockService.On("CheckUsernameAvailability", mock.Anything, "x").
		Return(false, service.NewValidationError(service.FieldError{Field: "username", Message: "Username must be between 3 and 30 characters"}))
	h := newAuthHandler(mockService)

	w, env := serve(t, h.CheckEmail, request{
		method: http.MethodGet, pattern: "/check-email/{email}", target: "/check-email/alice@example.com",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email is already taken", env.Message)
	assert.JSONEq(t, `{"available":false}`, string(env.Data))

	w, env = serve(t, h.CheckUsername, request{
		method: http.MethodGet, pattern: "/check-username/{username}", target: "/check-username/newbie",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"available":true}`, string(env.Data))

	w, _ = serve(t, h.CheckUsername, request{
		method: http.MethodGet, pattern: "/check-username/{username}", target: "/check-username/x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertExpectations(t)
}

func TestAuthHandler_Status(t *testing.T) {
	h := newAuthHandler(new(MockAuthService))

	_, env := serve(t, h.Status, request{method: http.MethodGet, pattern: "/status", target: "/status"})
	assert.JSONEq(t, `{"authenticated":false}`, string(env.Data))

	_, env = serve(t, h.Status, request{method: http.MethodGet, pattern: "/status", target: "/status", user: alice})
	var status dto.AuthStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Authenticated)
	assert.Equal(t, "alice", status.User.Username)
}

func TestAuthHandler_AuthenticatedEndpoints(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("CurrentUser", mock.Anything, alice.ID).Return(alice, nil)
	mockService.On("RefreshToken", mock.Anything, alice.ID).Return("fresh", nil)
	mockService.On("ChangePassword", mock.Anything, alice.ID, "secret1", "bad").
		Return(service.NewValidationError(service.FieldError{Field: "newPassword", Message: "Password must be between 6 and 128 characters"}))
	mockService.On("ChangePassword", mock.Anything, alice.ID, "secret1", "secret2").Return(nil)
	h := newAuthHandler(mockService)

	w, env := serve(t, h.Me, request{method: http.MethodGet, pattern: "/me", target: "/me", user: alice})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"alice"`)

	w, env = serve(t, h.Refresh, request{method: http.MethodPost, pattern: "/refresh", target: "/refresh", user: alice})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"fresh"}`, string(env.Data))

	w, env = serve(t, h.ChangePassword, request{
		method: http.MethodPut, pattern: "/change-password", target: "/change-password", user: alice,
		body: `{"currentPassword":"secret1","newPassword":"bad"}`,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "newPassword", env.Errors[0].Field)

	w, _ = serve(t, h.ChangePassword, request{
		method: http.MethodPut, pattern: "/change-password", target: "/change-password", user: alice,
		body: `{"currentPassword":"secret1","newPassword":"secret2"}`,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = serve(t, h.Logout, request{method: http.MethodPost, pattern: "/logout", target: "/logout", user: alice})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", env.Message)

	w, _ = serve(t, h.Logout, request{method: http.MethodPost, pattern: "/logout", target: "/logout"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	mockService.AssertExpectations(t)
}
