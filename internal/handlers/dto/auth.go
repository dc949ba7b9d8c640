package dto

import (
	"taskflow/internal/models/user"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type AuthResponse struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

type AuthStatusResponse struct {
	Authenticated bool       `json:"authenticated"`
	User          *user.User `json:"user,omitempty"`
}
