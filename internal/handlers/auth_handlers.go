package handlers

import (
	"net/http"

	"taskflow/internal/handlers/dto"
	"taskflow/internal/middleware"
	"taskflow/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AuthHandler struct {
	responder
	auth AuthService
}

func NewAuthHandler(auth AuthService, log *zap.Logger, development bool) *AuthHandler {
	return &AuthHandler{
		responder: responder{log: log, development: development},
		auth:      auth,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request dto.RegisterRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	res, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username: request.Username,
		Email:    request.Email,
		Password: request.Password,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.log.Info("HTTP: user registered",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("user_id", res.User.ID.String()))
	respondSuccess(w, http.StatusCreated, "User registered successfully", dto.AuthResponse{User: res.User, Token: res.Token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request dto.LoginRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	res, err := h.auth.Login(r.Context(), service.LoginInput{Email: request.Email, Password: request.Password})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Login successful", dto.AuthResponse{User: res.User, Token: res.Token})
}

func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	available, err := h.auth.CheckEmailAvailability(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	message := "Email is available"
	if !available {
		message = "Email is already taken"
	}
	respondSuccess(w, http.StatusOK, message, dto.AvailabilityResponse{Available: available})
}

func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	available, err := h.auth.CheckUsernameAvailability(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	message := "Username is available"
	if !available {
		message = "Username is already taken"
	}
	respondSuccess(w, http.StatusOK, message, dto.AvailabilityResponse{Available: available})
}

// Status reports whether the optional token resolved to a user.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondSuccess(w, http.StatusOK, "Not authenticated", dto.AuthStatusResponse{Authenticated: false})
		return
	}
	respondSuccess(w, http.StatusOK, "Authenticated", dto.AuthStatusResponse{Authenticated: true, User: u})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	me, err := h.auth.CurrentUser(r.Context(), u.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "User retrieved successfully", me)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	token, err := h.auth.RefreshToken(r.Context(), u.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Token refreshed successfully", dto.TokenResponse{Token: token})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var request dto.ChangePasswordRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), u.ID, request.CurrentPassword, request.NewPassword); err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

// Logout only acknowledges; tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}
	respondSuccess(w, http.StatusOK, "Logged out successfully", nil)
}
