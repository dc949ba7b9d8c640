package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"taskflow/internal/handlers/dto"
	"taskflow/internal/middleware"
	"taskflow/internal/service"

	"go.uber.org/zap"
)

type UserHandler struct {
	responder
	users UserService
}

func NewUserHandler(users UserService, log *zap.Logger, development bool) *UserHandler {
	return &UserHandler{
		responder: responder{log: log, development: development},
		users:     users,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.users.GetUserProfile(r.Context(), u.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Profile retrieved successfully", profile)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var request dto.UpdateProfileRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.users.UpdateUserProfile(r.Context(), u.ID, service.UpdateProfileInput{
		Username: request.Username,
		Email:    request.Email,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Profile updated successfully", updated)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var request dto.DeleteAccountRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	if err := h.users.DeleteUserAccount(r.Context(), u.ID, request.Password); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.log.Info("HTTP: account deleted",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("user_id", u.ID.String()))
	respondSuccess(w, http.StatusOK, "Account deleted successfully", nil)
}

// Export sends the caller's data as a downloadable JSON document.
func (h *UserHandler) Export(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	export, err := h.users.ExportUserData(r.Context(), u.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	filename := "taskflow-export-" + export.ExportedAt.Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		h.log.Warn("HTTP: writing export failed", zap.Error(err))
	}
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	var fieldErrs []service.FieldError
	page, fe := queryInt(r, "page", service.DefaultPage)
	if fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	}
	limit, fe := queryInt(r, "limit", service.DefaultLimit)
	if fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	}
	if len(fieldErrs) > 0 {
		h.badRequest(w, r, fieldErrs...)
		return
	}
	page, limit = service.NormalizePage(page, limit)

	res, err := h.users.SearchUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), page, limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondPage(w, "Users retrieved successfully", res.Users, NewPagination(res.Page, res.Limit, res.Total))
}
