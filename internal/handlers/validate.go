package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"taskflow/internal/middleware"
	"taskflow/internal/models/user"
	"taskflow/internal/service"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

const msgInvalidBody = "Invalid request body"

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON reads a JSON body into dst. It writes the failure response
// itself and reports whether the handler may continue.
func (h responder) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		h.log.Warn("HTTP: wrong content type",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("received", r.Header.Get("Content-Type")),
		)
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.log.Warn("HTTP: malformed JSON",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			responseWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		responseWithError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// currentUser returns the identity attached by the auth middleware.
func (h responder) currentUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "Access denied. No valid token provided.")
	}
	return u, ok
}

// queryInt parses an optional integer query parameter; absent means def.
func queryInt(r *http.Request, name string, def int) (int, *service.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &service.FieldError{Field: name, Message: name + " must be an integer"}
	}
	return n, nil
}

