package handlers

import (
	"net/http"

	"taskflow/internal/middleware"
	"taskflow/internal/service"

	"go.uber.org/zap"
)

const msgInternal = "Internal server error"

// statusForKind covers every service.Kind.
func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthenticated, service.KindInvalidCredentials:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindRateLimited:
		return http.StatusTooManyRequests
	case service.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// responder is shared by all handlers for failure responses.
type responder struct {
	log         *zap.Logger
	development bool
}

func (h responder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	businessErr := service.AsBusinessError(err)
	status := statusForKind(businessErr.Kind)
	requestID := middleware.GetRequestID(r.Context())

	if status >= http.StatusInternalServerError {
		h.log.Error("HTTP: internal error",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		body := Envelope{Success: false, Message: msgInternal}
		if h.development {
			body.Error = err.Error()
		}
		responseWithJSON(w, status, body)
		return
	}

	h.log.Debug("HTTP: business error",
		zap.String("request_id", requestID),
		zap.String("error_code", businessErr.Kind.String()),
		zap.Int("http_status", status),
	)
	responseWithJSON(w, status, Envelope{
		Success: false,
		Message: businessErr.Message,
		Errors:  businessErr.Fields,
	})
}

func (h responder) badRequest(w http.ResponseWriter, r *http.Request, fields ...service.FieldError) {
	h.handleError(w, r, service.NewValidationError(fields...))
}
