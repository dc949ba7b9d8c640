package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the failure envelope written by the handlers.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Success: false, Message: message})
}
