package handlers

import (
	"encoding/json"
	"net/http"

	"taskflow/internal/service"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Data       any                  `json:"data,omitempty"`
	Pagination *Pagination          `json:"pagination,omitempty"`
	Errors     []service.FieldError `json:"errors,omitempty"`
	Error      string               `json:"error,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(page, limit, total int) *Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

func responseWithJSON(w http.ResponseWriter, code int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func respondSuccess(w http.ResponseWriter, code int, message string, data any) {
	responseWithJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

func respondPage(w http.ResponseWriter, message string, data any, pagination *Pagination) {
	responseWithJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data, Pagination: pagination})
}

func responseWithError(w http.ResponseWriter, code int, message string) {
	responseWithJSON(w, code, Envelope{Success: false, Message: message})
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	responseWithError(w, http.StatusNotFound, "Route "+r.URL.Path+" not found")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	responseWithError(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed")
}
