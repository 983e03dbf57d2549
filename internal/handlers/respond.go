package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"placegrad/internal/auth"
)

// Codes produced by the HTTP layer itself.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNoToken        = "NO_TOKEN"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeServerError    = "SERVER_ERROR"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message, Code: code})
}

// writeServiceError maps an auth failure to its response. Anything that is
// not an *auth.Error is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *auth.Error
	if errors.As(err, &ae) {
		writeError(w, ae.Status, ae.Code, ae.Message)
		return
	}
	log.Printf("[HTTP] %s %s (request %s): %v", r.Method, r.URL.Path, RequestIDFrom(r.Context()), err)
	writeError(w, http.StatusInternalServerError, CodeServerError, "Internal server error")
}

// decodeJSON reads a capped JSON body into dst. An empty body leaves dst at
// its zero value so field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload")
		return false
	}
	return true
}
