package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mwilding/taskdeck/internal/auth"
	"github.com/mwilding/taskdeck/internal/task"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []fieldError `json:"errors,omitempty"`
}

// fieldError describes a single validation failure in a response.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	json.NewEncoder(w).Encode(v)
}

// respondData writes a success envelope with a payload.
func respondData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// respondMessage writes a success envelope without a payload.
func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

// respondError writes a failure envelope.
func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// respondValidation writes a 400 failure envelope with per-field errors.
func respondValidation(w http.ResponseWriter, fields []fieldError) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Message: "validation failed",
		Errors:  fields,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	respondError(w, http.StatusBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	respondError(w, http.StatusUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	respondError(w, http.StatusForbidden, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	respondError(w, http.StatusNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	respondError(w, http.StatusConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	respondError(w, http.StatusInternalServerError, message)
}

// writeDomainError maps a domain error to its HTTP response. Returns true if
// the error was recognised and written; the caller handles the false case
// (usually as a 500 with a log line).
func writeDomainError(w http.ResponseWriter, err error) bool {
	var authValidation *auth.ValidationError
	var taskValidation *task.ValidationError

	switch {
	case errors.As(err, &authValidation):
		fields := make([]fieldError, len(authValidation.Fields))
		for i, f := range authValidation.Fields {
			fields[i] = fieldError{Field: f.Field, Message: f.Message}
		}
		respondValidation(w, fields)
	case errors.As(err, &taskValidation):
		fields := make([]fieldError, len(taskValidation.Fields))
		for i, f := range taskValidation.Fields {
			fields[i] = fieldError{Field: f.Field, Message: f.Message}
		}
		respondValidation(w, fields)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, "invalid email or password")
	case errors.Is(err, auth.ErrTokenExpired):
		writeUnauthorized(w, "token expired")
	case errors.Is(err, auth.ErrTokenInvalid):
		writeUnauthorized(w, "invalid token")
	case errors.Is(err, auth.ErrEmailExists):
		writeConflict(w, "email already registered")
	case errors.Is(err, auth.ErrUserNotFound):
		writeNotFound(w, "user not found")
	case errors.Is(err, auth.ErrSelfAction):
		writeForbidden(w, "action not permitted on own account")
	case errors.Is(err, task.ErrTaskNotFound):
		writeNotFound(w, "task not found")
	default:
		return false
	}
	return true
}
