package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rewired-gh/iskwatch/internal/logger"
)

// Response is a standard API response wrapper.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Response{Data: data}); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}

// JSONError writes a JSON error response.
func JSONError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)

	if encErr := json.NewEncoder(w).Encode(Response{Error: err}); encErr != nil {
		logger.Warn("Failed to encode error response: %v", encErr)
	}
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// maxBodyBytes caps request bodies; every payload here is a few hundred bytes.
const maxBodyBytes = 64 << 10

// decodeJSON reads a JSON body into v. An empty body reports empty=true and
// leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) (empty bool, err error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// CreatedAlert is returned by POST /alerts.
type CreatedAlert struct {
	ID string `json:"id"`
}

// PermissionResponse reports the notification permission state.
type PermissionResponse struct {
	Permission string `json:"permission"`
}

// DismissResponse reports how many triggered records were removed.
type DismissResponse struct {
	Dismissed int `json:"dismissed"`
}
