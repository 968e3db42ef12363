package domain

import (
	"encoding/json"
	"net/http"
)

// Result is the uniform envelope returned by every application operation.
// Status is an HTTP-style status code; Data is omitted when nil.
type Result struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a 200 result.
func OK(message string, data any) Result {
	return Result{Status: http.StatusOK, Message: message, Data: data}
}

// Created builds a 201 result.
func Created(message string, data any) Result {
	return Result{Status: http.StatusCreated, Message: message, Data: data}
}

// Fail builds a result whose status is derived from err. The message is
// supplied by the caller so that it stays stable across retries; err itself
// is never echoed to the client.
func Fail(err error, message string) Result {
	return Result{Status: StatusFor(err), Message: message}
}

// WriteJSON sends the Result as JSON using its Status as the HTTP status code.
func (r Result) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.Status)
	json.NewEncoder(w).Encode(r) // Best effort, the status line is already written.
}
