// Package http serves the session store over a JSON API.
//
// This file holds the builder used by every handler to write a JSON body
// together with the session header and any notices the action produced.

package http

import (
	"encoding/json"
	"net/http"

	"ledgerview/internal/notify"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "X-Session-ID"

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
	err        *apiError
	notices    []notify.Notice
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type envelope struct {
	Data    any             `json:"data,omitempty"`
	Error   *apiError       `json:"error,omitempty"`
	Notices []notify.Notice `json:"notices,omitempty"`
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Session echoes the session id back to the client.
func (b *JSONResponseBuilder) Session(id string) *JSONResponseBuilder {
	if id != "" {
		b.headers[SessionHeader] = id
	}
	return b
}

// Data sets the response payload.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Notices attaches notices raised while handling the request.
func (b *JSONResponseBuilder) Notices(n []notify.Notice) *JSONResponseBuilder {
	b.notices = n
	return b
}

// Error sets an error body.
func (b *JSONResponseBuilder) Error(code, message string) *JSONResponseBuilder {
	b.err = &apiError{Code: code, Message: message}
	return b
}

// FieldError sets an error body naming the offending input field.
func (b *JSONResponseBuilder) FieldError(code, field, message string) *JSONResponseBuilder {
	b.err = &apiError{Code: code, Message: message, Field: field}
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.statusCode == http.StatusNoContent {
		return
	}
	_ = json.NewEncoder(w).Encode(envelope{Data: b.data, Error: b.err, Notices: b.notices})
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Error(code, message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

// ConflictError creates a 409 Conflict error response.
func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, "conflict", message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}
