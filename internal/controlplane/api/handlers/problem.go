// Package handlers provides HTTP handlers for the mountfd control plane API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/marmos91/mountfd/pkg/fserrors"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	// If not set, defaults to "about:blank".
	Type string `json:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Code is the subsystem error code name, when the problem originated
	// from a mount configuration operation.
	Code string `json:"code,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, problem *Problem) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// WriteOperationError maps a mount configuration error to an RFC 7807
// response, carrying the subsystem error code alongside the HTTP status.
func WriteOperationError(w http.ResponseWriter, err error) {
	code := fserrors.CodeOf(err)
	status := statusForCode(code)

	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
		Code:   code.String(),
	})
}

// statusForCode maps subsystem error codes onto HTTP status codes.
func statusForCode(code fserrors.ErrorCode) int {
	switch code {
	case fserrors.ErrPermissionDenied:
		return http.StatusForbidden
	case fserrors.ErrInvalidArgument:
		return http.StatusBadRequest
	case fserrors.ErrNotFound, fserrors.ErrBadDescriptor:
		return http.StatusNotFound
	case fserrors.ErrNotSupported:
		return http.StatusUnprocessableEntity
	case fserrors.ErrBusy, fserrors.ErrAlreadyExists:
		return http.StatusConflict
	case fserrors.ErrSizeExceeded:
		return http.StatusRequestEntityTooLarge
	case fserrors.ErrResourceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONOK writes a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONCreated writes a 201 Created JSON response.
func WriteJSONCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
