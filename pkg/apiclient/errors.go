package apiclient

import (
	"fmt"
	"net/http"
)

// APIError represents an RFC 7807 problem response from the control plane.
type APIError struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// Code is the subsystem error code name ("Busy", "InvalidArgument", ...)
	// when the problem originated from a mount configuration operation.
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	case e.Detail != "":
		return e.Detail
	case e.Title != "":
		return e.Title
	default:
		return fmt.Sprintf("HTTP %d", e.Status)
	}
}

// IsAuthError returns true if the request was rejected for missing or
// insufficient credentials.
func (e *APIError) IsAuthError() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNotFound returns true if the target descriptor or resource is unknown.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsBusy returns true if another operation holds the context.
func (e *APIError) IsBusy() bool {
	return e.Code == "Busy"
}
