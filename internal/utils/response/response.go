// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every generated route sends JSON back to the client. Success bodies are
// whatever the operation returned (a record, a list, a message). Error
// bodies always use the Response envelope, so API consumers know what a
// failure looks like no matter which resource produced it.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aanand-mishra/crudgen/internal/validation"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for error cases:
//
//	{ "status": "error", "error": "field title is required" }
//
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Error  string `json:"error"`  // human-readable error detail
}

// Status string constants.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrEmptyBody is reported when a request that needs a payload has none.
var ErrEmptyBody = errors.New("request body is empty")

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked, so
// callers that need extra headers (Location) set them before calling.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// ─────────────────────────────────────────────────────────────────────────────
// GeneralError wraps any Go error into our standard Response shape.
//
//	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
//
// ─────────────────────────────────────────────────────────────────────────────
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError converts failed payload rules into a single Response.
// Each failure becomes one sentence; they are joined with ", ":
//
//	{ "status": "error", "error": "field firstName is required, field age must be of type integer" }
//
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validation.Errors) Response {
	return Response{
		Status: StatusError,
		Error:  errs.Error(),
	}
}
