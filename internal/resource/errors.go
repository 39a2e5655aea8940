package resource

import (
	"errors"
	"net/http"
)

var (
	// ErrConfiguration marks a missing or invalid registration argument.
	// It is raised while resources are assembled at startup, never while
	// serving requests.
	ErrConfiguration = errors.New("resource configuration error")

	// ErrBinding marks a model name already bound on the connection with a
	// different schema.
	ErrBinding = errors.New("resource binding error")
)

// Kind classifies request-time failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindServerError
	KindStoreUnavailable
	KindBadRequest
)

var kindNames = map[Kind]string{
	KindNotFound:         "not_found",
	KindConflict:         "conflict",
	KindServerError:      "server_error",
	KindStoreUnavailable: "store_unavailable",
	KindBadRequest:       "bad_request",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Status returns the HTTP status a failure of this kind is answered with.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the failure every operation handler returns. Message is safe to
// show to API clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Status is shorthand for e.Kind.Status().
func (e *Error) Status() int { return e.Kind.Status() }

// internalMessage is shown instead of store details on 500 responses.
const internalMessage = "An internal server error occurred"
