package coordinator

import (
	"errors"
	"net/http"
)

// Outcome errors of the coordinator protocols. Failures wrap one of these
// with %w so callers can branch with errors.Is while logs keep the cause.
var (
	// ErrInvalidArgument: empty key or empty value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict: the key is already indexed, including a lost
	// create-if-absent race.
	ErrConflict = errors.New("key already exists")

	// ErrNotFound: the key is not indexed, or no replica answered a probe.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable: a replica write or an index operation failed.
	ErrUnavailable = errors.New("storage unavailable")
)

// statusFor maps an outcome error to its HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text sent to clients. Per-volume details stay
// in the logs.
func publicMessage(err error) string {
	for _, sentinel := range []error{ErrInvalidArgument, ErrConflict, ErrNotFound, ErrUnavailable} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}
