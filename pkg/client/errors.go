package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotLoggedIn is returned before any request is made when an
	// authenticated call has no token.
	ErrNotLoggedIn = errors.New("not logged in")
	ErrTimeout     = errors.New("request timed out")
	ErrUnreachable = errors.New("server unreachable")
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// retryable marks failures worth another attempt: transport trouble and
// server-side errors. Client errors never change on retry.
func retryable(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= http.StatusInternalServerError
}

// Describe turns any client error into a message fit for an end user.
func Describe(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotLoggedIn), IsStatus(err, http.StatusUnauthorized):
		return "Please log in."
	case errors.Is(err, ErrTimeout):
		return "Request timed out, retry available."
	case errors.Is(err, ErrUnreachable):
		return "Server unreachable."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return fmt.Sprintf("Something went wrong: %s", apiErr.Message)
	}
	return fmt.Sprintf("Something went wrong: %s", err.Error())
}
