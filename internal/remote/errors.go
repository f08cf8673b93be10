package remote

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the Recur API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("recur api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("recur api: %d: %s", e.Status, e.Message)
}

// NetworkError is a transport failure: the request never produced an HTTP
// response (DNS, refused connection, reset, client timeout).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return "recur api: " + e.Op + ": " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err (or anything it wraps) is a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}
