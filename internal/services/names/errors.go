package names

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("names: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("names: %s %s: status %d", e.Method, e.Path, e.Code)
}

// Recoverable reports whether retrying the operation later could succeed.
// Server-side failures and transport errors are recoverable; client errors
// (bad request, conflict, missing resource) are not.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError || se.Code == http.StatusTooManyRequests
	}
	// transport-level error (timeout, refused connection)
	return true
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
