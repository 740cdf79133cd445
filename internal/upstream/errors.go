package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned when the client is built without an API token.
	ErrMissingToken = errors.New("upstream API token is not configured")

	// ErrTimeout is returned when an upstream call exceeds its time budget.
	ErrTimeout = errors.New("upstream request timed out")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "upstream status error"
	}
	return fmt.Sprintf("upstream %s returned HTTP %d", e.Endpoint, e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from upstream.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 401
}
