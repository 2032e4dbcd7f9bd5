package myriad

import (
	"fmt"
	"net/http"

	"github.com/predik/predik/internal/domain"
)

// StatusError is returned for non-2xx responses. It unwraps to the matching
// domain sentinel when one exists, so callers can use errors.Is for the common
// cases and errors.As to pass the upstream status through.
type StatusError struct {
	StatusCode int
	Body       string
	kind       error
}

func (e *StatusError) Error() string {
	if e.kind != nil {
		return fmt.Sprintf("HTTP %d: %v: %s", e.StatusCode, e.kind, e.Body)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return e.kind }

// maxErrorBody caps how much of an error body is kept.
const maxErrorBody = 512

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > maxErrorBody {
		bodyStr = bodyStr[:maxErrorBody]
	}

	err := &StatusError{StatusCode: statusCode, Body: bodyStr}
	switch statusCode {
	case http.StatusNotFound:
		err.kind = domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		err.kind = domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		err.kind = domain.ErrRateLimited
	}
	return err
}

// HTTPStatus reports the upstream status code so HTTP handlers can pass it
// through.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }
