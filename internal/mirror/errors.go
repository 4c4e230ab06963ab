package mirror

import (
	"errors"
	"fmt"
)

// ErrReleasePathMissing is returned when a mirror URL does not contain the
// releases/<version>/Everything/<arch>/os segment queried for. The mirror
// list and the detected release are expected to agree, so callers should
// treat it as fatal.
var ErrReleasePathMissing = errors.New("mirror URL does not contain the expected release path")

// ConnectionError means a mirror could not be reached or refused the
// download. Rankings skip mirrors that fail this way.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// HTTPError represents a non-2xx response from a mirror or the mirror list service.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.StatusCode, e.Status)
}

// IsConnectionError reports whether err is, or wraps, a *ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
