package sdk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when a request URL cannot be built.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrInvalidResponse is returned for a response that is not a usable API reply.
	ErrInvalidResponse = errors.New("invalid response from server")
	// ErrUnauthorized is returned on HTTP 401 and, without any network call, when an
	// authenticated request is attempted with no stored access token.
	ErrUnauthorized = errors.New("session expired, please login again")
)

// HTTPError is any non-401 response with status >= 400.
// Message is the server's {"error": ...} text, or a generic fallback.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// DecodingError means the response body did not match the expected shape.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// NetworkError wraps transport failures: DNS, TLS, timeouts, refused connections.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is, or wraps, ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode extracts the HTTP status from an *HTTPError anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}
