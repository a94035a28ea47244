package providers

import (
	"errors"
	"fmt"
	"net/http"
)

type rateLimitError struct {
	body string
}

func (e *rateLimitError) Error() string { return "rate limited" }

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

type serverError struct {
	statusCode int
	body       string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.statusCode, e.body)
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// IsRateLimited checks if the provider rejected the call for rate limiting.
func IsRateLimited(err error) bool {
	var re *rateLimitError
	return errors.As(err, &re)
}

// statusError maps a non-200 provider status to the error taxonomy.
func statusError(status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &rateLimitError{body: body}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &authError{message: body}
	case status >= 500:
		return &serverError{statusCode: status, body: body}
	default:
		return fmt.Errorf("API error (status %d): %s", status, body)
	}
}
