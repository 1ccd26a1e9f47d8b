package passkeysdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the service. These match the taxonomy codes in the
// error half of the response envelope.
const (
	ErrorCodeInvalidInput       = "INVALID_INPUT"
	ErrorCodeVerificationFailed = "VERIFICATION_FAILED"
	ErrorCodeChallengeMismatch  = "CHALLENGE_MISMATCH"
	ErrorCodeChallengeExpired   = "CHALLENGE_EXPIRED"
	ErrorCodeCredentialNotFound = "CREDENTIAL_NOT_FOUND"
	ErrorCodeRateLimited        = "RATE_LIMITED"
	ErrorCodeUnauthorized       = "UNAUTHORIZED"
	ErrorCodeUnknown            = "UNKNOWN_ERROR"
)

// APIError represents an error response from the service.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`

	// Code is the taxonomy code (e.g., "CHALLENGE_EXPIRED").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode extracts the taxonomy code from an error returned by this SDK.
// Returns an empty string when the error did not come from the service.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// parseErrorResponse parses an HTTP error response into a typed *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Code != "" {
		env.Error.StatusCode = resp.StatusCode
		return env.Error
	}

	// Fallback: create a generic error from the status code.
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       ErrorCodeUnknown,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
