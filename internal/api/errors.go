package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the auth service. These mirror the server contract;
// anything unrecognised is carried through verbatim in APIError.Code.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidCode        = "invalid_code"
	CodeCodeExpired        = "code_expired"
	CodeInvalidToken       = "invalid_token"
	CodeConflict           = "conflict"
	CodeInvalidRequest     = "invalid_request"
)

// ValidationError is a purely local failure: the request was malformed before
// any network call was made (empty credential field, non-6-digit code). It
// never leaves the client.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// APIError is a server-side rejection with a 4xx status. The UI treats it as
// recoverable: the user is re-prompted and no local state is mutated beyond
// clearing the offending input.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// TransportError wraps a network failure or a 5xx response. Recovery is
// identical to a rejection from the UI's perspective, but it is logged
// distinguishably.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401-class refusal of the bearer
// token. This is the signal that clears the session store and forces a
// redirect to login.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsRejected reports whether err is a server-side rejection (any APIError).
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsTransport reports whether err is a network/server failure.
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// errorBody is the error envelope the service uses on non-2xx responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseErrorResponse turns a non-success HTTP response into a typed error.
// 5xx responses become TransportError; everything else becomes APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= http.StatusInternalServerError {
		return &TransportError{
			Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       eb.Error,
			Message:    eb.Message,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       CodeInvalidRequest,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
