package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
)

// Login submits credentials. Empty fields fail fast with a ValidationError
// before any network traffic. The result is either a complete session or a
// pending second-factor challenge; both never at once.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*LoginResult, error) {
	if creds.Identifier == "" {
		return nil, &ValidationError{Field: "identifier", Reason: "must not be empty"}
	}
	if creds.Secret == "" {
		return nil, &ValidationError{Field: "secret", Reason: "must not be empty"}
	}

	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", "",
		loginRequest{Identifier: creds.Identifier, Secret: creds.Secret},
		&resp, http.StatusOK)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case StatusOK:
		if resp.Session == nil {
			return nil, &TransportError{Err: fmt.Errorf("login: ok response without session")}
		}
		result := &LoginResult{}
		s := resp.Session.toDomain()
		result.Session = &s
		if resp.User != nil {
			a := resp.User.toDomain()
			result.Account = &a
		}
		return result, nil

	case StatusMFARequired:
		method, err := domain.ParseMethod(resp.Method)
		if err != nil {
			return nil, &TransportError{Err: err}
		}
		if method == domain.MethodNone || resp.SubjectID == "" {
			return nil, &TransportError{Err: fmt.Errorf("login: malformed mfa challenge")}
		}
		return &LoginResult{
			Challenge: &domain.PendingChallenge{
				SubjectID: resp.SubjectID,
				Method:    method,
			},
			OTPHint: resp.DebugOTP,
		}, nil

	default:
		return nil, &TransportError{Err: fmt.Errorf("login: unexpected status %q", resp.Status)}
	}
}
