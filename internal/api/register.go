package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
)

// Register creates a new account. When the chosen MFA method is TOTP the
// result carries enrollment material; the factor stays inactive until the
// material is verified through the enrollment flow.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*RegisterResult, error) {
	if params.Username == "" {
		return nil, &ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if params.Email == "" {
		return nil, &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if params.Secret == "" {
		return nil, &ValidationError{Field: "secret", Reason: "must not be empty"}
	}

	var resp registerResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", "",
		registerRequest{
			Username:  params.Username,
			Email:     params.Email,
			Secret:    params.Secret,
			MFAMethod: params.Method.String(),
		},
		&resp, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	if resp.User == nil {
		return nil, &TransportError{Err: fmt.Errorf("register: response without user")}
	}

	result := &RegisterResult{Account: resp.User.toDomain()}
	if resp.TOTPSecret != "" {
		result.Enrollment = &domain.EnrollmentMaterial{
			SubjectID:       resp.SubjectID,
			Secret:          resp.TOTPSecret,
			ProvisioningURI: resp.ProvisioningURI,
		}
	}
	return result, nil
}
