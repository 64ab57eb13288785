package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
)

// GetAccount fetches the authenticated user's account representation.
func (c *Client) GetAccount(ctx context.Context, accessToken string) (*AccountResult, error) {
	var resp accountResponse
	err := c.doJSON(ctx, http.MethodGet, "/auth/account", accessToken,
		nil, &resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return accountResultFrom(&resp), nil
}

// UpdateAccount applies a partial mutation and returns the server's updated
// representation. Callers replace their cache from the result, never from the
// request they sent.
func (c *Client) UpdateAccount(
	ctx context.Context,
	accessToken string,
	update AccountUpdate,
) (*AccountResult, error) {
	var resp accountResponse
	err := c.doJSON(ctx, http.MethodPatch, "/auth/account", accessToken,
		update, &resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return accountResultFrom(&resp), nil
}

// Refresh exchanges a refresh token for a new token pair. It is consumed only
// by session.Renewer; nothing inside the session store calls it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	var resp refreshResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", refreshToken,
		nil, &resp, http.StatusOK)
	if err != nil {
		return domain.Session{}, err
	}
	if resp.Session == nil {
		return domain.Session{}, &TransportError{Err: fmt.Errorf("refresh: response without session")}
	}
	return resp.Session.toDomain(), nil
}

func accountResultFrom(resp *accountResponse) *AccountResult {
	result := &AccountResult{Account: resp.accountPayload.toDomain()}
	if resp.TOTPSecret != "" {
		result.Enrollment = &domain.EnrollmentMaterial{
			SubjectID:       resp.SubjectID,
			Secret:          resp.TOTPSecret,
			ProvisioningURI: resp.ProvisioningURI,
		}
	}
	return result
}
