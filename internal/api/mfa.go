package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
)

// otpCodeLength is the policy for one-time codes: exactly six ASCII digits.
const otpCodeLength = 6

// ValidateCode checks the local shape policy for a one-time code. Submission
// of anything else is rejected without a network call.
func ValidateCode(code string) error {
	if len(code) != otpCodeLength {
		return &ValidationError{Field: "code", Reason: "must be exactly 6 digits"}
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return &ValidationError{Field: "code", Reason: "must contain only digits"}
		}
	}
	return nil
}

// VerifyCode submits a one-time code against a pending challenge. The path is
// selected by an exhaustive match on the challenge's method; an unknown method
// is a programming error surfaced immediately rather than a silent fallthrough.
func (c *Client) VerifyCode(
	ctx context.Context,
	challenge domain.PendingChallenge,
	code string,
) (*VerifyResult, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}

	var path string
	switch challenge.Method {
	case domain.MethodTOTP:
		path = "/auth/mfa/totp/verify"
	case domain.MethodEmailOTP:
		path = "/auth/mfa/email/verify"
	case domain.MethodNone:
		return nil, fmt.Errorf("api: challenge without a method")
	default:
		return nil, fmt.Errorf("api: unhandled mfa method %v", challenge.Method)
	}

	var resp verifyResponse
	err := c.doJSON(ctx, http.MethodPost, path, "",
		verifyRequest{SubjectID: challenge.SubjectID, Code: code},
		&resp, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{}
	if resp.Session != nil {
		s := resp.Session.toDomain()
		result.Session = &s
	}
	if resp.User != nil {
		a := resp.User.toDomain()
		result.Account = &a
	}
	return result, nil
}
