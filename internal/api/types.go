package api

import (
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
)

// Response status values used by the auth service.
const (
	StatusOK          = "ok"
	StatusMFARequired = "mfa_required"
	StatusVerified    = "verified"
)

// sessionPayload is the token pair as it appears on the wire.
type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (p *sessionPayload) toDomain() domain.Session {
	return domain.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
	}
}

// accountPayload is the user representation as it appears on the wire.
type accountPayload struct {
	Username   string        `json:"username"`
	Email      string        `json:"email"`
	MFAEnabled bool          `json:"mfa_enabled"`
	MFAMethod  domain.Method `json:"mfa_method"`
}

func (p *accountPayload) toDomain() domain.Account {
	return domain.Account{
		Username:   p.Username,
		Email:      p.Email,
		MFAEnabled: p.MFAEnabled,
		MFAMethod:  p.MFAMethod,
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type loginResponse struct {
	Status    string          `json:"status"`
	Session   *sessionPayload `json:"session,omitempty"`
	User      *accountPayload `json:"user,omitempty"`
	Method    string          `json:"method,omitempty"`
	SubjectID string          `json:"subject_id,omitempty"`

	// DebugOTP is only populated by dev-mode servers that cannot send mail.
	DebugOTP string `json:"debug_otp,omitempty"`
}

// LoginResult is the decoded outcome of a login call: either a complete
// session, or a pending second-factor challenge.
type LoginResult struct {
	Session   *domain.Session
	Account   *domain.Account
	Challenge *domain.PendingChallenge

	// OTPHint carries the dev-mode emailed code when the server includes it.
	OTPHint string
}

// MFARequired reports whether the attempt is waiting on a second factor.
func (r *LoginResult) MFARequired() bool { return r.Challenge != nil }

type verifyRequest struct {
	SubjectID string `json:"subject_id"`
	Code      string `json:"code"`
}

type verifyResponse struct {
	Status  string          `json:"status"`
	Session *sessionPayload `json:"session,omitempty"`
	User    *accountPayload `json:"user,omitempty"`
}

// VerifyResult is the decoded outcome of a successful code verification.
// Session is nil for enrollment verifications, which activate the factor
// without logging the subject in.
type VerifyResult struct {
	Session *domain.Session
	Account *domain.Account
}

// RegisterParams are the inputs to account registration.
type RegisterParams struct {
	Username string
	Email    string
	Secret   string
	Method   domain.Method
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Secret    string `json:"secret"`
	MFAMethod string `json:"mfa_method"`
}

type registerResponse struct {
	User            *accountPayload `json:"user"`
	SubjectID       string          `json:"subject_id,omitempty"`
	TOTPSecret      string          `json:"totp_secret,omitempty"`
	ProvisioningURI string          `json:"provisioning_uri,omitempty"`
}

// RegisterResult is the decoded outcome of a registration call. Enrollment is
// non-nil only when the chosen method was TOTP; the factor is not active until
// the enrollment is verified.
type RegisterResult struct {
	Account    domain.Account
	Enrollment *domain.EnrollmentMaterial
}

// AccountUpdate is a partial account mutation. Nil fields are left untouched
// by the server.
type AccountUpdate struct {
	Username  *string        `json:"username,omitempty"`
	Email     *string        `json:"email,omitempty"`
	Secret    *string        `json:"secret,omitempty"`
	MFAMethod *domain.Method `json:"mfa_method,omitempty"`
}

type accountResponse struct {
	accountPayload

	SubjectID       string `json:"subject_id,omitempty"`
	TOTPSecret      string `json:"totp_secret,omitempty"`
	ProvisioningURI string `json:"provisioning_uri,omitempty"`
}

// AccountResult is the server's account representation, plus fresh enrollment
// material when a mutation switched the MFA method to TOTP.
type AccountResult struct {
	Account    domain.Account
	Enrollment *domain.EnrollmentMaterial
}

type refreshResponse struct {
	Session *sessionPayload `json:"session"`
}
