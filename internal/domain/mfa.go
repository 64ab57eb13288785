package domain

// PendingChallenge identifies an authentication attempt awaiting a
// second-factor code. It is created when login answers "mfa required" and is
// discarded on the first resolved or abandoned verification. It must never be
// persisted; a restart restarts the whole attempt.
type PendingChallenge struct {
	SubjectID string // opaque identifier issued by the server
	Method    Method
}

// EnrollmentMaterial is what the server hands back when a new TOTP factor is
// provisioned: the base32 secret for manual entry and the otpauth:// URI for
// QR rendering. The server never re-issues the secret, so once this value is
// dropped it is gone for good.
type EnrollmentMaterial struct {
	SubjectID       string
	Secret          string
	ProvisioningURI string
}
