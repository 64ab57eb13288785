package domain

// Account is the client-side view of the authenticated user. The server owns
// it; we hold a read/write-through cache populated once per account-page visit
// and replaced from the server's representation after successful mutations.
type Account struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	MFAEnabled bool   `json:"mfa_enabled"`
	MFAMethod  Method `json:"mfa_method"`
}
