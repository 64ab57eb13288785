package domain

// Session is the access/refresh token pair representing an authenticated
// client. Both tokens are opaque to us; the server owns their semantics.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Complete reports whether both tokens are present. A Session missing either
// half never authorizes anything.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Credentials is the transient identifier/password pair handed to the login
// endpoint. It is never persisted and only lives for the duration of a single
// submit call.
type Credentials struct {
	Identifier string // username or email
	Secret     string
}
