package flow

import "github.com/cryptolearn/cryptolearn-tui/internal/domain"

// Outcome is the result of a credential or code submission. It is a closed
// set: Authenticated, ChallengeRequired or Rejected. Callers switch on the
// concrete type; the unexported method keeps the set closed.
type Outcome interface{ outcome() }

// Authenticated means a session was established and written to the store.
type Authenticated struct {
	Session domain.Session
	Account *domain.Account
}

// ChallengeRequired means the server wants a second factor before issuing a
// session. No session exists at this point.
type ChallengeRequired struct {
	Challenge domain.PendingChallenge

	// OTPHint is the dev-mode emailed code, present only against servers
	// that cannot send mail.
	OTPHint string
}

// Rejected means the server declined, or the network failed. The attempt
// remains re-tryable.
type Rejected struct {
	Reason RejectReason
}

func (Authenticated) outcome()     {}
func (ChallengeRequired) outcome() {}
func (Rejected) outcome()          {}

// RejectReason distinguishes why a submission was rejected. The UI wording
// hangs off this; transport failures are additionally logged distinguishably.
type RejectReason string

const (
	ReasonCredentials RejectReason = "credentials"
	ReasonCode        RejectReason = "code"
	ReasonCodeExpired RejectReason = "code_expired"
	ReasonTransport   RejectReason = "transport"
)
