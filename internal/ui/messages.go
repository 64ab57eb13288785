package ui

import (
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/flow"
)

// route identifies a top-level page.
type route uint8

const (
	routeLoading route = iota
	routeLogin
	routeRegister
	routeAccount
)

// navigateMsg switches the active page. Navigation to the account page is
// re-checked against the guard before the page is shown.
type navigateMsg struct{ to route }

// guardCheckedMsg is the result of the session presence check that gates the
// account page.
type guardCheckedMsg struct {
	authorized bool
	err        error
}

// loginOutcomeMsg carries the result of a credential submission.
type loginOutcomeMsg struct {
	outcome flow.Outcome
	err     error
}

// verifyOutcomeMsg carries the result of an MFA code submission.
type verifyOutcomeMsg struct {
	outcome flow.Outcome
	err     error
}

// registerDoneMsg carries the result of account registration. Enrollment is
// non-nil when the account was created with an authenticator pending setup.
type registerDoneMsg struct {
	account    domain.Account
	enrollment *domain.EnrollmentMaterial
	err        error
}

// enrollVerifiedMsg carries the result of an enrollment code submission.
type enrollVerifiedMsg struct{ err error }

// accountLoadedMsg carries the account representation for the account page.
type accountLoadedMsg struct {
	account domain.Account
	err     error
}

// accountUpdatedMsg carries the result of a profile or password mutation.
type accountUpdatedMsg struct {
	account domain.Account
	err     error
}

// mfaChangedMsg carries the result of an MFA method switch. Material is
// non-nil when the new method needs authenticator enrollment.
type mfaChangedMsg struct {
	material *domain.EnrollmentMaterial
	err      error
}

// loggedOutMsg confirms local sign-out.
type loggedOutMsg struct{ err error }
