// Package flow contains the authentication state machines: credential
// submission with optional second-factor resolution, TOTP enrollment, the
// route guard, and the account controller. The flows are UI-agnostic; the
// terminal pages in internal/ui drive them and render their state.
//
// Every flow holds at most one in-flight call; concurrent submissions are
// refused with ErrBusy rather than queued. A call that outlives its flow
// (the user abandoned the attempt or the page was torn down) completes in the
// background but its result is discarded, reported to the caller as ErrStale.
package flow

import "errors"

var (
	// ErrBusy means a call for this flow is already in flight.
	ErrBusy = errors.New("flow: call already in flight")

	// ErrStale means the flow moved on while the call was in flight and the
	// result was discarded.
	ErrStale = errors.New("flow: stale completion discarded")

	// ErrNoChallenge means a code was submitted with no pending challenge.
	ErrNoChallenge = errors.New("flow: no pending challenge")

	// ErrNoEnrollment means a code was submitted with no enrollment in
	// progress.
	ErrNoEnrollment = errors.New("flow: no enrollment in progress")
)
