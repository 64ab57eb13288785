package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/session"
	"github.com/cryptolearn/cryptolearn-tui/pkg/idx"
)

// LoginState is where a login attempt currently stands.
type LoginState uint8

const (
	// StateIdle: no attempt in progress; credentials may be submitted.
	StateIdle LoginState = iota
	// StateAwaitingCode: the server challenged for a second factor.
	StateAwaitingCode
	// StateVerifying: a code verification call is in flight.
	StateVerifying
)

// LoginFlow is the credential submitter and MFA challenge resolver over a
// single authentication attempt.
//
// Invariant: a session and a pending challenge are mutually exclusive. While
// a challenge is held no session has been written; the moment a session is
// written the challenge is discarded. The challenge itself is never
// persisted, so a process restart restarts the whole attempt.
type LoginFlow struct {
	api   *api.Client
	store session.Store
	log   *slog.Logger

	mu        sync.Mutex
	state     LoginState
	challenge *domain.PendingChallenge
	inFlight  bool
	// attempt changes whenever the flow is reset or advanced; an in-flight
	// call whose attempt no longer matches has its result discarded.
	attempt idx.ID
}

// NewLogin builds a login flow over the given API client and session store.
func NewLogin(client *api.Client, store session.Store, logger *slog.Logger) *LoginFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginFlow{
		api:     client,
		store:   store,
		log:     logger,
		attempt: idx.New(),
	}
}

// State returns the current state.
func (f *LoginFlow) State() LoginState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Challenge returns the pending challenge, if any.
func (f *LoginFlow) Challenge() (domain.PendingChallenge, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challenge == nil {
		return domain.PendingChallenge{}, false
	}
	return *f.challenge, true
}

// Submit starts a fresh authentication attempt with the given credentials.
// Empty fields fail fast with a ValidationError and no network call.
func (f *LoginFlow) Submit(ctx context.Context, identifier, secret string) (Outcome, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	// Submitting credentials abandons any previous challenge.
	f.challenge = nil
	f.state = StateIdle
	f.inFlight = true
	attempt := idx.New()
	f.attempt = attempt
	f.mu.Unlock()

	result, err := f.api.Login(ctx, domain.Credentials{Identifier: identifier, Secret: secret})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false

	if f.attempt != attempt {
		f.log.Debug("discarding stale login completion", "attempt", attempt)
		return nil, ErrStale
	}

	if err != nil {
		var vErr *api.ValidationError
		if errors.As(err, &vErr) {
			return nil, err
		}
		return f.rejectLocked(attempt, err, ReasonCredentials), nil
	}

	if result.MFARequired() {
		f.challenge = result.Challenge
		f.state = StateAwaitingCode
		f.log.Info("second factor required",
			"attempt", attempt, "method", result.Challenge.Method.String())
		return ChallengeRequired{Challenge: *result.Challenge, OTPHint: result.OTPHint}, nil
	}

	if err := f.store.Set(ctx, *result.Session); err != nil {
		return nil, err
	}
	f.log.Info("authenticated", "attempt", attempt)
	return Authenticated{Session: *result.Session, Account: result.Account}, nil
}

// SubmitCode verifies a one-time code against the pending challenge. Codes
// that are not exactly six digits are rejected locally. A server rejection
// returns the flow to AwaitingCode with the same challenge still valid; the
// server, not the client, enforces attempt lockout and challenge expiry.
func (f *LoginFlow) SubmitCode(ctx context.Context, code string) (Outcome, error) {
	f.mu.Lock()
	if f.challenge == nil {
		f.mu.Unlock()
		return nil, ErrNoChallenge
	}
	if f.inFlight || f.state == StateVerifying {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	if err := api.ValidateCode(code); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	challenge := *f.challenge
	attempt := f.attempt
	f.state = StateVerifying
	f.inFlight = true
	f.mu.Unlock()

	result, err := f.api.VerifyCode(ctx, challenge, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false

	if f.attempt != attempt {
		// The attempt was abandoned while the call was in flight. Even a
		// successful verification must not establish a session now.
		f.log.Debug("discarding stale verification completion", "attempt", attempt)
		return nil, ErrStale
	}

	if err != nil {
		outcome := f.rejectLocked(attempt, err, ReasonCode)
		if rej, ok := outcome.(Rejected); ok && rej.Reason == ReasonCodeExpired {
			// The challenge is dead server-side; a fresh login is needed.
			f.challenge = nil
			f.state = StateIdle
			f.attempt = idx.New()
			return outcome, nil
		}
		f.state = StateAwaitingCode
		return outcome, nil
	}

	if result.Session == nil {
		f.state = StateAwaitingCode
		return Rejected{Reason: ReasonTransport}, nil
	}

	if err := f.store.Set(ctx, *result.Session); err != nil {
		f.state = StateAwaitingCode
		return nil, err
	}

	// Session written: the challenge is consumed and a new attempt token
	// invalidates any stragglers.
	f.challenge = nil
	f.state = StateIdle
	f.attempt = idx.New()
	f.log.Info("second factor resolved", "attempt", attempt)
	return Authenticated{Session: *result.Session, Account: result.Account}, nil
}

// Abandon discards the current attempt and any pending challenge. In-flight
// completions for the attempt will be dropped when they land.
func (f *LoginFlow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenge = nil
	f.state = StateIdle
	f.attempt = idx.New()
}

// rejectLocked maps an API error onto a Rejected outcome. Callers hold f.mu.
func (f *LoginFlow) rejectLocked(attempt idx.ID, err error, fallback RejectReason) Outcome {
	if api.IsTransport(err) {
		f.log.Warn("transport failure during authentication", "attempt", attempt, "err", err)
		return Rejected{Reason: ReasonTransport}
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Code == api.CodeCodeExpired {
		f.log.Info("challenge expired", "attempt", attempt)
		return Rejected{Reason: ReasonCodeExpired}
	}

	f.log.Info("authentication rejected", "attempt", attempt, "err", err)
	return Rejected{Reason: fallback}
}
