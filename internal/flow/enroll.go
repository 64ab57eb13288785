package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/pkg/idx"
)

// EnrollmentFlow drives authenticator enrollment after registration: the
// server hands back a shared secret and provisioning URI, the user loads it
// into an authenticator app, and a single correct code activates it.
//
// The secret is held in memory only and is destroyed on activation or
// abandonment. It is never written to the session store or any other
// durable surface.
type EnrollmentFlow struct {
	api *api.Client
	log *slog.Logger

	mu        sync.Mutex
	material  *domain.EnrollmentMaterial
	activated bool
	inFlight  bool

	// attempt changes on Begin and Abandon; an in-flight verification whose
	// attempt no longer matches has its result discarded.
	attempt idx.ID
}

// NewEnrollment builds an enrollment flow over the given API client.
func NewEnrollment(client *api.Client, logger *slog.Logger) *EnrollmentFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrollmentFlow{api: client, log: logger, attempt: idx.New()}
}

// Begin arms the flow with enrollment material from a registration or MFA
// method change. Any previous material is discarded.
func (f *EnrollmentFlow) Begin(material domain.EnrollmentMaterial) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.material = &material
	f.activated = false
	f.attempt = idx.New()
}

// Material returns the pending enrollment material for display.
func (f *EnrollmentFlow) Material() (domain.EnrollmentMaterial, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.material == nil {
		return domain.EnrollmentMaterial{}, false
	}
	return *f.material, true
}

// Activated reports whether enrollment completed in this flow's lifetime.
func (f *EnrollmentFlow) Activated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activated
}

// Verify submits a code generated from the pending secret. On success the
// material is destroyed and the flow is done; the authenticator is active
// server-side. Any session tokens in the verification response are ignored
// here, enrollment does not sign the user in.
func (f *EnrollmentFlow) Verify(ctx context.Context, code string) error {
	f.mu.Lock()
	if f.material == nil {
		f.mu.Unlock()
		return ErrNoEnrollment
	}
	if f.inFlight {
		f.mu.Unlock()
		return ErrBusy
	}
	if err := api.ValidateCode(code); err != nil {
		f.mu.Unlock()
		return err
	}
	challenge := domain.PendingChallenge{
		SubjectID: f.material.SubjectID,
		Method:    domain.MethodTOTP,
	}
	attempt := f.attempt
	f.inFlight = true
	f.mu.Unlock()

	_, err := f.api.VerifyCode(ctx, challenge, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false

	if f.attempt != attempt {
		// The enrollment was abandoned or restarted while the call was in
		// flight. Even a success must not activate the flow now.
		f.log.Debug("discarding stale enrollment completion", "attempt", attempt)
		return ErrStale
	}

	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			f.log.Info("enrollment code rejected", "subject", challenge.SubjectID)
		}
		return err
	}

	f.material = nil
	f.activated = true
	f.log.Info("authenticator enrolled", "subject", challenge.SubjectID)
	return nil
}

// Abandon destroys any pending material without activating. In-flight
// verifications for the attempt will be dropped when they land. The account
// may be left with an authenticator the server considers pending; that is
// the server's state to reconcile.
func (f *EnrollmentFlow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.material = nil
	f.activated = false
	f.attempt = idx.New()
}
