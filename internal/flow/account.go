package flow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/session"
)

// AccountController owns the signed-in account view: it loads the profile
// once per session, applies updates, and tears the session down on sign-out
// or when the server stops honouring the stored token.
//
// The cached account is only ever replaced with a representation the server
// returned. Local edits never write to the cache directly.
type AccountController struct {
	api   *api.Client
	store session.Store
	log   *slog.Logger

	mu       sync.Mutex
	cached   *domain.Account
	inFlight bool
}

// NewAccount builds an account controller over the given client and store.
func NewAccount(client *api.Client, store session.Store, logger *slog.Logger) *AccountController {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountController{api: client, store: store, log: logger}
}

// Cached returns the last server representation of the account, if any.
func (c *AccountController) Cached() (domain.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		return domain.Account{}, false
	}
	return *c.cached, true
}

// Invalidate drops the cached account so the next Load refetches.
func (c *AccountController) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

// Load returns the account, fetching it from the server only when no cached
// representation exists.
func (c *AccountController) Load(ctx context.Context) (domain.Account, error) {
	c.mu.Lock()
	if c.cached != nil {
		acct := *c.cached
		c.mu.Unlock()
		return acct, nil
	}
	c.mu.Unlock()

	return c.call(ctx, func(ctx context.Context, token string) (*api.AccountResult, error) {
		return c.api.GetAccount(ctx, token)
	})
}

// UpdateProfile changes username and/or email. Nil fields are left alone.
func (c *AccountController) UpdateProfile(ctx context.Context, username, email *string) (domain.Account, error) {
	return c.call(ctx, func(ctx context.Context, token string) (*api.AccountResult, error) {
		return c.api.UpdateAccount(ctx, token, api.AccountUpdate{Username: username, Email: email})
	})
}

// UpdatePassword replaces the account secret. The profile fields are
// untouched; the cache is refreshed from whatever the server returns.
func (c *AccountController) UpdatePassword(ctx context.Context, secret string) (domain.Account, error) {
	return c.call(ctx, func(ctx context.Context, token string) (*api.AccountResult, error) {
		return c.api.UpdateAccount(ctx, token, api.AccountUpdate{Secret: &secret})
	})
}

// UpdateMFA switches the second-factor method. Switching to an authenticator
// returns fresh enrollment material that must be verified before the method
// is active; other methods return nil material.
func (c *AccountController) UpdateMFA(ctx context.Context, method domain.Method) (*domain.EnrollmentMaterial, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	sess, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	result, err := c.api.UpdateAccount(ctx, sess.AccessToken, api.AccountUpdate{MFAMethod: &method})
	if err != nil {
		return nil, c.handleAuthErr(ctx, err)
	}

	c.mu.Lock()
	c.cached = &result.Account
	c.mu.Unlock()

	if result.Enrollment != nil {
		c.log.Info("mfa method change pending enrollment", "method", method.String())
	}
	return result.Enrollment, nil
}

// Logout clears the stored session and the cached account. It is local only;
// the server keeps its own token lifetimes.
func (c *AccountController) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.log.Info("signed out")
	return nil
}

// call runs one authenticated account operation with in-flight suppression,
// refreshing the cache from the server's response.
func (c *AccountController) call(ctx context.Context, op func(context.Context, string) (*api.AccountResult, error)) (domain.Account, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return domain.Account{}, ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	sess, err := c.store.Get(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	result, err := op(ctx, sess.AccessToken)
	if err != nil {
		return domain.Account{}, c.handleAuthErr(ctx, err)
	}

	c.mu.Lock()
	c.cached = &result.Account
	c.mu.Unlock()
	return result.Account, nil
}

// handleAuthErr clears the session when the server no longer honours the
// stored token. The caller still gets the original error.
func (c *AccountController) handleAuthErr(ctx context.Context, err error) error {
	if api.IsUnauthorized(err) {
		c.log.Info("stored session rejected, clearing")
		c.mu.Lock()
		c.cached = nil
		c.mu.Unlock()
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.log.Warn("failed to clear rejected session", "err", clearErr)
		}
	}
	return err
}
