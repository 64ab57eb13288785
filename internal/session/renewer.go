package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
)

// Renewer exchanges the stored refresh token for a fresh token pair. It is
// deliberately layered on top of Store.Get/Set rather than built into the
// store: components that want silent renewal call it explicitly, and the
// store's contract stays a dumb token holder.
type Renewer struct {
	store Store
	api   *api.Client
	log   *slog.Logger

	// mu serialises renewals so two callers racing on an expired token do
	// not burn two refresh grants.
	mu sync.Mutex
}

// NewRenewer builds a Renewer over the given store and API client.
func NewRenewer(store Store, client *api.Client, logger *slog.Logger) *Renewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renewer{store: store, api: client, log: logger}
}

// Renew replaces the stored session with a freshly issued one. On any
// failure the stored session is left exactly as it was; in particular a
// refused refresh token does NOT clear the store here. That decision belongs
// to the caller's unauthorized handling.
func (r *Renewer) Renew(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.Get(ctx)
	if err != nil {
		return err
	}

	renewed, err := r.api.Refresh(ctx, current.RefreshToken)
	if err != nil {
		r.log.Warn("session renewal failed", "err", err)
		return err
	}

	// A server that rotates only the access token echoes the refresh token
	// back empty; keep the one we have.
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = current.RefreshToken
	}
	return r.store.Set(ctx, renewed)
}
