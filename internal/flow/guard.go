package flow

import (
	"context"
	"errors"

	"github.com/cryptolearn/cryptolearn-tui/internal/session"
)

// Guard gates protected views on the presence of a stored session. It checks
// presence only, the token is not validated against the server or inspected
// for expiry; a stale token surfaces as a 401 on the first protected call
// and is handled there.
type Guard struct {
	store session.Store
}

// NewGuard builds a guard over the given session store.
func NewGuard(store session.Store) *Guard {
	return &Guard{store: store}
}

// Authorized reports whether a complete session is stored. Store failures
// other than absence are returned so callers can distinguish "signed out"
// from "storage broken".
func (g *Guard) Authorized(ctx context.Context) (bool, error) {
	sess, err := g.store.Get(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return false, nil
		}
		return false, err
	}
	return sess.Complete(), nil
}
