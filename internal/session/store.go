// Package session owns the persisted token pair. The Store is the single
// source of truth for "am I authenticated" across the whole client; no
// component duplicates that answer in its own state beyond transient loading
// flags.
package session

import (
	"context"
	"errors"

	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
)

// ErrNoSession is returned by Get when no session is stored.
var ErrNoSession = errors.New("session: no session")

// Store holds the current access/refresh token pair. One instance is created
// at startup and injected everywhere; Clear is idempotent.
//
// The store never refreshes tokens on its own. Silent renewal, if wanted, is
// layered on top of Get/Set (see Renewer), never inside them.
type Store interface {
	Set(ctx context.Context, s domain.Session) error
	Get(ctx context.Context) (domain.Session, error)
	Clear(ctx context.Context) error
}
