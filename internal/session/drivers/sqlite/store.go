// Package sqlite is the durable session store driver. The database holds
// exactly two named entries, the access and refresh tokens; nothing else
// about an authentication attempt survives a restart.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/session"
)

// The two fixed entry names in the session_tokens table.
const (
	entryAccessToken  = "access_token"
	entryRefreshToken = "refresh_token"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Set stores the token pair, replacing whatever was there. Both entries are
// written in one transaction so a crash can never leave half a session.
func (s *Store) Set(ctx context.Context, sess domain.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
		INSERT INTO session_tokens (name, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := tx.ExecContext(ctx, upsert, entryAccessToken, sess.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, entryRefreshToken, sess.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return tx.Commit()
}

// Get returns the stored session or session.ErrNoSession when either entry
// is absent.
func (s *Store) Get(ctx context.Context) (domain.Session, error) {
	var sess domain.Session

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_tokens WHERE name = ?`, entryAccessToken,
	).Scan(&sess.AccessToken)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, session.ErrNoSession
	}
	if err != nil {
		return domain.Session{}, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM session_tokens WHERE name = ?`, entryRefreshToken,
	).Scan(&sess.RefreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, session.ErrNoSession
	}
	if err != nil {
		return domain.Session{}, err
	}

	return sess, nil
}

// Clear removes both entries. Clearing an already-empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens`)
	return err
}
