package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/session"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewMemoryStore()

	_, err := store.Get(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)

	want := domain.Session{AccessToken: "at-1", RefreshToken: "rt-1"}
	require.NoError(t, store.Set(ctx, want))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)

	// Clear is idempotent.
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
}

func TestMemoryStoreSetOverwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewMemoryStore()

	require.NoError(t, store.Set(ctx, domain.Session{AccessToken: "old", RefreshToken: "old"}))
	require.NoError(t, store.Set(ctx, domain.Session{AccessToken: "new", RefreshToken: "new"}))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", got.AccessToken)
}

func TestRenewerReplacesStoredSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		require.Equal(t, "Bearer rt-old", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session": map[string]string{"access_token": "at-new", "refresh_token": ""},
		})
	}))
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	require.NoError(t, store.Set(ctx, domain.Session{AccessToken: "at-old", RefreshToken: "rt-old"}))

	renewer := session.NewRenewer(store, api.New(srv.URL, nil), nil)
	require.NoError(t, renewer.Renew(ctx))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "at-new", got.AccessToken)
	// Refresh token not rotated by the server stays as it was.
	require.Equal(t, "rt-old", got.RefreshToken)
}

func TestRenewerFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_token"})
	}))
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	want := domain.Session{AccessToken: "at", RefreshToken: "rt"}
	require.NoError(t, store.Set(ctx, want))

	renewer := session.NewRenewer(store, api.New(srv.URL, nil), nil)
	require.Error(t, renewer.Renew(ctx))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
