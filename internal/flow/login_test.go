package flow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/flow"
	"github.com/cryptolearn/cryptolearn-tui/internal/session"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeAPIError(t *testing.T, w http.ResponseWriter, status int, code, msg string) {
	t.Helper()
	writeJSON(t, w, status, map[string]string{"error": code, "message": msg})
}

func sessionBody(access, refresh string) map[string]any {
	return map[string]any{
		"status": "ok",
		"session": map[string]string{
			"access_token":  access,
			"refresh_token": refresh,
		},
		"user": map[string]any{
			"username":    "alice",
			"email":       "alice@example.com",
			"mfa_enabled": false,
			"mfa_method":  "none",
		},
	}
}

func TestLoginFlow_DirectSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		writeJSON(t, w, http.StatusOK, sessionBody("at-1", "rt-1"))
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	f := flow.NewLogin(api.New(srv.URL, nil), store, nil)

	out, err := f.Submit(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	auth, ok := out.(flow.Authenticated)
	require.True(t, ok, "expected Authenticated, got %T", out)
	require.Equal(t, "at-1", auth.Session.AccessToken)
	require.NotNil(t, auth.Account)
	require.Equal(t, "alice", auth.Account.Username)

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rt-1", stored.RefreshToken)
	require.Equal(t, flow.StateIdle, f.State())
}

func TestLoginFlow_WrongCodeThenCorrect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"status":     "mfa_required",
				"method":     "totp",
				"subject_id": "sub-1",
			})
		case "/auth/mfa/totp/verify":
			var req struct {
				SubjectID string `json:"subject_id"`
				Code      string `json:"code"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "sub-1", req.SubjectID)
			if req.Code != "123456" {
				writeAPIError(t, w, http.StatusUnauthorized, "invalid_code", "wrong code")
				return
			}
			body := sessionBody("at-2", "rt-2")
			body["status"] = "verified"
			writeJSON(t, w, http.StatusOK, body)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	f := flow.NewLogin(api.New(srv.URL, nil), store, nil)
	ctx := context.Background()

	out, err := f.Submit(ctx, "alice", "hunter2")
	require.NoError(t, err)
	chal, ok := out.(flow.ChallengeRequired)
	require.True(t, ok, "expected ChallengeRequired, got %T", out)
	require.Equal(t, domain.MethodTOTP, chal.Challenge.Method)
	require.Equal(t, flow.StateAwaitingCode, f.State())

	// Wrong code: rejected, challenge survives, no session written.
	out, err = f.SubmitCode(ctx, "000000")
	require.NoError(t, err)
	rej, ok := out.(flow.Rejected)
	require.True(t, ok, "expected Rejected, got %T", out)
	require.Equal(t, flow.ReasonCode, rej.Reason)
	require.Equal(t, flow.StateAwaitingCode, f.State())
	_, err = store.Get(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)
	_, held := f.Challenge()
	require.True(t, held)

	// Correct code on the same challenge.
	out, err = f.SubmitCode(ctx, "123456")
	require.NoError(t, err)
	auth, ok := out.(flow.Authenticated)
	require.True(t, ok, "expected Authenticated, got %T", out)
	require.Equal(t, "at-2", auth.Session.AccessToken)

	stored, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "at-2", stored.AccessToken)
	require.Equal(t, flow.StateIdle, f.State())
	_, held = f.Challenge()
	require.False(t, held, "challenge must be consumed on success")
}

func TestLoginFlow_BadCredentials(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(t, w, http.StatusUnauthorized, "invalid_credentials", "no")
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	f := flow.NewLogin(api.New(srv.URL, nil), store, nil)

	out, err := f.Submit(context.Background(), "alice", "wrong")
	require.NoError(t, err)
	rej, ok := out.(flow.Rejected)
	require.True(t, ok)
	require.Equal(t, flow.ReasonCredentials, rej.Reason)
	_, err = store.Get(context.Background())
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoginFlow_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := flow.NewLogin(api.New(srv.URL, nil), session.NewMemoryStore(), nil)

	out, err := f.Submit(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	rej, ok := out.(flow.Rejected)
	require.True(t, ok)
	require.Equal(t, flow.ReasonTransport, rej.Reason)
}

func TestLoginFlow_ExpiredChallenge(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"status":     "mfa_required",
				"method":     "email_otp",
				"subject_id": "sub-9",
			})
			return
		}
		writeAPIError(t, w, http.StatusUnauthorized, "code_expired", "too slow")
	}))
	defer srv.Close()

	f := flow.NewLogin(api.New(srv.URL, nil), session.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := f.Submit(ctx, "alice", "hunter2")
	require.NoError(t, err)

	out, err := f.SubmitCode(ctx, "111111")
	require.NoError(t, err)
	rej, ok := out.(flow.Rejected)
	require.True(t, ok)
	require.Equal(t, flow.ReasonCodeExpired, rej.Reason)

	// Expired challenges are dead; the flow resets for a fresh login.
	require.Equal(t, flow.StateIdle, f.State())
	_, held := f.Challenge()
	require.False(t, held)
	_, err = f.SubmitCode(ctx, "111111")
	require.ErrorIs(t, err, flow.ErrNoChallenge)
}

func TestLoginFlow_CodeWithoutChallenge(t *testing.T) {
	t.Parallel()

	f := flow.NewLogin(api.New("http://127.0.0.1:0", nil), session.NewMemoryStore(), nil)
	_, err := f.SubmitCode(context.Background(), "123456")
	require.ErrorIs(t, err, flow.ErrNoChallenge)
}

func TestLoginFlow_LocalCodeValidation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("verify endpoint must not be reached for a malformed code")
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"status":     "mfa_required",
			"method":     "totp",
			"subject_id": "sub-1",
		})
	}))
	defer srv.Close()

	f := flow.NewLogin(api.New(srv.URL, nil), session.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := f.Submit(ctx, "alice", "hunter2")
	require.NoError(t, err)

	_, err = f.SubmitCode(ctx, "12345")
	var vErr *api.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, flow.StateAwaitingCode, f.State(), "local rejection keeps the challenge")
}

func TestLoginFlow_AbandonDiscardsInFlightResult(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		writeJSON(t, w, http.StatusOK, sessionBody("at-late", "rt-late"))
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	f := flow.NewLogin(api.New(srv.URL, nil), store, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(ctx, "alice", "hunter2")
		done <- err
	}()

	// Abandon while the login call is parked in the server handler.
	<-started
	f.Abandon()
	close(release)

	require.ErrorIs(t, <-done, flow.ErrStale)
	_, err := store.Get(ctx)
	require.ErrorIs(t, err, session.ErrNoSession, "stale completion must not write a session")
}
