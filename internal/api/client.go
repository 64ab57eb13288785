// Package api is the HTTP client for the CryptoLearn authentication service.
//
// It owns the consumed wire contract (login, MFA verification, registration,
// account reads and mutations) and the client-side error taxonomy. Everything
// above this package works with domain types and typed errors; nothing else
// in the client touches HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultTimeout = 10 * time.Second

// Client talks to the CryptoLearn auth API. It is unauthenticated by itself;
// calls that need a bearer token take it explicitly, so token custody stays
// with the session store.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// limiter is a client-side politeness throttle. The server rate-limits
	// auth endpoints per source; staying under that limit keeps a busy UI
	// from turning into a lockout.
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a client for the service at baseURL.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		logger:     logger,
	}
}
