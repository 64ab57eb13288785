package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cryptolearn/cryptolearn-tui/pkg/idx"
)

// doJSON performs a JSON request against the service and decodes the response
// into out (which may be nil for calls whose body is ignored). A non-nil
// bearer token is attached as an Authorization header. Responses with a
// status other than expectedStatus are turned into typed errors.
func (c *Client) doJSON(
	ctx context.Context,
	method, path, bearer string,
	body, out any,
	expectedStatus int,
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Err: err}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := idx.New()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			"method", method, "path", path, "request_id", requestID)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("request",
		"method", method, "path", path,
		"status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &TransportError{Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
