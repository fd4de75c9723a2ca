package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v4"
)

// Authenticate performs the explicit password authentication against the
// configured auth collection. Transient failures are retried with exponential
// backoff for at most AuthMaxElapsed; rejected credentials fail immediately.
// A client without an identity runs unauthenticated and returns nil.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.cfg.Identity == "" {
		c.logger.Warn("No store identity configured, running unauthenticated", nil)
		return nil
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = c.cfg.AuthMaxElapsed

	attempt := 0
	operation := func() error {
		attempt++
		err := c.authenticate(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.logger.Warn("Store authentication attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return &AuthError{Collection: c.cfg.AuthCollection, Identity: c.cfg.Identity, Err: err}
	}

	c.logger.Info("Authenticated with store", map[string]interface{}{
		"collection": c.cfg.AuthCollection,
		"identity":   c.cfg.Identity,
		"attempts":   attempt,
	})
	return nil
}

// authenticate makes a single auth-with-password call and stores the token
func (c *Client) authenticate(ctx context.Context) error {
	raw, err := json.Marshal(map[string]string{
		"identity": c.cfg.Identity,
		"password": c.cfg.Password,
	})
	if err != nil {
		return err
	}

	u := *c.baseURL
	u.Path += "/api/collections/" + url.PathEscape(c.cfg.AuthCollection) + "/auth-with-password"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading auth response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, body)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decoding auth response: %w", err)
	}
	if result.Token == "" {
		return errors.New("auth response carried no token")
	}

	c.setToken(result.Token, tokenExpiry(result.Token))
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the store
// is the only party that needs to trust the token. Zero means unknown.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0)
	case json.Number:
		if v, err := exp.Int64(); err == nil {
			return time.Unix(v, 0)
		}
	}
	return time.Time{}
}

func (c *Client) setToken(token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = expiresAt
}

func (c *Client) clearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

func (c *Client) tokenValid() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", false
	}
	if !c.expiresAt.IsZero() && !c.now().Add(c.cfg.TokenRefreshMargin).Before(c.expiresAt) {
		return c.token, false
	}
	return c.token, true
}

// ensureToken returns a usable token, re-authenticating once when the current
// one is missing or about to expire. Unauthenticated clients get "".
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if c.cfg.Identity == "" {
		return "", nil
	}
	if token, ok := c.tokenValid(); ok {
		return token, nil
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()

	if token, ok := c.tokenValid(); ok {
		return token, nil
	}
	if err := c.authenticate(ctx); err != nil {
		return "", &AuthError{Collection: c.cfg.AuthCollection, Identity: c.cfg.Identity, Err: err}
	}
	token, _ := c.tokenValid()
	return token, nil
}
