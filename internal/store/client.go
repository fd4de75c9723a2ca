// Package store is the client of the hosted record store. All persistence,
// filtering and referential behaviour is delegated to it; this package only
// translates calls into its REST API and classifies the failures.
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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/homekey/stage-tracker/internal/resilience"
	"github.com/homekey/stage-tracker/pkg/observability"
)

const maxResponseBytes = 8 << 20

// ListOptions narrows a List call
type ListOptions struct {
	Filter string
	Sort   string
	Fields string
}

// Client talks to the record store. It is safe for concurrent use and must be
// constructed with NewClient and authenticated with Authenticate before use.
type Client struct {
	cfg        Config
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     observability.Logger
	metrics    *observability.Metrics

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	// authMu serialises re-authentication so concurrent requests share one attempt
	authMu sync.Mutex
	now    func() time.Time
}

// Option customises a Client
type Option func(*Client)

// WithLogger sets the logger
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the metrics collectors
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a store client. It does not contact the store.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", cfg.URL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid store url %q: scheme and host are required", cfg.URL)
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     observability.NewNoopLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = resilience.NewCircuitBreaker(cfg.CircuitBreaker, resilience.Options{
		IsSuccessful: func(err error) bool { return !countsAsFailure(err) },
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			c.metrics.SetBreakerState(name, int(to))
		},
	})
	c.metrics.SetBreakerState(cfg.CircuitBreaker.Name, int(gobreaker.StateClosed))

	return c, nil
}

// BreakerState reports the current circuit breaker state ("closed", "half-open", "open")
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// List returns every record of collection matching opts, walking all pages
func (c *Client) List(ctx context.Context, collection string, opts ListOptions) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("perPage", strconv.Itoa(c.cfg.PageSize))
		if opts.Filter != "" {
			query.Set("filter", opts.Filter)
		}
		if opts.Sort != "" {
			query.Set("sort", opts.Sort)
		}
		if opts.Fields != "" {
			query.Set("fields", opts.Fields)
		}

		body, err := c.do(ctx, "list", collection, http.MethodGet, recordsPath(collection, ""), query, nil)
		if err != nil {
			return nil, err
		}

		var result struct {
			Page       int               `json:"page"`
			PerPage    int               `json:"perPage"`
			TotalPages int               `json:"totalPages"`
			Items      []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decoding %s page %d: %w", collection, page, err)
		}
		all = append(all, result.Items...)

		if len(result.Items) < c.cfg.PageSize || (result.TotalPages > 0 && page >= result.TotalPages) {
			break
		}
	}
	if all == nil {
		all = []json.RawMessage{}
	}
	return all, nil
}

// Get returns one record by id
func (c *Client) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	return c.do(ctx, "get", collection, http.MethodGet, recordsPath(collection, id), nil, nil)
}

// Create stores a new record and returns it as persisted
func (c *Client) Create(ctx context.Context, collection string, payload interface{}) (json.RawMessage, error) {
	return c.do(ctx, "create", collection, http.MethodPost, recordsPath(collection, ""), nil, payload)
}

// Update applies a partial update and returns the updated record
func (c *Client) Update(ctx context.Context, collection, id string, payload interface{}) (json.RawMessage, error) {
	return c.do(ctx, "update", collection, http.MethodPatch, recordsPath(collection, id), nil, payload)
}

// Delete removes a record
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	_, err := c.do(ctx, "delete", collection, http.MethodDelete, recordsPath(collection, id), nil, nil)
	return err
}

// Health checks that the store answers its health endpoint
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health", "", http.MethodGet, "/api/health", nil, nil)
	return err
}

func recordsPath(collection, id string) string {
	p := "/api/collections/" + url.PathEscape(collection) + "/records"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

// do runs one request through the circuit breaker, with tracing and metrics
func (c *Client) do(ctx context.Context, op, collection, method, path string, query url.Values, payload interface{}) (json.RawMessage, error) {
	ctx, span := observability.StartSpan(ctx, "store."+op,
		attribute.String("store.collection", collection),
		attribute.String("http.method", method),
	)
	start := c.now()

	body, err := resilience.Execute(ctx, c.breaker, func() (json.RawMessage, error) {
		return c.send(ctx, method, path, query, payload)
	})
	if errors.Is(err, resilience.ErrOpen) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	c.metrics.RecordStoreOperation(op, collection, err == nil, c.now().Sub(start))
	observability.EndSpan(span, err)
	return body, err
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload interface{}) (json.RawMessage, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding payload: %v", ErrInvalidInput, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(resp.StatusCode, body)
		if resp.StatusCode == http.StatusUnauthorized {
			c.clearToken()
		}
		return nil, apiErr
	}
	if len(body) == 0 {
		return nil, nil
	}
	return json.RawMessage(body), nil
}
