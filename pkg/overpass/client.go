package overpass

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/logging"
)

const (
	// DefaultAPIURL is the public Overpass interpreter endpoint.
	DefaultAPIURL = "https://overpass-api.de/api/interpreter"

	// DefaultUserAgent identifies sync runs to the upstream operators.
	DefaultUserAgent = "SIPI-Heritage-System/1.0"

	// clientSlack is added on top of the server-side timeout so the HTTP
	// client does not give up before the server does.
	clientSlack = 60 * time.Second
)

// Client fetches raw elements from an Overpass API endpoint. A fetch failure
// is fatal for the sync run: no partial result is ever returned.
type Client struct {
	apiURL    string
	userAgent string
	timeouts  Timeouts
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL overrides the Overpass endpoint.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = u
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeouts overrides the per-scope query budgets.
func WithTimeouts(t Timeouts) Option {
	return func(c *Client) {
		c.timeouts = t
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates an Overpass client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		apiURL:    DefaultAPIURL,
		userAgent: DefaultUserAgent,
		timeouts:  DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// Timeouts returns the client's per-scope query budgets.
func (c *Client) Timeouts() Timeouts {
	return c.timeouts
}

// Fetch issues one blocking Overpass query for the scope and returns the raw
// elements. Any transport failure, timeout, or non-2xx status yields a typed
// *errors.APIError.
func (c *Client) Fetch(ctx context.Context, scope Scope) ([]Element, error) {
	query := BuildQuery(scope, c.timeouts)
	return c.Run(ctx, scope, query)
}

// Run executes an already-built query under the scope's timeout budget.
func (c *Client) Run(ctx context.Context, scope Scope, query string) ([]Element, error) {
	budget := c.timeouts.For(scope) + clientSlack
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &errors.APIError{
			Source:   "overpass",
			Endpoint: c.apiURL,
			Message:  "failed to build request",
			Err:      err,
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	logging.Ctx(ctx).Debug().
		Str("scope", scope.Key()).
		Dur("budget", budget).
		Msg("issuing overpass query")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &errors.APIError{
			Source:   "overpass",
			Endpoint: c.apiURL,
			Message:  "request failed",
			Err:      classify(err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &errors.APIError{
			Source:     "overpass",
			Endpoint:   c.apiURL,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &errors.APIError{
			Source:   "overpass",
			Endpoint: c.apiURL,
			Message:  "malformed response body",
			Err:      err,
		}
	}

	logging.Ctx(ctx).Info().
		Str("scope", scope.Key()).
		Int("elements", len(parsed.Elements)).
		Msg("overpass fetch complete")

	return parsed.Elements, nil
}

// classify maps context expiry onto the package sentinels so callers can
// distinguish a timed-out query from a refused connection.
func classify(err error) error {
	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", errors.ErrTimeout, err)
	case goerrors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", errors.ErrCanceled, err)
	}
	return err
}
