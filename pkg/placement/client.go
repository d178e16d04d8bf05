// Package placement is a client for the OpenStack placement API: resource
// providers, their inventories, aggregates, traits and usages, and the
// resource classes they are counted in.
//
// Every write that carries a resource provider generation may fail with
// ErrGenerationConflict when another writer updated the provider first.
// Writes that fetch the generation themselves retry such conflicts.
package placement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/clock"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
	"github.com/alexisbeaulieu97/netlib/pkg/logging"
)

const (
	// DefaultMicroversion is the API version requested when none is configured.
	DefaultMicroversion = "1.39"
	// DefaultTimeout bounds each HTTP exchange.
	DefaultTimeout = 30 * time.Second
	// DefaultConflictRetries is how often a generation conflict is retried.
	DefaultConflictRetries = 3
	// DefaultConflictDelay is the wait between generation conflict retries.
	DefaultConflictDelay = 100 * time.Millisecond

	versionHeader = "OpenStack-API-Version"
	tokenHeader   = "X-Auth-Token"
)

// RequestObserver is told about every completed HTTP exchange. code is zero
// when no response was received.
type RequestObserver interface {
	ObservePlacementRequest(method string, code int, duration time.Duration)
}

// Options configures a Client.
type Options struct {
	Endpoint     string
	Microversion string
	Token        string
	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration

	ConflictRetries int
	ConflictDelay   time.Duration
	Clock           clock.Clock

	Logger   logging.Logger
	Observer RequestObserver
}

// Client talks to one placement endpoint. It is safe for concurrent use.
type Client struct {
	base         *url.URL
	microversion string
	token        string
	http         *http.Client

	conflictRetries int
	conflictDelay   time.Duration
	clock           clock.Clock

	logger   logging.Logger
	observer RequestObserver
}

// New creates a Client for opts.Endpoint.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, neterrors.Invalid("placement endpoint is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.Endpoint, "/"))
	if err != nil {
		return nil, neterrors.Invalid(fmt.Sprintf("placement endpoint %q: %v", opts.Endpoint, err))
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, neterrors.Invalid(fmt.Sprintf("placement endpoint %q is not an absolute URL", opts.Endpoint))
	}

	c := &Client{
		base:            base,
		microversion:    opts.Microversion,
		token:           opts.Token,
		http:            opts.HTTPClient,
		conflictRetries: opts.ConflictRetries,
		conflictDelay:   opts.ConflictDelay,
		clock:           opts.Clock,
		logger:          logging.OrNoOp(opts.Logger).With("component", "placement"),
		observer:        opts.Observer,
	}
	if c.microversion == "" {
		c.microversion = DefaultMicroversion
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.conflictRetries <= 0 {
		c.conflictRetries = DefaultConflictRetries
	}
	if c.conflictDelay <= 0 {
		c.conflictDelay = DefaultConflictDelay
	}
	if c.clock == nil {
		c.clock = clock.WallClock
	}
	return c, nil
}

// Microversion returns the API version sent with every request.
func (c *Client) Microversion() string {
	return c.microversion
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request. A non-nil in is encoded as the JSON body; a non-nil
// out receives the decoded JSON response. It returns the status code.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(versionHeader, "placement "+c.microversion)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		c.logger.Warn(ctx, "placement request failed", "method", method, "path", path, "error", err)
		return 0, neterrors.Internal(fmt.Sprintf("placement %s %s", method, path), err)
	}
	defer resp.Body.Close()
	c.observe(method, resp.StatusCode, start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug(ctx, "placement request", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, responseError(method, path, resp.StatusCode, respBody)
	}
	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) observe(method string, code int, start time.Time) {
	if c.observer != nil {
		c.observer.ObservePlacementRequest(method, code, time.Since(start))
	}
}
