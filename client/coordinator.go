// Package client provides the consumer-side half of the token lifecycle: an
// http.RoundTripper that attaches the access token, refreshes it on 401 with
// at most one refresh call in flight, and replays queued requests with the
// new token.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrAuthLost is returned for requests whose refresh flight failed. The
// session is gone; the caller must re-authenticate.
var ErrAuthLost = errors.New("authentication lost")

// RefreshFunc performs the actual refresh call and returns the new access
// token. It runs outside the coordinator's transport, so it can never be
// intercepted and recurse. The credential (typically a cookie) travels with
// whatever client the function uses.
type RefreshFunc func(ctx context.Context) (string, error)

// Config assembles a Coordinator.
type Config struct {
	// Base executes requests. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// Refresh is called, once per expiry, to obtain a new access token.
	// Required.
	Refresh RefreshFunc
	// OnAuthLost fires exactly once per failed refresh flight, after the
	// held token is cleared. Typically wired to the app's logout routine.
	OnAuthLost func()
	// SkipPathPrefix marks endpoints whose 401s are final, preventing a
	// failed login or refresh from triggering another refresh. Defaults to
	// "/auth/".
	SkipPathPrefix string
	// FlightTimeout bounds each refresh flight. A flight that exceeds it is
	// treated as a failed refresh: every waiter gets ErrAuthLost and
	// OnAuthLost fires once. Zero selects 15 seconds; negative disables the
	// bound, leaving timeout discipline to the RefreshFunc.
	FlightTimeout time.Duration
}

const defaultFlightTimeout = 15 * time.Second

// flight is one in-progress refresh. Waiters block on done and then read the
// outcome; both fields are written before done is closed.
type flight struct {
	done  chan struct{}
	token string
	err   error
}

// Coordinator is a concurrency-safe http.RoundTripper implementing the
// client refresh protocol: requests carry the current access token; a 401
// triggers one shared refresh; concurrent 401 holders wait for that flight
// and retry with its token.
type Coordinator struct {
	base          http.RoundTripper
	refresh       RefreshFunc
	onAuthLost    func()
	skipPrefix    string
	flightTimeout time.Duration

	mu       sync.Mutex
	token    string
	inflight *flight
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Refresh == nil {
		return nil, errors.New("client: Refresh is required")
	}
	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}
	skip := cfg.SkipPathPrefix
	if skip == "" {
		skip = "/auth/"
	}
	timeout := cfg.FlightTimeout
	if timeout == 0 {
		timeout = defaultFlightTimeout
	}
	return &Coordinator{
		base:          base,
		refresh:       cfg.Refresh,
		onAuthLost:    cfg.OnAuthLost,
		skipPrefix:    skip,
		flightTimeout: timeout,
	}, nil
}

// SetToken installs the access token obtained from login.
func (c *Coordinator) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the currently held access token.
func (c *Coordinator) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// RoundTrip implements http.RoundTripper.
func (c *Coordinator) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := c.send(req, c.Token())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if strings.HasPrefix(req.URL.Path, c.skipPrefix) {
		return resp, nil
	}
	// A consumed body without GetBody cannot be replayed; the 401 stands.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	drain(resp)

	token, err := c.awaitRefresh(req.Context())
	if err != nil {
		return nil, err
	}
	return c.send(req, token)
}

// send executes one attempt on a clone of req so the original body is never
// consumed twice.
func (c *Coordinator) send(req *http.Request, token string) (*http.Response, error) {
	attempt := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("client: replay body: %w", err)
		}
		attempt.Body = body
	}
	if token != "" {
		attempt.Header.Set("Authorization", "Bearer "+token)
	}
	return c.base.RoundTrip(attempt)
}

// awaitRefresh returns the token produced by the current refresh flight,
// starting one if none is running. The starter executes the refresh; everyone
// else waits for the shared outcome or their own context, whichever ends
// first.
func (c *Coordinator) awaitRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if f := c.inflight; f != nil {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.token, f.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	c.inflight = f
	c.mu.Unlock()

	// The flight deliberately ignores the triggering request's context: a
	// canceled request must not fail the refresh every waiter depends on.
	// The flight timeout is the only bound.
	flightCtx := context.Background()
	cancel := context.CancelFunc(func() {})
	if c.flightTimeout > 0 {
		flightCtx, cancel = context.WithTimeout(flightCtx, c.flightTimeout)
	}
	token, err := c.refresh(flightCtx)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrAuthLost, err)
	}

	c.mu.Lock()
	f.token, f.err = token, err
	c.inflight = nil
	if err == nil {
		c.token = token
	} else {
		c.token = ""
	}
	c.mu.Unlock()
	close(f.done)

	if err != nil && c.onAuthLost != nil {
		c.onAuthLost()
	}

	return token, err
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// RefreshViaEndpoint returns a RefreshFunc that POSTs to the server's refresh
// endpoint and decodes the access token from the response body. The client
// must carry the refresh credential; with the default cookie channel that
// means a non-nil cookie Jar.
func RefreshViaEndpoint(httpClient *http.Client, url string) RefreshFunc {
	return func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return "", err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			drain(resp)
			return "", fmt.Errorf("refresh endpoint returned %d", resp.StatusCode)
		}
		var body struct {
			AccessToken string `json:"accessToken"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode refresh response: %w", err)
		}
		if body.AccessToken == "" {
			return "", errors.New("refresh response missing access token")
		}
		return body.AccessToken, nil
	}
}
