package dataprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/eventbus"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Session is the client state the provider needs from one shell session.
type Session interface {
	ID() string
	// AccessToken returns the stored access token, or "" when none is stored.
	AccessToken(ctx context.Context) (string, error)
	// Refresh exchanges the refresh token for a new access token and stores it.
	Refresh(ctx context.Context) (string, error)
	// Teardown removes the identity and permission state of the session.
	Teardown(ctx context.Context) error
}

// Request is one backend call relative to the API base URL.
type Request struct {
	Method string
	Path   string
	Query  Query
	Body   any
}

func (r Request) idempotent() bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// Response is a successful backend answer.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client talks to the pharmacy REST backend. It is shared by every session.
type Client struct {
	base      *url.URL
	http      *http.Client
	bus       *eventbus.Bus
	logger    *zap.Logger
	refreshes singleflight.Group
	teardowns singleflight.Group
}

// New builds a client for baseURL, e.g. http://localhost:8000/api/.
func New(baseURL string, httpClient *http.Client, bus *eventbus.Bus, logger *zap.Logger) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("dataprovider: invalid backend url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:   base,
		http:   httpClient,
		bus:    bus,
		logger: logger.Named("dataprovider"),
	}, nil
}

// For returns the provider acting on behalf of session.
func (c *Client) For(session Session) *Provider {
	return &Provider{client: c, session: session}
}

// Call performs a single request with an explicit token and no refresh
// handling. The auth flow uses it for the token endpoints.
func (c *Client) Call(ctx context.Context, req Request, token string) (*Response, error) {
	return c.send(ctx, req, token)
}

// send performs req, retrying a read once on transport failure or a 5xx.
func (c *Client) send(ctx context.Context, req Request, token string) (*Response, error) {
	resp, err := c.roundTrip(ctx, req, token)
	if err == nil || !req.idempotent() || !retryable(err) || ctx.Err() != nil {
		return resp, err
	}
	c.logger.Warn("backend read failed, retrying once",
		zap.String("path", req.Path), zap.Error(err))
	return c.roundTrip(ctx, req, token)
}

func retryable(err error) bool {
	var be *apperrors.BackendError
	if errors.As(err, &be) {
		return be.Transient()
	}
	return true
}

func (c *Client) roundTrip(ctx context.Context, req Request, token string) (*Response, error) {
	target := c.base.ResolveReference(&url.URL{Path: req.Path})
	target.RawQuery = req.Query.Encode()

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("dataprovider: encode %s body: %w", req.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("backend request", zap.String("method", req.Method), zap.String("url", target.String()))

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dataprovider: %s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("dataprovider: read %s: %w", req.Path, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &apperrors.BackendError{
			Status: httpResp.StatusCode,
			Method: req.Method,
			Path:   req.Path,
			Body:   rawJSON(raw),
		}
	}
	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: raw}, nil
}

// rawJSON keeps a backend payload as is when it is JSON and quotes it
// otherwise, so it can be embedded in our own responses.
func rawJSON(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}

func isUnauthorized(err error) bool {
	var be *apperrors.BackendError
	return errors.As(err, &be) && be.Status == http.StatusUnauthorized
}

// RefreshTimeout bounds a token refresh, which runs detached from the request
// that started it.
const RefreshTimeout = 15 * time.Second

// Abandoned reports whether err comes from the caller giving up rather than
// from the backend. Such errors must not expire the session.
func Abandoned(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// refresh coalesces concurrent refreshes of the same session into one call.
// The call outlives the caller that started it, so the other waiters are not
// failed by its cancellation.
func (c *Client) refresh(ctx context.Context, s Session) (string, error) {
	v, err, shared := c.refreshes.Do(s.ID(), func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RefreshTimeout)
		defer cancel()
		return s.Refresh(rctx)
	})
	if shared {
		c.logger.Debug("joined in-flight token refresh", zap.String("session", s.ID()))
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// expire tears the session down and raises a single auth error for it.
func (c *Client) expire(ctx context.Context, s Session, cause error) error {
	_, _, _ = c.teardowns.Do(s.ID(), func() (interface{}, error) {
		if err := s.Teardown(ctx); err != nil {
			c.logger.Error("session teardown failed", zap.String("session", s.ID()), zap.Error(err))
		}
		c.logger.Info("session expired", zap.String("session", s.ID()), zap.Error(cause))
		c.bus.Publish(ctx, eventbus.AuthError{SessionID: s.ID(), Reason: cause.Error()})
		return nil, nil
	})
	return fmt.Errorf("%w: %v", apperrors.ErrSessionExpired, cause)
}
