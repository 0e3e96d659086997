package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jfxdev/go-transmission/request"
)

// New creates a client for the daemon described by config.
func New(config Config) (*Client, error) {
	c := &Client{}
	if err := c.apply(config); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the client configuration. The session token and cached
// server capabilities are dropped since they belong to the previous daemon.
func (c *Client) Update(config Config) error {
	if err := c.apply(config); err != nil {
		return err
	}
	c.token.reset()
	c.invalidateCapabilities()
	return nil
}

func (c *Client) apply(config Config) error {
	rpcURL, err := parseBaseURL(config.BaseURL)
	if err != nil {
		return err
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := config.RequestBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	c.mu.Lock()
	c.config = config
	c.rpcURL = rpcURL.String()
	c.client = httpClient
	c.logger = newLogger(config)
	c.limiter = limiter
	c.mu.Unlock()
	return nil
}

func newLogger(config Config) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.Debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.Default()
}

func (c *Client) connection() connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return connection{
		url:      c.rpcURL,
		http:     c.client,
		timeout:  c.config.RequestTimeout,
		username: c.config.Username,
		password: c.config.Password,
		limiter:  c.limiter,
		logger:   c.logger,
	}
}

// Close drops the session token and idle connections.
func (c *Client) Close() error {
	c.token.reset()
	c.mu.RLock()
	httpClient := c.client
	c.mu.RUnlock()
	if httpClient != nil {
		httpClient.CloseIdleConnections()
	}
	return nil
}

// PerformRequest executes one RPC call and returns the decoded arguments.
//
// The current session token is attached to the request. When the daemon
// answers 409 with a fresh token, the token is renewed and the same body is
// sent once more; a second rejection fails with ErrorCodeTokenRenewalExhausted.
// callLabel only appears in diagnostics.
func PerformRequest[T any](ctx context.Context, c *Client, body RequestBody, callLabel string) (T, error) {
	var zero T
	if c == nil {
		return zero, fmt.Errorf("client is nil")
	}

	body.Tag = c.tags.Add(1)
	payload, err := json.Marshal(body)
	if err != nil {
		return zero, NewClientError(ErrorCodeEncode, "failed to serialize request body", err, true)
	}

	conn := c.connection()
	logger := conn.logger.With("method", string(body.Method), "tag", body.Tag)
	if callLabel != "" {
		logger = logger.With("context", callLabel)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token := c.token.get()
		start := time.Now()

		status, freshToken, data, err := exchange(ctx, conn, payload, token)
		if err != nil {
			logger.Debug("rpc request failed", "attempt", attempt, "elapsed", time.Since(start), "error", err)
			return zero, err
		}

		if status == http.StatusConflict && freshToken != "" {
			if attempt == maxAttempts {
				logger.Warn("session token rejected after renewal", "elapsed", time.Since(start))
				return zero, newTokenRenewalExhausted(status)
			}
			if c.renewToken(token, freshToken) {
				logger.Debug("session token renewed, retrying request")
			} else {
				logger.Debug("session token already renewed concurrently, retrying request")
			}
			continue
		}

		if status < 200 || status >= 300 {
			err := classifyHTTPStatusCode(status, truncate(string(data), 512))
			logger.Debug("rpc request failed", "attempt", attempt, "status", status, "elapsed", time.Since(start))
			return zero, err
		}

		response, err := decodeResponse[T](data)
		if err != nil {
			logger.Debug("rpc request failed", "attempt", attempt, "elapsed", time.Since(start), "error", err)
			return zero, err
		}
		if response.Tag != nil && *response.Tag != body.Tag {
			return zero, newDecodeError(fmt.Sprintf("response tag %d does not match request tag %d", *response.Tag, body.Tag), nil)
		}

		logger.Debug("rpc request succeeded", "attempt", attempt, "elapsed", time.Since(start))
		return response.Arguments, nil
	}

	return zero, newTokenRenewalExhausted(http.StatusConflict)
}

// SetSessionProperty sets a single daemon setting through session-set.
func (c *Client) SetSessionProperty(ctx context.Context, key string, value any) error {
	_, err := PerformRequest[Empty](ctx, c, RequestBody{
		Method:    MethodSessionSet,
		Arguments: map[string]any{key: value},
	}, key)
	return err
}

// renewToken installs freshToken if observed is still current, or if the
// session was dropped by Update or Close while the request was in flight.
// Server capabilities are rechecked after a successful renewal since a new
// token usually means the daemon restarted.
func (c *Client) renewToken(observed, freshToken string) bool {
	if !c.token.compareAndSwap(observed, freshToken) && !c.token.compareAndSwap("", freshToken) {
		return false
	}
	c.invalidateCapabilities()
	return true
}

// rpcHeaders are sent with every call.
var rpcHeaders = map[string]string{
	"Content-Type": "application/json",
	"Accept":       "application/json",
}

// exchange performs a single HTTP POST and returns the status, the session
// token header and the bounded response body.
func exchange(ctx context.Context, conn connection, payload []byte, token string) (int, string, []byte, error) {
	if conn.limiter != nil {
		if err := conn.limiter.Wait(ctx); err != nil {
			return 0, "", nil, NewClientError(ErrorCodeTimeout, "request throttling was interrupted", err, false)
		}
	}

	resp, err := request.Do(http.MethodPost, conn.url,
		request.WithContext(ctx),
		request.WithClient(conn.http),
		request.WithTimeout(conn.timeout),
		request.WithBody(bytes.NewReader(payload)),
		request.WithHeaders(rpcHeaders),
		request.WithHeader(SessionIDHeader, token),
		request.WithBasicAuth(conn.username, conn.password),
	)
	if err != nil {
		return 0, "", nil, ClassifyError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return 0, "", nil, ClassifyError(err)
	}

	return resp.StatusCode, resp.Header.Get(SessionIDHeader), data, nil
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", baseURL)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultRPCPath
	}
	u.Fragment = ""
	return u, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
