// Package request executes single HTTP calls configured with functional options.
package request

import (
	"context"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout applies when neither WithTimeout nor WithClient is used.
const DefaultTimeout = 10 * time.Second

// RequestOptions holds the settings of one request.
type RequestOptions struct {
	Timeout  time.Duration
	Body     io.Reader
	Headers  map[string]string
	Ctx      context.Context
	Client   *http.Client
	Username string
	Password string
}

// RequestOption applies a setting to RequestOptions.
type RequestOption func(*RequestOptions)

// WithTimeout bounds the whole exchange.
func WithTimeout(timeout time.Duration) RequestOption {
	return func(o *RequestOptions) {
		o.Timeout = timeout
	}
}

// WithBody sets the request body.
func WithBody(body io.Reader) RequestOption {
	return func(o *RequestOptions) {
		o.Body = body
	}
}

// WithHeader adds a header. Empty values are skipped.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if value == "" {
			return
		}
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithHeaders adds several headers at once.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithContext sets the request context.
func WithContext(ctx context.Context) RequestOption {
	return func(o *RequestOptions) {
		o.Ctx = ctx
	}
}

// WithClient reuses an existing http.Client and its connection pool.
func WithClient(client *http.Client) RequestOption {
	return func(o *RequestOptions) {
		o.Client = client
	}
}

// WithBasicAuth sets HTTP basic credentials when username is not empty.
func WithBasicAuth(username, password string) RequestOption {
	return func(o *RequestOptions) {
		o.Username = username
		o.Password = password
	}
}

// Do executes an HTTP request with the given options. The caller owns the
// response body.
func Do(method, url string, opts ...RequestOption) (*http.Response, error) {
	options := &RequestOptions{
		Timeout: DefaultTimeout,
		Ctx:     context.Background(),
	}

	for _, opt := range opts {
		opt(options)
	}

	client := options.Client
	if client == nil {
		client = &http.Client{Timeout: options.Timeout}
	}

	ctx := options.Ctx
	if options.Client != nil && options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		resp, err := send(ctx, client, method, url, options)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	return send(ctx, client, method, url, options)
}

func send(ctx context.Context, client *http.Client, method, url string, options *RequestOptions) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, options.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range options.Headers {
		req.Header.Set(k, v)
	}
	if options.Username != "" {
		req.SetBasicAuth(options.Username, options.Password)
	}

	return client.Do(req)
}

// cancelOnClose releases the per-request timeout once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
