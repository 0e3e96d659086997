package transmission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type recordedCall struct {
	Method    Method
	Arguments json.RawMessage
	Token     string
	Tag       uint64
}

type handlerFunc func(args json.RawMessage) (result string, arguments any)

// fakeDaemon is a minimal RPC endpoint enforcing the session token handshake.
type fakeDaemon struct {
	t      testing.TB
	server *httptest.Server

	mu       sync.Mutex
	token    string
	handlers map[Method]handlerFunc
	calls    []recordedCall
	rejected int
}

func newFakeDaemon(t testing.TB) *fakeDaemon {
	t.Helper()
	d := &fakeDaemon{t: t, token: "token-1", handlers: make(map[Method]handlerFunc)}
	d.server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.server.Close)
	return d
}

func (d *fakeDaemon) handle(method Method, h handlerFunc) {
	d.mu.Lock()
	d.handlers[method] = h
	d.mu.Unlock()
}

// respond registers a handler that always succeeds with arguments.
func (d *fakeDaemon) respond(method Method, arguments any) {
	d.handle(method, func(json.RawMessage) (string, any) { return ResultSuccess, arguments })
}

func (d *fakeDaemon) setToken(token string) {
	d.mu.Lock()
	d.token = token
	d.mu.Unlock()
}

func (d *fakeDaemon) recorded() []recordedCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]recordedCall(nil), d.calls...)
}

func (d *fakeDaemon) rejections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rejected
}

func (d *fakeDaemon) client(t testing.TB) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: d.server.URL + DefaultRPCPath, HTTPClient: d.server.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func (d *fakeDaemon) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != DefaultRPCPath {
		http.NotFound(w, r)
		return
	}

	d.mu.Lock()
	token := d.token
	if r.Header.Get(SessionIDHeader) != token {
		d.rejected++
		d.mu.Unlock()
		w.Header().Set(SessionIDHeader, token)
		w.WriteHeader(http.StatusConflict)
		return
	}
	d.mu.Unlock()

	var body struct {
		Method    Method          `json:"method"`
		Arguments json.RawMessage `json:"arguments"`
		Tag       uint64          `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		d.t.Errorf("daemon: bad request body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	d.calls = append(d.calls, recordedCall{Method: body.Method, Arguments: body.Arguments, Token: token, Tag: body.Tag})
	h := d.handlers[body.Method]
	d.mu.Unlock()

	result, arguments := "method name not recognized", any(map[string]any{})
	if h != nil {
		result, arguments = h(body.Arguments)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"result":    result,
		"arguments": arguments,
		"tag":       body.Tag,
	})
}

// fieldsArgument extracts the "fields" list of a recorded call.
func fieldsArgument(t *testing.T, call recordedCall) []string {
	t.Helper()
	var args struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		t.Fatalf("decode arguments: %v", err)
	}
	return args.Fields
}

// withCapabilities makes the daemon answer the capability check.
func (d *fakeDaemon) withCapabilities(rpcVersion int, windows bool) {
	d.handle(MethodSessionGet, func(args json.RawMessage) (string, any) {
		return ResultSuccess, map[string]any{
			"rpc-version":         rpcVersion,
			"rpc-version-minimum": 14,
			"version":             "4.0.5",
		}
	})
	d.handle(MethodFreeSpace, func(args json.RawMessage) (string, any) {
		var req freeSpaceRequest
		_ = json.Unmarshal(args, &req)
		if windows && req.Path == "/" {
			return "path is not absolute", map[string]any{}
		}
		return ResultSuccess, map[string]any{"path": req.Path, "size-bytes": 1 << 30}
	})
}

func hasCachedCapabilities(c *Client) bool {
	c.capsMu.Lock()
	defer c.capsMu.Unlock()
	return c.caps != nil
}
