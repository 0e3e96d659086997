package transmission

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	// SessionIDHeader carries the CSRF session token on requests and 409 replies.
	SessionIDHeader = "X-Transmission-Session-Id"

	// DefaultRPCPath is appended to BaseURL when it has no path.
	DefaultRPCPath = "/transmission/rpc"

	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL = "http://localhost:9091" + DefaultRPCPath

	// DefaultRequestTimeout bounds a single HTTP exchange.
	DefaultRequestTimeout = 30 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize int64 = 64 << 20

	// maxAttempts is the first try plus one retry after a token renewal.
	maxAttempts = 2
)

// Client is a Transmission RPC client. It is safe for concurrent use.
type Client struct {
	mu      sync.RWMutex
	config  Config
	rpcURL  string
	client  *http.Client
	logger  *slog.Logger
	limiter *rate.Limiter

	token sessionToken
	tags  atomic.Uint64

	// checkMu serializes capability checks; capsMu only guards the cache
	// so a token renewal during a check can still invalidate it.
	checkMu sync.Mutex
	capsMu  sync.Mutex
	caps    *ServerCapabilities
	capsErr error
}

// Config contains runtime client settings and credentials.
type Config struct {
	// BaseURL is the RPC endpoint, e.g. "http://localhost:9091/transmission/rpc".
	// A missing scheme defaults to http and a missing path to DefaultRPCPath.
	BaseURL string
	// Username and Password enable HTTP basic authentication when Username is set.
	Username string
	Password string
	// RequestTimeout bounds each HTTP exchange. Zero uses DefaultRequestTimeout.
	RequestTimeout time.Duration
	// RequestsPerSecond throttles outgoing requests when positive.
	RequestsPerSecond float64
	// RequestBurst is the limiter bucket size; values below 1 mean 1.
	RequestBurst int
	// HTTPClient is used for all requests. If nil, a new client is created.
	HTTPClient *http.Client
	// Logger receives request diagnostics. If nil, slog.Default() is used,
	// or a debug-level stderr logger when Debug is set.
	Logger *slog.Logger
	Debug  bool
}

// connection is an immutable snapshot of the settings used by one call.
type connection struct {
	url      string
	http     *http.Client
	timeout  time.Duration
	username string
	password string
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// sessionToken holds the daemon-issued CSRF token. The value is only ever
// replaced as a whole, under mu.
type sessionToken struct {
	mu       sync.Mutex
	value    string
	renewals uint64
}

func (t *sessionToken) get() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// compareAndSwap installs fresh only if the token is still the one the
// rejected request carried.
func (t *sessionToken) compareAndSwap(observed, fresh string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.value != observed {
		return false
	}
	t.value = fresh
	t.renewals++
	return true
}

func (t *sessionToken) reset() {
	t.mu.Lock()
	t.value = ""
	t.mu.Unlock()
}

func (t *sessionToken) renewalCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renewals
}
