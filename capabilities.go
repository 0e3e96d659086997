package transmission

import (
	"context"
	"fmt"
)

// MinimumRPCVersion is the oldest daemon RPC version the client talks to.
const MinimumRPCVersion = 15

// ServerOS is the operating system family the daemon runs on, as far as path
// handling is concerned.
type ServerOS int

const (
	ServerOSUnixLike ServerOS = iota
	ServerOSWindows
)

func (o ServerOS) String() string {
	if o == ServerOSWindows {
		return "windows"
	}
	return "unix"
}

// ServerVersion is the version information reported by session-get.
type ServerVersion struct {
	RPCVersion        int    `json:"rpc-version"`
	MinimumRPCVersion int    `json:"rpc-version-minimum"`
	Version           string `json:"version"`
}

// IsSupported reports whether the daemon accepts MinimumRPCVersion requests.
func (v ServerVersion) IsSupported() bool {
	return v.MinimumRPCVersion <= MinimumRPCVersion && MinimumRPCVersion <= v.RPCVersion
}

// ServerCapabilities describes protocol features available on the daemon.
type ServerCapabilities struct {
	RPCVersion int
	Version    string
	OS         ServerOS
}

// HasTableMode reports whether torrent-get accepts format "table".
func (c ServerCapabilities) HasTableMode() bool { return c.RPCVersion >= 16 }

// HasTrackerListProperty reports whether torrents expose the "trackerList" field.
func (c ServerCapabilities) HasTrackerListProperty() bool { return c.RPCVersion >= 17 }

// SupportsLabels reports whether torrents carry labels.
func (c ServerCapabilities) SupportsLabels() bool { return c.RPCVersion >= 16 }

func (c ServerCapabilities) String() string {
	return fmt.Sprintf("rpc %d (%s), %s", c.RPCVersion, c.Version, c.OS)
}

// ServerCapabilities returns the daemon capabilities, checking them on first
// use. The result is cached until the session token is renewed or the client
// configuration is updated. A daemon outside the supported RPC range fails
// with ErrorCodeVersionIncompatible.
func (c *Client) ServerCapabilities(ctx context.Context) (ServerCapabilities, error) {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	c.capsMu.Lock()
	cached, cachedErr := c.caps, c.capsErr
	c.capsMu.Unlock()
	if cachedErr != nil {
		return ServerCapabilities{}, cachedErr
	}
	if cached != nil {
		return *cached, nil
	}

	caps, err := c.checkServerCapabilities(ctx)
	if err != nil {
		if GetErrorCode(err) == ErrorCodeVersionIncompatible {
			c.capsMu.Lock()
			c.capsErr = err
			c.capsMu.Unlock()
		}
		return ServerCapabilities{}, err
	}

	c.capsMu.Lock()
	c.caps = &caps
	c.capsMu.Unlock()
	return caps, nil
}

func (c *Client) checkServerCapabilities(ctx context.Context) (ServerCapabilities, error) {
	logger := c.connection().logger

	version, err := PerformRequest[ServerVersion](ctx, c, RequestBody{
		Method:    MethodSessionGet,
		Arguments: fieldsRequest{Fields: fieldsOf[ServerVersion]()},
	}, "checkServerCapabilities")
	if err != nil {
		return ServerCapabilities{}, err
	}
	if !version.IsSupported() {
		logger.Error("unsupported daemon version", "version", version.Version, "rpc_version", version.RPCVersion)
		return ServerCapabilities{}, NewClientError(
			ErrorCodeVersionIncompatible,
			fmt.Sprintf("daemon %s speaks RPC %d-%d, need %d", version.Version, version.MinimumRPCVersion, version.RPCVersion, MinimumRPCVersion),
			nil,
			true,
		)
	}

	// Windows daemons reject "/" as a path.
	serverOS := ServerOSUnixLike
	if _, err := PerformRequest[freeSpaceResponse](ctx, c, RequestBody{
		Method:    MethodFreeSpace,
		Arguments: freeSpaceRequest{Path: "/"},
	}, "checkServerCapabilities"); err != nil {
		if _, ok := ServerMessage(err); !ok {
			return ServerCapabilities{}, err
		}
		serverOS = ServerOSWindows
	}

	caps := ServerCapabilities{RPCVersion: version.RPCVersion, Version: version.Version, OS: serverOS}
	logger.Debug("checked server capabilities", "capabilities", caps.String())
	return caps, nil
}

func (c *Client) invalidateCapabilities() {
	c.capsMu.Lock()
	c.caps = nil
	c.capsErr = nil
	c.capsMu.Unlock()
}

// normalizePath normalizes path for the daemon's OS, checking the
// capabilities first when they are not known yet.
func (c *Client) normalizePath(ctx context.Context, path string) (string, error) {
	caps, err := c.ServerCapabilities(ctx)
	if err != nil {
		return "", err
	}
	return NormalizePath(path, &caps), nil
}
