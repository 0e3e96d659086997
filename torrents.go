package transmission

import (
	"context"
	"fmt"
)

// DuplicateTorrentResult is reported as the server message when an added
// torrent already exists.
const DuplicateTorrentResult = "duplicate torrent"

// BandwidthPriority is the per-torrent bandwidth priority.
type BandwidthPriority int

const (
	PriorityLow    BandwidthPriority = -1
	PriorityNormal BandwidthPriority = 0
	PriorityHigh   BandwidthPriority = 1
)

// TorrentConfig describes a torrent to add by URL or magnet link.
type TorrentConfig struct {
	URL               string
	DownloadDirectory string
	BandwidthPriority BandwidthPriority
	Paused            bool
}

// AddedTorrent identifies a torrent accepted by torrent-add.
type AddedTorrent struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
}

type addTorrentRequest struct {
	Filename          string            `json:"filename"`
	DownloadDirectory string            `json:"download-dir,omitempty"`
	BandwidthPriority BandwidthPriority `json:"bandwidthPriority"`
	Paused            bool              `json:"paused"`
}

type addTorrentResponse struct {
	Added     *AddedTorrent `json:"torrent-added"`
	Duplicate *AddedTorrent `json:"torrent-duplicate"`
}

// AddTorrentLink adds a torrent from a URL or magnet link. A torrent that is
// already present fails with a server error carrying DuplicateTorrentResult.
func (c *Client) AddTorrentLink(ctx context.Context, opts TorrentConfig) (AddedTorrent, error) {
	args := addTorrentRequest{
		Filename:          opts.URL,
		BandwidthPriority: opts.BandwidthPriority,
		Paused:            opts.Paused,
	}
	if opts.DownloadDirectory != "" {
		dir, err := c.normalizePath(ctx, opts.DownloadDirectory)
		if err != nil {
			return AddedTorrent{}, fmt.Errorf("failed to add torrent: %w", err)
		}
		args.DownloadDirectory = dir
	}

	resp, err := PerformRequest[addTorrentResponse](ctx, c, RequestBody{
		Method:    MethodTorrentAdd,
		Arguments: args,
	}, "addTorrentLink")
	if err != nil {
		return AddedTorrent{}, fmt.Errorf("failed to add torrent: %w", err)
	}
	if resp.Duplicate != nil {
		return *resp.Duplicate, newServerError(DuplicateTorrentResult)
	}
	if resp.Added == nil {
		return AddedTorrent{}, newDecodeError(`missing "torrent-added" key in the response`, nil)
	}
	return *resp.Added, nil
}

type torrentIDs struct {
	IDs []string `json:"ids"`
}

// updateTorrents runs an action method against the torrents identified by hashes.
func (c *Client) updateTorrents(ctx context.Context, method Method, hashes []string, callLabel string) error {
	if len(hashes) == 0 {
		return nil
	}
	_, err := PerformRequest[Empty](ctx, c, RequestBody{
		Method:    method,
		Arguments: torrentIDs{IDs: hashes},
	}, callLabel)
	if err != nil {
		return fmt.Errorf("failed to %s torrents: %w", method, err)
	}
	return nil
}

func (c *Client) StartTorrents(ctx context.Context, hashes ...string) error {
	return c.updateTorrents(ctx, MethodTorrentStart, hashes, "startTorrents")
}

// StartTorrentsNow starts torrents bypassing the download queue.
func (c *Client) StartTorrentsNow(ctx context.Context, hashes ...string) error {
	return c.updateTorrents(ctx, MethodTorrentStartNow, hashes, "startTorrentsNow")
}

func (c *Client) StopTorrents(ctx context.Context, hashes ...string) error {
	return c.updateTorrents(ctx, MethodTorrentStop, hashes, "stopTorrents")
}

func (c *Client) VerifyTorrents(ctx context.Context, hashes ...string) error {
	return c.updateTorrents(ctx, MethodTorrentVerify, hashes, "verifyTorrents")
}

func (c *Client) ReannounceTorrents(ctx context.Context, hashes ...string) error {
	return c.updateTorrents(ctx, MethodTorrentReannounce, hashes, "reannounceTorrents")
}

// RemoveTorrents removes torrents, deleting their downloaded data when deleteFiles is set.
func (c *Client) RemoveTorrents(ctx context.Context, deleteFiles bool, hashes ...string) error {
	if len(hashes) == 0 {
		return nil
	}
	_, err := PerformRequest[Empty](ctx, c, RequestBody{
		Method: MethodTorrentRemove,
		Arguments: struct {
			IDs         []string `json:"ids"`
			DeleteFiles bool     `json:"delete-local-data"`
		}{hashes, deleteFiles},
	}, "removeTorrents")
	if err != nil {
		return fmt.Errorf("failed to remove torrents: %w", err)
	}
	return nil
}

// SetTorrentLocation changes the download directory of torrents. With move set
// the data is moved, otherwise the daemon looks for it in the new location.
func (c *Client) SetTorrentLocation(ctx context.Context, location string, move bool, hashes ...string) error {
	if len(hashes) == 0 {
		return nil
	}
	location, err := c.normalizePath(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to set torrent location: %w", err)
	}
	_, err = PerformRequest[Empty](ctx, c, RequestBody{
		Method: MethodTorrentSetLocation,
		Arguments: struct {
			IDs      []string `json:"ids"`
			Location string   `json:"location"`
			Move     bool     `json:"move"`
		}{hashes, location, move},
	}, "setTorrentLocation")
	if err != nil {
		return fmt.Errorf("failed to set torrent location: %w", err)
	}
	return nil
}

// RenamedPath is the result of torrent-rename-path.
type RenamedPath struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// RenameTorrentPath renames a file or directory inside a torrent.
func (c *Client) RenameTorrentPath(ctx context.Context, hash, path, name string) (RenamedPath, error) {
	resp, err := PerformRequest[RenamedPath](ctx, c, RequestBody{
		Method: MethodTorrentRenamePath,
		Arguments: struct {
			IDs  []string `json:"ids"`
			Path string   `json:"path"`
			Name string   `json:"name"`
		}{[]string{hash}, path, name},
	}, "renameTorrentPath")
	if err != nil {
		return RenamedPath{}, fmt.Errorf("failed to rename torrent path: %w", err)
	}
	return resp, nil
}

// SetTorrentProperty sets one torrent-set property on a single torrent.
func (c *Client) SetTorrentProperty(ctx context.Context, hash, key string, value any) error {
	_, err := PerformRequest[Empty](ctx, c, RequestBody{
		Method:    MethodTorrentSet,
		Arguments: map[string]any{"ids": []string{hash}, key: value},
	}, key)
	return err
}

// getSingleTorrent fetches the fields declared by T for one torrent. It
// returns false when no torrent matches hash.
func getSingleTorrent[T any](ctx context.Context, c *Client, hash, callLabel string) (T, bool, error) {
	var zero T
	resp, err := PerformRequest[struct {
		Torrents []T `json:"torrents"`
	}](ctx, c, RequestBody{
		Method: MethodTorrentGet,
		Arguments: struct {
			IDs    []string `json:"ids"`
			Fields []string `json:"fields"`
		}{[]string{hash}, fieldsOf[T]()},
	}, callLabel)
	if err != nil {
		return zero, false, err
	}
	switch len(resp.Torrents) {
	case 0:
		return zero, false, nil
	case 1:
		return resp.Torrents[0], true, nil
	default:
		return zero, false, newDecodeError(`"torrents" array must not contain more than one element`, nil)
	}
}

// SessionStats are the daemon's transfer counters.
type SessionStats struct {
	DownloadSpeed  BytesPerSecond `json:"downloadSpeed"`
	UploadSpeed    BytesPerSecond `json:"uploadSpeed"`
	CurrentSession Stats          `json:"current-stats"`
	Total          Stats          `json:"cumulative-stats"`
}

type Stats struct {
	Downloaded   FileSize `json:"downloadedBytes"`
	Uploaded     FileSize `json:"uploadedBytes"`
	SessionCount int      `json:"sessionCount"`
	Active       Seconds  `json:"secondsActive"`
}

func (c *Client) GetSessionStats(ctx context.Context) (SessionStats, error) {
	return PerformRequest[SessionStats](ctx, c, RequestBody{Method: MethodSessionStats}, "getSessionStats")
}

type freeSpaceRequest struct {
	Path string `json:"path"`
}

type freeSpaceResponse struct {
	Path      string   `json:"path"`
	SizeBytes FileSize `json:"size-bytes"`
}

// FreeSpace returns the space available in a directory on the daemon side.
func (c *Client) FreeSpace(ctx context.Context, directory string) (FileSize, error) {
	path, err := c.normalizePath(ctx, directory)
	if err != nil {
		return 0, err
	}
	resp, err := PerformRequest[freeSpaceResponse](ctx, c, RequestBody{
		Method:    MethodFreeSpace,
		Arguments: freeSpaceRequest{Path: path},
	}, "getFreeSpaceInDirectory")
	if err != nil {
		return 0, err
	}
	return resp.SizeBytes, nil
}
