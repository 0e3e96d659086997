package transmission

import (
	"context"
	"fmt"
	"slices"
)

type torrentTrackerStats struct {
	Trackers []Tracker `json:"trackerStats"`
}

type torrentTrackerList struct {
	TrackerList TrackerTiers `json:"trackerList"`
}

// GetTorrentTrackers returns the trackers of a torrent with their announce
// state. A torrent that does not exist fails with ErrorCodeTorrentNotFound.
func (c *Client) GetTorrentTrackers(ctx context.Context, hash string) ([]Tracker, error) {
	torrent, found, err := getSingleTorrent[torrentTrackerStats](ctx, c, hash, "getTorrentTrackers")
	if err != nil {
		return nil, fmt.Errorf("failed to get torrent trackers: %w", err)
	}
	if !found {
		return nil, newTorrentNotFound(hash)
	}
	return torrent.Trackers, nil
}

// GetTorrentTrackerTiers returns the announce URLs of a torrent grouped in
// tiers. Daemons without the "trackerList" field have the tiers rebuilt from
// the tracker stats.
func (c *Client) GetTorrentTrackerTiers(ctx context.Context, hash string) (TrackerTiers, error) {
	caps, err := c.ServerCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	if !caps.HasTrackerListProperty() {
		trackers, err := c.GetTorrentTrackers(ctx, hash)
		if err != nil {
			return nil, err
		}
		return TiersFromTrackers(trackers), nil
	}

	torrent, found, err := getSingleTorrent[torrentTrackerList](ctx, c, hash, "getTorrentTrackerTiers")
	if err != nil {
		return nil, fmt.Errorf("failed to get torrent tracker list: %w", err)
	}
	if !found {
		return nil, newTorrentNotFound(hash)
	}
	if torrent.TrackerList == nil {
		return TrackerTiers{}, nil
	}
	return torrent.TrackerList, nil
}

// MergeTorrentTrackers merges incoming tiers into the torrent's tracker list
// and writes the result back. It returns the merged tiers. Nothing is written
// when the torrent does not exist.
//
// On daemons without the "trackerList" field tiers cannot be written, so the
// announce URLs the merge adds are sent through "trackerAdd" instead.
func (c *Client) MergeTorrentTrackers(ctx context.Context, hash string, incoming TrackerTiers) (TrackerTiers, error) {
	caps, err := c.ServerCapabilities(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := c.GetTorrentTrackerTiers(ctx, hash)
	if err != nil {
		return nil, err
	}
	merged := MergeTrackerTiers(existing, incoming)

	if caps.HasTrackerListProperty() {
		if err := c.setTrackerList(ctx, hash, merged); err != nil {
			return nil, err
		}
		return merged, nil
	}

	var added []string
	for _, tier := range merged {
		for _, url := range tier {
			if !existing.contains(url) && !slices.Contains(added, url) {
				added = append(added, url)
			}
		}
	}
	if len(added) > 0 {
		if err := c.SetTorrentProperty(ctx, hash, "trackerAdd", added); err != nil {
			return nil, fmt.Errorf("failed to add torrent trackers: %w", err)
		}
	}
	return merged, nil
}

// AddTorrentTrackers adds each announce URL as a tier of its own.
func (c *Client) AddTorrentTrackers(ctx context.Context, hash string, announceURLs ...string) error {
	if len(announceURLs) == 0 {
		return nil
	}
	caps, err := c.ServerCapabilities(ctx)
	if err != nil {
		return err
	}
	if !caps.HasTrackerListProperty() {
		return c.SetTorrentProperty(ctx, hash, "trackerAdd", announceURLs)
	}

	trackers, err := c.GetTorrentTrackers(ctx, hash)
	if err != nil {
		return err
	}
	tiers := TiersFromTrackers(trackers)
	for _, url := range announceURLs {
		tiers = append(tiers, Tier{url})
	}
	return c.setTrackerList(ctx, hash, tiers)
}

// ReplaceTorrentTracker changes the announce URL of the tracker with trackerID.
func (c *Client) ReplaceTorrentTracker(ctx context.Context, hash string, trackerID int, announceURL string) error {
	caps, err := c.ServerCapabilities(ctx)
	if err != nil {
		return err
	}
	if !caps.HasTrackerListProperty() {
		return c.SetTorrentProperty(ctx, hash, "trackerReplace", []any{trackerID, announceURL})
	}

	trackers, err := c.GetTorrentTrackers(ctx, hash)
	if err != nil {
		return err
	}
	for i := range trackers {
		if trackers[i].ID == trackerID {
			trackers[i].AnnounceURL = announceURL
		}
	}
	return c.setTrackerList(ctx, hash, TiersFromTrackers(trackers))
}

// RemoveTorrentTrackers removes the trackers with the given ids.
func (c *Client) RemoveTorrentTrackers(ctx context.Context, hash string, trackerIDs ...int) error {
	if len(trackerIDs) == 0 {
		return nil
	}
	caps, err := c.ServerCapabilities(ctx)
	if err != nil {
		return err
	}
	if !caps.HasTrackerListProperty() {
		return c.SetTorrentProperty(ctx, hash, "trackerRemove", trackerIDs)
	}

	trackers, err := c.GetTorrentTrackers(ctx, hash)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(trackers, func(t Tracker) bool {
		return slices.Contains(trackerIDs, t.ID)
	})
	return c.setTrackerList(ctx, hash, TiersFromTrackers(kept))
}

func (c *Client) setTrackerList(ctx context.Context, hash string, tiers TrackerTiers) error {
	if err := c.SetTorrentProperty(ctx, hash, "trackerList", tiers); err != nil {
		return fmt.Errorf("failed to set torrent tracker list: %w", err)
	}
	return nil
}

func (t TrackerTiers) contains(url string) bool {
	for _, tier := range t {
		if tier.Contains(url) {
			return true
		}
	}
	return false
}
