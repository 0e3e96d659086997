package transmission

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const btihPrefix = "urn:btih:"

// MagnetLink holds the fields of a magnet URI this client uses.
type MagnetLink struct {
	// Hash is the info hash from "xt", without the urn prefix.
	Hash        string
	DisplayName string
	// Trackers are the "tr" announce URLs in link order.
	Trackers []string
}

// ParseMagnetLink extracts information from a magnet link
func ParseMagnetLink(magnetURI string) (*MagnetLink, error) {
	query, ok := strings.CutPrefix(strings.TrimSpace(magnetURI), "magnet:?")
	if !ok {
		return nil, errors.New("invalid magnet link format")
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse magnet link query")
	}

	magnet := &MagnetLink{DisplayName: values.Get("dn")}

	for _, xt := range values["xt"] {
		if hash, ok := strings.CutPrefix(xt, btihPrefix); ok {
			magnet.Hash = strings.ToLower(hash)
			break
		}
	}
	if magnet.Hash == "" {
		return nil, errors.Errorf("magnet link has no %q topic", btihPrefix)
	}

	for _, tr := range values["tr"] {
		if tr = strings.TrimSpace(tr); tr != "" {
			magnet.Trackers = append(magnet.Trackers, tr)
		}
	}

	return magnet, nil
}

// TrackerTiers returns the magnet trackers as tiers, one tracker per tier.
func (m *MagnetLink) TrackerTiers() TrackerTiers {
	tiers := make(TrackerTiers, 0, len(m.Trackers))
	for _, tr := range m.Trackers {
		tiers = append(tiers, Tier{tr})
	}
	return tiers
}

// AddTrackersFromMagnet merges the trackers of a magnet link into the torrent
// it points to. It is used when a magnet for an already added torrent is
// opened again.
func (c *Client) AddTrackersFromMagnet(ctx context.Context, magnetURI string) (TrackerTiers, error) {
	magnet, err := ParseMagnetLink(magnetURI)
	if err != nil {
		return nil, err
	}
	if len(magnet.Trackers) == 0 {
		return nil, nil
	}
	merged, err := c.MergeTorrentTrackers(ctx, magnet.Hash, magnet.TrackerTiers())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to add trackers to %s", magnet.Hash)
	}
	return merged, nil
}
