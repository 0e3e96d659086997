package transmission

import (
	"encoding/json"
	"slices"
	"strings"
)

const (
	trackerSeparator = "\n"
	tierSeparator    = "\n\n"
)

// Tier is a priority group of tracker announce URLs.
type Tier []string

// TrackerTiers is an ordered list of tiers; lower indexes are announced to first.
//
// It marshals to and from the daemon's "trackerList" string: trackers inside a
// tier are separated by a newline and tiers by a blank line.
type TrackerTiers []Tier

// DecodeTrackerTiers parses the daemon's tiered tracker string. Empty lines
// and empty tiers are dropped, and duplicate URLs inside a tier are removed
// keeping the first occurrence.
func DecodeTrackerTiers(s string) TrackerTiers {
	if s == "" {
		return TrackerTiers{}
	}

	tiers := TrackerTiers{}
	for _, segment := range strings.Split(s, tierSeparator) {
		var tier Tier
		seen := make(map[string]struct{})
		for _, line := range strings.Split(segment, trackerSeparator) {
			line = strings.TrimSuffix(line, "\r")
			if line == "" {
				continue
			}
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			tier = append(tier, line)
		}
		if len(tier) > 0 {
			tiers = append(tiers, tier)
		}
	}
	return tiers
}

// EncodeTrackerTiers renders tiers in the daemon's string form.
func EncodeTrackerTiers(tiers TrackerTiers) string {
	var b strings.Builder
	for i, tier := range tiers {
		if i > 0 {
			b.WriteString(tierSeparator)
		}
		b.WriteString(strings.Join(tier, trackerSeparator))
	}
	return b.String()
}

// String returns the encoded form.
func (t TrackerTiers) String() string {
	return EncodeTrackerTiers(t)
}

func (t TrackerTiers) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeTrackerTiers(t))
}

func (t *TrackerTiers) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = DecodeTrackerTiers(s)
	return nil
}

// Contains reports whether url is one of the tier's trackers.
func (t Tier) Contains(url string) bool {
	for _, u := range t {
		if u == url {
			return true
		}
	}
	return false
}

func (t Tier) sharesTracker(other Tier) bool {
	for _, u := range other {
		if t.Contains(u) {
			return true
		}
	}
	return false
}

// union returns t followed by the URLs of other it does not already hold.
func (t Tier) union(other Tier) Tier {
	out := make(Tier, 0, len(t)+len(other))
	out = append(out, t...)
	for _, u := range other {
		if !out.Contains(u) {
			out = append(out, u)
		}
	}
	return out
}

// MergeTrackerTiers merges incoming tiers into existing ones.
//
// Each incoming tier is matched against the original existing tiers. When it
// shares at least one URL with an existing tier, the first such tier absorbs
// its URLs in place. Otherwise it is appended as a new tier. Existing tiers
// that nothing matched keep their position and contents. Neither argument is
// modified.
func MergeTrackerTiers(existing, incoming TrackerTiers) TrackerTiers {
	merged := make(TrackerTiers, len(existing), len(existing)+len(incoming))
	for i, tier := range existing {
		merged[i] = append(Tier(nil), tier...)
	}

	for _, tier := range incoming {
		if len(tier) == 0 {
			continue
		}

		matched := -1
		for i, original := range existing {
			if original.sharesTracker(tier) {
				matched = i
				break
			}
		}

		if matched >= 0 {
			merged[matched] = merged[matched].union(tier)
		} else {
			merged = append(merged, Tier(nil).union(tier))
		}
	}
	return merged
}

// TrackerStatus is the announce state of a tracker.
type TrackerStatus int

const (
	TrackerInactive TrackerStatus = iota
	TrackerWaitingForUpdate
	TrackerQueuedForUpdate
	TrackerUpdating
)

func (s TrackerStatus) String() string {
	switch s {
	case TrackerInactive:
		return "inactive"
	case TrackerWaitingForUpdate:
		return "waiting"
	case TrackerQueuedForUpdate:
		return "queued"
	case TrackerUpdating:
		return "updating"
	default:
		return "unknown"
	}
}

// Tracker is one entry of a torrent's "trackerStats".
type Tracker struct {
	ID                    int           `json:"id"`
	AnnounceURL           string        `json:"announce"`
	Status                TrackerStatus `json:"announceState"`
	LastAnnounceSucceeded bool          `json:"lastAnnounceSucceeded"`
	LastAnnounceTime      UnixTime      `json:"lastAnnounceTime"`
	LastAnnounceResult    string        `json:"lastAnnounceResult"`
	Peers                 PeerCount     `json:"lastAnnouncePeerCount"`
	Seeders               PeerCount     `json:"seederCount"`
	Leechers              PeerCount     `json:"leecherCount"`
	NextAnnounceTime      UnixTime      `json:"nextAnnounceTime"`
	Tier                  int           `json:"tier"`
}

// ErrorMessage returns the last announce result when the last announce failed.
func (t Tracker) ErrorMessage() (string, bool) {
	if !t.LastAnnounceSucceeded && !t.LastAnnounceTime.IsZero() {
		return t.LastAnnounceResult, true
	}
	return "", false
}

// TiersFromTrackers groups trackers by their tier number, in ascending tier order.
func TiersFromTrackers(trackers []Tracker) TrackerTiers {
	byTier := make(map[int]Tier)
	var order []int
	for _, t := range trackers {
		if _, ok := byTier[t.Tier]; !ok {
			order = append(order, t.Tier)
		}
		byTier[t.Tier] = append(byTier[t.Tier], t.AnnounceURL)
	}
	slices.Sort(order)

	tiers := make(TrackerTiers, 0, len(order))
	for _, n := range order {
		tiers = append(tiers, byTier[n])
	}
	return tiers
}
