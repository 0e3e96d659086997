package transmission

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// fieldsRequest is the argument object of field-scoped get requests.
type fieldsRequest struct {
	Fields []string `json:"fields"`
}

var fieldsCache sync.Map // reflect.Type -> []string

// fieldsOf returns the json wire names declared by the struct T, in field
// order. Fields tagged "-" or without a json tag are skipped.
func fieldsOf[T any]() []string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if cached, ok := fieldsCache.Load(t); ok {
		return cached.([]string)
	}

	var fields []string
	for i := 0; i < t.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup("json")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		fields = append(fields, name)
	}

	actual, _ := fieldsCache.LoadOrStore(t, fields)
	return actual.([]string)
}

// getSettings fetches exactly the session fields declared by T.
func getSettings[T any](ctx context.Context, c *Client, callLabel string) (T, error) {
	return PerformRequest[T](ctx, c, RequestBody{
		Method:    MethodSessionGet,
		Arguments: fieldsRequest{Fields: fieldsOf[T]()},
	}, callLabel)
}

// setPathProperty normalizes value for the daemon's OS before sending it.
func (c *Client) setPathProperty(ctx context.Context, key, value string) error {
	path, err := c.normalizePath(ctx, value)
	if err != nil {
		return err
	}
	return c.SetSessionProperty(ctx, key, path)
}

// DownloadingServerSettings groups the download location settings.
type DownloadingServerSettings struct {
	DownloadDirectory          string `json:"download-dir"`
	StartAddedTorrents         bool   `json:"start-added-torrents"`
	RenameIncompleteFiles      bool   `json:"rename-partial-files"`
	IncompleteDirectoryEnabled bool   `json:"incomplete-dir-enabled"`
	IncompleteDirectory        string `json:"incomplete-dir"`
}

// GetDownloadingServerSettings returns the downloading settings with both
// directories normalized.
func (c *Client) GetDownloadingServerSettings(ctx context.Context) (DownloadingServerSettings, error) {
	settings, err := getSettings[DownloadingServerSettings](ctx, c, "getDownloadingServerSettings")
	if err != nil {
		return settings, err
	}
	// Checked after the fetch: a token renewal during it drops the cached capabilities.
	caps, err := c.ServerCapabilities(ctx)
	if err != nil {
		return DownloadingServerSettings{}, err
	}
	settings.DownloadDirectory = NormalizePath(settings.DownloadDirectory, &caps)
	settings.IncompleteDirectory = NormalizePath(settings.IncompleteDirectory, &caps)
	return settings, nil
}

func (c *Client) SetDownloadDirectory(ctx context.Context, path string) error {
	return c.setPathProperty(ctx, "download-dir", path)
}

func (c *Client) SetStartAddedTorrents(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "start-added-torrents", value)
}

func (c *Client) SetRenameIncompleteFiles(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "rename-partial-files", value)
}

func (c *Client) SetIncompleteDirectoryEnabled(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "incomplete-dir-enabled", value)
}

func (c *Client) SetIncompleteDirectory(ctx context.Context, path string) error {
	return c.setPathProperty(ctx, "incomplete-dir", path)
}

// EncryptionMode is the peer connection encryption policy.
type EncryptionMode int

const (
	EncryptionAllowed EncryptionMode = iota
	EncryptionPreferred
	EncryptionRequired
)

var encryptionModeNames = map[EncryptionMode]string{
	EncryptionAllowed:   "tolerated",
	EncryptionPreferred: "preferred",
	EncryptionRequired:  "required",
}

// String returns the wire name.
func (m EncryptionMode) String() string {
	if name, ok := encryptionModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("EncryptionMode(%d)", int(m))
}

// ParseEncryptionMode accepts the wire names.
func ParseEncryptionMode(s string) (EncryptionMode, error) {
	for mode, name := range encryptionModeNames {
		if name == s {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown encryption mode %q", s)
}

func (m EncryptionMode) MarshalText() ([]byte, error) {
	name, ok := encryptionModeNames[m]
	if !ok {
		return nil, fmt.Errorf("unknown encryption mode %d", int(m))
	}
	return []byte(name), nil
}

func (m *EncryptionMode) UnmarshalText(text []byte) error {
	mode, err := ParseEncryptionMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// NetworkServerSettings groups the peer connection settings.
type NetworkServerSettings struct {
	PeerPort               int            `json:"peer-port"`
	UseRandomPort          bool           `json:"peer-port-random-on-start"`
	UsePortForwarding      bool           `json:"port-forwarding-enabled"`
	EncryptionMode         EncryptionMode `json:"encryption"`
	UseUTP                 bool           `json:"utp-enabled"`
	UsePEX                 bool           `json:"pex-enabled"`
	UseDHT                 bool           `json:"dht-enabled"`
	UseLPD                 bool           `json:"lpd-enabled"`
	MaximumPeersPerTorrent int            `json:"peer-limit-per-torrent"`
	MaximumPeersGlobally   int            `json:"peer-limit-global"`
}

func (c *Client) GetNetworkServerSettings(ctx context.Context) (NetworkServerSettings, error) {
	return getSettings[NetworkServerSettings](ctx, c, "getNetworkServerSettings")
}

func (c *Client) SetPeerPort(ctx context.Context, port int) error {
	return c.SetSessionProperty(ctx, "peer-port", port)
}

func (c *Client) SetUseRandomPort(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "peer-port-random-on-start", value)
}

func (c *Client) SetUsePortForwarding(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "port-forwarding-enabled", value)
}

func (c *Client) SetEncryptionMode(ctx context.Context, mode EncryptionMode) error {
	return c.SetSessionProperty(ctx, "encryption", mode)
}

func (c *Client) SetUseUTP(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "utp-enabled", value)
}

func (c *Client) SetUsePEX(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "pex-enabled", value)
}

func (c *Client) SetUseDHT(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "dht-enabled", value)
}

func (c *Client) SetUseLPD(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "lpd-enabled", value)
}

func (c *Client) SetMaximumPeersPerTorrent(ctx context.Context, n int) error {
	return c.SetSessionProperty(ctx, "peer-limit-per-torrent", n)
}

func (c *Client) SetMaximumPeersGlobally(ctx context.Context, n int) error {
	return c.SetSessionProperty(ctx, "peer-limit-global", n)
}

// QueueServerSettings groups the download and seed queue settings.
type QueueServerSettings struct {
	DownloadQueueEnabled bool    `json:"download-queue-enabled"`
	DownloadQueueSize    int     `json:"download-queue-size"`
	SeedQueueEnabled     bool    `json:"seed-queue-enabled"`
	SeedQueueSize        int     `json:"seed-queue-size"`
	IgnoreQueueIfIdle    bool    `json:"queue-stalled-enabled"`
	IgnoreQueueIfIdleFor Minutes `json:"queue-stalled-minutes"`
}

func (c *Client) GetQueueServerSettings(ctx context.Context) (QueueServerSettings, error) {
	return getSettings[QueueServerSettings](ctx, c, "getQueueServerSettings")
}

func (c *Client) SetDownloadQueueEnabled(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "download-queue-enabled", value)
}

func (c *Client) SetDownloadQueueSize(ctx context.Context, n int) error {
	return c.SetSessionProperty(ctx, "download-queue-size", n)
}

func (c *Client) SetSeedQueueEnabled(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "seed-queue-enabled", value)
}

func (c *Client) SetSeedQueueSize(ctx context.Context, n int) error {
	return c.SetSessionProperty(ctx, "seed-queue-size", n)
}

func (c *Client) SetIgnoreQueueIfIdle(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "queue-stalled-enabled", value)
}

func (c *Client) SetIgnoreQueueIfIdleFor(ctx context.Context, d Minutes) error {
	return c.SetSessionProperty(ctx, "queue-stalled-minutes", d)
}

// SeedingServerSettings groups the global seeding limits.
type SeedingServerSettings struct {
	RatioLimited       bool    `json:"seedRatioLimited"`
	RatioLimit         float64 `json:"seedRatioLimit"`
	IdleSeedingLimited bool    `json:"idle-seeding-limit-enabled"`
	IdleSeedingLimit   Minutes `json:"idle-seeding-limit"`
}

func (c *Client) GetSeedingServerSettings(ctx context.Context) (SeedingServerSettings, error) {
	return getSettings[SeedingServerSettings](ctx, c, "getSeedingServerSettings")
}

func (c *Client) SetRatioLimited(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "seedRatioLimited", value)
}

func (c *Client) SetRatioLimit(ctx context.Context, ratio float64) error {
	return c.SetSessionProperty(ctx, "seedRatioLimit", ratio)
}

func (c *Client) SetIdleSeedingLimited(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "idle-seeding-limit-enabled", value)
}

func (c *Client) SetIdleSeedingLimit(ctx context.Context, d Minutes) error {
	return c.SetSessionProperty(ctx, "idle-seeding-limit", d)
}

// AlternativeLimitsDays selects the days the alternative speed schedule runs on.
type AlternativeLimitsDays int

const (
	Sunday    AlternativeLimitsDays = 1
	Monday    AlternativeLimitsDays = 2
	Tuesday   AlternativeLimitsDays = 4
	Wednesday AlternativeLimitsDays = 8
	Thursday  AlternativeLimitsDays = 16
	Friday    AlternativeLimitsDays = 32
	Saturday  AlternativeLimitsDays = 64
	Weekdays  AlternativeLimitsDays = Monday | Tuesday | Wednesday | Thursday | Friday
	Weekends  AlternativeLimitsDays = Sunday | Saturday
	AllDays   AlternativeLimitsDays = Weekdays | Weekends
)

// SpeedServerSettings groups the bandwidth limits and the alternative schedule.
type SpeedServerSettings struct {
	DownloadSpeedLimited          bool                  `json:"speed-limit-down-enabled"`
	DownloadSpeedLimit            TransferRate          `json:"speed-limit-down"`
	UploadSpeedLimited            bool                  `json:"speed-limit-up-enabled"`
	UploadSpeedLimit              TransferRate          `json:"speed-limit-up"`
	AlternativeLimitsEnabled      bool                  `json:"alt-speed-enabled"`
	AlternativeDownloadSpeedLimit TransferRate          `json:"alt-speed-down"`
	AlternativeUploadSpeedLimit   TransferRate          `json:"alt-speed-up"`
	AlternativeLimitsScheduled    bool                  `json:"alt-speed-time-enabled"`
	AlternativeLimitsBeginTime    TimeOfDay             `json:"alt-speed-time-begin"`
	AlternativeLimitsEndTime      TimeOfDay             `json:"alt-speed-time-end"`
	AlternativeLimitsDays         AlternativeLimitsDays `json:"alt-speed-time-day"`
}

func (c *Client) GetSpeedServerSettings(ctx context.Context) (SpeedServerSettings, error) {
	return getSettings[SpeedServerSettings](ctx, c, "getSpeedServerSettings")
}

func (c *Client) SetDownloadSpeedLimited(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "speed-limit-down-enabled", value)
}

func (c *Client) SetDownloadSpeedLimit(ctx context.Context, rate TransferRate) error {
	return c.SetSessionProperty(ctx, "speed-limit-down", rate)
}

func (c *Client) SetUploadSpeedLimited(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "speed-limit-up-enabled", value)
}

func (c *Client) SetUploadSpeedLimit(ctx context.Context, rate TransferRate) error {
	return c.SetSessionProperty(ctx, "speed-limit-up", rate)
}

func (c *Client) SetAlternativeLimitsEnabled(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "alt-speed-enabled", value)
}

func (c *Client) SetAlternativeDownloadSpeedLimit(ctx context.Context, rate TransferRate) error {
	return c.SetSessionProperty(ctx, "alt-speed-down", rate)
}

func (c *Client) SetAlternativeUploadSpeedLimit(ctx context.Context, rate TransferRate) error {
	return c.SetSessionProperty(ctx, "alt-speed-up", rate)
}

func (c *Client) SetAlternativeLimitsScheduled(ctx context.Context, value bool) error {
	return c.SetSessionProperty(ctx, "alt-speed-time-enabled", value)
}

func (c *Client) SetAlternativeLimitsBeginTime(ctx context.Context, t TimeOfDay) error {
	return c.SetSessionProperty(ctx, "alt-speed-time-begin", t)
}

func (c *Client) SetAlternativeLimitsEndTime(ctx context.Context, t TimeOfDay) error {
	return c.SetSessionProperty(ctx, "alt-speed-time-end", t)
}

func (c *Client) SetAlternativeLimitsDays(ctx context.Context, days AlternativeLimitsDays) error {
	return c.SetSessionProperty(ctx, "alt-speed-time-day", days)
}
