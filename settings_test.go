package transmission

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestFieldsOf(t *testing.T) {
	type sample struct {
		A       int    `json:"a-field"`
		B       string `json:"b,omitempty"`
		Skipped string `json:"-"`
		NoTag   bool
	}
	want := []string{"a-field", "b"}
	if got := fieldsOf[sample](); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	// Cached lookups return the same list.
	if got := fieldsOf[sample](); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected cached %v, got %v", want, got)
	}
}

func TestSettingsGettersRequestDeclaredFields(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		get    func(*Client) error
	}{
		{
			name:   "downloading",
			fields: []string{"download-dir", "start-added-torrents", "rename-partial-files", "incomplete-dir-enabled", "incomplete-dir"},
			get: func(c *Client) error {
				_, err := c.GetDownloadingServerSettings(context.Background())
				return err
			},
		},
		{
			name: "network",
			fields: []string{"peer-port", "peer-port-random-on-start", "port-forwarding-enabled", "encryption",
				"utp-enabled", "pex-enabled", "dht-enabled", "lpd-enabled", "peer-limit-per-torrent", "peer-limit-global"},
			get: func(c *Client) error {
				_, err := c.GetNetworkServerSettings(context.Background())
				return err
			},
		},
		{
			name: "queue",
			fields: []string{"download-queue-enabled", "download-queue-size", "seed-queue-enabled", "seed-queue-size",
				"queue-stalled-enabled", "queue-stalled-minutes"},
			get: func(c *Client) error {
				_, err := c.GetQueueServerSettings(context.Background())
				return err
			},
		},
		{
			name:   "seeding",
			fields: []string{"seedRatioLimited", "seedRatioLimit", "idle-seeding-limit-enabled", "idle-seeding-limit"},
			get: func(c *Client) error {
				_, err := c.GetSeedingServerSettings(context.Background())
				return err
			},
		},
		{
			name: "speed",
			fields: []string{"speed-limit-down-enabled", "speed-limit-down", "speed-limit-up-enabled", "speed-limit-up",
				"alt-speed-enabled", "alt-speed-down", "alt-speed-up", "alt-speed-time-enabled", "alt-speed-time-begin",
				"alt-speed-time-end", "alt-speed-time-day"},
			get: func(c *Client) error {
				_, err := c.GetSpeedServerSettings(context.Background())
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daemon := newFakeDaemon(t)
			daemon.withCapabilities(17, false)
			daemon.handle(MethodSessionGet, func(json.RawMessage) (string, any) {
				return ResultSuccess, map[string]any{
					"encryption":          "preferred",
					"rpc-version":         17,
					"rpc-version-minimum": 14,
					"version":             "4.0.5",
				}
			})
			client := daemon.client(t)

			if err := tt.get(client); err != nil {
				t.Fatalf("get: %v", err)
			}
			calls := daemon.recorded()
			if len(calls) == 0 || calls[0].Method != MethodSessionGet {
				t.Fatalf("Unexpected calls %+v", calls)
			}
			if got := fieldsArgument(t, calls[0]); !reflect.DeepEqual(got, tt.fields) {
				t.Errorf("Expected fields %v, got %v", tt.fields, got)
			}
		})
	}
}

func TestGetNetworkServerSettings(t *testing.T) {
	daemon := newFakeDaemon(t)
	daemon.respond(MethodSessionGet, map[string]any{
		"peer-port":                 51413,
		"peer-port-random-on-start": true,
		"port-forwarding-enabled":   false,
		"encryption":                "required",
		"utp-enabled":               true,
		"pex-enabled":               true,
		"dht-enabled":               false,
		"lpd-enabled":               true,
		"peer-limit-per-torrent":    50,
		"peer-limit-global":         200,
	})
	client := daemon.client(t)

	got, err := client.GetNetworkServerSettings(context.Background())
	if err != nil {
		t.Fatalf("GetNetworkServerSettings: %v", err)
	}
	want := NetworkServerSettings{
		PeerPort:               51413,
		UseRandomPort:          true,
		EncryptionMode:         EncryptionRequired,
		UseUTP:                 true,
		UsePEX:                 true,
		UseLPD:                 true,
		MaximumPeersPerTorrent: 50,
		MaximumPeersGlobally:   200,
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestGetNetworkServerSettingsUnknownEncryption(t *testing.T) {
	daemon := newFakeDaemon(t)
	daemon.respond(MethodSessionGet, map[string]any{"encryption": "sometimes"})
	client := daemon.client(t)

	_, err := client.GetNetworkServerSettings(context.Background())
	if GetErrorCode(err) != ErrorCodeDecode {
		t.Errorf("Expected DecodeError, got %v", err)
	}
}

func TestGetSpeedServerSettings(t *testing.T) {
	daemon := newFakeDaemon(t)
	daemon.respond(MethodSessionGet, map[string]any{
		"speed-limit-down-enabled": true,
		"speed-limit-down":         100,
		"alt-speed-up":             25,
		"alt-speed-time-begin":     540,
		"alt-speed-time-end":       1020,
		"alt-speed-time-day":       62,
	})
	client := daemon.client(t)

	got, err := client.GetSpeedServerSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSpeedServerSettings: %v", err)
	}
	if !got.DownloadSpeedLimited || got.DownloadSpeedLimit != 100_000 {
		t.Errorf("Unexpected download limit %+v", got)
	}
	if got.AlternativeUploadSpeedLimit.KiloBytesPerSecond() != 25 {
		t.Errorf("Unexpected alternative upload limit %v", got.AlternativeUploadSpeedLimit)
	}
	if got.AlternativeLimitsBeginTime != (TimeOfDay{Hour: 9}) || got.AlternativeLimitsEndTime != (TimeOfDay{Hour: 17}) {
		t.Errorf("Unexpected schedule %v-%v", got.AlternativeLimitsBeginTime, got.AlternativeLimitsEndTime)
	}
	if got.AlternativeLimitsDays != Weekdays {
		t.Errorf("Expected weekdays, got %d", got.AlternativeLimitsDays)
	}
}

func TestGetQueueAndSeedingSettings(t *testing.T) {
	daemon := newFakeDaemon(t)
	daemon.respond(MethodSessionGet, map[string]any{
		"queue-stalled-minutes": 30,
		"seedRatioLimit":        1.5,
		"idle-seeding-limit":    45,
	})
	client := daemon.client(t)
	ctx := context.Background()

	queue, err := client.GetQueueServerSettings(ctx)
	if err != nil {
		t.Fatalf("GetQueueServerSettings: %v", err)
	}
	if queue.IgnoreQueueIfIdleFor.Duration() != 30*time.Minute {
		t.Errorf("Unexpected stalled duration %v", queue.IgnoreQueueIfIdleFor.Duration())
	}

	seeding, err := client.GetSeedingServerSettings(ctx)
	if err != nil {
		t.Fatalf("GetSeedingServerSettings: %v", err)
	}
	if seeding.RatioLimit != 1.5 || seeding.IdleSeedingLimit.Duration() != 45*time.Minute {
		t.Errorf("Unexpected seeding settings %+v", seeding)
	}
}

func TestSettersSendWireValues(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		set  func(*Client) error
		want string
	}{
		{"download dir", func(c *Client) error { return c.SetDownloadDirectory(ctx, " /data/downloads ") }, `{"download-dir":"/data/downloads"}`},
		{"start added", func(c *Client) error { return c.SetStartAddedTorrents(ctx, true) }, `{"start-added-torrents":true}`},
		{"rename partial", func(c *Client) error { return c.SetRenameIncompleteFiles(ctx, false) }, `{"rename-partial-files":false}`},
		{"incomplete enabled", func(c *Client) error { return c.SetIncompleteDirectoryEnabled(ctx, true) }, `{"incomplete-dir-enabled":true}`},
		{"incomplete dir", func(c *Client) error { return c.SetIncompleteDirectory(ctx, "/data/incomplete") }, `{"incomplete-dir":"/data/incomplete"}`},
		{"peer port", func(c *Client) error { return c.SetPeerPort(ctx, 51413) }, `{"peer-port":51413}`},
		{"random port", func(c *Client) error { return c.SetUseRandomPort(ctx, true) }, `{"peer-port-random-on-start":true}`},
		{"port forwarding", func(c *Client) error { return c.SetUsePortForwarding(ctx, true) }, `{"port-forwarding-enabled":true}`},
		{"encryption allowed", func(c *Client) error { return c.SetEncryptionMode(ctx, EncryptionAllowed) }, `{"encryption":"tolerated"}`},
		{"encryption preferred", func(c *Client) error { return c.SetEncryptionMode(ctx, EncryptionPreferred) }, `{"encryption":"preferred"}`},
		{"encryption required", func(c *Client) error { return c.SetEncryptionMode(ctx, EncryptionRequired) }, `{"encryption":"required"}`},
		{"utp", func(c *Client) error { return c.SetUseUTP(ctx, true) }, `{"utp-enabled":true}`},
		{"pex", func(c *Client) error { return c.SetUsePEX(ctx, true) }, `{"pex-enabled":true}`},
		{"dht", func(c *Client) error { return c.SetUseDHT(ctx, false) }, `{"dht-enabled":false}`},
		{"lpd", func(c *Client) error { return c.SetUseLPD(ctx, true) }, `{"lpd-enabled":true}`},
		{"peers per torrent", func(c *Client) error { return c.SetMaximumPeersPerTorrent(ctx, 60) }, `{"peer-limit-per-torrent":60}`},
		{"peers global", func(c *Client) error { return c.SetMaximumPeersGlobally(ctx, 240) }, `{"peer-limit-global":240}`},
		{"queue stalled", func(c *Client) error { return c.SetIgnoreQueueIfIdleFor(ctx, Minutes(90*time.Minute)) }, `{"queue-stalled-minutes":90}`},
		{"download queue size", func(c *Client) error { return c.SetDownloadQueueSize(ctx, 5) }, `{"download-queue-size":5}`},
		{"ratio limit", func(c *Client) error { return c.SetRatioLimit(ctx, 2) }, `{"seedRatioLimit":2}`},
		{"idle limit", func(c *Client) error { return c.SetIdleSeedingLimit(ctx, Minutes(time.Hour)) }, `{"idle-seeding-limit":60}`},
		{"download limit", func(c *Client) error { return c.SetDownloadSpeedLimit(ctx, KiloBytesPerSecond(512)) }, `{"speed-limit-down":512}`},
		{"alt upload limit", func(c *Client) error { return c.SetAlternativeUploadSpeedLimit(ctx, KiloBytesPerSecond(64)) }, `{"alt-speed-up":64}`},
		{"alt begin", func(c *Client) error { return c.SetAlternativeLimitsBeginTime(ctx, TimeOfDay{Hour: 22, Minute: 30}) }, `{"alt-speed-time-begin":1350}`},
		{"alt days", func(c *Client) error { return c.SetAlternativeLimitsDays(ctx, Weekends) }, `{"alt-speed-time-day":65}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daemon := newFakeDaemon(t)
			daemon.withCapabilities(17, false)
			daemon.respond(MethodSessionSet, map[string]any{})
			client := daemon.client(t)

			if err := tt.set(client); err != nil {
				t.Fatalf("set: %v", err)
			}
			if n := countCalls(daemon.recorded(), MethodSessionSet); n != 1 {
				t.Fatalf("Expected one session-set, got %d", n)
			}
			if got := string(lastCall(t, daemon, MethodSessionSet).Arguments); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSetterPropagatesServerError(t *testing.T) {
	daemon := newFakeDaemon(t)
	daemon.handle(MethodSessionSet, func(json.RawMessage) (string, any) {
		return "invalid argument", map[string]any{}
	})
	client := daemon.client(t)

	err := client.SetPeerPort(context.Background(), -1)
	if msg, ok := ServerMessage(err); !ok || msg != "invalid argument" {
		t.Errorf("Expected the daemon message, got %v", err)
	}
}

func TestPathSettersNormalizeOnFreshClient(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		windows bool
		set     func(*Client) error
		want    string
	}{
		{"windows download dir", true, func(c *Client) error { return c.SetDownloadDirectory(ctx, `d:\Downloads\`) }, `{"download-dir":"D:/Downloads"}`},
		{"windows incomplete dir", true, func(c *Client) error { return c.SetIncompleteDirectory(ctx, `c:\Temp\\partial`) }, `{"incomplete-dir":"C:/Temp/partial"}`},
		{"unix download dir", false, func(c *Client) error { return c.SetDownloadDirectory(ctx, "/data//downloads/") }, `{"download-dir":"/data/downloads"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daemon := newFakeDaemon(t)
			daemon.withCapabilities(17, tt.windows)
			daemon.respond(MethodSessionSet, map[string]any{})
			client := daemon.client(t)

			if err := tt.set(client); err != nil {
				t.Fatalf("set: %v", err)
			}
			if got := string(lastCall(t, daemon, MethodSessionSet).Arguments); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPathSetterFailsOnUnsupportedDaemon(t *testing.T) {
	daemon := newFakeDaemon(t)
	daemon.respond(MethodSessionGet, map[string]any{"rpc-version": 14, "rpc-version-minimum": 1, "version": "2.40"})
	client := daemon.client(t)

	err := client.SetDownloadDirectory(context.Background(), "/data")
	if GetErrorCode(err) != ErrorCodeVersionIncompatible {
		t.Fatalf("Expected VersionIncompatible, got %v", err)
	}
	if n := countCalls(daemon.recorded(), MethodSessionSet); n != 0 {
		t.Errorf("Expected no session-set, got %d", n)
	}
}

func TestGetDownloadingServerSettingsNormalizesPaths(t *testing.T) {
	tests := []struct {
		name       string
		windows    bool
		download   string
		incomplete string
		want       DownloadingServerSettings
	}{
		{
			name:       "unix",
			download:   "/data//downloads/",
			incomplete: "/data/incomplete",
			want: DownloadingServerSettings{
				DownloadDirectory:   "/data/downloads",
				IncompleteDirectory: "/data/incomplete",
			},
		},
		{
			name:       "windows",
			windows:    true,
			download:   `d:\Downloads\`,
			incomplete: `\\nas\share\partial`,
			want: DownloadingServerSettings{
				DownloadDirectory:   "D:/Downloads",
				IncompleteDirectory: "//nas/share/partial",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daemon := newFakeDaemon(t)
			daemon.withCapabilities(17, tt.windows)
			daemon.handle(MethodSessionGet, func(json.RawMessage) (string, any) {
				return ResultSuccess, map[string]any{
					"rpc-version":         17,
					"rpc-version-minimum": 14,
					"version":             "4.0.5",
					"download-dir":        tt.download,
					"incomplete-dir":      tt.incomplete,
				}
			})
			client := daemon.client(t)

			// The first request of a fresh client renews the token, which
			// drops any cached capabilities.
			got, err := client.GetDownloadingServerSettings(context.Background())
			if err != nil {
				t.Fatalf("GetDownloadingServerSettings: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if daemon.rejections() != 1 {
				t.Errorf("Expected one token renewal, got %d", daemon.rejections())
			}
		})
	}
}

func TestEncryptionModeText(t *testing.T) {
	for mode, name := range encryptionModeNames {
		text, err := mode.MarshalText()
		if err != nil || string(text) != name {
			t.Errorf("MarshalText(%d) = %q, %v", mode, text, err)
		}
		var parsed EncryptionMode
		if err := parsed.UnmarshalText([]byte(name)); err != nil || parsed != mode {
			t.Errorf("UnmarshalText(%q) = %v, %v", name, parsed, err)
		}
	}
	if _, err := EncryptionMode(42).MarshalText(); err == nil {
		t.Error("Expected an error for an unknown mode")
	}
}

func TestAlternativeLimitsDays(t *testing.T) {
	if Weekdays != 62 || Weekends != 65 || AllDays != 127 {
		t.Errorf("Unexpected day masks: %d %d %d", Weekdays, Weekends, AllDays)
	}
}
