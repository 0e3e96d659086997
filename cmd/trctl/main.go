// trctl inspects and changes the settings of a Transmission daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jfxdev/go-transmission"
	"github.com/jfxdev/go-transmission/internal/config"
)

const usage = `usage: trctl [flags] <command> [args]

commands:
  caps                              show daemon version and capabilities
  stats                             show transfer statistics
  settings <group>                  show a settings group (downloading, network, queue, seeding, speed)
  set <key> <json-value>            set one daemon setting, e.g. set peer-port 51413
  free-space <dir>                  show free space in a daemon directory
  trackers <hash>                   list the trackers of a torrent
  merge-trackers <hash> <tiers>     merge tiers ("a\nb\n\nc") into a torrent's trackers
  magnet-trackers <magnet-uri>      merge the trackers of a magnet link into its torrent

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flagSet := pflag.NewFlagSet("trctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	configPath := flagSet.StringP("config", "c", "", "config file (toml, yaml or jsonc); defaults to $"+config.EnvConfigPath)
	baseURL := flagSet.String("url", "", "daemon RPC url, overrides the config file")
	debug := flagSet.Bool("debug", false, "log RPC requests to stderr")
	asJSON := flagSet.Bool("json", false, "print raw JSON instead of a table")
	flagSet.Usage = func() {
		fmt.Fprint(stderr, usage)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "trctl: %v\n", err)
		return 1
	}
	if *baseURL != "" {
		cfg.URL = *baseURL
	}
	if *debug {
		cfg.Debug = true
	}

	client, err := transmission.New(cfg.ClientConfig())
	if err != nil {
		fmt.Fprintf(stderr, "trctl: %v\n", err)
		return 1
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := newPrinter(stdout, *asJSON)
	if err := dispatch(ctx, client, out, flagSet.Args()); err != nil {
		fmt.Fprintf(stderr, "trctl: %v\n", err)
		if msg, ok := transmission.ServerMessage(err); ok {
			fmt.Fprintf(stderr, "daemon said: %s\n", msg)
		}
		if _, ok := err.(usageError); ok {
			return 2
		}
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return string(e) }

func dispatch(ctx context.Context, client *transmission.Client, out *printer, args []string) error {
	cmd, rest := args[0], args[1:]
	need := func(n int, form string) error {
		if len(rest) != n {
			return usageError("usage: trctl " + form)
		}
		return nil
	}

	switch cmd {
	case "caps":
		if err := need(0, "caps"); err != nil {
			return err
		}
		caps, err := client.ServerCapabilities(ctx)
		if err != nil {
			return err
		}
		return out.pairs([][2]string{
			{"version", caps.Version},
			{"rpc version", fmt.Sprint(caps.RPCVersion)},
			{"server os", caps.OS.String()},
			{"tracker list", fmt.Sprint(caps.HasTrackerListProperty())},
			{"table mode", fmt.Sprint(caps.HasTableMode())},
			{"labels", fmt.Sprint(caps.SupportsLabels())},
		})

	case "stats":
		if err := need(0, "stats"); err != nil {
			return err
		}
		stats, err := client.GetSessionStats(ctx)
		if err != nil {
			return err
		}
		if out.json {
			return out.object(stats)
		}
		return out.pairs([][2]string{
			{"download speed", fmt.Sprintf("%d B/s", stats.DownloadSpeed)},
			{"upload speed", fmt.Sprintf("%d B/s", stats.UploadSpeed)},
			{"downloaded (session)", stats.CurrentSession.Downloaded.String()},
			{"uploaded (session)", stats.CurrentSession.Uploaded.String()},
			{"downloaded (total)", stats.Total.Downloaded.String()},
			{"uploaded (total)", stats.Total.Uploaded.String()},
			{"sessions", fmt.Sprint(stats.Total.SessionCount)},
		})

	case "settings":
		if err := need(1, "settings <group>"); err != nil {
			return err
		}
		settings, err := getSettingsGroup(ctx, client, rest[0])
		if err != nil {
			return err
		}
		return out.object(settings)

	case "set":
		if err := need(2, "set <key> <json-value>"); err != nil {
			return err
		}
		var value any
		if err := json.Unmarshal([]byte(rest[1]), &value); err != nil {
			// Bare words are taken as strings so paths need no quoting.
			value = rest[1]
		}
		if err := client.SetSessionProperty(ctx, rest[0], value); err != nil {
			return err
		}
		return out.pairs([][2]string{{rest[0], rest[1]}})

	case "free-space":
		if err := need(1, "free-space <dir>"); err != nil {
			return err
		}
		size, err := client.FreeSpace(ctx, rest[0])
		if err != nil {
			return err
		}
		return out.pairs([][2]string{{rest[0], size.String()}})

	case "trackers":
		if err := need(1, "trackers <hash>"); err != nil {
			return err
		}
		trackers, err := client.GetTorrentTrackers(ctx, rest[0])
		if err != nil {
			return err
		}
		if out.json {
			return out.object(trackers)
		}
		return out.trackers(trackers)

	case "merge-trackers":
		if err := need(2, "merge-trackers <hash> <tiers>"); err != nil {
			return err
		}
		incoming := transmission.DecodeTrackerTiers(unescapeNewlines(rest[1]))
		merged, err := client.MergeTorrentTrackers(ctx, rest[0], incoming)
		if err != nil {
			return err
		}
		return out.tiers(merged)

	case "magnet-trackers":
		if err := need(1, "magnet-trackers <magnet-uri>"); err != nil {
			return err
		}
		merged, err := client.AddTrackersFromMagnet(ctx, rest[0])
		if err != nil {
			return err
		}
		return out.tiers(merged)

	default:
		return usageError(fmt.Sprintf("unknown command %q", cmd))
	}
}

func getSettingsGroup(ctx context.Context, client *transmission.Client, group string) (any, error) {
	switch group {
	case "downloading":
		return client.GetDownloadingServerSettings(ctx)
	case "network":
		return client.GetNetworkServerSettings(ctx)
	case "queue":
		return client.GetQueueServerSettings(ctx)
	case "seeding":
		return client.GetSeedingServerSettings(ctx)
	case "speed":
		return client.GetSpeedServerSettings(ctx)
	default:
		return nil, usageError(fmt.Sprintf("unknown settings group %q", group))
	}
}
