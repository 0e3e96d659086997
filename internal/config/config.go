// Package config loads trctl connection settings from a TOML, YAML or JSONC file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/jfxdev/go-transmission"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "TRANSMISSION_CONFIG"

const (
	defaultConfigPath = "~/.config/trctl/config.toml"
	defaultURL        = transmission.DefaultBaseURL
	defaultTimeout    = transmission.DefaultRequestTimeout
)

// Config is the connection profile used by trctl.
type Config struct {
	URL               string
	Username          string
	Password          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Debug             bool
}

// file mirrors the on-disk layout shared by all formats.
type file struct {
	URL               string  `toml:"url" yaml:"url" json:"url"`
	Username          string  `toml:"username" yaml:"username" json:"username"`
	Password          string  `toml:"password" yaml:"password" json:"password"`
	Timeout           string  `toml:"timeout" yaml:"timeout" json:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"`
	Debug             bool    `toml:"debug" yaml:"debug" json:"debug"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{URL: defaultURL, Timeout: defaultTimeout}
}

// Load reads the config at path, or at $TRANSMISSION_CONFIG, or at the
// default location. A missing default file yields Default(); an explicitly
// named file must exist.
func Load(path string) (Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = strings.TrimSpace(path) != ""
	}
	if !explicit {
		path = defaultConfigPath
	}

	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return Config{}, errors.Wrap(err, "read config")
	}

	raw, err := decode(resolved, data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", resolved)
	}
	return raw.config()
}

func decode(path string, data []byte) (file, error) {
	var raw file
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return raw, toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		return raw, yaml.Unmarshal(data, &raw)
	case ".json", ".jsonc":
		return raw, json.Unmarshal(jsonc.ToJSON(data), &raw)
	default:
		return raw, errors.Errorf("unsupported config format %q", ext)
	}
}

func (f file) config() (Config, error) {
	cfg := Default()

	if u := strings.TrimSpace(f.URL); u != "" {
		cfg.URL = u
	}
	cfg.Username = f.Username
	cfg.Password = f.Password
	cfg.Debug = f.Debug

	if t := strings.TrimSpace(f.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return Config{}, errors.Wrap(err, "parse timeout")
		}
		if d <= 0 {
			return Config{}, errors.Errorf("timeout must be positive, got %s", d)
		}
		cfg.Timeout = d
	}

	if f.RequestsPerSecond < 0 {
		return Config{}, errors.Errorf("requests_per_second must not be negative, got %v", f.RequestsPerSecond)
	}
	cfg.RequestsPerSecond = f.RequestsPerSecond
	return cfg, nil
}

// ClientConfig converts the profile to a client configuration.
func (c Config) ClientConfig() transmission.Config {
	return transmission.Config{
		BaseURL:           c.URL,
		Username:          c.Username,
		Password:          c.Password,
		RequestTimeout:    c.Timeout,
		RequestsPerSecond: c.RequestsPerSecond,
		RequestBurst:      1,
		Debug:             c.Debug,
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home dir")
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
