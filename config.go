package kouhai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the bot configuration.  The oauth token is loaded from the
// environment, never from the config file.
type Config struct {
	Nick            string   `yaml:"nick"`
	Addr            string   `yaml:"addr"`
	OnlineChannels  []string `yaml:"online-channels"`
	OfflineChannels []string `yaml:"offline-channels"`
	Capabilities    []string `yaml:"capabilities"`
	Prefix          string   `yaml:"prefix"`
	HistoryLimit    int      `yaml:"history-limit"`
	ShowErrors      bool     `yaml:"show-errors"`
	AliasDB         string   `yaml:"alias-db"`
	NoTLS           bool     `yaml:"no-tls"`

	Oauth string `yaml:"-"`
}

// ParseConfig reads a YAML configuration, filling in defaults for
// anything left unset.
func ParseConfig(r io.Reader) (cfg Config, err error) {
	cfg = Config{
		Addr:         "irc.chat.twitch.tv",
		Capabilities: []string{"commands", "membership", "tags"},
		Prefix:       DefaultPrefix,
		HistoryLimit: 1000,
		AliasDB:      "aliases.db",
	}
	err = yaml.NewDecoder(r).Decode(&cfg)
	if err == io.EOF {
		err = nil
	}
	return
}

func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := ParseConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadCredentials reads the oauth token from the environment, loading a
// .env file first if one exists.
func (cfg *Config) LoadCredentials() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg.Oauth = os.Getenv("TWITCH_OAUTH")
	return nil
}

// Validate reports the first configuration problem found.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Nick == "":
		return errors.New("config: nick is required")
	case cfg.Addr == "":
		return errors.New("config: addr is required")
	case len(cfg.OnlineChannels) == 0 && len(cfg.OfflineChannels) == 0:
		return errors.New("config: at least one channel is required")
	case cfg.Oauth == "":
		return errors.New("config: TWITCH_OAUTH is not set")
	case !strings.HasPrefix(cfg.Oauth, "oauth:"):
		return errors.New("config: token must start with \"oauth:\"")
	case cfg.HistoryLimit <= 0:
		return errors.New("config: history-limit must be positive")
	}
	return nil
}

// Channels returns every configured channel name, deduplicated.
func (cfg *Config) Channels() []string {
	seen := map[string]struct{}{}
	var channels []string
	for _, name := range append(append([]string{}, cfg.OnlineChannels...), cfg.OfflineChannels...) {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		channels = append(channels, name)
	}
	return channels
}

func (cfg *Config) channelOnline(name string) bool {
	for _, ch := range cfg.OnlineChannels {
		if ch == name {
			return true
		}
	}
	return false
}

func (cfg *Config) channelOffline(name string) bool {
	for _, ch := range cfg.OfflineChannels {
		if ch == name {
			return true
		}
	}
	return false
}

// Ranks is the privilege roster: the owner, trusted admins, and users
// whose invocations are silently ignored.
type Ranks struct {
	Owner     string   `json:"owner"`
	Admins    []string `json:"admins"`
	Blacklist []string `json:"blacklist"`
}

// LoadRanksFile reads the roster, creating a default file naming only
// the fallback owner when none exists.
func LoadRanksFile(path, fallbackOwner string) (Ranks, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		ranks := Ranks{Owner: fallbackOwner, Admins: []string{}, Blacklist: []string{}}
		data, err := json.MarshalIndent(ranks, "", "  ")
		if err != nil {
			return Ranks{}, err
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return Ranks{}, fmt.Errorf("write default ranks: %w", err)
		}
		return ranks, nil
	}
	if err != nil {
		return Ranks{}, err
	}
	var ranks Ranks
	if err := json.Unmarshal(data, &ranks); err != nil {
		return Ranks{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if ranks.Owner == "" {
		ranks.Owner = fallbackOwner
	}
	return ranks, nil
}

func (r Ranks) checkBlacklist(user string) DenialReason {
	for _, banned := range r.Blacklist {
		if user == banned {
			return DeniedBlacklist
		}
	}
	return DenialNone
}
