package kouhai

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, "irc.chat.twitch.tv", cfg.Addr)
	require.Equal(t, []string{"commands", "membership", "tags"}, cfg.Capabilities)
	require.Equal(t, "!", cfg.Prefix)
	require.Equal(t, 1000, cfg.HistoryLimit)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
nick: kouhai
online-channels: [one, two]
offline-channels: [two, three]
prefix: "?"
history-limit: 50
show-errors: true
`))
	require.NoError(t, err)
	require.Equal(t, "kouhai", cfg.Nick)
	require.Equal(t, "?", cfg.Prefix)
	require.Equal(t, 50, cfg.HistoryLimit)
	require.True(t, cfg.ShowErrors)
	require.Equal(t, []string{"one", "two", "three"}, cfg.Channels())
	require.True(t, cfg.channelOnline("one"))
	require.False(t, cfg.channelOnline("three"))
	require.True(t, cfg.channelOffline("two"))
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Nick:           "kouhai",
		Addr:           "irc.example.test",
		OnlineChannels: []string{"chan"},
		HistoryLimit:   100,
		Oauth:          "oauth:secret",
	}
	require.NoError(t, valid.Validate())

	for name, breakIt := range map[string]func(*Config){
		"missing nick":     func(c *Config) { c.Nick = "" },
		"missing addr":     func(c *Config) { c.Addr = "" },
		"no channels":      func(c *Config) { c.OnlineChannels = nil },
		"missing token":    func(c *Config) { c.Oauth = "" },
		"malformed token":  func(c *Config) { c.Oauth = "secret" },
		"bad history size": func(c *Config) { c.HistoryLimit = 0 },
	} {
		cfg := valid
		breakIt(&cfg)
		require.Error(t, cfg.Validate(), name)
	}
}

func TestLoadRanksFileCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranks.json")

	ranks, err := LoadRanksFile(path, "boss")
	require.NoError(t, err)
	require.Equal(t, "boss", ranks.Owner)
	require.Empty(t, ranks.Admins)

	// the created file round-trips
	ranks, err = LoadRanksFile(path, "ignored")
	require.NoError(t, err)
	require.Equal(t, "boss", ranks.Owner)
}

func TestRanksBlacklist(t *testing.T) {
	ranks := Ranks{Blacklist: []string{"troll"}}
	require.Equal(t, DeniedBlacklist, ranks.checkBlacklist("troll"))
	require.Equal(t, DenialNone, ranks.checkBlacklist("alice"))
}
