package kouhai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type memAliasStore struct {
	byID map[string][]string
}

func (s *memAliasStore) Record(channel, userID, name string) error {
	for _, known := range s.byID[userID] {
		if known == name {
			return nil
		}
	}
	s.byID[userID] = append(s.byID[userID], name)
	return nil
}

func (s *memAliasStore) Names(channel, userID string) ([]string, error) {
	return s.byID[userID], nil
}

func (s *memAliasStore) Lookup(channel, name string) ([]string, error) {
	for _, names := range s.byID {
		for _, known := range names {
			if known == name {
				return names, nil
			}
		}
	}
	return nil, nil
}

func (s *memAliasStore) Close() error { return nil }

func drainQueue(t *testing.T, ch *Channel) []string {
	t.Helper()
	m := ch.messenger
	m.mu.Lock()
	defer m.mu.Unlock()
	queued := m.queue
	m.queue = nil
	return queued
}

func TestBotCommand(t *testing.T) {
	b, ft := newTestBot(t)
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "helper", "!bot off global", nil))
	require.False(t, b.Active())
	require.Contains(t, ft.Sent(), "PRIVMSG #chan :Bot turned off (global).",
		"the confirmation bypasses the gated queue")

	b.handleChat(chat("chan", "helper", "!bot on local", nil))
	require.False(t, b.Active(), "local scope leaves the global flag alone")
	require.True(t, ch.Active())

	b.handleChat(chat("chan", "pleb", "!bot on global", nil))
	require.False(t, b.Active(), "admin only")
}

func TestCmdsCommand(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "pleb", "!cmds", nil))
	queued := drainQueue(t, ch)
	require.Len(t, queued, 1)
	require.Contains(t, queued[0], "!help")
	require.NotContains(t, queued[0], "!status", "hidden commands are not listed")

	// the alias reaches the same command, which is now on cooldown
	b.handleChat(chat("chan", "pleb", "!commands", nil))
	require.Empty(t, drainQueue(t, ch))
}

func TestHelpCommand(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "pleb", "!help say", nil))
	queued := drainQueue(t, ch)
	require.Len(t, queued, 1)
	require.Equal(t, "[CMD] !say <message+> (mod) - Repeat a message.", queued[0])

	b.handleChat(chat("chan", "pleb", "!help nonsense", nil))
	require.Empty(t, drainQueue(t, ch), "unknown commands produce no chat output")
}

func TestSayCommand(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "m", "!say hello there world", map[string]string{"mod": "1"}))
	require.Equal(t, []string{"hello there world"}, drainQueue(t, ch),
		"the remainder keeps its internal spaces")

	b.handleChat(chat("chan", "pleb", "!say nope", nil))
	queued := drainQueue(t, ch)
	require.Len(t, queued, 1)
	require.Contains(t, queued[0], "Insufficient perms")
}

func TestToggleCommand(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "helper", "!toggle live off local", nil))
	require.True(t, b.commands.ByName("live").disabledInChannel("chan"))
	drainQueue(t, ch)

	b.handleChat(chat("chan", "helper", "!toggle live on local", nil))
	require.False(t, b.commands.ByName("live").disabledInChannel("chan"))
	drainQueue(t, ch)

	b.handleChat(chat("chan", "helper", "!toggle toggle off global", nil))
	require.False(t, b.commands.ByName("toggle").Disabled, "toggle refuses to disable itself")
}

func TestPrefixCommand(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "helper", "!prefix", nil))
	require.Equal(t, []string{"Current prefix: !"}, drainQueue(t, ch))

	b.handleChat(chat("chan", "helper", "!prefix ?", nil))
	require.Equal(t, "?", b.commands.Prefix())
	drainQueue(t, ch)

	b.handleChat(chat("chan", "helper", "?prefix ab", nil))
	require.Equal(t, "?", b.commands.Prefix(), "multi-character prefixes are rejected")
	drainQueue(t, ch)

	b.handleChat(chat("chan", "helper", "?prefix x", nil))
	require.Equal(t, "?", b.commands.Prefix(), "letters are rejected")
}

func TestRelayCommand(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "helper", "@ chan hi over there", nil))
	queued := drainQueue(t, ch)
	require.Len(t, queued, 1)
	require.Equal(t, "helper (from chan): hi over there", queued[0])

	b.handleChat(chat("chan", "pleb", "@ chan nope", nil))
	require.Empty(t, drainQueue(t, ch), "admin only and hidden, so the denial is silent")
}

func TestLinksCommand(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "alice", "check https://example.com/a out", nil))
	b.handleChat(chat("chan", "bob", "also example.org", nil))
	b.handleChat(chat("chan", "m", "!links", map[string]string{"mod": "1"}))

	queued := drainQueue(t, ch)
	require.Len(t, queued, 1)
	require.Contains(t, queued[0], "https://example.com/a")
	require.Contains(t, queued[0], "example.org")
}

func TestNamesCommand(t *testing.T) {
	b, _ := newTestBot(t)
	b.aliases = &memAliasStore{byID: map[string][]string{}}
	ch := b.ChannelByName("chan")

	b.handleChat(chat("chan", "oldname", "hi", map[string]string{"user-id": "123"}))
	b.handleChat(chat("chan", "newname", "hi again", map[string]string{"user-id": "123"}))

	b.handleChat(chat("chan", "m", "!names newname", map[string]string{"mod": "1"}))
	queued := drainQueue(t, ch)
	require.Len(t, queued, 1)
	require.Contains(t, queued[0], "oldname")
	require.Contains(t, queued[0], "newname")
}
