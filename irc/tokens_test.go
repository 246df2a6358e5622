package irc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tags := parseTags("mod=1;subscriber=0;flags=;broken;color=#FF0000")

	require.Equal(t, "1", tags["mod"])
	require.Equal(t, "0", tags["subscriber"])
	require.Equal(t, "", tags["flags"])
	require.Equal(t, "#FF0000", tags["color"])
	_, ok := tags["broken"]
	require.False(t, ok, "items without '=' are dropped")
}

func TestParseUser(t *testing.T) {
	require.Equal(t, "foo", parseUser("foo!foo@foo.tmi.twitch.tv PRIVMSG #chan"))
	require.Empty(t, parseUser("jtv MODE #chan +o someone"))
	require.Empty(t, parseUser("tmi.twitch.tv 001 kouhai"))
	require.Empty(t, parseUser("foo!other@foo.tmi.twitch.tv PRIVMSG #chan"))
	require.Empty(t, parseUser("foo!foo@elsewhere PRIVMSG #chan"))
	require.Empty(t, parseUser("Foo!Foo@Foo.tmi.twitch.tv PRIVMSG #chan"))
	require.Empty(t, parseUser(""))
}

func TestParseType(t *testing.T) {
	require.Equal(t, "PRIVMSG", parseType("foo!foo@foo.tmi.twitch.tv PRIVMSG #chan"))
	require.Equal(t, "CAP * ACK", parseType("tmi.twitch.tv CAP * ACK"))
	require.Empty(t, parseType("lonely"))
}

func TestParseChannel(t *testing.T) {
	require.Equal(t, "chan", parseChannel("#chan"))
	require.Equal(t, "chan", parseChannel("kouhai = #chan more"))
	require.Empty(t, parseChannel("no channel here"))
}

func TestParseTrailing(t *testing.T) {
	require.Equal(t, "a :b", parseTrailing([]string{"a", "b"}))
	require.Equal(t, "/me waves", parseTrailing([]string{"\x01ACTION waves\x01"}))
	require.Empty(t, parseTrailing(nil))
}
