package irc

import (
	"strings"
)

// serverPrefixes are pseudo-users the server speaks as.  Command segments
// that start with one of these carry no originating user.
var serverPrefixes = []string{"jtv ", "tmi.twitch.tv "}

func word(s string) (w, rest string) {
	split := strings.SplitN(s, " ", 2)

	if len(split) < 2 {
		w = split[0]
		rest = ""
	} else {
		w = split[0]
		rest = split[1]
	}

	return
}

// parseTags decodes a raw "k=v;k2=v2" tag segment.  Items without a '='
// are dropped.  The leading '@' must already be stripped by the caller.
func parseTags(s string) (tags map[string]string) {
	tags = map[string]string{}

	for _, item := range strings.Split(s, ";") {
		kv := strings.SplitN(item, "=", 2)
		if len(kv) < 2 || kv[0] == "" {
			continue
		}
		tags[kv[0]] = kv[1]
	}

	return
}

func isNickByte(c byte) bool {
	return 'a' <= c && c <= 'z' || '0' <= c && c <= '9' || c == '_'
}

// parseUser extracts the originating user from a command segment of the
// form "nick!nick@nick.host ...".  The user and host parts must repeat
// the nick, which is how the server formats user-originated lines.
func parseUser(command string) string {
	for _, prefix := range serverPrefixes {
		if strings.HasPrefix(command, prefix) {
			return ""
		}
	}

	mask, _ := word(command)
	bang := strings.IndexByte(mask, '!')
	if bang <= 0 {
		return ""
	}
	nick := mask[:bang]
	for i := 0; i < len(nick); i++ {
		if !isNickByte(nick[i]) {
			return ""
		}
	}

	rest := mask[bang+1:]
	at := strings.IndexByte(rest, '@')
	if at < 0 || rest[:at] != nick {
		return ""
	}
	if !strings.HasPrefix(rest[at+1:], nick) {
		return ""
	}

	return nick
}

// parseType returns the message type: the second field of the command
// segment, except for capability acknowledgements which span three fields.
func parseType(command string) string {
	if strings.Contains(command, "CAP * ACK") {
		return "CAP * ACK"
	}
	fields := strings.Fields(command)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// parseParams returns everything after the type token in the command
// segment, or "" if nothing follows it.
func parseParams(command, msgType string) string {
	i := strings.Index(command, msgType)
	if i < 0 {
		return ""
	}
	i += len(msgType) + 1
	if len(command) <= i {
		return ""
	}
	return command[i:]
}

// parseChannel extracts a channel name from a params segment: the
// substring after '#' up to the next space.
func parseChannel(params string) string {
	i := strings.IndexByte(params, '#')
	if i < 0 {
		return ""
	}
	channel := params[i+1:]
	if sp := strings.IndexByte(channel, ' '); 0 <= sp {
		channel = channel[:sp]
	}
	return channel
}

// parseTrailing rejoins the trailing free-text pieces and rewrites CTCP
// ACTION markers to the conventional "/me" form.
func parseTrailing(data []string) string {
	if len(data) == 0 {
		return ""
	}
	message := strings.Join(data, " :")
	if 8 <= len(message) && message[0] == 0x01 && message[1:7] == "ACTION" &&
		message[len(message)-1] == 0x01 {
		message = "/me" + message[7:len(message)-1]
	}
	return strings.TrimSpace(message)
}
