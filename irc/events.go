// Package irc decodes the line-oriented chat protocol into typed events.
package irc

import (
	"strings"
)

// Event is one decoded protocol line.  The set of implementations is
// closed: consumers dispatch with a type switch and treat UnknownEvent as
// the catch-all.
type Event interface {
	event()
}

// LoginEvent reports a successful login (001).
type LoginEvent struct{}

// CapAckEvent carries the capabilities granted by the server.
type CapAckEvent struct {
	Caps []string
}

// PingEvent is a keepalive request from the server.
type PingEvent struct{}

// ReconnectEvent announces that the server is about to drop the
// connection.
type ReconnectEvent struct{}

// JoinEvent reports a user joining a channel.
type JoinEvent struct {
	Channel string
	User    string
}

// PartEvent reports a user leaving a channel.
type PartEvent struct {
	Channel string
	User    string
}

// NamesEvent carries one chunk of the connected-user list (353).
type NamesEvent struct {
	Channel string
	Users   []string
}

// EndOfNamesEvent terminates the connected-user list (366).
type EndOfNamesEvent struct {
	Channel string
}

// NoticeEvent is a system message, usually in response to a command.
type NoticeEvent struct {
	Channel string
	Text    string
	Tags    map[string]string
}

// UserstateEvent carries the bot's own per-channel state tags.
type UserstateEvent struct {
	Channel string
	Tags    map[string]string
}

// RoomstateEvent carries per-channel chat mode tags.
type RoomstateEvent struct {
	Channel string
	Tags    map[string]string
}

// ClearchatEvent reports a chat clear, or a ban/timeout when User is set.
type ClearchatEvent struct {
	Channel string
	User    string // empty when the whole chat was cleared
	Tags    map[string]string
}

// ClearmsgEvent reports the deletion of a single message.
type ClearmsgEvent struct {
	Channel string
	Text    string
	Tags    map[string]string
}

// UsernoticeEvent is one of various chat events (subs, raids, ...).
type UsernoticeEvent struct {
	Channel string
	Text    string // may be empty
	Tags    map[string]string
}

// WhisperEvent is a private message to the bot.
type WhisperEvent struct {
	From string
	To   string
	Text string
	Tags map[string]string
}

// ChatEvent is a message sent to a channel's chat.
type ChatEvent struct {
	Channel string
	User    string
	Text    string
	Tags    map[string]string
}

// UnknownEvent wraps any line that did not decode to another variant.
// Command is the type token when one could be identified.
type UnknownEvent struct {
	Raw     string
	Command string
}

func (LoginEvent) event()      {}
func (CapAckEvent) event()     {}
func (PingEvent) event()       {}
func (ReconnectEvent) event()  {}
func (JoinEvent) event()       {}
func (PartEvent) event()       {}
func (NamesEvent) event()      {}
func (EndOfNamesEvent) event() {}
func (NoticeEvent) event()     {}
func (UserstateEvent) event()  {}
func (RoomstateEvent) event()  {}
func (ClearchatEvent) event()  {}
func (ClearmsgEvent) event()   {}
func (UsernoticeEvent) event() {}
func (WhisperEvent) event()    {}
func (ChatEvent) event()       {}
func (UnknownEvent) event()    {}

// ParseEvent decodes one raw protocol line.  It never fails: lines that
// are malformed, truncated or simply not understood come back as
// UnknownEvent.
func ParseEvent(raw string) Event {
	data := strings.Split(raw, " :")

	tags := map[string]string{}
	if strings.HasPrefix(data[0], "@") {
		tags = parseTags(data[0][1:])
		data = data[1:]
		if len(data) == 0 {
			return UnknownEvent{Raw: raw}
		}
	}

	command := strings.Trim(data[0], ":")
	data = data[1:]
	if strings.HasPrefix(command, "PING") {
		return PingEvent{}
	}

	user := parseUser(command)
	msgType := parseType(command)
	params := parseParams(command, msgType)
	channel := parseChannel(params)
	message := parseTrailing(data)

	unknown := UnknownEvent{Raw: raw, Command: msgType}

	switch msgType {
	case "001":
		return LoginEvent{}
	case "CAP * ACK":
		if message == "" {
			return unknown
		}
		var caps []string
		for _, w := range strings.Fields(message) {
			caps = append(caps, strings.TrimPrefix(w, "twitch.tv/"))
		}
		return CapAckEvent{Caps: caps}
	case "RECONNECT":
		return ReconnectEvent{}
	case "JOIN":
		if channel == "" || user == "" {
			return unknown
		}
		return JoinEvent{Channel: channel, User: user}
	case "PART":
		if channel == "" || user == "" {
			return unknown
		}
		return PartEvent{Channel: channel, User: user}
	case "353":
		if channel == "" || message == "" {
			return unknown
		}
		return NamesEvent{Channel: channel, Users: strings.Fields(message)}
	case "366":
		if channel == "" {
			return unknown
		}
		return EndOfNamesEvent{Channel: channel}
	case "NOTICE":
		if channel == "" || message == "" {
			return unknown
		}
		return NoticeEvent{Channel: channel, Text: message, Tags: tags}
	case "USERSTATE":
		if channel == "" {
			return unknown
		}
		return UserstateEvent{Channel: channel, Tags: tags}
	case "ROOMSTATE":
		if channel == "" {
			return unknown
		}
		return RoomstateEvent{Channel: channel, Tags: tags}
	case "CLEARCHAT":
		if channel == "" {
			return unknown
		}
		return ClearchatEvent{Channel: channel, User: message, Tags: tags}
	case "CLEARMSG":
		if channel == "" || message == "" {
			return unknown
		}
		return ClearmsgEvent{Channel: channel, Text: message, Tags: tags}
	case "USERNOTICE":
		if channel == "" {
			return unknown
		}
		return UsernoticeEvent{Channel: channel, Text: message, Tags: tags}
	case "WHISPER":
		if user == "" || params == "" || message == "" {
			return unknown
		}
		return WhisperEvent{
			From: user,
			To:   strings.TrimSpace(params),
			Text: message,
			Tags: tags,
		}
	case "PRIVMSG":
		if channel == "" || user == "" || message == "" {
			return unknown
		}
		return ChatEvent{Channel: channel, User: user, Text: message, Tags: tags}
	}

	return unknown
}
