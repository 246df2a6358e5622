package kouhai

import (
	"fmt"
	"log/slog"
	"strings"
)

// Client formats protocol lines and hands them to a transport.  It has
// no state of its own; all pacing and ordering happens upstream in the
// per-channel messengers.
type Client struct {
	transport Transport
}

func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

// Login authenticates the connection.  The token never reaches the log.
func (c *Client) Login(nick, oauth string) error {
	if err := c.transport.SendLine("PASS " + oauth); err != nil {
		return fmt.Errorf("send credentials: %w", err)
	}
	if err := c.transport.SendLine("NICK " + nick); err != nil {
		return fmt.Errorf("send nick: %w", err)
	}
	slog.Info("logging in", "nick", nick)
	return nil
}

// RequestCapabilities asks the server to enable the given capability
// names (without the "twitch.tv/" vendor prefix).
func (c *Client) RequestCapabilities(caps []string) error {
	if len(caps) == 0 {
		return nil
	}
	prefixed := make([]string, len(caps))
	for i, name := range caps {
		prefixed[i] = "twitch.tv/" + name
	}
	return c.transport.SendLine("CAP REQ :" + strings.Join(prefixed, " "))
}

func (c *Client) Join(channel string) error {
	return c.transport.SendLine("JOIN #" + channel)
}

func (c *Client) Part(channel string) error {
	return c.transport.SendLine("PART #" + channel)
}

func (c *Client) Pong() error {
	return c.transport.SendLine("PONG :tmi.twitch.tv")
}

// Privmsg delivers one chat message to a channel.
func (c *Client) Privmsg(channel, text string) error {
	if err := c.transport.SendLine(fmt.Sprintf("PRIVMSG #%s :%s", channel, text)); err != nil {
		return err
	}
	slog.Info("sent message", "channel", channel, "text", text)
	return nil
}
