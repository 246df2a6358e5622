package kouhai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/kouhai/irc"
)

// ErrTransportClosed reports that the server connection dropped while
// the bot was still meant to be running.
var ErrTransportClosed = errors.New("transport closed")

// ignoredTypes are server lines the bot receives but has no use for.
var ignoredTypes = map[string]struct{}{
	"002":             {},
	"003":             {},
	"004":             {},
	"375":             {},
	"372":             {},
	"376":             {},
	"GLOBALUSERSTATE": {},
	"HOSTTARGET":      {},
}

// Bot ties the pieces together: one connection, one dispatch loop, one
// messenger task per channel.  All channel state is mutated on the
// dispatch goroutine; the active flag is shared with the messengers and
// guarded separately.
type Bot struct {
	cfg      Config
	ranks    Ranks
	commands *Registry
	timers   *TimerSet

	transport Transport
	client    *Client
	aliases   AliasStore
	probe     LiveProbe

	channels map[string]*Channel

	mu     sync.Mutex
	active bool

	startTime time.Time
	group     *errgroup.Group
	runCtx    context.Context
}

// NewBot assembles a bot from its parts and registers the built-in
// commands and maintenance timers.
func NewBot(cfg Config, ranks Ranks, transport Transport, aliases AliasStore, probe LiveProbe) (*Bot, error) {
	b := &Bot{
		cfg:       cfg,
		ranks:     ranks,
		commands:  NewRegistry(cfg.Prefix),
		timers:    NewTimerSet(),
		transport: transport,
		client:    NewClient(transport),
		aliases:   aliases,
		probe:     probe,
		channels:  map[string]*Channel{},
		active:    true,
	}
	for _, name := range cfg.Channels() {
		b.channels[name] = newChannel(b, name, cfg.channelOnline(name), cfg.channelOffline(name))
	}
	if err := RegisterDefaults(b.commands); err != nil {
		return nil, err
	}
	if err := b.registerMaintenance(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bot) registerMaintenance() error {
	if err := b.timers.Add("purge_cooldowns", time.Second, func(b *Bot, now time.Time) {
		for _, ch := range b.channels {
			ch.cooldowns.purgeExpired(now)
		}
	}); err != nil {
		return err
	}
	if err := b.timers.Add("reset_window", messageWindow, func(b *Bot, now time.Time) {
		for _, ch := range b.channels {
			ch.messenger.ResetWindow()
		}
	}); err != nil {
		return err
	}
	return b.timers.Add("check_live", 30*time.Second, func(b *Bot, now time.Time) {
		if b.probe == nil {
			return
		}
		for _, ch := range b.channels {
			ch := ch
			go func() {
				live, err := b.probe(ch.Name)
				if err != nil {
					slog.Warn("live probe failed", "channel", ch.Name, "error", err)
					return
				}
				ch.SetLive(live)
			}()
		}
	})
}

// Active reports whether the bot is globally enabled.
func (b *Bot) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *Bot) SetActive(active bool) {
	b.mu.Lock()
	b.active = active
	b.mu.Unlock()
}

// Commands exposes the command registry.
func (b *Bot) Commands() *Registry {
	return b.commands
}

// Timers exposes the named timer set.
func (b *Bot) Timers() *TimerSet {
	return b.timers
}

// ChannelByName returns the tracked channel, or nil.
func (b *Bot) ChannelByName(name string) *Channel {
	return b.channels[name]
}

// Uptime is the time elapsed since Run started.
func (b *Bot) Uptime() time.Duration {
	return time.Since(b.startTime)
}

// Run connects, joins the configured channels, and processes events
// until the context is cancelled or the connection drops.
func (b *Bot) Run(ctx context.Context) error {
	b.startTime = time.Now()

	if err := b.client.Login(b.cfg.Nick, b.cfg.Oauth); err != nil {
		return err
	}
	if err := b.client.RequestCapabilities(b.cfg.Capabilities); err != nil {
		return fmt.Errorf("request capabilities: %w", err)
	}
	for name := range b.channels {
		if err := b.client.Join(name); err != nil {
			return fmt.Errorf("join %s: %w", name, err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	b.group = group
	b.runCtx = ctx

	lines := make(chan string, 64)
	group.Go(func() error {
		defer close(lines)
		for {
			line, err := b.transport.ReceiveLine()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: %v", ErrTransportClosed, err)
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return nil
			}
		}
	})

	group.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					if ctx.Err() != nil {
						return nil
					}
					return ErrTransportClosed
				}
				if err := b.dispatch(irc.ParseEvent(line)); err != nil {
					return err
				}
			case now := <-ticker.C:
				b.timers.Tick(b, now)
			}
		}
	})

	group.Go(func() error {
		<-ctx.Done()
		b.transport.Close()
		return nil
	})

	return group.Wait()
}

// dispatch routes one parsed event.  Returning an error tears the bot
// down; almost everything is handled or logged instead.
func (b *Bot) dispatch(ev irc.Event) error {
	switch ev := ev.(type) {
	case irc.LoginEvent:
		slog.Info("logged in", "nick", b.cfg.Nick)
	case irc.CapAckEvent:
		return b.handleCapAck(ev)
	case irc.PingEvent:
		return b.client.Pong()
	case irc.ReconnectEvent:
		return fmt.Errorf("%w: server requested reconnect", ErrTransportClosed)
	case irc.JoinEvent:
		b.handleJoin(ev)
	case irc.PartEvent:
		b.handlePart(ev)
	case irc.NamesEvent:
		b.handleNames(ev)
	case irc.EndOfNamesEvent:
		b.handleEndOfNames(ev)
	case irc.NoticeEvent:
		slog.Info("server notice", "channel", ev.Channel, "text", ev.Text)
	case irc.UserstateEvent:
		b.handleUserstate(ev)
	case irc.RoomstateEvent:
		b.handleRoomstate(ev)
	case irc.ClearchatEvent:
		b.handleClearchat(ev)
	case irc.ClearmsgEvent:
		slog.Info("message deleted", "channel", ev.Channel, "user", ev.Tags["login"])
	case irc.UsernoticeEvent:
		b.handleUsernotice(ev)
	case irc.WhisperEvent:
		slog.Info("whisper received", "from", ev.From, "text", ev.Text)
	case irc.ChatEvent:
		b.handleChat(ev)
	case irc.UnknownEvent:
		if _, ok := ignoredTypes[ev.Command]; !ok {
			slog.Debug("unhandled server line", "command", ev.Command, "raw", ev.Raw)
		}
	}
	return nil
}

// handleCapAck verifies the server granted exactly the requested
// capability set.  A mismatch means the session cannot behave as
// configured, so it is fatal.
func (b *Bot) handleCapAck(ev irc.CapAckEvent) error {
	granted := map[string]struct{}{}
	for _, name := range ev.Caps {
		granted[name] = struct{}{}
	}
	if len(granted) != len(b.cfg.Capabilities) {
		return fmt.Errorf("capability mismatch: requested %v, granted %v",
			b.cfg.Capabilities, ev.Caps)
	}
	for _, name := range b.cfg.Capabilities {
		if _, ok := granted[name]; !ok {
			return fmt.Errorf("capability mismatch: requested %v, granted %v",
				b.cfg.Capabilities, ev.Caps)
		}
	}
	slog.Info("capabilities acknowledged", "caps", ev.Caps)
	return nil
}

func (b *Bot) handleJoin(ev irc.JoinEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil {
		return
	}
	ch.users[ev.User] = struct{}{}
}

func (b *Bot) handlePart(ev irc.PartEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil {
		return
	}
	delete(ch.users, ev.User)
	delete(ch.mods, ev.User)
}

func (b *Bot) handleNames(ev irc.NamesEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil {
		return
	}
	for _, user := range ev.Users {
		ch.users[user] = struct{}{}
	}
}

// handleEndOfNames marks the channel connected and starts its messenger
// task.
func (b *Bot) handleEndOfNames(ev irc.EndOfNamesEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil || ch.connected {
		return
	}
	ch.connected = true
	m := ch.messenger
	b.group.Go(func() error {
		return m.Run(b.runCtx)
	})
	slog.Info("connected to channel", "channel", ch.Name)
	for _, other := range b.channels {
		if !other.connected {
			return
		}
	}
	b.logStatus()
}

func (b *Bot) handleUserstate(ev irc.UserstateEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil {
		return
	}
	mod := ev.Tags["mod"] == "1"
	if mod != ch.Mod() {
		ch.SetMod(mod)
		slog.Info("channel privilege changed", "channel", ch.Name, "mod", mod)
	}
}

func (b *Bot) handleRoomstate(ev irc.RoomstateEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil {
		return
	}
	slog.Info("room state", "channel", ch.Name, "state", roomstateSummary(ev.Tags))
}

// roomstateSummary renders the active room modes, skipping inactive
// ones.
func roomstateSummary(tags map[string]string) string {
	var parts []string
	for _, item := range []struct {
		tag   string
		label string
	}{
		{"emote-only", "emote-only"},
		{"followers-only", "followers-only"},
		{"r9k", "unique"},
		{"slow", "slow"},
		{"subs-only", "subs-only"},
	} {
		v, ok := tags[item.tag]
		if !ok || v == "0" || v == "-1" {
			continue
		}
		if v == "1" {
			parts = append(parts, item.label)
		} else {
			parts = append(parts, fmt.Sprintf("%s(%s)", item.label, v))
		}
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, ", ")
}

// handleClearchat suspends the channel's messenger when the bot itself
// is the target; clears and third-party punishments are only logged.
func (b *Bot) handleClearchat(ev irc.ClearchatEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil {
		return
	}
	switch {
	case ev.User == "":
		slog.Info("chat cleared", "channel", ch.Name)
	case ev.User == b.cfg.Nick:
		if secs, ok := ev.Tags["ban-duration"]; ok {
			d, err := strconv.Atoi(secs)
			if err != nil {
				d = 1
			}
			// one extra second of slack over the server's timer
			ch.messenger.Suspend(d + 1)
			slog.Warn("bot timed out", "channel", ch.Name, "seconds", d)
		} else {
			ch.messenger.Suspend(-1)
			slog.Error("bot banned", "channel", ch.Name)
		}
	default:
		if d, ok := ev.Tags["ban-duration"]; ok {
			slog.Info("user timed out", "channel", ch.Name, "user", ev.User, "seconds", d)
		} else {
			slog.Info("user banned", "channel", ch.Name, "user", ev.User)
		}
	}
}

func (b *Bot) handleUsernotice(ev irc.UsernoticeEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil {
		return
	}
	slog.Info("user notice",
		"channel", ch.Name,
		"type", ev.Tags["msg-id"],
		"user", ev.Tags["login"],
		"text", ev.Text)
}

// handleChat records the message, tracks names and moderator status,
// and finally checks for a command trigger.
func (b *Bot) handleChat(ev irc.ChatEvent) {
	ch := b.channels[ev.Channel]
	if ch == nil {
		return
	}

	if id := ev.Tags["user-id"]; id != "" && b.aliases != nil {
		known, err := b.aliases.Names(ev.Channel, id)
		if err != nil {
			slog.Warn("alias lookup failed", "error", err)
		} else if len(known) > 0 && !containsString(known, ev.User) && ch.Mod() {
			slog.Info("name change detected",
				"channel", ch.Name, "user", ev.User, "known", strings.Join(known, ", "))
		}
		if err := b.aliases.Record(ev.Channel, id, ev.User); err != nil {
			slog.Warn("alias record failed", "error", err)
		}
	}

	role := RoleFromEvent(b.ranks, ev)
	if role&RoleMod != 0 {
		ch.mods[ev.User] = struct{}{}
	} else {
		delete(ch.mods, ev.User)
	}
	ch.users[ev.User] = struct{}{}

	display := ev.User
	if name := ev.Tags["display-name"]; name != "" {
		display = name
	}
	slog.Info("chat",
		"channel", ch.Name,
		"user", markedName(display, role),
		"text", ev.Text)

	at := time.Now()
	if ts := ev.Tags["tmi-sent-ts"]; ts != "" {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			at = time.UnixMilli(ms)
		}
	}
	ch.appendHistory(historyMessage{
		At:      at,
		Display: display,
		User:    ev.User,
		Text:    ev.Text,
	}, b.cfg.HistoryLimit)

	b.checkCommand(ch, ev, role)
}

// markedName annotates a display name with the role badges used in the
// chat log.
func markedName(display string, role Role) string {
	var sb strings.Builder
	if role&RoleMod != 0 {
		sb.WriteString("[MOD]")
	} else if role&RoleVip != 0 {
		sb.WriteString("[VIP]")
	}
	if role&RoleSub != 0 {
		sb.WriteString("[SUB]")
	}
	sb.WriteString(display)
	return sb.String()
}

// checkCommand matches the message against the command table and either
// runs the command or reports why it may not run.
func (b *Bot) checkCommand(ch *Channel, ev irc.ChatEvent, role Role) {
	trigger, argString := ev.Text, ""
	if i := strings.IndexByte(ev.Text, ' '); 0 <= i {
		trigger, argString = ev.Text[:i], ev.Text[i+1:]
	}
	cmd := b.commands.ByTrigger(trigger)
	if cmd == nil {
		return
	}
	if cmd.Disabled || cmd.disabledInChannel(ch.Name) {
		return
	}

	now := time.Now()
	reason := cmd.checkCooldowns(ch, ev.User, now)
	reason |= cmd.Perm.Check(role)
	reason |= b.ranks.checkBlacklist(ev.User)
	if reason != DenialNone {
		cmd.handleDenial(ch, ev.User, reason, now)
		return
	}
	b.runCommand(cmd, ch, ev, role, argString, now)
}

func (b *Bot) runCommand(cmd *Command, ch *Channel, ev irc.ChatEvent, role Role, argString string, now time.Time) {
	args, err := cmd.params.parseArgs(argString, role)
	if err != nil {
		slog.Warn("bad command invocation",
			"command", cmd.Name, "channel", ch.Name, "user", ev.User, "error", err)
		if b.cfg.ShowErrors && !cmd.Hide {
			ch.Say(fmt.Sprintf("@%s Error: %v", ev.User, err))
		}
		return
	}

	if err := cmd.Handler(&Context{Bot: b, Event: ev, Channel: ch, Args: args}); err != nil {
		slog.Error("command failed",
			"command", cmd.Name, "channel", ch.Name, "user", ev.User, "error", err)
		if b.cfg.ShowErrors && !cmd.Hide {
			ch.Say(fmt.Sprintf("@%s Error: %v", ev.User, err))
		}
		return
	}

	if uint(role) < uint(RoleMod) {
		cmd.applyCooldown(ch, ev.User, 0, 0, now)
	}
}

// logStatus writes a per-channel status summary to the log.
func (b *Bot) logStatus() {
	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := b.channels[name]
		slog.Info("channel status",
			"channel", ch.Name,
			"connected", ch.connected,
			"active", ch.Active(),
			"live", ch.Live(),
			"mod", ch.Mod(),
			"queued", ch.messenger.QueueLen(),
			"timeout", ch.messenger.Timeout(),
			"users", len(ch.users))
	}
	slog.Info("bot status", "active", b.Active(), "uptime", b.Uptime().Round(time.Second))
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
