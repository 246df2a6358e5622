package kouhai

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/kouhai/irc"
)

// DefaultPrefix is the trigger prefix used by registries unless
// configured otherwise.
const DefaultPrefix = "!"

// Context carries runtime data into a command handler.
type Context struct {
	Bot     *Bot
	Event   irc.ChatEvent
	Channel *Channel
	Args    map[string]string
}

// User is shorthand for the invoking user.
func (ctx *Context) User() string {
	return ctx.Event.User
}

// Handler is the body of a chat command.
type Handler func(ctx *Context) error

// Command is a full-featured chat command: a handler plus the metadata
// controlling when and by whom it may be triggered.
type Command struct {
	Name     string
	Syntax   string
	Desc     string
	Perm     Perm
	Prefix   *string // nil means the registry's default prefix
	Aliases  []string
	GlobalCd time.Duration
	UserCd   time.Duration
	Hide     bool
	Disabled bool
	Handler  Handler

	params     paramSpec
	disabledIn map[string]struct{}
}

// Trigger is the literal string that invokes the command in chat.
func (c *Command) Trigger(defaultPrefix string) string {
	prefix := defaultPrefix
	if c.Prefix != nil {
		prefix = *c.Prefix
	}
	return prefix + c.Name
}

// Describe renders the command for the help output.
func (c *Command) Describe(defaultPrefix string) string {
	var sb strings.Builder
	sb.WriteString("[CMD] ")
	sb.WriteString(c.Trigger(defaultPrefix))
	if c.Syntax != "" {
		sb.WriteString(" " + c.Syntax)
	}
	if c.Perm != PermNone {
		fmt.Fprintf(&sb, " (%s)", c.Perm)
	}
	sb.WriteString(" - " + c.Desc)
	if len(c.Aliases) != 0 {
		fmt.Fprintf(&sb, " (Aliases: %s)", strings.Join(c.Aliases, ", "))
	}
	return sb.String()
}

// Toggle enables or disables the command, globally when channel is
// empty, else for that channel only.
func (c *Command) Toggle(active bool, channel string) {
	if channel == "" {
		c.Disabled = !active
	} else if active {
		delete(c.disabledIn, channel)
	} else {
		c.disabledIn[channel] = struct{}{}
	}
}

func (c *Command) disabledInChannel(channel string) bool {
	_, ok := c.disabledIn[channel]
	return ok
}

// checkCooldowns reports which of the command's cooldowns are live in
// the channel.  It is a pure read: calling it twice without an
// intervening applyCooldown or maintenance tick yields the same result.
func (c *Command) checkCooldowns(ch *Channel, user string, now time.Time) DenialReason {
	reason := DenialNone
	if ch.cooldowns.globalActive(c.Name, now) {
		reason |= DeniedGlobalCooldown
	}
	if ch.cooldowns.userActive(user, c.Name, now) {
		reason |= DeniedUserCooldown
	}
	return reason
}

// applyCooldown arms the command's cooldowns in the channel.  Durations
// default to the command's own; call-time overrides may differ, and an
// override per-user cooldown only takes effect when it extends beyond
// whichever global duration applies.
func (c *Command) applyCooldown(ch *Channel, user string, globalCd, userCd time.Duration, now time.Time) {
	if c.GlobalCd > 0 || globalCd > 0 {
		d := globalCd
		if d == 0 {
			d = c.GlobalCd
		}
		ch.cooldowns.setGlobal(c.Name, now.Add(d))
	}
	if c.UserCd > 0 ||
		(userCd > 0 && (globalCd > 0 && userCd > globalCd || userCd > c.GlobalCd)) {
		d := userCd
		if d == 0 {
			d = c.UserCd
		}
		ch.cooldowns.setUser(user, c.Name, now.Add(d))
	}
}

// handleDenial reports a denied invocation.  Blacklisted users get no
// feedback at all; cooldown denials are logged only; permission denials
// are echoed to the user unless the command is hidden.
func (c *Command) handleDenial(ch *Channel, user string, reason DenialReason, now time.Time) {
	if reason&DeniedBlacklist != 0 {
		return
	}
	if reason&DeniedGlobalCooldown != 0 {
		slog.Warn("command on cooldown",
			"command", c.Name,
			"channel", ch.Name,
			"remaining", ch.cooldowns.globalRemaining(c.Name, now).Round(time.Second))
	}
	if reason&DeniedUserCooldown != 0 {
		slog.Warn("command on cooldown for user",
			"command", c.Name,
			"channel", ch.Name,
			"user", user,
			"remaining", ch.cooldowns.userRemaining(user, c.Name, now).Round(time.Second))
	}
	if reason&DeniedPermission != 0 && !c.Hide {
		ch.Say(fmt.Sprintf("@%s Insufficient perms (%s)", user, c.Perm))
	}
}

// Registry holds the command table.  It is built explicitly at startup
// and handed to the dispatch loop; nothing here is process-global.
type Registry struct {
	commands map[string]*Command // keyed by name and by alias
	order    []*Command          // registration order, unique
	prefix   string
}

// NewRegistry creates an empty registry with the given default trigger
// prefix ("" means DefaultPrefix).
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{
		commands: map[string]*Command{},
		prefix:   prefix,
	}
}

// Prefix returns the default trigger prefix.
func (r *Registry) Prefix() string {
	return r.prefix
}

// SetPrefix changes the default prefix for all commands without a
// custom one.
func (r *Registry) SetPrefix(prefix string) {
	r.prefix = prefix
}

// Register compiles the command's syntax and adds it, plus its aliases,
// to the table.  A grammar error or name collision aborts registration.
func (r *Registry) Register(cmd *Command) error {
	if cmd.Name == "" {
		return fmt.Errorf("%w: command has no name", errBadSyntax)
	}
	params, err := compileParams(cmd.Syntax)
	if err != nil {
		return fmt.Errorf("command %q: %w", cmd.Name, err)
	}
	cmd.params = params
	if cmd.UserCd <= cmd.GlobalCd {
		cmd.UserCd = 0
	}
	cmd.disabledIn = map[string]struct{}{}

	names := append([]string{cmd.Name}, cmd.Aliases...)
	for _, name := range names {
		if _, taken := r.commands[name]; taken {
			return fmt.Errorf("%w: command name %q already registered", errBadSyntax, name)
		}
	}
	for _, name := range names {
		r.commands[name] = cmd
	}
	r.order = append(r.order, cmd)
	return nil
}

// ByName returns the command registered under name (or alias), or nil.
func (r *Registry) ByName(name string) *Command {
	return r.commands[name]
}

// ByTrigger returns the command whose trigger matches, or nil.
func (r *Registry) ByTrigger(trigger string) *Command {
	for _, cmd := range r.order {
		if cmd.Trigger(r.prefix) == trigger {
			return cmd
		}
	}
	return nil
}

// Commands returns all commands in registration order.
func (r *Registry) Commands() []*Command {
	return r.order
}
