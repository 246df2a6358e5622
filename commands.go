package kouhai

import (
	"fmt"
	"strings"
	"time"

	"mvdan.cc/xurls/v2"
)

// prefixAlphabet is the set of characters accepted as a command prefix.
const prefixAlphabet = "!#$%&'()*+,-:;<=>?@[\\]^_`{|}~"

var emptyPrefix = ""

// RegisterDefaults installs the built-in command set.
func RegisterDefaults(reg *Registry) error {
	commands := []*Command{
		{
			Name:   "bot",
			Syntax: "<state=on|off> <scope=global|local>",
			Desc:   "Enable or disable the bot.",
			Perm:   PermAdmin,
			Handler: func(ctx *Context) error {
				on := ctx.Args["state"] == "on"
				if ctx.Args["scope"] == "global" {
					ctx.Bot.SetActive(on)
				} else {
					ctx.Channel.SetActive(on)
				}
				// an "off" confirmation must go out before the gate closes,
				// so it bypasses the queue entirely
				return ctx.Bot.client.Privmsg(ctx.Channel.Name,
					fmt.Sprintf("Bot turned %s (%s).", ctx.Args["state"], ctx.Args["scope"]))
			},
		},
		{
			Name:     "cmds",
			Desc:     "List all available commands.",
			Aliases:  []string{"commands"},
			GlobalCd: 10 * time.Second,
			Handler: func(ctx *Context) error {
				var triggers []string
				for _, cmd := range ctx.Bot.Commands().Commands() {
					if cmd.Hide || cmd.Disabled || cmd.disabledInChannel(ctx.Channel.Name) {
						continue
					}
					triggers = append(triggers, cmd.Trigger(ctx.Bot.Commands().Prefix()))
				}
				ctx.Channel.Say("Available commands: " + strings.Join(triggers, ", "))
				return nil
			},
		},
		{
			Name:   "help",
			Syntax: "<command>",
			Desc:   "Show usage for a command.",
			Handler: func(ctx *Context) error {
				cmd := ctx.Bot.Commands().ByName(ctx.Args["command"])
				if cmd == nil || cmd.Hide {
					return fmt.Errorf("%w: unknown command %q", errBadArgument, ctx.Args["command"])
				}
				ctx.Channel.Say(cmd.Describe(ctx.Bot.Commands().Prefix()))
				return nil
			},
		},
		{
			Name: "status",
			Desc: "Log the bot's status to the console.",
			Perm: PermAdmin,
			Hide: true,
			Handler: func(ctx *Context) error {
				ctx.Bot.logStatus()
				return nil
			},
		},
		{
			Name:     "live",
			Desc:     "Show whether the stream is live.",
			GlobalCd: 10 * time.Second,
			UserCd:   30 * time.Second,
			Handler: func(ctx *Context) error {
				if ctx.Channel.Live() {
					ctx.Channel.Say("Stream is LIVE.")
				} else {
					ctx.Channel.Say("Stream is offline.")
				}
				return nil
			},
		},
		{
			Name: "users",
			Desc: "Count connected users.",
			Perm: PermAdmin,
			Handler: func(ctx *Context) error {
				ctx.Channel.Say(fmt.Sprintf("%d connected users.", len(ctx.Channel.users)))
				return nil
			},
		},
		{
			Name: "mods",
			Desc: "List moderators seen in chat.",
			Perm: PermAdmin,
			Handler: func(ctx *Context) error {
				if len(ctx.Channel.mods) == 0 {
					ctx.Channel.Say("No moderators seen yet.")
					return nil
				}
				var names []string
				for name := range ctx.Channel.mods {
					names = append(names, name)
				}
				ctx.Channel.Say("Moderators: " + ctx.Channel.BreakPings(strings.Join(names, ", ")))
				return nil
			},
		},
		{
			Name:   "say",
			Syntax: "<message+>",
			Desc:   "Repeat a message.",
			Perm:   PermMod,
			Handler: func(ctx *Context) error {
				ctx.Channel.Say(ctx.Args["message"])
				return nil
			},
		},
		{
			Name:   "toggle",
			Syntax: "<command> <state=on|off> <scope=global|local>",
			Desc:   "Enable or disable a command.",
			Perm:   PermAdmin,
			Handler: func(ctx *Context) error {
				name := ctx.Args["command"]
				if name == "toggle" {
					return fmt.Errorf("%w: refusing to toggle %q", errBadArgument, name)
				}
				cmd := ctx.Bot.Commands().ByName(name)
				if cmd == nil {
					return fmt.Errorf("%w: unknown command %q", errBadArgument, name)
				}
				scope := ""
				if ctx.Args["scope"] == "local" {
					scope = ctx.Channel.Name
				}
				cmd.Toggle(ctx.Args["state"] == "on", scope)
				ctx.Channel.Say(fmt.Sprintf("Command %q turned %s (%s).",
					name, ctx.Args["state"], ctx.Args["scope"]))
				return nil
			},
		},
		{
			Name:   "prefix",
			Syntax: "[admin:prefix]",
			Desc:   "Show or change the command prefix.",
			Perm:   PermAdmin,
			Handler: func(ctx *Context) error {
				prefix, ok := ctx.Args["prefix"]
				if !ok {
					ctx.Channel.Say("Current prefix: " + ctx.Bot.Commands().Prefix())
					return nil
				}
				if len(prefix) != 1 || !strings.Contains(prefixAlphabet, prefix) {
					return fmt.Errorf("%w: prefix must be one of %s", errBadArgument, prefixAlphabet)
				}
				ctx.Bot.Commands().SetPrefix(prefix)
				ctx.Channel.Say("Prefix changed to " + prefix)
				return nil
			},
		},
		{
			Name:   "@",
			Syntax: "<channel> <message+>",
			Desc:   "Relay a message to another channel.",
			Perm:   PermAdmin,
			Prefix: &emptyPrefix,
			Hide:   true,
			Handler: func(ctx *Context) error {
				target := ctx.Bot.ChannelByName(ctx.Args["channel"])
				if target == nil {
					return fmt.Errorf("%w: unknown channel %q", errBadArgument, ctx.Args["channel"])
				}
				target.Say(fmt.Sprintf("%s (from %s): %s",
					ctx.User(), ctx.Channel.Name, target.BreakPings(ctx.Args["message"])))
				return nil
			},
		},
		{
			Name:     "links",
			Desc:     "List links recently posted in chat.",
			Perm:     PermMod,
			GlobalCd: 10 * time.Second,
			Handler: func(ctx *Context) error {
				finder := xurls.Relaxed()
				seen := map[string]struct{}{}
				var links []string
				for i := len(ctx.Channel.history) - 1; 0 <= i && len(links) < 5; i-- {
					for _, link := range finder.FindAllString(ctx.Channel.history[i].Text, -1) {
						if _, dup := seen[link]; dup {
							continue
						}
						seen[link] = struct{}{}
						links = append(links, link)
					}
				}
				if len(links) == 0 {
					ctx.Channel.Say("No links in recent chat.")
					return nil
				}
				ctx.Channel.Say("Recent links: " + strings.Join(links, " "))
				return nil
			},
		},
		{
			Name:   "names",
			Syntax: "<user>",
			Desc:   "List names a user has gone by.",
			Perm:   PermMod,
			Handler: func(ctx *Context) error {
				if ctx.Bot.aliases == nil {
					return fmt.Errorf("%w: alias tracking is disabled", errBadArgument)
				}
				names, err := ctx.Bot.aliases.Lookup(ctx.Channel.Name, ctx.Args["user"])
				if err != nil {
					return fmt.Errorf("alias lookup: %w", err)
				}
				if !containsString(names, ctx.Args["user"]) {
					names = append(names, ctx.Args["user"])
				}
				ctx.Channel.Say(fmt.Sprintf("%s has gone by: %s",
					ctx.Args["user"], ctx.Channel.BreakPings(strings.Join(names, ", "))))
				return nil
			},
		},
	}

	for _, cmd := range commands {
		if err := reg.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}
