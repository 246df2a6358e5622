package kouhai

import (
	"strings"

	"github.com/user/kouhai/irc"
)

// Role is the set of roles a chatter holds, derived per-message from tags
// plus the ranks roster.
type Role uint

const (
	RoleSub Role = 1 << iota
	RoleVip
	RoleMod
	RoleAdmin
	RoleOwner
)

// RoleNone is a chatter with no elevated role.
const RoleNone Role = 0

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	var parts []string
	for _, item := range []struct {
		role Role
		name string
	}{
		{RoleOwner, "owner"},
		{RoleAdmin, "admin"},
		{RoleMod, "mod"},
		{RoleVip, "vip"},
		{RoleSub, "sub"},
	} {
		if r&item.role != 0 {
			parts = append(parts, item.name)
		}
	}
	return strings.Join(parts, "+")
}

// RoleFromEvent derives a chatter's role from a chat event and the ranks
// roster.
func RoleFromEvent(ranks Ranks, ev irc.ChatEvent) Role {
	role := RoleNone
	if ev.User == ranks.Owner {
		role |= RoleOwner
	}
	for _, admin := range ranks.Admins {
		if ev.User == admin {
			role |= RoleAdmin
			break
		}
	}
	if ev.Tags["mod"] == "1" {
		role |= RoleMod
	} else if ev.Tags["user-type"] == "vip" {
		role |= RoleVip
	}
	if ev.Tags["subscriber"] == "1" {
		role |= RoleSub
	}
	return role
}

// Perm is the minimum role required to trigger a command or use a
// parameter.  Values mirror the Role bits so that the role bitset orders
// totally against them: higher roles dominate lower floors.
type Perm uint

const (
	PermNone  Perm = 0
	PermSub   Perm = 1 << 0
	PermVip   Perm = 1 << 1
	PermMod   Perm = 1 << 2
	PermAdmin Perm = 1 << 3
	PermOwner Perm = 1 << 4
)

var permNames = map[string]Perm{
	"none":  PermNone,
	"sub":   PermSub,
	"vip":   PermVip,
	"mod":   PermMod,
	"admin": PermAdmin,
	"owner": PermOwner,
}

func (p Perm) String() string {
	for name, perm := range permNames {
		if perm == p {
			return name
		}
	}
	return "none"
}

// Check reports whether a role clears this permission floor.  The owner
// clears every floor; the sub floor is a bit test rather than an ordering
// comparison, since subscribing is orthogonal to moderation roles.
func (p Perm) Check(role Role) DenialReason {
	if role&RoleOwner != 0 {
		return DenialNone
	}
	var allowed bool
	if p == PermSub {
		allowed = role&RoleSub != 0
	} else {
		allowed = uint(role) >= uint(p)
	}
	if !allowed {
		return DeniedPermission
	}
	return DenialNone
}

// DenialReason is the set of independent causes blocking a command
// invocation.  Reasons combine with bitwise or; zero means allowed.
type DenialReason uint

const (
	DeniedGlobalCooldown DenialReason = 1 << iota
	DeniedUserCooldown
	DeniedPermission
	DeniedBlacklist
)

// DenialNone means the invocation is allowed.
const DenialNone DenialReason = 0
