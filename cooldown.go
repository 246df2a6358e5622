package kouhai

import (
	"time"
)

// cooldownTable tracks command cooldown expiries for one channel: one
// global expiry per command, plus per-user expiries.  Checks are pure
// reads against the clock; expired entries are removed by the
// maintenance tick, never by the checks themselves.
type cooldownTable struct {
	global map[string]time.Time
	user   map[string]map[string]time.Time
}

func newCooldownTable() *cooldownTable {
	return &cooldownTable{
		global: map[string]time.Time{},
		user:   map[string]map[string]time.Time{},
	}
}

func (t *cooldownTable) setGlobal(command string, expiry time.Time) {
	t.global[command] = expiry
}

func (t *cooldownTable) setUser(user, command string, expiry time.Time) {
	cds, ok := t.user[user]
	if !ok {
		cds = map[string]time.Time{}
		t.user[user] = cds
	}
	cds[command] = expiry
}

func (t *cooldownTable) globalActive(command string, now time.Time) bool {
	return now.Before(t.global[command])
}

func (t *cooldownTable) userActive(user, command string, now time.Time) bool {
	return now.Before(t.user[user][command])
}

func (t *cooldownTable) globalRemaining(command string, now time.Time) time.Duration {
	return t.global[command].Sub(now)
}

func (t *cooldownTable) userRemaining(user, command string, now time.Time) time.Duration {
	return t.user[user][command].Sub(now)
}

// purgeExpired drops entries whose expiry has passed.  Driven by the
// maintenance timer.
func (t *cooldownTable) purgeExpired(now time.Time) {
	for command, expiry := range t.global {
		if !now.Before(expiry) {
			delete(t.global, command)
		}
	}
	for user, cds := range t.user {
		for command, expiry := range cds {
			if !now.Before(expiry) {
				delete(cds, command)
			}
		}
		if len(cds) == 0 {
			delete(t.user, user)
		}
	}
}
