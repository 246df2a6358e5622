package kouhai

import (
	"fmt"
	"log/slog"
	"time"
)

// TimerFunc is the body of a named interval timer.  Timers run on the
// dispatch goroutine, so they may touch channel state freely.
type TimerFunc func(b *Bot, now time.Time)

type timer struct {
	name     string
	interval time.Duration
	fn       TimerFunc
	last     time.Time
}

// TimerSet holds the bot's named interval timers.  Tick is driven once
// per second by the dispatch loop; a timer with a zero last-run time
// fires on the first tick.
type TimerSet struct {
	timers []*timer
}

func NewTimerSet() *TimerSet {
	return &TimerSet{}
}

// Add registers a timer under a unique name.
func (ts *TimerSet) Add(name string, interval time.Duration, fn TimerFunc) error {
	for _, t := range ts.timers {
		if t.name == name {
			return fmt.Errorf("timer %q already registered", name)
		}
	}
	if interval <= 0 {
		return fmt.Errorf("timer %q: interval must be positive", name)
	}
	ts.timers = append(ts.timers, &timer{name: name, interval: interval, fn: fn})
	return nil
}

// Tick runs every timer whose interval has elapsed.
func (ts *TimerSet) Tick(b *Bot, now time.Time) {
	for _, t := range ts.timers {
		if !t.last.IsZero() && now.Sub(t.last) < t.interval {
			continue
		}
		t.last = now
		t.fn(b, now)
	}
}

// Run forces the named timer to fire immediately, resetting its
// interval.
func (ts *TimerSet) Run(b *Bot, name string, now time.Time) {
	for _, t := range ts.timers {
		if t.name != name {
			continue
		}
		t.last = now
		t.fn(b, now)
		return
	}
	slog.Warn("no such timer", "name", name)
}
