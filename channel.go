package kouhai

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// messageWindow is the rolling span over which outbound sends are
// counted before the maintenance tick resets the counter.
const messageWindow = 30 * time.Second

// historyMessage is one entry of a channel's bounded chat history.
type historyMessage struct {
	At      time.Time
	Display string
	User    string
	Text    string
}

// Channel holds all per-channel state.  Everything except the flag
// accessors is owned by the dispatch goroutine; the flags are shared
// with the channel's messenger task and guarded by a mutex.
type Channel struct {
	Name          string
	ActiveOnline  bool
	ActiveOffline bool

	mu     sync.Mutex
	active bool
	live   bool
	mod    bool

	connected bool
	cooldowns *cooldownTable
	users     map[string]struct{}
	mods      map[string]struct{}
	history   []historyMessage

	messenger *Messenger
}

func newChannel(bot *Bot, name string, activeOnline, activeOffline bool) *Channel {
	ch := &Channel{
		Name:          name,
		ActiveOnline:  activeOnline,
		ActiveOffline: activeOffline,
		active:        true,
		live:          true,
		cooldowns:     newCooldownTable(),
		users:         map[string]struct{}{},
		mods:          map[string]struct{}{},
	}
	ch.messenger = newMessenger(bot, ch)
	return ch
}

// Say enqueues a chat message for delivery via the channel's messenger.
func (ch *Channel) Say(text string) {
	ch.messenger.Enqueue(text)
}

func (ch *Channel) Active() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.active
}

func (ch *Channel) SetActive(active bool) {
	ch.mu.Lock()
	ch.active = active
	ch.mu.Unlock()
}

func (ch *Channel) Live() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.live
}

func (ch *Channel) SetLive(live bool) {
	ch.mu.Lock()
	ch.live = live
	ch.mu.Unlock()
}

func (ch *Channel) Mod() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.mod
}

// SetMod records whether the bot holds elevated privilege in the
// channel and retunes the messenger's pacing accordingly.
func (ch *Channel) SetMod(mod bool) {
	ch.mu.Lock()
	ch.mod = mod
	ch.mu.Unlock()
	ch.messenger.retune()
}

// activityAllowed reports whether the channel's configured activity
// policy matches its current live state.
func (ch *Channel) activityAllowed() bool {
	live := ch.Live()
	return live && ch.ActiveOnline || !live && ch.ActiveOffline
}

// appendHistory records a chat message, dropping the oldest entry once
// the configured capacity is reached.
func (ch *Channel) appendHistory(msg historyMessage, limit int) {
	if limit > 0 && len(ch.history) >= limit {
		ch.history = ch.history[1:]
	}
	ch.history = append(ch.history, msg)
}

// BreakPings inserts a pipe into any word that would ping a connected
// user, for responses that quote usernames other than the sender's.
func (ch *Channel) BreakPings(message string) string {
	words := strings.Split(message, " ")
	for i, w := range words {
		name := strings.TrimSuffix(strings.TrimPrefix(w, "@"), ",")
		if _, ok := ch.users[strings.ToLower(name)]; !ok {
			continue
		}
		cut := 1
		if strings.HasPrefix(w, "@") {
			cut = 2
		}
		words[i] = w[:cut] + "|" + w[cut:]
	}
	return strings.Join(words, " ")
}

// Messenger delivers chat messages to one channel: strictly in order,
// paced to the channel's rate limit, and suspended while the bot is
// timed out there.  Enqueue never blocks and never rejects; all
// backpressure is applied at send time by the drain task.
type Messenger struct {
	bot     *Bot
	channel *Channel

	mu       sync.Mutex
	queue    []string
	sent     int
	timeout  int // seconds; negative means suspended indefinitely
	lastSent string

	wake    chan struct{}
	limiter *rate.Limiter
}

func newMessenger(bot *Bot, ch *Channel) *Messenger {
	m := &Messenger{
		bot:     bot,
		channel: ch,
		wake:    make(chan struct{}, 1),
	}
	m.limiter = rate.NewLimiter(m.paceLimit(), 1)
	return m
}

// rateLimit is the maximum number of messages per window: 20, or 100
// while the bot holds elevated privilege in the channel.  Safe to call
// with m.mu held: it only takes the channel mutex, and the lock order
// is always messenger then channel.
func (m *Messenger) rateLimit() int {
	if m.channel.Mod() {
		return 100
	}
	return 20
}

func (m *Messenger) paceLimit() rate.Limit {
	return rate.Limit(float64(m.rateLimit()) / messageWindow.Seconds())
}

// retune adjusts the pacing limiter after a privilege change.
func (m *Messenger) retune() {
	m.limiter.SetLimit(m.paceLimit())
}

// Enqueue appends a message to the channel's send queue.  Empty
// messages are dropped; everything else is accepted regardless of the
// current suspension or rate state.
func (m *Messenger) Enqueue(text string) {
	if text == "" {
		return
	}
	m.mu.Lock()
	m.queue = append(m.queue, text)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// QueueLen returns the number of messages waiting for delivery.
func (m *Messenger) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// ResetWindow zeroes the per-window sent counter.  Driven by the
// maintenance timer.
func (m *Messenger) ResetWindow() {
	m.mu.Lock()
	m.sent = 0
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Suspend extends the messenger's timeout by the given number of
// seconds; a negative value suspends indefinitely until ClearTimeout.
func (m *Messenger) Suspend(seconds int) {
	m.mu.Lock()
	if seconds < 0 {
		m.timeout = -1
	} else {
		m.timeout += seconds
	}
	m.mu.Unlock()
}

// ClearTimeout lifts any suspension, including an indefinite one.
func (m *Messenger) ClearTimeout() {
	m.mu.Lock()
	m.timeout = 0
	m.mu.Unlock()
}

// Timeout returns the remaining suspension in seconds.
func (m *Messenger) Timeout() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

func (m *Messenger) decrementTimeout() {
	m.mu.Lock()
	if m.timeout > 0 {
		m.timeout--
	}
	m.mu.Unlock()
}

func (m *Messenger) windowFull() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent >= m.rateLimit()
}

// next blocks until a message is queued or the context is cancelled.
func (m *Messenger) next(ctx context.Context) (string, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			text := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return text, true
		}
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", false
		case <-m.wake:
		}
	}
}

// Run drains the channel's queue until the context is cancelled.  One
// such task runs per channel; it is the only goroutine that submits to
// the transport for this channel, which is what guarantees ordering.
func (m *Messenger) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		switch t := m.Timeout(); {
		case t < 0:
			// permanent ban; requires an external reset
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		case t > 0:
			slog.Warn("channel timed out, pausing message queue",
				"channel", m.channel.Name, "seconds", t)
			for m.Timeout() > 0 {
				m.decrementTimeout()
				if !sleepCtx(ctx, time.Second) {
					return nil
				}
			}
			slog.Info("timeout finished, resuming message queue",
				"channel", m.channel.Name)
		}

		if m.windowFull() {
			slog.Warn("rate limit reached, holding message queue",
				"channel", m.channel.Name, "limit", m.rateLimit())
			for m.windowFull() {
				if !sleepCtx(ctx, time.Second) {
					return nil
				}
			}
		}

		text, ok := m.next(ctx)
		if !ok {
			return nil
		}
		// reserve a token before every send, never after: the limiter
		// starts full and refills while the queue sits empty, so pacing
		// after the send lets the next message go out back-to-back
		if err := m.limiter.Wait(ctx); err != nil {
			return nil
		}
		m.submit(text)
	}
}

// submit sends one message now, if the bot and channel are active and
// the send window has room.  A repeat of the previously delivered text
// gets an invisible differentiator so the transport does not reject it
// as a duplicate.
func (m *Messenger) submit(text string) {
	m.mu.Lock()
	if text == m.lastSent {
		text += " \U000E0000"
	}
	if !m.bot.Active() || !m.channel.Active() || !m.channel.activityAllowed() {
		m.mu.Unlock()
		return
	}
	if m.sent >= m.rateLimit() {
		sent := m.sent
		m.mu.Unlock()
		slog.Warn("rate limit exceeded, dropping message",
			"channel", m.channel.Name, "sent", sent, "limit", m.rateLimit())
		return
	}
	m.sent++
	m.lastSent = text
	m.mu.Unlock()

	if err := m.bot.client.Privmsg(m.channel.Name, text); err != nil {
		slog.Error("message delivery failed",
			"channel", m.channel.Name, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
