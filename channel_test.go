package kouhai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessengerDeliversInOrder(t *testing.T) {
	b, ft := newTestBot(t)
	ch := b.ChannelByName("chan")

	ch.Say("a")
	ch.Say("b")
	ch.Say("c")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.messenger.Run(ctx)

	require.Eventually(t, func() bool {
		return len(ft.Sent()) == 3
	}, 15*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{
		"PRIVMSG #chan :a",
		"PRIVMSG #chan :b",
		"PRIVMSG #chan :c",
	}, ft.Sent())

	// consecutive sends keep at least the pacing interval apart, the
	// first pair included
	times := ft.SentTimes()
	for i := 1; i < len(times); i++ {
		require.GreaterOrEqual(t, times[i].Sub(times[i-1]), 1400*time.Millisecond,
			"send %d followed too closely", i)
	}
}

func TestMessengerDuplicateSuffix(t *testing.T) {
	b, ft := newTestBot(t)
	m := b.ChannelByName("chan").messenger

	m.submit("hello")
	m.submit("hello")
	m.submit("hello")

	sent := ft.Sent()
	require.Len(t, sent, 3)
	require.Equal(t, "PRIVMSG #chan :hello", sent[0])
	require.Equal(t, "PRIVMSG #chan :hello \U000E0000", sent[1])
	require.Equal(t, "PRIVMSG #chan :hello", sent[2], "the suffix alternates, it does not pile up")
}

func TestMessengerActivityGates(t *testing.T) {
	b, ft := newTestBot(t)
	ch := b.ChannelByName("chan")
	m := ch.messenger

	b.SetActive(false)
	m.submit("nope")
	require.Empty(t, ft.Sent())
	b.SetActive(true)

	ch.SetActive(false)
	m.submit("nope")
	require.Empty(t, ft.Sent())
	ch.SetActive(true)

	m.submit("yes")
	require.Len(t, ft.Sent(), 1)
}

func TestMessengerActivityPolicy(t *testing.T) {
	b, ft := newTestBot(t)
	ch := b.channels["chan"]
	ch.ActiveOnline = false // offline-only channel

	ch.SetLive(true)
	ch.messenger.submit("nope")
	require.Empty(t, ft.Sent())

	ch.SetLive(false)
	ch.messenger.submit("yes")
	require.Len(t, ft.Sent(), 1)
}

func TestMessengerWindowLimit(t *testing.T) {
	b, ft := newTestBot(t)
	m := b.ChannelByName("chan").messenger
	require.Equal(t, 20, m.rateLimit())

	m.mu.Lock()
	m.sent = 20
	m.mu.Unlock()
	m.submit("dropped")
	require.Empty(t, ft.Sent())

	m.ResetWindow()
	m.submit("delivered")
	require.Len(t, ft.Sent(), 1)
}

func TestMessengerHoldsAtWindowUntilReset(t *testing.T) {
	b, ft := newTestBot(t)
	m := b.ChannelByName("chan").messenger

	m.mu.Lock()
	m.sent = 20
	m.mu.Unlock()
	m.Enqueue("message 21")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.Never(t, func() bool {
		return len(ft.Sent()) != 0
	}, 1100*time.Millisecond, 50*time.Millisecond, "held, not dropped")

	m.ResetWindow()
	require.Eventually(t, func() bool {
		return len(ft.Sent()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "PRIVMSG #chan :message 21", ft.Sent()[0])
}

func TestMessengerSuspension(t *testing.T) {
	b, _ := newTestBot(t)
	m := b.ChannelByName("chan").messenger

	m.Suspend(2)
	require.Equal(t, 2, m.Timeout())
	m.Suspend(3)
	require.Equal(t, 5, m.Timeout(), "consecutive timeouts accumulate")

	m.Suspend(-1)
	require.Equal(t, -1, m.Timeout())
	m.Suspend(10)
	require.Equal(t, 9, m.Timeout(), "suspending twice after an indefinite ban is additive")

	m.ClearTimeout()
	require.Zero(t, m.Timeout())
}

func TestMessengerEnqueue(t *testing.T) {
	b, _ := newTestBot(t)
	m := b.ChannelByName("chan").messenger

	m.Enqueue("")
	require.Zero(t, m.QueueLen(), "empty messages are dropped")

	m.Suspend(-1)
	m.Enqueue("queued anyway")
	require.Equal(t, 1, m.QueueLen(), "suspension never rejects enqueues")
}

func TestMessengerRateTier(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")
	m := ch.messenger

	require.Equal(t, 20, m.rateLimit())
	ch.SetMod(true)
	require.Equal(t, 100, m.rateLimit())
	require.InDelta(t, 100.0/30.0, float64(m.limiter.Limit()), 1e-9)
}

func TestBreakPings(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")
	ch.users["alice"] = struct{}{}

	require.Equal(t, "hi @a|lice, meet bob", ch.BreakPings("hi @alice, meet bob"))
	require.Equal(t, "a|lice said so", ch.BreakPings("alice said so"))
	require.Equal(t, "nothing to do", ch.BreakPings("nothing to do"))
}

func TestChannelHistoryBound(t *testing.T) {
	b, _ := newTestBot(t)
	ch := b.ChannelByName("chan")

	for i := 0; i < 5; i++ {
		ch.appendHistory(historyMessage{Text: fmt.Sprintf("m%d", i)}, 3)
	}
	require.Len(t, ch.history, 3)
	require.Equal(t, "m2", ch.history[0].Text, "oldest entries are dropped first")
	require.Equal(t, "m4", ch.history[2].Text)
}
