package kouhai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerSet(t *testing.T) {
	ts := NewTimerSet()
	fired := 0
	require.NoError(t, ts.Add("count", 10*time.Second, func(*Bot, time.Time) {
		fired++
	}))
	require.Error(t, ts.Add("count", time.Second, func(*Bot, time.Time) {}),
		"names are unique")
	require.Error(t, ts.Add("bad", 0, func(*Bot, time.Time) {}))

	now := time.Now()
	ts.Tick(nil, now)
	require.Equal(t, 1, fired, "a fresh timer fires on the first tick")

	ts.Tick(nil, now.Add(5*time.Second))
	require.Equal(t, 1, fired)

	ts.Tick(nil, now.Add(10*time.Second))
	require.Equal(t, 2, fired)
}

func TestTimerForceRun(t *testing.T) {
	ts := NewTimerSet()
	fired := 0
	require.NoError(t, ts.Add("count", time.Hour, func(*Bot, time.Time) {
		fired++
	}))

	now := time.Now()
	ts.Tick(nil, now)
	ts.Run(nil, "count", now.Add(time.Second))
	require.Equal(t, 2, fired)

	// forcing resets the interval
	ts.Tick(nil, now.Add(2*time.Second))
	require.Equal(t, 2, fired)
}
