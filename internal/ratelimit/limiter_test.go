package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(limit int) (*Limiter, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := New(time.Minute, limit, 0)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(10)

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow("s1:1.2.3.4"), "request %d should be allowed", i+1)
	}
}

func TestEleventhRequestRejected(t *testing.T) {
	l, _ := newTestLimiter(10)

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow("s1:1.2.3.4"))
	}
	require.False(t, l.Allow("s1:1.2.3.4"))
	require.False(t, l.Allow("s1:1.2.3.4"))
}

func TestWindowResetRestoresBudget(t *testing.T) {
	l, now := newTestLimiter(10)

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow("s1:1.2.3.4"))
	}
	require.False(t, l.Allow("s1:1.2.3.4"))

	*now = now.Add(time.Minute)
	require.True(t, l.Allow("s1:1.2.3.4"), "a fresh window should allow again")

	// The reset started a new full window.
	for i := 0; i < 9; i++ {
		require.True(t, l.Allow("s1:1.2.3.4"))
	}
	require.False(t, l.Allow("s1:1.2.3.4"))
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1)

	require.True(t, l.Allow("s1:1.2.3.4"))
	require.False(t, l.Allow("s1:1.2.3.4"))
	require.True(t, l.Allow("s2:1.2.3.4"))
	require.True(t, l.Allow("s1:5.6.7.8"))
}

func TestRemoveExpiredSweepsOldEntries(t *testing.T) {
	l, now := newTestLimiter(10)

	require.True(t, l.Allow("old:1.2.3.4"))
	*now = now.Add(2 * time.Minute)
	require.True(t, l.Allow("fresh:1.2.3.4"))

	l.removeExpired()

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Len(t, l.entries, 1)
	require.Contains(t, l.entries, "fresh:1.2.3.4")
}

func TestKey(t *testing.T) {
	require.Equal(t, "abc:1.2.3.4", Key("abc", "1.2.3.4"))
	require.Equal(t, "abc:unknown-ip", Key("abc", ""))
}
