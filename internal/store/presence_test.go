package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/store"
)

func TestPresenceOnline(t *testing.T) {
	p := store.NewPresence(3 * time.Second)

	t.Run("SnapshotReplaces", func(t *testing.T) {
		p.SetOnline([]string{"alice", "bob"})
		assert.True(t, p.IsOnline("alice"))
		assert.True(t, p.IsOnline("bob"))

		p.SetOnline([]string{"carol"})
		assert.False(t, p.IsOnline("alice"))
		assert.True(t, p.IsOnline("carol"))
	})

	t.Run("IncrementalStatus", func(t *testing.T) {
		p.SetOnline(nil)
		p.UpdateStatus("alice", "online")
		assert.True(t, p.IsOnline("alice"))

		p.UpdateStatus("alice", "offline")
		assert.False(t, p.IsOnline("alice"))

		p.UpdateStatus("bob", "away")
		assert.False(t, p.IsOnline("bob"))
	})

	t.Run("OnlineSorted", func(t *testing.T) {
		p.SetOnline([]string{"zoe", "alice", "mike"})
		assert.Equal(t, []string{"alice", "mike", "zoe"}, p.Online())
	})
}

func TestPresenceTyping(t *testing.T) {
	t.Run("SetAndClear", func(t *testing.T) {
		p := store.NewPresence(time.Minute)
		p.SetTyping("c1", "alice", "Alice")
		users := p.TypingUsers("c1")
		require.Len(t, users, 1)
		assert.Equal(t, "Alice", users[0].Username)

		p.ClearTyping("c1", "alice")
		assert.Empty(t, p.TypingUsers("c1"))
	})

	t.Run("RepeatRefreshesNotDuplicates", func(t *testing.T) {
		p := store.NewPresence(200 * time.Millisecond)
		p.SetTyping("c1", "alice", "Alice")
		time.Sleep(120 * time.Millisecond)
		p.SetTyping("c1", "alice", "Alice")
		require.Len(t, p.TypingUsers("c1"), 1)

		// past the first deadline, within the refreshed one
		time.Sleep(120 * time.Millisecond)
		assert.Len(t, p.TypingUsers("c1"), 1)
	})

	t.Run("ExpiresWithoutStopEvent", func(t *testing.T) {
		p := store.NewPresence(50 * time.Millisecond)
		p.SetTyping("c1", "alice", "Alice")
		time.Sleep(120 * time.Millisecond)
		assert.Empty(t, p.TypingUsers("c1"))
	})

	t.Run("ThreadsIsolated", func(t *testing.T) {
		p := store.NewPresence(time.Minute)
		p.SetTyping("c1", "alice", "Alice")
		p.SetTyping("c2", "bob", "Bob")

		require.Len(t, p.TypingUsers("c1"), 1)
		assert.Equal(t, "Alice", p.TypingUsers("c1")[0].Username)
		assert.Equal(t, "Bob", p.TypingUsers("c2")[0].Username)
	})

	t.Run("ClearUnknownUserIsNoop", func(t *testing.T) {
		p := store.NewPresence(time.Minute)
		p.SetTyping("c1", "alice", "Alice")
		p.ClearTyping("c1", "bob")
		assert.Len(t, p.TypingUsers("c1"), 1)
	})
}
