package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/models"
	"parley/internal/store"
)

func msg(id, threadID, senderID, content string, at time.Time) models.Message {
	return models.Message{
		ID:             id,
		ConversationID: threadID,
		Sender:         models.User{ID: senderID, Username: senderID},
		Content:        content,
		Type:           models.MessageText,
		CreatedAt:      at,
	}
}

func TestTimelineApplyPage(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("FirstPageReplaces", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		tl.ApplyPage("c1", []models.Message{
			msg("m1", "c1", "alice", "old", base),
		}, 1, 3)
		tl.ApplyPage("c1", []models.Message{
			msg("m2", "c1", "alice", "fresh", base.Add(time.Minute)),
		}, 1, 3)

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 1)
		assert.Equal(t, "m2", msgs[0].ID)
		assert.Equal(t, 1, tl.CurrentPage("c1"))
		assert.True(t, tl.HasMore("c1"))
	})

	t.Run("OlderPagePrepends", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		tl.ApplyPage("c1", []models.Message{
			msg("m3", "c1", "alice", "newest", base.Add(2*time.Minute)),
			msg("m4", "c1", "bob", "newer", base.Add(3*time.Minute)),
		}, 1, 2)
		tl.ApplyPage("c1", []models.Message{
			msg("m1", "c1", "alice", "oldest", base),
			msg("m2", "c1", "bob", "older", base.Add(time.Minute)),
		}, 2, 2)

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 4)
		assert.Equal(t, "m1", msgs[0].ID)
		assert.Equal(t, "m2", msgs[1].ID)
		assert.Equal(t, "m3", msgs[2].ID)
		assert.Equal(t, "m4", msgs[3].ID)
		assert.False(t, tl.HasMore("c1"))
	})

	t.Run("OverlappingPageDeduplicates", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		tl.ApplyPage("c1", []models.Message{
			msg("m2", "c1", "alice", "kept", base.Add(time.Minute)),
		}, 1, 2)
		tl.ApplyPage("c1", []models.Message{
			msg("m1", "c1", "alice", "oldest", base),
			msg("m2", "c1", "alice", "dup", base.Add(time.Minute)),
		}, 2, 2)

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 2)
		assert.Equal(t, "m1", msgs[0].ID)
		assert.Equal(t, "kept", msgs[1].Content)
	})
}

func TestTimelineAppend(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("AppendsInArrivalOrder", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		assert.True(t, tl.Append("c1", msg("m1", "c1", "alice", "hi", base)))
		assert.True(t, tl.Append("c1", msg("m2", "c1", "bob", "hello", base.Add(time.Second))))

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 2)
		assert.Equal(t, "m1", msgs[0].ID)
		assert.Equal(t, "m2", msgs[1].ID)
	})

	t.Run("DuplicateIDDropped", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		require.True(t, tl.Append("c1", msg("m1", "c1", "alice", "local echo", base)))
		assert.False(t, tl.Append("c1", msg("m1", "c1", "alice", "push echo", base)))

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 1)
		assert.Equal(t, "local echo", msgs[0].Content)
	})

	t.Run("EmptyIDRejected", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		assert.False(t, tl.Append("c1", msg("", "c1", "alice", "anon", base)))
		assert.Empty(t, tl.Messages("c1"))
	})

	t.Run("ThreadsIsolated", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		tl.Append("c1", msg("m1", "c1", "alice", "one", base))
		tl.Append("c2", msg("m2", "c2", "bob", "two", base))

		assert.Len(t, tl.Messages("c1"), 1)
		assert.Len(t, tl.Messages("c2"), 1)
	})
}

func TestTimelineEditAndDelete(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("EditPatchesInPlace", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		tl.Append("c1", msg("m1", "c1", "alice", "first", base))
		tl.Append("c1", msg("m2", "c1", "alice", "typo", base.Add(time.Second)))

		content := "fixed"
		edited := true
		at := base.Add(time.Minute)
		tl.ApplyEdit("c1", "m2", store.MessagePatch{
			Content:  &content,
			IsEdited: &edited,
			EditedAt: &at,
		})

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 2)
		assert.Equal(t, "fixed", msgs[1].Content)
		assert.True(t, msgs[1].IsEdited)
		assert.Equal(t, "first", msgs[0].Content)
	})

	t.Run("EditUnknownMessageIsNoop", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		tl.Append("c1", msg("m1", "c1", "alice", "first", base))
		content := "ghost"
		tl.ApplyEdit("c1", "missing", store.MessagePatch{Content: &content})
		tl.ApplyEdit("other", "m1", store.MessagePatch{Content: &content})

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 1)
		assert.Equal(t, "first", msgs[0].Content)
	})

	t.Run("DeleteTombstonesKeepingPosition", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		tl.Append("c1", msg("m1", "c1", "alice", "one", base))
		tl.Append("c1", msg("m2", "c1", "bob", "two", base.Add(time.Second)))
		tl.Append("c1", msg("m3", "c1", "alice", "three", base.Add(2*time.Second)))

		tl.ApplyDelete("c1", "m2")

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 3)
		assert.Equal(t, "m2", msgs[1].ID)
		assert.True(t, msgs[1].IsDeleted)
		assert.Equal(t, store.DeletedPlaceholder, msgs[1].Content)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		tl := store.NewTimeline(nil)
		tl.Append("c1", msg("m1", "c1", "alice", "one", base))
		tl.ApplyDelete("c1", "m1")
		tl.ApplyDelete("c1", "m1")

		msgs := tl.Messages("c1")
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].IsDeleted)
	})
}

func TestTimelineUpdatesDirectory(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	setup := func() (*store.Directory, *store.Timeline) {
		dir := store.NewDirectory()
		dir.SetSelf("me")
		dir.Load([]models.Thread{
			{ID: "c1", Kind: models.ThreadDirect, Title: "alice", UpdatedAt: base},
		})
		return dir, store.NewTimeline(dir)
	}

	t.Run("AppendRefreshesSummaryAndUnread", func(t *testing.T) {
		dir, tl := setup()
		tl.Append("c1", msg("m1", "c1", "alice", "ping", base.Add(time.Minute)))

		th, ok := dir.Get("c1")
		require.True(t, ok)
		require.NotNil(t, th.LastMessage)
		assert.Equal(t, "ping", th.LastMessage.Content)
		assert.Equal(t, 1, th.UnreadCount)
	})

	t.Run("OwnMessageDoesNotCountUnread", func(t *testing.T) {
		dir, tl := setup()
		tl.Append("c1", msg("m1", "c1", "me", "pong", base.Add(time.Minute)))

		th, _ := dir.Get("c1")
		assert.Equal(t, 0, th.UnreadCount)
	})

	t.Run("ActiveThreadDoesNotCountUnread", func(t *testing.T) {
		dir, tl := setup()
		dir.SetActive("c1")
		tl.Append("c1", msg("m1", "c1", "alice", "ping", base.Add(time.Minute)))

		th, _ := dir.Get("c1")
		assert.Equal(t, 0, th.UnreadCount)
	})

	t.Run("StaleMessageKeepsNewerSummary", func(t *testing.T) {
		dir, tl := setup()
		tl.Append("c1", msg("m2", "c1", "alice", "newer", base.Add(time.Hour)))
		tl.Append("c1", msg("m1", "c1", "alice", "older", base.Add(time.Minute)))

		th, _ := dir.Get("c1")
		require.NotNil(t, th.LastMessage)
		assert.Equal(t, "newer", th.LastMessage.Content)
	})

	t.Run("DuplicateAppendTouchesDirectoryOnce", func(t *testing.T) {
		dir, tl := setup()
		tl.Append("c1", msg("m1", "c1", "alice", "hi", base.Add(time.Minute)))
		tl.Append("c1", msg("m1", "c1", "alice", "hi", base.Add(time.Minute)))

		th, _ := dir.Get("c1")
		assert.Equal(t, 1, th.UnreadCount)
	})
}

func TestTimelineEvict(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tl := store.NewTimeline(nil)
	tl.ApplyPage("c1", []models.Message{msg("m1", "c1", "alice", "hi", base)}, 1, 2)

	tl.Evict("c1")

	assert.Empty(t, tl.Messages("c1"))
	assert.Equal(t, 0, tl.CurrentPage("c1"))
	assert.False(t, tl.HasMore("c1"))
}
