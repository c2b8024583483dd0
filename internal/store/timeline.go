package store

import (
	"sync"
	"time"

	"parley/internal/models"
)

// DeletedPlaceholder replaces the content of tombstoned messages.
const DeletedPlaceholder = "This message was deleted"

// MessagePatch lists every field an edit push may change. Nil fields are
// left untouched.
type MessagePatch struct {
	Content   *string
	IsEdited  *bool
	IsDeleted *bool
	EditedAt  *time.Time
	ReadBy    []string
}

// Timeline holds, per thread id, an ordered id-deduplicated message
// sequence together with its pagination cursor. Messages arrive from three
// paths that may race on the event loop: paginated fetches, live pushes and
// optimistic local echoes; dedup by id is what keeps the sequence
// consistent.
type Timeline struct {
	mu          sync.RWMutex
	dir         *Directory
	messages    map[string][]models.Message
	ids         map[string]map[string]struct{}
	currentPage map[string]int
	hasMore     map[string]bool
}

func NewTimeline(dir *Directory) *Timeline {
	return &Timeline{
		dir:         dir,
		messages:    make(map[string][]models.Message),
		ids:         make(map[string]map[string]struct{}),
		currentPage: make(map[string]int),
		hasMore:     make(map[string]bool),
	}
}

// ApplyPage merges one fetched history page. Page 1 replaces the stored
// sequence (first open, refresh); later pages hold older messages and are
// prepended without disturbing the relative order of what is already
// loaded.
func (t *Timeline) ApplyPage(threadID string, msgs []models.Message, page, totalPages int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if page <= 1 {
		t.messages[threadID] = nil
		t.ids[threadID] = make(map[string]struct{})
		for _, m := range msgs {
			t.insertLocked(threadID, m)
		}
	} else {
		existing := t.messages[threadID]
		seen := t.ids[threadID]
		if seen == nil {
			seen = make(map[string]struct{})
			t.ids[threadID] = seen
		}
		var older []models.Message
		for _, m := range msgs {
			if m.ID == "" {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			older = append(older, m)
		}
		t.messages[threadID] = append(older, existing...)
	}

	t.currentPage[threadID] = page
	t.hasMore[threadID] = page < totalPages
}

// Append adds a live message to the end of the thread's sequence and
// refreshes the directory summary. Duplicate ids are dropped silently:
// the same message can arrive through both the optimistic local echo and
// the push channel.
func (t *Timeline) Append(threadID string, msg models.Message) bool {
	t.mu.Lock()
	added := t.insertLocked(threadID, msg)
	t.mu.Unlock()

	if added && t.dir != nil {
		t.dir.UpsertFromMessage(threadID, msg)
	}
	return added
}

// insertLocked appends msg when its id is unseen. Entries without an id are
// rejected.
func (t *Timeline) insertLocked(threadID string, msg models.Message) bool {
	if msg.ID == "" {
		return false
	}
	seen := t.ids[threadID]
	if seen == nil {
		seen = make(map[string]struct{})
		t.ids[threadID] = seen
	}
	if _, dup := seen[msg.ID]; dup {
		return false
	}
	seen[msg.ID] = struct{}{}
	t.messages[threadID] = append(t.messages[threadID], msg)
	return true
}

// ApplyEdit merges a patch into the matching message in place. Unknown
// thread or message ids are defensive no-ops.
func (t *Timeline) ApplyEdit(threadID, messageID string, patch MessagePatch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgs := t.messages[threadID]
	for i := range msgs {
		if msgs[i].ID != messageID {
			continue
		}
		if patch.Content != nil {
			msgs[i].Content = *patch.Content
		}
		if patch.IsEdited != nil {
			msgs[i].IsEdited = *patch.IsEdited
		}
		if patch.IsDeleted != nil {
			msgs[i].IsDeleted = *patch.IsDeleted
		}
		if patch.EditedAt != nil {
			msgs[i].EditedAt = patch.EditedAt
		}
		if patch.ReadBy != nil {
			msgs[i].ReadBy = patch.ReadBy
		}
		return
	}
}

// ApplyDelete tombstones a message: the entry keeps its position and id,
// only the content is blanked. Calling it again is a no-op.
func (t *Timeline) ApplyDelete(threadID, messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgs := t.messages[threadID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].IsDeleted = true
			msgs[i].Content = DeletedPlaceholder
			return
		}
	}
}

// Messages returns a copy of the thread's sequence, re-filtered to entries
// with a valid id and re-deduplicated. The store already guarantees both;
// the second pass covers transient races between append and reload so a
// duplicate can never reach paint.
func (t *Timeline) Messages(threadID string) []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	msgs := t.messages[threadID]
	out := make([]models.Message, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// CurrentPage returns the last fetched page for a thread, 0 when none.
func (t *Timeline) CurrentPage(threadID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentPage[threadID]
}

// HasMore reports whether older pages remain to be fetched.
func (t *Timeline) HasMore(threadID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hasMore[threadID]
}

// Evict drops a thread's sequence and cursor, freeing memory when a thread
// is no longer of interest.
func (t *Timeline) Evict(threadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.messages, threadID)
	delete(t.ids, threadID)
	delete(t.currentPage, threadID)
	delete(t.hasMore, threadID)
}
