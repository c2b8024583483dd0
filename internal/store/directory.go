package store

import (
	"sort"
	"sync"
	"time"

	"parley/internal/models"
)

// Directory holds the thread summaries (conversations and rooms) for the
// signed-in user, exactly one entry per thread id, plus which thread is
// currently active.
type Directory struct {
	mu      sync.RWMutex
	threads map[string]*models.Thread
	active  string
	selfID  string
}

func NewDirectory() *Directory {
	return &Directory{threads: make(map[string]*models.Thread)}
}

// SetSelf records the signed-in user's id; unread counting needs to know
// which messages are our own.
func (d *Directory) SetSelf(userID string) {
	d.mu.Lock()
	d.selfID = userID
	d.mu.Unlock()
}

// Load replaces the whole directory with the server's current list. Called
// on startup and again whenever a conversation:new or room:new push arrives;
// a full reload is simpler than merging the pushed entity and thread counts
// are user-scale.
func (d *Directory) Load(threads []models.Thread) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threads = make(map[string]*models.Thread, len(threads))
	for i := range threads {
		t := threads[i]
		d.threads[t.ID] = &t
	}
}

// Threads returns a copy of the directory sorted by recency.
func (d *Directory) Threads() []models.Thread {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Thread, 0, len(d.threads))
	for _, t := range d.threads {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Get returns the thread with the given id.
func (d *Directory) Get(threadID string) (models.Thread, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.threads[threadID]
	if !ok {
		return models.Thread{}, false
	}
	return *t, true
}

// SetActive marks the thread the user is looking at. Pure state change:
// fetching and subscribing are the view layer's reaction to it. Pass ""
// when no thread is open.
func (d *Directory) SetActive(threadID string) {
	d.mu.Lock()
	d.active = threadID
	d.mu.Unlock()
}

// Active returns the currently active thread id, "" when none.
func (d *Directory) Active() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// UpsertFromMessage refreshes a thread's last-message summary after a new
// message. Unknown threads are a no-op: a push cannot retroactively create
// a directory entry, the caller reloads the directory instead. A summary
// older than the current one is ignored so an out-of-order push cannot
// regress the displayed last message.
func (d *Directory) UpsertFromMessage(threadID string, msg models.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.threads[threadID]
	if !ok {
		return
	}

	if t.LastMessage == nil || !msg.CreatedAt.Before(t.LastMessage.CreatedAt) {
		m := msg
		t.LastMessage = &m
	}
	if msg.CreatedAt.After(t.UpdatedAt) {
		t.UpdatedAt = msg.CreatedAt
	} else {
		t.UpdatedAt = time.Now()
	}

	if msg.Sender.ID != d.selfID && threadID != d.active {
		t.UnreadCount++
	}
}

// MarkRead resets a thread's unread counter. Message-level read receipts
// are a separate server-driven patch and are not touched here.
func (d *Directory) MarkRead(threadID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.threads[threadID]; ok {
		t.UnreadCount = 0
	}
}
