package store

import (
	"sort"
	"sync"
	"time"

	"parley/internal/models"
)

type typingEntry struct {
	user     models.TypingUser
	deadline time.Time
}

// Presence tracks which users are online and who is typing in each thread.
// Typing entries expire after ttl even if the stop event never arrives.
type Presence struct {
	mu     sync.RWMutex
	online map[string]struct{}
	typing map[string][]typingEntry
	ttl    time.Duration
}

func NewPresence(ttl time.Duration) *Presence {
	return &Presence{
		online: make(map[string]struct{}),
		typing: make(map[string][]typingEntry),
		ttl:    ttl,
	}
}

// SetOnline replaces the whole online set from a server snapshot.
func (p *Presence) SetOnline(userIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		p.online[id] = struct{}{}
	}
}

// UpdateStatus applies an incremental status push: online adds the user,
// anything else removes them.
func (p *Presence) UpdateStatus(userID, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == "online" {
		p.online[userID] = struct{}{}
		return
	}
	delete(p.online, userID)
}

// IsOnline reports whether a user is in the online set.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[userID]
	return ok
}

// Online returns the online user ids, sorted for stable display.
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SetTyping records that a user is typing in a thread. Repeated calls for
// the same user refresh the expiry instead of duplicating the entry.
func (p *Presence) SetTyping(threadID, userID, username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	deadline := time.Now().Add(p.ttl)
	entries := p.typing[threadID]
	for i := range entries {
		if entries[i].user.UserID == userID {
			entries[i].deadline = deadline
			return
		}
	}
	p.typing[threadID] = append(entries, typingEntry{
		user:     models.TypingUser{UserID: userID, Username: username},
		deadline: deadline,
	})
}

// ClearTyping removes a user from a thread's typing set.
func (p *Presence) ClearTyping(threadID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.typing[threadID]
	for i := range entries {
		if entries[i].user.UserID == userID {
			p.typing[threadID] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// TypingUsers returns who is typing in a thread, dropping expired entries
// on the way out.
func (p *Presence) TypingUsers(threadID string) []models.TypingUser {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	entries := p.typing[threadID]
	live := entries[:0]
	var out []models.TypingUser
	for _, e := range entries {
		if e.deadline.Before(now) {
			continue
		}
		live = append(live, e)
		out = append(out, e.user)
	}
	p.typing[threadID] = live
	return out
}
