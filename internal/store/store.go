// Package store holds the client-side state: the thread directory, the
// per-thread message timelines, presence/typing, and the auth session.
// All mutation goes through the defined operations; views re-read state on
// every render instead of holding copies.
package store

import "parley/internal/config"

type Store struct {
	Directory *Directory
	Timeline  *Timeline
	Presence  *Presence
	Session   *Session
}

func New() *Store {
	dir := NewDirectory()
	return &Store{
		Directory: dir,
		Timeline:  NewTimeline(dir),
		Presence:  NewPresence(config.TypingExpiry),
		Session:   NewSession(),
	}
}
