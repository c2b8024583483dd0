// Package cache keeps a small sqlite copy of the thread directory and the
// newest message page per thread, so the client can paint something useful
// before the network answers (or without it).
package cache

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"parley/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	title        TEXT NOT NULL,
	participants TEXT NOT NULL DEFAULT '',
	unread_count INTEGER NOT NULL DEFAULT 0,
	updated_at   INTEGER NOT NULL DEFAULT 0,
	last_id      TEXT NOT NULL DEFAULT '',
	last_sender  TEXT NOT NULL DEFAULT '',
	last_content TEXT NOT NULL DEFAULT '',
	last_at      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	thread_id   TEXT NOT NULL,
	sender_id   TEXT NOT NULL,
	sender_name TEXT NOT NULL,
	content     TEXT NOT NULL,
	type        TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	is_edited   INTEGER NOT NULL DEFAULT 0,
	is_deleted  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at);
`

type Cache struct {
	db *sql.DB
}

// Open opens (and if needed creates) the cache database.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// SaveThreads replaces the cached directory with the given snapshot.
func (c *Cache) SaveThreads(threads []models.Thread) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM threads`); err != nil {
		return fmt.Errorf("failed to clear threads: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO threads (id, kind, title, participants, unread_count, updated_at, last_id, last_sender, last_content, last_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range threads {
		var lastID, lastSender, lastContent string
		var lastAt int64
		if t.LastMessage != nil {
			lastID = t.LastMessage.ID
			lastSender = t.LastMessage.Sender.Username
			lastContent = t.LastMessage.Content
			lastAt = t.LastMessage.CreatedAt.UnixMilli()
		}
		_, err := stmt.Exec(
			t.ID, string(t.Kind), t.Title, strings.Join(t.ParticipantIDs, ","),
			t.UnreadCount, t.UpdatedAt.UnixMilli(),
			lastID, lastSender, lastContent, lastAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert thread: %w", err)
		}
	}

	return tx.Commit()
}

// Threads returns the cached directory, most recent first.
func (c *Cache) Threads() ([]models.Thread, error) {
	rows, err := c.db.Query(`
		SELECT id, kind, title, participants, unread_count, updated_at, last_id, last_sender, last_content, last_at
		FROM threads
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		var t models.Thread
		var kind, participants, lastID, lastSender, lastContent string
		var updatedAt, lastAt int64
		if err := rows.Scan(&t.ID, &kind, &t.Title, &participants, &t.UnreadCount, &updatedAt, &lastID, &lastSender, &lastContent, &lastAt); err != nil {
			continue
		}
		t.Kind = models.ThreadKind(kind)
		t.UpdatedAt = time.UnixMilli(updatedAt)
		if participants != "" {
			t.ParticipantIDs = strings.Split(participants, ",")
		}
		if lastID != "" {
			t.LastMessage = &models.Message{
				ID:        lastID,
				Sender:    models.User{Username: lastSender},
				Content:   lastContent,
				CreatedAt: time.UnixMilli(lastAt),
			}
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// SaveMessages writes through one thread's messages, replacing what was
// cached for that thread.
func (c *Cache) SaveMessages(threadID string, msgs []models.Message) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO messages (id, thread_id, sender_id, sender_name, content, type, created_at, is_edited, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		_, err := stmt.Exec(
			m.ID, threadID, m.Sender.ID, m.Sender.Username,
			m.Content, string(m.Type), m.CreatedAt.UnixMilli(),
			boolToInt(m.IsEdited), boolToInt(m.IsDeleted),
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// Messages returns up to limit cached messages for a thread, oldest first.
func (c *Cache) Messages(threadID string, limit int) ([]models.Message, error) {
	rows, err := c.db.Query(`
		SELECT id, sender_id, sender_name, content, type, created_at, is_edited, is_deleted
		FROM messages
		WHERE thread_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		var msgType string
		var createdAt int64
		var edited, deleted int
		if err := rows.Scan(&m.ID, &m.Sender.ID, &m.Sender.Username, &m.Content, &msgType, &createdAt, &edited, &deleted); err != nil {
			continue
		}
		m.ConversationID = threadID
		m.Type = models.MessageType(msgType)
		m.CreatedAt = time.UnixMilli(createdAt)
		m.IsEdited = edited != 0
		m.IsDeleted = deleted != 0
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// query returns newest first; flip to display order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
