package models

import "time"

type ThreadKind string

const (
	ThreadDirect ThreadKind = "direct"
	ThreadRoom   ThreadKind = "room"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// User is a profile snapshot as returned by the API.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Message is a single chat message. Exactly one of ConversationID/RoomID is
// set, depending on the thread kind it belongs to.
type Message struct {
	ID             string      `json:"_id"`
	ConversationID string      `json:"conversationId,omitempty"`
	RoomID         string      `json:"roomId,omitempty"`
	Sender         User        `json:"sender"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	CreatedAt      time.Time   `json:"createdAt"`
	EditedAt       *time.Time  `json:"editedAt,omitempty"`
	IsEdited       bool        `json:"isEdited"`
	IsDeleted      bool        `json:"isDeleted"`
	ReadBy         []string    `json:"readBy,omitempty"`
}

// ThreadID returns whichever thread the message belongs to.
func (m Message) ThreadID() string {
	if m.ConversationID != "" {
		return m.ConversationID
	}
	return m.RoomID
}

// Conversation is a direct (two participant) chat as returned by the API.
type Conversation struct {
	ID           string    `json:"_id"`
	Participants []User    `json:"participants"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Room is a named group chat as returned by the API.
type Room struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsPrivate   bool      `json:"isPrivate"`
	Members     []User    `json:"members"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	UnreadCount int       `json:"unreadCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Thread is the client-side unification of conversations and rooms. The
// directory holds exactly one Thread per id.
type Thread struct {
	ID             string
	Kind           ThreadKind
	Title          string
	ParticipantIDs []string
	LastMessage    *Message
	UnreadCount    int
	UpdatedAt      time.Time
}

// Thread converts a conversation to a Thread, titled after the peer.
func (c Conversation) Thread(selfID string) Thread {
	t := Thread{
		ID:          c.ID,
		Kind:        ThreadDirect,
		LastMessage: c.LastMessage,
		UnreadCount: c.UnreadCount,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, p := range c.Participants {
		t.ParticipantIDs = append(t.ParticipantIDs, p.ID)
		if p.ID != selfID {
			t.Title = p.Username
		}
	}
	if t.Title == "" && len(c.Participants) > 0 {
		t.Title = c.Participants[0].Username
	}
	return t
}

// Thread converts a room to a Thread.
func (r Room) Thread() Thread {
	t := Thread{
		ID:          r.ID,
		Kind:        ThreadRoom,
		Title:       r.Name,
		LastMessage: r.LastMessage,
		UnreadCount: r.UnreadCount,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, m := range r.Members {
		t.ParticipantIDs = append(t.ParticipantIDs, m.ID)
	}
	return t
}

// TypingUser identifies a user currently typing in a thread.
type TypingUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
