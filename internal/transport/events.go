package transport

import (
	"encoding/json"
	"fmt"

	"parley/internal/models"
)

// Event names shared with the server. Outbound names are emitted by this
// client; inbound names arrive as pushes.
const (
	// connection lifecycle, dispatched locally
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventError      = "error"

	// outbound
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventRoomJoin          = "room:join"
	EventRoomLeave         = "room:leave"
	EventMessageSend       = "message:send"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventMessagesRead      = "messages:read"
	EventMessageReact      = "message:react"
	EventStatusUpdate      = "user:status-update"
	EventGetOnline         = "user:get-online"

	// inbound
	EventMessageNew      = "message:new"
	EventRoomMessageNew  = "room:message-new"
	EventMessageEdited   = "message:edited"
	EventMessageDeleted  = "message:deleted"
	EventConversationNew = "conversation:new"
	EventRoomNew         = "room:new"
	EventTypingUser      = "typing:user"
	EventTypingStopped   = "typing:stopped"
	EventUserStatus      = "user:status"
	EventOnlineList      = "user:online-list"
)

// MessageEvent is the payload of message:new and room:message-new.
type MessageEvent struct {
	ConversationID string         `json:"conversationId,omitempty"`
	RoomID         string         `json:"roomId,omitempty"`
	Message        models.Message `json:"message"`
}

func (e MessageEvent) ThreadID() string {
	if e.ConversationID != "" {
		return e.ConversationID
	}
	return e.RoomID
}

// MessageEditedEvent is the payload of message:edited.
type MessageEditedEvent struct {
	ConversationID string         `json:"conversationId,omitempty"`
	RoomID         string         `json:"roomId,omitempty"`
	Message        models.Message `json:"message"`
}

func (e MessageEditedEvent) ThreadID() string {
	if e.ConversationID != "" {
		return e.ConversationID
	}
	return e.RoomID
}

// MessageDeletedEvent is the payload of message:deleted.
type MessageDeletedEvent struct {
	ConversationID string `json:"conversationId,omitempty"`
	RoomID         string `json:"roomId,omitempty"`
	MessageID      string `json:"messageId"`
}

func (e MessageDeletedEvent) ThreadID() string {
	if e.ConversationID != "" {
		return e.ConversationID
	}
	return e.RoomID
}

// TypingEvent is the payload of typing:user.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
}

// TypingStoppedEvent is the payload of typing:stopped.
type TypingStoppedEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// StatusEvent is the payload of user:status.
type StatusEvent struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// OnlineListEvent is the payload of user:online-list.
type OnlineListEvent struct {
	Users []string `json:"users"`
}

// Parse decodes a raw push payload into the typed struct for its event.
// Payloads are validated at this boundary so handlers never work on
// untrusted shapes.
func Parse[T any](data json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decoding event payload: %w", err)
	}
	return v, nil
}
