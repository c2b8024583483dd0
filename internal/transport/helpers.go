package transport

import "parley/internal/models"

// Thin emit wrappers with the event/payload shapes the server expects.

func (c *Client) JoinThread(thread models.Thread) {
	if thread.Kind == models.ThreadRoom {
		c.Emit(EventRoomJoin, thread.ID)
		return
	}
	c.Emit(EventConversationJoin, thread.ID)
}

func (c *Client) LeaveThread(thread models.Thread) {
	if thread.Kind == models.ThreadRoom {
		c.Emit(EventRoomLeave, thread.ID)
		return
	}
	c.Emit(EventConversationLeave, thread.ID)
}

func (c *Client) SendMessage(msg models.Message) {
	c.Emit(EventMessageSend, msg)
}

func (c *Client) StartTyping(threadID string) {
	c.Emit(EventTypingStart, map[string]string{"conversationId": threadID})
}

func (c *Client) StopTyping(threadID string) {
	c.Emit(EventTypingStop, map[string]string{"conversationId": threadID})
}

func (c *Client) MarkRead(threadID string, messageIDs []string) {
	c.Emit(EventMessagesRead, map[string]any{
		"conversationId": threadID,
		"messageIds":     messageIDs,
	})
}

func (c *Client) ReactToMessage(threadID, messageID, emoji string) {
	c.Emit(EventMessageReact, map[string]string{
		"conversationId": threadID,
		"messageId":      messageID,
		"emoji":          emoji,
	})
}

func (c *Client) UpdateStatus(status string) {
	c.Emit(EventStatusUpdate, map[string]string{"status": status})
}

func (c *Client) RequestOnlineUsers() {
	c.Emit(EventGetOnline, nil)
}
