package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"parley/internal/models"
)

// Error is a non-2xx API response, carrying the server-provided message
// when the body had one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Client issues HTTP requests against the chat backend. Every request
// carries the current bearer token; a 401 on a token-bearing request
// invalidates the session through the configured handler. Either way the
// caller sees models.ErrUnauthorized.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

func New(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// SetUnauthorizedHandler registers the hook invoked once per 401 response.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	onUnauthorized := c.onUnauthorized
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// only a rejected session token invalidates the session; a 401 on
		// an unauthenticated call (bad login credentials) stays a plain
		// error for the caller to render inline
		if token != "" {
			c.SetToken("")
			if onUnauthorized != nil {
				onUnauthorized()
			}
		}
		return models.ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode, Message: "request failed"}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	in := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

// Me returns the profile for the current token. A 401 here means the
// persisted token is stale and the session must be reset.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var out struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chats/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// CreateConversation returns the new conversation, or the existing one when
// a direct thread with the participant already exists.
func (c *Client) CreateConversation(ctx context.Context, participantID string) (*models.Conversation, error) {
	in := map[string]string{"participantId": participantID}
	var out struct {
		Conversation models.Conversation `json:"conversation"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chats/conversations", in, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

// MessagePage is one page of a thread's history, newest page first.
type MessagePage struct {
	Messages    []models.Message `json:"messages"`
	CurrentPage int              `json:"currentPage"`
	TotalPages  int              `json:"totalPages"`
}

func (c *Client) Messages(ctx context.Context, threadID string, page, limit int) (*MessagePage, error) {
	path := fmt.Sprintf("/api/chats/conversations/%s/messages?page=%s&limit=%s",
		url.PathEscape(threadID), strconv.Itoa(page), strconv.Itoa(limit))
	var out MessagePage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type SendMessageInput struct {
	// ID is a client-generated identifier. Sending it lets the push echo
	// carry the same id as the optimistic local copy, so dedup collapses
	// the two.
	ID             string             `json:"_id,omitempty"`
	ConversationID string             `json:"conversationId,omitempty"`
	RoomID         string             `json:"roomId,omitempty"`
	Content        string             `json:"content"`
	Type           models.MessageType `json:"type"`
}

func (c *Client) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	var out struct {
		Message models.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chats/messages", in, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *Client) EditMessage(ctx context.Context, messageID, content string) (*models.Message, error) {
	in := map[string]string{"content": content}
	var out struct {
		Message models.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/chats/messages/"+url.PathEscape(messageID), in, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/api/chats/messages/"+url.PathEscape(messageID), nil, nil)
}

func (c *Client) MarkRead(ctx context.Context, threadID string, messageIDs []string) error {
	in := map[string][]string{"messageIds": messageIDs}
	return c.do(ctx, http.MethodPatch, "/api/chats/conversations/"+url.PathEscape(threadID)+"/read", in, nil)
}

func (c *Client) Rooms(ctx context.Context) ([]models.Room, error) {
	var out struct {
		Rooms []models.Room `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

type CreateRoomInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	IsPrivate   bool   `json:"isPrivate"`
}

func (c *Client) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	var out struct {
		Room models.Room `json:"room"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/rooms", in, &out); err != nil {
		return nil, err
	}
	return &out.Room, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, "/api/rooms/"+url.PathEscape(roomID)+"/join", nil, nil)
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var out struct {
		Users []models.User `json:"users"`
	}
	path := "/api/users/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}
