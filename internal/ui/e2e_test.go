package ui

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/api"
	"parley/internal/auth"
	"parley/internal/config"
	"parley/internal/store"
	"parley/internal/transport"
)

// stubConn is an in-memory transport.Conn; the test pushes server frames
// through it.
type stubConn struct {
	incoming chan []byte

	mu     sync.Mutex
	closed bool
}

func newStubConn() *stubConn {
	return &stubConn{incoming: make(chan []byte, 16)}
}

func (c *stubConn) push(event string, data any) {
	env := map[string]any{"event": event}
	if data != nil {
		env["data"] = data
	}
	frame, _ := json.Marshal(env)
	c.incoming <- frame
}

func (c *stubConn) ReadMessage() (int, []byte, error) {
	frame, ok := <-c.incoming
	if !ok {
		return 0, nil, io.EOF
	}
	return 1, frame, nil
}

func (c *stubConn) WriteMessage(int, []byte) error { return nil }

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.incoming)
	}
	return nil
}

// TestSignInOpenThreadReceivePush walks the main flow: authenticate, load
// the directory, open a thread, fetch its first page, then receive a live
// pushed message that lands in the open timeline and arrives at the UI loop
// through the event pump.
func TestSignInOpenThreadReceivePush(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			json.NewEncoder(w).Encode(map[string]any{
				"accessToken": "tok",
				"user":        map[string]string{"_id": "me", "username": "me"},
			})
		case "/api/chats/conversations":
			json.NewEncoder(w).Encode(map[string]any{
				"conversations": []map[string]any{{
					"_id": "c1",
					"participants": []map[string]string{
						{"_id": "me", "username": "me"},
						{"_id": "alice", "username": "alice"},
					},
					"updatedAt": base,
				}},
			})
		case "/api/rooms":
			json.NewEncoder(w).Encode(map[string]any{"rooms": []any{}})
		case "/api/chats/conversations/c1/messages":
			json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]any{{
					"_id":            "m1",
					"conversationId": "c1",
					"sender":         map[string]string{"_id": "alice", "username": "alice"},
					"content":        "hello",
					"type":           "text",
					"createdAt":      base,
				}},
				"currentPage": 1,
				"totalPages":  1,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	conn := newStubConn()
	logger := log.New(io.Discard, "", 0)
	tr := transport.NewClient("ws://test", logger,
		transport.WithDialer(func(url, token string) (transport.Conn, error) {
			if token != "tok" {
				return nil, errors.New("bad token")
			}
			return conn, nil
		}),
		transport.WithRetryPolicy(0, time.Millisecond),
	)
	t.Cleanup(tr.Disconnect)

	cfg := &config.Config{APIURL: srv.URL, DataDir: t.TempDir()}
	app := NewApp(cfg, logger, api.New(srv.URL, srv.Client()), tr, store.New(), auth.NewStore(cfg.DataDir), nil)

	// sign in
	login := NewLoginModel(app)
	msg := login.loginCmd("me@example.com", "secret")()
	ok, isOK := msg.(authOKMsg)
	require.True(t, isOK, "login should succeed, got %T", msg)
	assert.Equal(t, store.StateAuthenticated, app.Store.Session.State())

	// connect the socket and load the directory
	state, isState := app.connectCmd(ok.token)().(transportStateMsg)
	require.True(t, isState)
	require.True(t, state.connected)

	loaded, isLoaded := app.reloadDirectoryCmd()().(threadsLoadedMsg)
	require.True(t, isLoaded)
	require.NoError(t, loaded.err)

	thread, found := app.Store.Directory.Get("c1")
	require.True(t, found)
	assert.Equal(t, "alice", thread.Title)

	// open the thread and fetch its first page
	chat := NewChatModel(app, thread)
	assert.Equal(t, "c1", app.Store.Directory.Active())

	fetched, isFetched := chat.fetchPageCmd(1)().(pageFetchedMsg)
	require.True(t, isFetched)
	require.NoError(t, fetched.err)
	require.Len(t, app.Store.Timeline.Messages("c1"), 1)

	// server pushes a new message into the open thread
	conn.push(transport.EventMessageNew, map[string]any{
		"conversationId": "c1",
		"message": map[string]any{
			"_id":            "m2",
			"conversationId": "c1",
			"sender":         map[string]string{"_id": "alice", "username": "alice"},
			"content":        "are you there?",
			"type":           "text",
			"createdAt":      base.Add(time.Minute),
		},
	})

	pumped := app.WaitForEvent()()
	assert.Equal(t, newMessageMsg{threadID: "c1"}, pumped)

	msgs := app.Store.Timeline.Messages("c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "are you there?", msgs[1].Content)

	th, _ := app.Store.Directory.Get("c1")
	require.NotNil(t, th.LastMessage)
	assert.Equal(t, "are you there?", th.LastMessage.Content)
	assert.Equal(t, 0, th.UnreadCount)

	// leaving the thread removes its handlers; the next push must not
	// touch the timeline
	chat.close()
	assert.Equal(t, "", app.Store.Directory.Active())

	conn.push(transport.EventMessageNew, map[string]any{
		"conversationId": "c1",
		"message": map[string]any{
			"_id":            "m3",
			"conversationId": "c1",
			"sender":         map[string]string{"_id": "alice", "username": "alice"},
			"content":        "gone",
			"type":           "text",
			"createdAt":      base.Add(2 * time.Minute),
		},
	})
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, app.Store.Timeline.Messages("c1"), 2)
}
