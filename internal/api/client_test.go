package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/api"
	"parley/internal/models"
)

func TestClientAuth(t *testing.T) {
	t.Run("LoginStoresToken", func(t *testing.T) {
		var gotBody map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/auth/login", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]any{
				"accessToken":  "tok-123",
				"refreshToken": "ref-456",
				"user":         map[string]string{"_id": "u1", "username": "alice"},
			})
		}))
		defer srv.Close()

		c := api.New(srv.URL, srv.Client())
		res, err := c.Login(context.Background(), "alice@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok-123", res.AccessToken)
		assert.Equal(t, "alice", res.User.Username)
		assert.Equal(t, "alice@example.com", gotBody["email"])
	})

	t.Run("BearerHeaderOnRequests", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string]any{"conversations": []any{}})
		}))
		defer srv.Close()

		c := api.New(srv.URL, srv.Client())
		c.SetToken("tok-123")
		_, err := c.Conversations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-123", gotAuth)
	})

	t.Run("UnauthorizedInvalidatesSession", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if r.Header.Get("Authorization") != "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := api.New(srv.URL, srv.Client())
		c.SetToken("stale")
		handlerRan := false
		c.SetUnauthorizedHandler(func() { handlerRan = true })

		_, err := c.Me(context.Background())
		require.ErrorIs(t, err, models.ErrUnauthorized)
		assert.True(t, handlerRan)

		// token was cleared: the next request goes out without a header
		_, _ = c.Conversations(context.Background())
		require.Equal(t, 2, calls)
	})

	t.Run("BadCredentialsSkipHandler", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := api.New(srv.URL, srv.Client())
		handlerRan := false
		c.SetUnauthorizedHandler(func() { handlerRan = true })

		// no token attached: a rejected login is the caller's error to
		// render, not a session reset
		_, err := c.Login(context.Background(), "alice@example.com", "wrong")
		require.ErrorIs(t, err, models.ErrUnauthorized)
		assert.False(t, handlerRan)
	})

	t.Run("ServerErrorMessageSurfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "email already registered"})
		}))
		defer srv.Close()

		c := api.New(srv.URL, srv.Client())
		_, err := c.Register(context.Background(), api.RegisterInput{
			Username: "alice", Email: "a@b.c", Password: "secret",
		})
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusConflict, apiErr.Status)
		assert.Equal(t, "email already registered", apiErr.Message)
	})
}

func TestClientMessages(t *testing.T) {
	t.Run("PagingParams", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chats/conversations/c1/messages", r.URL.Path)
			assert.Equal(t, "3", r.URL.Query().Get("page"))
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			json.NewEncoder(w).Encode(map[string]any{
				"messages":    []map[string]any{{"_id": "m1", "content": "hi"}},
				"currentPage": 3,
				"totalPages":  5,
			})
		}))
		defer srv.Close()

		c := api.New(srv.URL, srv.Client())
		page, err := c.Messages(context.Background(), "c1", 3, 50)
		require.NoError(t, err)
		require.Len(t, page.Messages, 1)
		assert.Equal(t, "m1", page.Messages[0].ID)
		assert.Equal(t, 3, page.CurrentPage)
		assert.Equal(t, 5, page.TotalPages)
	})

	t.Run("SendCarriesClientID", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/chats/messages", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]any{"_id": got["_id"], "content": got["content"]},
			})
		}))
		defer srv.Close()

		c := api.New(srv.URL, srv.Client())
		sent, err := c.SendMessage(context.Background(), api.SendMessageInput{
			ID:             "client-uuid",
			ConversationID: "c1",
			Content:        "hello",
			Type:           models.MessageText,
		})
		require.NoError(t, err)
		assert.Equal(t, "client-uuid", sent.ID)
		assert.Equal(t, "client-uuid", got["_id"])
		assert.Equal(t, "c1", got["conversationId"])
	})

	t.Run("MarkRead", func(t *testing.T) {
		var got map[string][]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/api/chats/conversations/c1/read", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c := api.New(srv.URL, srv.Client())
		err := c.MarkRead(context.Background(), "c1", []string{"m1", "m2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2"}, got["messageIds"])
	})
}

func TestClientSearchUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/search", r.URL.Path)
		assert.Equal(t, "ali ce", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]string{{"_id": "u1", "username": "alice"}},
		})
	}))
	defer srv.Close()

	c := api.New(srv.URL, srv.Client())
	users, err := c.SearchUsers(context.Background(), "ali ce")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}
