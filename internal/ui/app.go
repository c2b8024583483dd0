package ui

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/api"
	"parley/internal/auth"
	"parley/internal/cache"
	"parley/internal/config"
	"parley/internal/models"
	"parley/internal/store"
	"parley/internal/transport"
)

// App bundles the shared services every screen needs. It is passed into
// model constructors explicitly so tests can substitute fakes; nothing
// reaches for package-level state.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	API       *api.Client
	Transport *transport.Client
	Store     *store.Store
	Creds     *auth.Store
	Cache     *cache.Cache

	events chan tea.Msg
}

func NewApp(cfg *config.Config, logger *log.Logger, apiClient *api.Client, tr *transport.Client, st *store.Store, creds *auth.Store, c *cache.Cache) *App {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		API:       apiClient,
		Transport: tr,
		Store:     st,
		Creds:     creds,
		Cache:     c,
		events:    make(chan tea.Msg, 256),
	}
	apiClient.SetUnauthorizedHandler(a.handleUnauthorized)
	return a
}

// Send queues a message for the running program. Transport handlers run on
// the socket's read goroutine; this hands their effects to the UI loop.
// Drops with a log line if the queue is full rather than blocking the read
// loop.
func (a *App) Send(msg tea.Msg) {
	select {
	case a.events <- msg:
	default:
		a.Logger.Printf("ui: event queue full, dropping %T", msg)
	}
}

// WaitForEvent blocks until a queued event arrives. Every handler of a
// pump-delivered message re-arms exactly one of these.
func (a *App) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-a.events
	}
}

// requestCtx is the bounded context for one API call.
func (a *App) requestCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.RequestTimeout)
}

// handleUnauthorized runs when any API call gets a 401: the persisted token
// is stale, so the local session is reset. The UI reacts to the pushed
// message by returning to the login screen.
func (a *App) handleUnauthorized() {
	if err := a.Creds.Clear(); err != nil {
		a.Logger.Printf("ui: clearing credentials: %v", err)
	}
	a.Store.Session.SetUnauthenticated("Session expired, please sign in again")
	a.Send(sessionExpiredMsg{})
}

// connectCmd opens the socket and installs the session-wide push handlers:
// presence updates and directory refresh triggers. Per-thread handlers are
// the chat screen's business.
func (a *App) connectCmd(token string) tea.Cmd {
	return func() tea.Msg {
		if err := a.Transport.Connect(token); err != nil {
			// degraded mode: no live updates, but the app stays usable
			a.Logger.Printf("ui: transport connect: %v", err)
			return transportStateMsg{connected: false}
		}
		a.bindSessionHandlers()
		a.Transport.RequestOnlineUsers()
		a.Transport.UpdateStatus("online")
		return transportStateMsg{connected: true}
	}
}

func (a *App) bindSessionHandlers() {
	a.Transport.Subscribe(transport.EventUserStatus, func(data json.RawMessage) {
		ev, err := transport.Parse[transport.StatusEvent](data)
		if err != nil {
			a.Logger.Printf("ui: user:status payload: %v", err)
			return
		}
		a.Store.Presence.UpdateStatus(ev.UserID, ev.Status)
		a.Send(presenceChangedMsg{})
	})
	a.Transport.Subscribe(transport.EventOnlineList, func(data json.RawMessage) {
		ev, err := transport.Parse[transport.OnlineListEvent](data)
		if err != nil {
			a.Logger.Printf("ui: user:online-list payload: %v", err)
			return
		}
		a.Store.Presence.SetOnline(ev.Users)
		a.Send(presenceChangedMsg{})
	})
	// new conversations and rooms trigger a full directory reload rather
	// than an incremental merge; thread counts are user-scale
	reload := func(json.RawMessage) { a.Send(directoryReloadMsg{}) }
	a.Transport.Subscribe(transport.EventConversationNew, reload)
	a.Transport.Subscribe(transport.EventRoomNew, reload)
	a.Transport.Subscribe(transport.EventConnect, func(json.RawMessage) {
		a.Send(transportStateMsg{connected: true})
	})
	a.Transport.Subscribe(transport.EventDisconnect, func(json.RawMessage) {
		a.Send(transportStateMsg{connected: false})
	})
}

// reloadDirectoryCmd fetches conversations and rooms, rebuilds the unified
// thread directory, and writes it through to the offline cache.
func (a *App) reloadDirectoryCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestCtx()
		defer cancel()

		selfID := a.Store.Session.User().ID

		convs, err := a.API.Conversations(ctx)
		if err != nil {
			return threadsLoadedMsg{err: err}
		}
		rooms, err := a.API.Rooms(ctx)
		if err != nil {
			return threadsLoadedMsg{err: err}
		}

		threads := make([]models.Thread, 0, len(convs)+len(rooms))
		for _, c := range convs {
			threads = append(threads, c.Thread(selfID))
		}
		for _, r := range rooms {
			threads = append(threads, r.Thread())
		}
		a.Store.Directory.Load(threads)

		if a.Cache != nil {
			if err := a.Cache.SaveThreads(threads); err != nil {
				a.Logger.Printf("ui: caching threads: %v", err)
			}
		}
		return threadsLoadedMsg{}
	}
}

// logoutCmd tears the session down: server-side logout (best effort),
// credentials gone, socket closed, stores reset.
func (a *App) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestCtx()
		defer cancel()
		if err := a.API.Logout(ctx); err != nil {
			a.Logger.Printf("ui: logout: %v", err)
		}
		if err := a.Creds.Clear(); err != nil {
			a.Logger.Printf("ui: clearing credentials: %v", err)
		}
		a.Transport.Disconnect()
		a.Store.Session.SetUnauthenticated("")
		a.Store.Directory.SetActive("")
		return loggedOutMsg{}
	}
}

// Messages shared between screens. Types implementing pushMsg arrive via
// the event pump; every model in the signed-in area must re-arm
// WaitForEvent when it consumes one.

type pushMsg interface{ isPush() }

type sessionReadyMsg struct {
	user  models.User
	token string
}

type sessionFailedMsg struct{ reason string }

type authOKMsg struct {
	user  models.User
	token string
}

type loggedOutMsg struct{}

type sessionExpiredMsg struct{}

func (sessionExpiredMsg) isPush() {}

type transportStateMsg struct{ connected bool }

func (transportStateMsg) isPush() {}

type presenceChangedMsg struct{}

func (presenceChangedMsg) isPush() {}

type directoryReloadMsg struct{}

func (directoryReloadMsg) isPush() {}

type newMessageMsg struct{ threadID string }

func (newMessageMsg) isPush() {}

type timelineChangedMsg struct{ threadID string }

func (timelineChangedMsg) isPush() {}

type typingChangedMsg struct{ threadID string }

func (typingChangedMsg) isPush() {}

type threadsLoadedMsg struct{ err error }

type cachedThreadsMsg struct{ threads []models.Thread }

type cachedMessagesMsg struct {
	threadID string
	msgs     []models.Message
}

type pageFetchedMsg struct {
	threadID string
	page     int
	stale    bool
	err      error
}

type messageSentMsg struct{ err error }

// formatTimeAgo renders a timestamp relative to now for list rows.
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return formatCount(int(d.Minutes()), "m")
	case d < 24*time.Hour:
		return formatCount(int(d.Hours()), "h")
	case d < 7*24*time.Hour:
		return formatCount(int(d.Hours()/24), "d")
	}
	return t.Format("Jan 2")
}

func formatCount(n int, unit string) string {
	if n < 1 {
		n = 1
	}
	return strconv.Itoa(n) + unit + " ago"
}
