package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"parley/internal/api"
	"parley/internal/config"
	"parley/internal/models"
	"parley/internal/store"
	"parley/internal/transport"
)

// ChatModel is one open thread: the message history in a viewport, a
// composer below it, and the live push handlers for this thread's events.
type ChatModel struct {
	app    *App
	thread models.Thread

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	subs     []transport.Subscription
	notifier *store.TypingNotifier

	loading     bool
	loadingMore bool
	fromCache   bool
	editingID   string
	errMsg      string
	ready       bool

	windowWidth  int
	windowHeight int
}

func NewChatModel(app *App, thread models.Thread) ChatModel {
	app.Store.Directory.SetActive(thread.ID)
	app.Transport.JoinThread(thread)

	ta := textarea.New()
	ta.Placeholder = "Write a message..."
	ta.CharLimit = config.MaxMessageLength
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	m := ChatModel{
		app:      app,
		thread:   thread,
		viewport: viewport.New(80, 20),
		textarea: ta,
		spinner:  s,
		loading:  true,
		notifier: store.NewTypingNotifier(thread.ID, config.TypingStopDelay,
			app.Transport.StartTyping, app.Transport.StopTyping),
		windowWidth:  80,
		windowHeight: 30,
	}
	m.subs = m.bindThreadHandlers()
	return m
}

// bindThreadHandlers installs the push handlers whose effects only matter
// while a thread is open. They run on the socket goroutine: mutate the
// store, then hand a pump message to the UI loop.
func (m *ChatModel) bindThreadHandlers() []transport.Subscription {
	app := m.app

	onMessage := func(data json.RawMessage) {
		ev, err := transport.Parse[transport.MessageEvent](data)
		if err != nil {
			app.Logger.Printf("ui: message push payload: %v", err)
			return
		}
		threadID := ev.ThreadID()
		if threadID == "" {
			threadID = ev.Message.ThreadID()
		}
		if threadID == "" {
			return
		}
		app.Store.Timeline.Append(threadID, ev.Message)
		app.Send(newMessageMsg{threadID: threadID})
	}

	subs := []transport.Subscription{
		app.Transport.Subscribe(transport.EventMessageNew, onMessage),
		app.Transport.Subscribe(transport.EventRoomMessageNew, onMessage),

		app.Transport.Subscribe(transport.EventMessageEdited, func(data json.RawMessage) {
			ev, err := transport.Parse[transport.MessageEditedEvent](data)
			if err != nil {
				app.Logger.Printf("ui: message:edited payload: %v", err)
				return
			}
			threadID := ev.ThreadID()
			if threadID == "" {
				threadID = ev.Message.ThreadID()
			}
			app.Store.Timeline.ApplyEdit(threadID, ev.Message.ID, store.MessagePatch{
				Content:  &ev.Message.Content,
				IsEdited: &ev.Message.IsEdited,
				EditedAt: ev.Message.EditedAt,
				ReadBy:   ev.Message.ReadBy,
			})
			app.Send(timelineChangedMsg{threadID: threadID})
		}),

		app.Transport.Subscribe(transport.EventMessageDeleted, func(data json.RawMessage) {
			ev, err := transport.Parse[transport.MessageDeletedEvent](data)
			if err != nil {
				app.Logger.Printf("ui: message:deleted payload: %v", err)
				return
			}
			app.Store.Timeline.ApplyDelete(ev.ThreadID(), ev.MessageID)
			app.Send(timelineChangedMsg{threadID: ev.ThreadID()})
		}),

		app.Transport.Subscribe(transport.EventTypingUser, func(data json.RawMessage) {
			ev, err := transport.Parse[transport.TypingEvent](data)
			if err != nil {
				app.Logger.Printf("ui: typing:user payload: %v", err)
				return
			}
			if ev.UserID == app.Store.Session.User().ID {
				return
			}
			app.Store.Presence.SetTyping(ev.ConversationID, ev.UserID, ev.Username)
			app.Send(typingChangedMsg{threadID: ev.ConversationID})
		}),

		app.Transport.Subscribe(transport.EventTypingStopped, func(data json.RawMessage) {
			ev, err := transport.Parse[transport.TypingStoppedEvent](data)
			if err != nil {
				app.Logger.Printf("ui: typing:stopped payload: %v", err)
				return
			}
			app.Store.Presence.ClearTyping(ev.ConversationID, ev.UserID)
			app.Send(typingChangedMsg{threadID: ev.ConversationID})
		}),
	}
	return subs
}

func (m ChatModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, textarea.Blink, m.loadCacheCmd(), m.fetchPageCmd(1)}
	if m.thread.Kind == models.ThreadRoom {
		cmds = append(cmds, m.joinRoomCmd())
	}
	return tea.Batch(cmds...)
}

// loadCacheCmd paints the cached tail of the thread before the network
// answers.
func (m ChatModel) loadCacheCmd() tea.Cmd {
	app := m.app
	threadID := m.thread.ID
	return func() tea.Msg {
		if app.Cache == nil {
			return nil
		}
		msgs, err := app.Cache.Messages(threadID, config.MessagesPerPage)
		if err != nil {
			app.Logger.Printf("ui: reading message cache: %v", err)
			return nil
		}
		if len(msgs) == 0 {
			return nil
		}
		return cachedMessagesMsg{threadID: threadID, msgs: msgs}
	}
}

// joinRoomCmd makes the server-side membership durable; the socket-level
// room:join only binds this connection.
func (m ChatModel) joinRoomCmd() tea.Cmd {
	app := m.app
	roomID := m.thread.ID
	return func() tea.Msg {
		ctx, cancel := app.requestCtx()
		defer cancel()
		if err := app.API.JoinRoom(ctx, roomID); err != nil {
			app.Logger.Printf("ui: joining room: %v", err)
		}
		return nil
	}
}

// fetchPageCmd loads one history page. The returned message carries the
// thread id it was fetched for; answers for a thread that is no longer
// active are flagged stale and dropped on arrival.
func (m ChatModel) fetchPageCmd(page int) tea.Cmd {
	app := m.app
	threadID := m.thread.ID
	return func() tea.Msg {
		ctx, cancel := app.requestCtx()
		defer cancel()

		res, err := app.API.Messages(ctx, threadID, page, config.MessagesPerPage)
		if err != nil {
			return pageFetchedMsg{threadID: threadID, page: page, err: err}
		}
		if app.Store.Directory.Active() != threadID {
			return pageFetchedMsg{threadID: threadID, page: page, stale: true}
		}
		app.Store.Timeline.ApplyPage(threadID, res.Messages, res.CurrentPage, res.TotalPages)

		if page <= 1 && app.Cache != nil {
			if err := app.Cache.SaveMessages(threadID, app.Store.Timeline.Messages(threadID)); err != nil {
				app.Logger.Printf("ui: caching messages: %v", err)
			}
		}
		return pageFetchedMsg{threadID: threadID, page: page}
	}
}

// markReadCmd reports the unread messages of this thread as read, over both
// channels: the socket for the live receipt fan-out and the API for the
// persisted state.
func (m ChatModel) markReadCmd() tea.Cmd {
	app := m.app
	threadID := m.thread.ID
	self := app.Store.Session.User().ID
	return func() tea.Msg {
		var unread []string
		for _, msg := range app.Store.Timeline.Messages(threadID) {
			if msg.Sender.ID == self {
				continue
			}
			seen := false
			for _, id := range msg.ReadBy {
				if id == self {
					seen = true
					break
				}
			}
			if !seen {
				unread = append(unread, msg.ID)
			}
		}
		if len(unread) == 0 {
			return nil
		}
		app.Transport.MarkRead(threadID, unread)
		ctx, cancel := app.requestCtx()
		defer cancel()
		if err := app.API.MarkRead(ctx, threadID, unread); err != nil {
			app.Logger.Printf("ui: marking read: %v", err)
		}
		app.Store.Directory.MarkRead(threadID)
		return nil
	}
}

// sendCmd persists a message the composer already echoed locally. The
// server keeps the client-generated id, so the push echo dedups against
// the optimistic copy.
func (m ChatModel) sendCmd(msg models.Message) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := app.requestCtx()
		defer cancel()

		in := api.SendMessageInput{
			ID:      msg.ID,
			Content: msg.Content,
			Type:    models.MessageText,
		}
		if msg.RoomID != "" {
			in.RoomID = msg.RoomID
		} else {
			in.ConversationID = msg.ConversationID
		}
		if _, err := app.API.SendMessage(ctx, in); err != nil {
			return messageSentMsg{err: err}
		}
		app.Transport.SendMessage(msg)
		return messageSentMsg{}
	}
}

// close tears down everything tied to the open thread before leaving the
// screen.
func (m *ChatModel) close() {
	for _, sub := range m.subs {
		m.app.Transport.Unsubscribe(sub)
	}
	m.notifier.Flush()
	m.app.Transport.LeaveThread(m.thread)
	m.app.Store.Directory.SetActive("")
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 5
		m.textarea.SetWidth(msg.Width - 2)
		m.ready = true
		m.refreshViewport(false)
		return m, nil

	case cachedMessagesMsg:
		// network already answered; the cache snapshot is older, skip it
		if msg.threadID != m.thread.ID || !m.loading {
			return m, nil
		}
		m.app.Store.Timeline.ApplyPage(m.thread.ID, msg.msgs, 1, 1)
		m.fromCache = true
		m.refreshViewport(true)
		return m, nil

	case pageFetchedMsg:
		if msg.threadID != m.thread.ID || msg.stale {
			return m, nil
		}
		m.loading = false
		m.loadingMore = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Could not load messages: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.fromCache = false
		m.refreshViewport(msg.page <= 1)
		if msg.page <= 1 {
			return m, m.markReadCmd()
		}
		return m, nil

	case newMessageMsg:
		if msg.threadID != m.thread.ID {
			return m, m.app.WaitForEvent()
		}
		atBottom := m.viewport.AtBottom()
		m.refreshViewport(atBottom)
		return m, tea.Batch(m.markReadCmd(), m.app.WaitForEvent())

	case timelineChangedMsg:
		if msg.threadID == m.thread.ID {
			m.refreshViewport(false)
		}
		return m, m.app.WaitForEvent()

	case typingChangedMsg:
		return m, m.app.WaitForEvent()

	case presenceChangedMsg:
		return m, m.app.WaitForEvent()

	case directoryReloadMsg:
		return m, tea.Batch(m.app.reloadDirectoryCmd(), m.app.WaitForEvent())

	case transportStateMsg:
		if msg.connected {
			// fresh socket: room/conversation membership is gone
			m.app.Transport.JoinThread(m.thread)
			return m, tea.Batch(m.fetchPageCmd(1), m.app.WaitForEvent())
		}
		return m, m.app.WaitForEvent()

	case sessionExpiredMsg:
		m.close()
		m.app.Transport.Disconnect()
		login := NewLoginModel(m.app)
		return login, login.Init()

	case threadsLoadedMsg:
		return m, nil

	case messageSentMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Send failed: %v", msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		if m.loading || m.loadingMore {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "esc":
			m.close()
			threads := NewThreadsModel(m.app)
			return threads, threads.Init()

		case "ctrl+s":
			return m.submit()

		case "ctrl+e":
			if last, ok := m.lastOwnMessage(); ok {
				m.editingID = last.ID
				m.textarea.SetValue(last.Content)
				m.textarea.CursorEnd()
			}
			return m, nil

		case "ctrl+d":
			if last, ok := m.lastOwnMessage(); ok {
				m.app.Store.Timeline.ApplyDelete(m.thread.ID, last.ID)
				m.refreshViewport(false)
				return m, m.deleteCmd(last.ID)
			}
			return m, nil

		case "pgup":
			if m.viewport.AtTop() && m.app.Store.Timeline.HasMore(m.thread.ID) && !m.loadingMore {
				m.loadingMore = true
				next := m.app.Store.Timeline.CurrentPage(m.thread.ID) + 1
				return m, tea.Batch(m.spinner.Tick, m.fetchPageCmd(next))
			}
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		m.notifier.Input(m.textarea.Value())
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// lastOwnMessage returns the newest non-deleted message the signed-in user
// sent in this thread.
func (m ChatModel) lastOwnMessage() (models.Message, bool) {
	msgs := m.app.Store.Timeline.Messages(m.thread.ID)
	self := m.app.Store.Session.User().ID
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender.ID == self && !msgs[i].IsDeleted {
			return msgs[i], true
		}
	}
	return models.Message{}, false
}

func (m ChatModel) editCmd(messageID, content string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := app.requestCtx()
		defer cancel()
		if _, err := app.API.EditMessage(ctx, messageID, content); err != nil {
			return messageSentMsg{err: err}
		}
		return messageSentMsg{}
	}
}

func (m ChatModel) deleteCmd(messageID string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := app.requestCtx()
		defer cancel()
		if err := app.API.DeleteMessage(ctx, messageID); err != nil {
			return messageSentMsg{err: err}
		}
		return messageSentMsg{}
	}
}

// submit echoes the composed message locally and kicks off the API send.
// When an edit is in progress it patches the existing message instead.
func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.textarea.Value())
	if content == "" {
		return m, nil
	}

	if m.editingID != "" {
		id := m.editingID
		m.editingID = ""
		edited := true
		m.app.Store.Timeline.ApplyEdit(m.thread.ID, id, store.MessagePatch{
			Content:  &content,
			IsEdited: &edited,
		})
		m.textarea.Reset()
		m.notifier.Flush()
		m.errMsg = ""
		m.refreshViewport(false)
		return m, m.editCmd(id, content)
	}

	local := models.Message{
		ID:        uuid.NewString(),
		Sender:    m.app.Store.Session.User(),
		Content:   content,
		Type:      models.MessageText,
		CreatedAt: time.Now(),
	}
	if m.thread.Kind == models.ThreadRoom {
		local.RoomID = m.thread.ID
	} else {
		local.ConversationID = m.thread.ID
	}

	m.app.Store.Timeline.Append(m.thread.ID, local)
	m.textarea.Reset()
	m.notifier.Flush()
	m.errMsg = ""
	m.refreshViewport(true)
	return m, m.sendCmd(local)
}

// refreshViewport re-renders the timeline into the viewport, optionally
// snapping to the newest message.
func (m *ChatModel) refreshViewport(gotoBottom bool) {
	m.viewport.SetContent(m.renderMessages())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

func (m *ChatModel) renderMessages() string {
	msgs := m.app.Store.Timeline.Messages(m.thread.ID)
	if len(msgs) == 0 {
		return helpStyle.Render("No messages yet. Say hello!")
	}

	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	self := m.app.Store.Session.User().ID
	var b strings.Builder
	for _, msg := range msgs {
		header := fmt.Sprintf("%s • %s", msg.Sender.Username, msg.CreatedAt.Local().Format("15:04"))
		if msg.IsEdited && !msg.IsDeleted {
			header += " (edited)"
		}
		b.WriteString(messageHeaderStyle.Render(header))
		b.WriteString("\n")

		body := wordwrap.String(msg.Content, width-4)
		switch {
		case msg.IsDeleted:
			b.WriteString(deletedStyle.Render(body))
		case msg.Sender.ID == self:
			b.WriteString(messageFromMeStyle.Width(width).Render(body))
		default:
			b.WriteString(messageFromOtherStyle.Render(body))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m ChatModel) typingLine() string {
	typing := m.app.Store.Presence.TypingUsers(m.thread.ID)
	if len(typing) == 0 {
		return ""
	}
	names := make([]string, len(typing))
	for i, t := range typing {
		names[i] = t.Username
	}
	verb := "is"
	if len(names) > 1 {
		verb = "are"
	}
	return typingStyle.Render(fmt.Sprintf("%s %s typing...", strings.Join(names, ", "), verb))
}

func (m ChatModel) View() string {
	title := m.thread.Title
	if m.thread.Kind == models.ThreadRoom {
		title = "# " + title
	} else {
		for _, pid := range m.thread.ParticipantIDs {
			if pid != m.app.Store.Session.User().ID && m.app.Store.Presence.IsOnline(pid) {
				title = onlineStyle.Render("●") + " " + title
			}
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if m.loading && !m.fromCache {
		b.WriteString(fmt.Sprintf("\n  %s Loading messages...\n", m.spinner.View()))
	} else {
		if m.loadingMore {
			b.WriteString(fmt.Sprintf("  %s loading older messages\n", m.spinner.View()))
		}
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}

	if line := m.typingLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	if m.editingID != "" {
		b.WriteString(statusStyle.Render("editing message"))
		b.WriteString(" ")
	}
	b.WriteString(helpStyle.Render("ctrl+s: send • ctrl+e: edit last • ctrl+d: delete last • pgup: older • esc: back"))
	return b.String()
}
