package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/internal/models"
)

type threadItem struct {
	thread models.Thread
	online bool
}

func (i threadItem) Title() string {
	title := i.thread.Title
	if i.thread.Kind == models.ThreadRoom {
		title = "# " + title
	} else if i.online {
		title = onlineStyle.Render("●") + " " + title
	}
	if i.thread.UnreadCount > 0 {
		title += " " + unreadStyle.Render(fmt.Sprintf("(%d)", i.thread.UnreadCount))
	}
	return title
}

func (i threadItem) Description() string {
	if i.thread.LastMessage == nil {
		return "no messages yet"
	}
	preview := i.thread.LastMessage.Content
	if len(preview) > 50 {
		preview = preview[:47] + "..."
	}
	return fmt.Sprintf("%s • %s", formatTimeAgo(i.thread.UpdatedAt), preview)
}

func (i threadItem) FilterValue() string { return i.thread.Title }

// ThreadsModel is the home screen: the unified conversation/room directory.
type ThreadsModel struct {
	app          *App
	list         list.Model
	spinner      spinner.Model
	loading      bool
	fromCache    bool
	live         bool
	err          error
	windowWidth  int
	windowHeight int
}

func NewThreadsModel(app *App) ThreadsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Chats"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return ThreadsModel{
		app:          app,
		list:         l,
		spinner:      s,
		loading:      true,
		live:         app.Transport.IsConnected(),
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m ThreadsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCacheCmd(), m.app.reloadDirectoryCmd())
}

// loadCacheCmd paints the last known directory before the network answers.
func (m ThreadsModel) loadCacheCmd() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		if app.Cache == nil {
			return nil
		}
		threads, err := app.Cache.Threads()
		if err != nil {
			app.Logger.Printf("ui: reading thread cache: %v", err)
			return nil
		}
		if len(threads) == 0 {
			return nil
		}
		return cachedThreadsMsg{threads: threads}
	}
}

func (m *ThreadsModel) refreshItems() {
	threads := m.app.Store.Directory.Threads()
	self := m.app.Store.Session.User().ID
	items := make([]list.Item, len(threads))
	for i, t := range threads {
		online := false
		if t.Kind == models.ThreadDirect {
			for _, pid := range t.ParticipantIDs {
				if pid != self && m.app.Store.Presence.IsOnline(pid) {
					online = true
				}
			}
		}
		items[i] = threadItem{thread: t, online: online}
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("Chats - %d threads", len(threads))
}

func (m ThreadsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case cachedThreadsMsg:
		// network already answered; the cache snapshot is older, skip it
		if !m.loading {
			return m, nil
		}
		m.app.Store.Directory.Load(msg.threads)
		m.fromCache = true
		m.refreshItems()
		return m, nil

	case threadsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.fromCache = false
		m.refreshItems()
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case sessionExpiredMsg:
		m.app.Transport.Disconnect()
		login := NewLoginModel(m.app)
		return login, login.Init()

	case loggedOutMsg:
		login := NewLoginModel(m.app)
		return login, login.Init()

	case directoryReloadMsg:
		return m, tea.Batch(m.app.reloadDirectoryCmd(), m.app.WaitForEvent())

	case transportStateMsg:
		m.live = msg.connected
		return m, m.app.WaitForEvent()

	case presenceChangedMsg:
		m.refreshItems()
		return m, m.app.WaitForEvent()

	case pushMsg:
		// pump messages aimed at other screens still need re-arming
		m.refreshItems()
		return m, m.app.WaitForEvent()

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "r":
			if !m.loading {
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, m.app.reloadDirectoryCmd())
			}
			return m, nil

		case "n":
			newChat := NewNewChatModel(m.app)
			return newChat, newChat.Init()

		case "R":
			newRoom := NewNewRoomModel(m.app)
			return newRoom, newRoom.Init()

		case "ctrl+l":
			return m, m.app.logoutCmd()

		case "enter":
			if item, ok := m.list.SelectedItem().(threadItem); ok && !m.loading {
				chat := NewChatModel(m.app, item.thread)
				return chat, chat.Init()
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ThreadsModel) View() string {
	if m.loading && len(m.list.Items()) == 0 {
		return fmt.Sprintf("\n  %s Loading chats...\n", m.spinner.View())
	}

	s := m.list.View() + "\n"

	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	status := ""
	if m.fromCache {
		status = statusStyle.Render("cached") + " "
	}
	if !m.live {
		status += errorStyle.Render("offline") + " "
	}
	s += status + helpStyle.Render("enter: open • n: new chat • R: new room • r: refresh • /: search • ctrl+l: sign out • q: quit")
	return s
}
