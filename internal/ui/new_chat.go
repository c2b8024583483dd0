package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/models"
)

type userItem struct {
	user   models.User
	online bool
}

func (i userItem) Title() string {
	if i.online {
		return onlineStyle.Render("●") + " " + i.user.Username
	}
	return i.user.Username
}

func (i userItem) Description() string { return i.user.Email }
func (i userItem) FilterValue() string { return i.user.Username }

type usersFoundMsg struct {
	query string
	users []models.User
	err   error
}

type conversationCreatedMsg struct {
	thread models.Thread
	err    error
}

// NewChatScreenModel searches users by name and starts (or reopens) a
// direct conversation with the chosen one.
type NewChatScreenModel struct {
	app       *App
	input     textinput.Model
	list      list.Model
	spinner   spinner.Model
	searching bool
	creating  bool
	query     string
	errMsg    string
}

func NewNewChatModel(app *App) NewChatScreenModel {
	ti := textinput.New()
	ti.Placeholder = "Search users by name..."
	ti.Focus()
	ti.CharLimit = 64

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 14)
	l.Title = "Results"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return NewChatScreenModel{app: app, input: ti, list: l, spinner: s}
}

func (m NewChatScreenModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m NewChatScreenModel) searchCmd(query string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := app.requestCtx()
		defer cancel()
		users, err := app.API.SearchUsers(ctx, query)
		return usersFoundMsg{query: query, users: users, err: err}
	}
}

func (m NewChatScreenModel) createCmd(user models.User) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := app.requestCtx()
		defer cancel()
		conv, err := app.API.CreateConversation(ctx, user.ID)
		if err != nil {
			return conversationCreatedMsg{err: err}
		}
		return conversationCreatedMsg{thread: conv.Thread(app.Store.Session.User().ID)}
	}
}

func (m NewChatScreenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 8)
		return m, nil

	case usersFoundMsg:
		// answers for an outdated query are dropped
		if msg.query != m.query {
			return m, nil
		}
		m.searching = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Search failed: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		self := m.app.Store.Session.User().ID
		items := make([]list.Item, 0, len(msg.users))
		for _, u := range msg.users {
			if u.ID == self {
				continue
			}
			items = append(items, userItem{user: u, online: m.app.Store.Presence.IsOnline(u.ID)})
		}
		m.list.SetItems(items)
		return m, nil

	case conversationCreatedMsg:
		m.creating = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Could not start chat: %v", msg.err)
			return m, nil
		}
		chat := NewChatModel(m.app, msg.thread)
		return chat, tea.Batch(chat.Init(), m.app.reloadDirectoryCmd())

	case sessionExpiredMsg:
		m.app.Transport.Disconnect()
		login := NewLoginModel(m.app)
		return login, login.Init()

	case pushMsg:
		return m, m.app.WaitForEvent()

	case spinner.TickMsg:
		if m.searching || m.creating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			threads := NewThreadsModel(m.app)
			return threads, threads.Init()

		case "tab":
			if m.input.Focused() {
				m.input.Blur()
			} else {
				m.input.Focus()
			}
			return m, nil

		case "enter":
			if m.input.Focused() {
				query := strings.TrimSpace(m.input.Value())
				if query == "" {
					return m, nil
				}
				m.query = query
				m.searching = true
				m.input.Blur()
				return m, tea.Batch(m.spinner.Tick, m.searchCmd(query))
			}
			if item, ok := m.list.SelectedItem().(userItem); ok && !m.creating {
				m.creating = true
				return m, tea.Batch(m.spinner.Tick, m.createCmd(item.user))
			}
			return m, nil
		}

		if m.input.Focused() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m NewChatScreenModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New chat"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.searching:
		b.WriteString(fmt.Sprintf("  %s Searching...\n", m.spinner.View()))
	case m.creating:
		b.WriteString(fmt.Sprintf("  %s Opening chat...\n", m.spinner.View()))
	default:
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter: search / open • tab: switch focus • esc: back"))
	return b.String()
}
