package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/api"
	"parley/internal/models"
)

const (
	roomFieldName = iota
	roomFieldDescription
	roomFieldCategory
	roomFieldCount
)

type roomCreatedMsg struct {
	thread models.Thread
	err    error
}

// NewRoomModel is the create-room form: name, description, category and a
// private toggle.
type NewRoomModel struct {
	app        *App
	inputs     []textinput.Model
	focusIndex int
	isPrivate  bool
	creating   bool
	spinner    spinner.Model
	errMsg     string
}

func NewNewRoomModel(app *App) NewRoomModel {
	inputs := make([]textinput.Model, roomFieldCount)

	name := textinput.New()
	name.Placeholder = "Room name"
	name.CharLimit = 64
	name.Focus()
	inputs[roomFieldName] = name

	desc := textinput.New()
	desc.Placeholder = "Description (optional)"
	desc.CharLimit = 200
	inputs[roomFieldDescription] = desc

	cat := textinput.New()
	cat.Placeholder = "Category (optional)"
	cat.CharLimit = 32
	inputs[roomFieldCategory] = cat

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return NewRoomModel{app: app, inputs: inputs, spinner: s}
}

func (m NewRoomModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m NewRoomModel) createCmd() tea.Cmd {
	app := m.app
	in := api.CreateRoomInput{
		Name:        strings.TrimSpace(m.inputs[roomFieldName].Value()),
		Description: strings.TrimSpace(m.inputs[roomFieldDescription].Value()),
		Category:    strings.TrimSpace(m.inputs[roomFieldCategory].Value()),
		IsPrivate:   m.isPrivate,
	}
	return func() tea.Msg {
		ctx, cancel := app.requestCtx()
		defer cancel()
		room, err := app.API.CreateRoom(ctx, in)
		if err != nil {
			return roomCreatedMsg{err: err}
		}
		return roomCreatedMsg{thread: room.Thread()}
	}
}

func (m *NewRoomModel) updateFocus() {
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m NewRoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case roomCreatedMsg:
		m.creating = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Could not create room: %v", msg.err)
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
		if m.creating {
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

		case "ctrl+p":
			m.isPrivate = !m.isPrivate
			return m, nil

		case "tab", "down":
			m.focusIndex = (m.focusIndex + 1) % roomFieldCount
			m.updateFocus()
			return m, nil

		case "shift+tab", "up":
			m.focusIndex = (m.focusIndex + roomFieldCount - 1) % roomFieldCount
			m.updateFocus()
			return m, nil

		case "enter":
			if m.focusIndex < roomFieldCount-1 {
				m.focusIndex++
				m.updateFocus()
				return m, nil
			}
			if m.creating {
				return m, nil
			}
			if strings.TrimSpace(m.inputs[roomFieldName].Value()) == "" {
				m.errMsg = "Room name is required"
				return m, nil
			}
			m.errMsg = ""
			m.creating = true
			return m, tea.Batch(m.spinner.Tick, m.createCmd())
		}

		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m NewRoomModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New room"))
	b.WriteString("\n")

	labels := [roomFieldCount]string{"Name", "Description", "Category"}
	for i, in := range m.inputs {
		b.WriteString(inputStyle.Render(labels[i] + ":"))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}

	visibility := "public"
	if m.isPrivate {
		visibility = "private"
	}
	b.WriteString(normalStyle.Render("Visibility: "+visibility) + " " + helpStyle.Render("(ctrl+p to toggle)"))
	b.WriteString("\n\n")

	if m.creating {
		b.WriteString(fmt.Sprintf("  %s Creating room...\n", m.spinner.View()))
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter: next / create • tab: move • esc: back"))
	return b.String()
}
