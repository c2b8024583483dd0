package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/api"
	"parley/internal/auth"
)

// RegisterModel is the account creation form. Validation failures are
// recovered locally with field-level messages and never reach the server.
type RegisterModel struct {
	app         *App
	inputs      []textinput.Model
	fieldErrors []string
	focusIndex  int
	submitting  bool
	spinner     spinner.Model
	errMsg      string
}

const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	registerFieldCount
)

func NewRegisterModel(app *App) RegisterModel {
	labels := []string{"Username", "Email", "Password", "Confirm password"}
	inputs := make([]textinput.Model, registerFieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = labels[i]
		inputs[i].CharLimit = 100
		inputs[i].Width = 40
	}
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'
	inputs[fieldConfirm].EchoMode = textinput.EchoPassword
	inputs[fieldConfirm].EchoCharacter = '•'
	inputs[fieldUsername].Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return RegisterModel{
		app:         app,
		inputs:      inputs,
		fieldErrors: make([]string, registerFieldCount),
		spinner:     s,
	}
}

func (m RegisterModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *RegisterModel) validate() bool {
	for i := range m.fieldErrors {
		m.fieldErrors[i] = ""
	}
	ok := true

	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	if len(username) < 3 {
		m.fieldErrors[fieldUsername] = "Username must be at least 3 characters"
		ok = false
	}

	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		m.fieldErrors[fieldEmail] = "Enter a valid email address"
		ok = false
	}

	password := m.inputs[fieldPassword].Value()
	if len(password) < 6 {
		m.fieldErrors[fieldPassword] = "Password must be at least 6 characters"
		ok = false
	}
	if m.inputs[fieldConfirm].Value() != password {
		m.fieldErrors[fieldConfirm] = "Passwords do not match"
		ok = false
	}

	return ok
}

func (m RegisterModel) registerCmd() tea.Cmd {
	app := m.app
	in := api.RegisterInput{
		Username: strings.TrimSpace(m.inputs[fieldUsername].Value()),
		Email:    strings.TrimSpace(m.inputs[fieldEmail].Value()),
		Password: m.inputs[fieldPassword].Value(),
	}
	return func() tea.Msg {
		app.Store.Session.SetAuthenticating()
		ctx, cancel := app.requestCtx()
		defer cancel()

		resp, err := app.API.Register(ctx, in)
		if err != nil {
			reason := "Registration failed"
			var apiErr *api.Error
			if errors.As(err, &apiErr) {
				reason = apiErr.Message
			}
			app.Store.Session.SetUnauthenticated(reason)
			return sessionFailedMsg{reason: reason}
		}

		if err := app.Creds.Save(auth.Credentials{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
		}); err != nil {
			app.Logger.Printf("ui: saving credentials: %v", err)
		}

		app.Store.Session.SetAuthenticated(resp.User)
		app.Store.Directory.SetSelf(resp.User.ID)
		return authOKMsg{user: resp.User, token: resp.AccessToken}
	}
}

func (m *RegisterModel) updateFocus() {
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m RegisterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			login := NewLoginModel(m.app)
			return login, login.Init()

		case "tab", "down":
			m.focusIndex = (m.focusIndex + 1) % registerFieldCount
			m.updateFocus()
			return m, nil

		case "shift+tab", "up":
			m.focusIndex--
			if m.focusIndex < 0 {
				m.focusIndex = registerFieldCount - 1
			}
			m.updateFocus()
			return m, nil

		case "enter":
			if m.submitting {
				return m, nil
			}
			if m.focusIndex < registerFieldCount-1 {
				m.focusIndex++
				m.updateFocus()
				return m, nil
			}
			if !m.validate() {
				return m, nil
			}
			m.submitting = true
			m.errMsg = ""
			return m, tea.Batch(m.spinner.Tick, m.registerCmd())
		}

		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.submitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case sessionFailedMsg:
		m.submitting = false
		m.errMsg = msg.reason
		return m, nil

	case authOKMsg:
		threads := NewThreadsModel(m.app)
		return threads, tea.Batch(
			m.app.connectCmd(msg.token),
			m.app.WaitForEvent(),
			threads.Init(),
		)
	}

	return m, nil
}

func (m RegisterModel) View() string {
	s := titleStyle.Render("Parley - Create Account") + "\n\n"
	for i := range m.inputs {
		s += "  " + m.inputs[i].View() + "\n"
		if m.fieldErrors[i] != "" {
			s += "  " + errorStyle.Render(m.fieldErrors[i]) + "\n"
		}
	}
	s += "\n"

	if m.submitting {
		s += fmt.Sprintf("  %s Creating account...\n", m.spinner.View())
	} else if m.errMsg != "" {
		s += "  " + errorStyle.Render(m.errMsg) + "\n"
	}

	s += "\n" + helpStyle.Render("tab: next field • enter: submit • esc: back to sign in")
	return s
}
