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
	"parley/internal/models"
)

type LoginModel struct {
	app        *App
	email      textinput.Model
	password   textinput.Model
	focusIndex int
	submitting bool
	spinner    spinner.Model
	errMsg     string
}

func NewLoginModel(app *App) LoginModel {
	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 100
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 100
	password.Width = 40
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return LoginModel{
		app:      app,
		email:    email,
		password: password,
		spinner:  s,
		errMsg:   app.Store.Session.Err(),
	}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) loginCmd(email, password string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		app.Store.Session.SetAuthenticating()
		ctx, cancel := app.requestCtx()
		defer cancel()

		resp, err := app.API.Login(ctx, email, password)
		if err != nil {
			app.Store.Session.SetUnauthenticated(loginErrText(err))
			return sessionFailedMsg{reason: loginErrText(err)}
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

func loginErrText(err error) string {
	if errors.Is(err, models.ErrUnauthorized) {
		return "Invalid email or password"
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Could not reach the server"
}

func (m *LoginModel) updateFocus() {
	if m.focusIndex == 0 {
		m.email.Focus()
		m.password.Blur()
	} else {
		m.email.Blur()
		m.password.Focus()
	}
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+r":
			register := NewRegisterModel(m.app)
			return register, register.Init()

		case "tab", "shift+tab", "up", "down":
			m.focusIndex = (m.focusIndex + 1) % 2
			m.updateFocus()
			return m, nil

		case "enter":
			if m.submitting {
				return m, nil
			}
			if m.focusIndex == 0 {
				m.focusIndex = 1
				m.updateFocus()
				return m, nil
			}
			email := strings.TrimSpace(m.email.Value())
			password := m.password.Value()
			if email == "" || password == "" {
				m.errMsg = "Email and password are required"
				return m, nil
			}
			m.submitting = true
			m.errMsg = ""
			return m, tea.Batch(m.spinner.Tick, m.loginCmd(email, password))
		}

		var cmd tea.Cmd
		if m.focusIndex == 0 {
			m.email, cmd = m.email.Update(msg)
		} else {
			m.password, cmd = m.password.Update(msg)
		}
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

func (m LoginModel) View() string {
	s := titleStyle.Render("Parley - Sign In") + "\n\n"
	s += "  " + m.email.View() + "\n"
	s += "  " + m.password.View() + "\n\n"

	if m.submitting {
		s += fmt.Sprintf("  %s Signing in...\n", m.spinner.View())
	} else if m.errMsg != "" {
		s += "  " + errorStyle.Render(m.errMsg) + "\n"
	}

	s += "\n" + helpStyle.Render("tab: switch field • enter: sign in • ctrl+r: create account • ctrl+c: quit")
	return s
}
