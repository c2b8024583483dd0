package ui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/auth"
	"parley/internal/models"
)

// BootstrapModel is the first screen: a spinner while the persisted token
// is checked against the server. No token, an expired token, or a rejected
// token all land on the login screen; a valid one goes straight to the
// thread list.
type BootstrapModel struct {
	app     *App
	spinner spinner.Model
}

func NewBootstrapModel(app *App) BootstrapModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle
	return BootstrapModel{app: app, spinner: s}
}

func (m BootstrapModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bootstrapCmd())
}

func (m BootstrapModel) bootstrapCmd() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		creds, err := app.Creds.Load()
		if err != nil {
			app.Logger.Printf("ui: loading credentials: %v", err)
			return sessionFailedMsg{}
		}
		if creds == nil || creds.AccessToken == "" {
			return sessionFailedMsg{}
		}
		if auth.TokenExpired(creds.AccessToken, time.Now()) {
			app.Creds.Clear()
			return sessionFailedMsg{reason: "Session expired, please sign in again"}
		}

		app.API.SetToken(creds.AccessToken)
		ctx, cancel := app.requestCtx()
		defer cancel()
		user, err := app.API.Me(ctx)
		if err != nil {
			if !errors.Is(err, models.ErrUnauthorized) {
				app.Logger.Printf("ui: fetching current user: %v", err)
				app.Creds.Clear()
			}
			return sessionFailedMsg{}
		}

		app.Store.Session.SetAuthenticated(*user)
		app.Store.Directory.SetSelf(user.ID)
		return sessionReadyMsg{user: *user, token: creds.AccessToken}
	}
}

func (m BootstrapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionReadyMsg:
		threads := NewThreadsModel(m.app)
		return threads, tea.Batch(
			m.app.connectCmd(msg.token),
			m.app.WaitForEvent(),
			threads.Init(),
		)

	case sessionFailedMsg:
		m.app.Store.Session.SetUnauthenticated(msg.reason)
		login := NewLoginModel(m.app)
		return login, login.Init()
	}

	return m, nil
}

func (m BootstrapModel) View() string {
	return fmt.Sprintf("\n  %s Signing in...\n", m.spinner.View())
}
