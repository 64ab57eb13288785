// Package ui is the terminal front end: a login page with an inline MFA code
// step, a registration page with authenticator enrollment, and an account
// page behind a session presence guard. Pages hold no authentication state
// of their own; they drive the flow package and render what it returns.
package ui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/flow"
	"github.com/cryptolearn/cryptolearn-tui/internal/session"
)

// Flows bundles the state machines the UI drives.
type Flows struct {
	Login   *flow.LoginFlow
	Enroll  *flow.EnrollmentFlow
	Account *flow.AccountController
	Guard   *flow.Guard
}

// App is the root Bubble Tea model. It owns routing and the guard check;
// everything page-specific lives in the page models.
type App struct {
	flows  Flows
	client *api.Client
	store  session.Store
	log    *slog.Logger

	route   route
	pending route

	login    loginPage
	register registerPage
	account  accountPage

	toast  toast
	width  int
	height int
}

// NewApp builds the root model.
func NewApp(client *api.Client, store session.Store, flows Flows, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		flows:    flows,
		client:   client,
		store:    store,
		log:      logger,
		route:    routeLoading,
		pending:  routeAccount,
		login:    newLoginPage(),
		register: newRegisterPage(),
		account:  newAccountPage(),
	}
}

// Init starts with a guard check so a stored session lands straight on the
// account page.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.checkGuard(), a.login.Init())
}

// checkGuard resolves the session presence check for the pending route.
func (a *App) checkGuard() tea.Cmd {
	guard := a.flows.Guard
	return func() tea.Msg {
		ok, err := guard.Authorized(context.Background())
		return guardCheckedMsg{authorized: ok, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "esc":
			a.toast.dismiss()
		}

	case toastExpiredMsg:
		a.toast.expire(msg)
		return a, nil

	case navigateMsg:
		return a.navigate(msg.to)

	case guardCheckedMsg:
		return a.guardResolved(msg)
	}

	return a.updatePage(msg)
}

// navigate switches pages. The account page is guarded: the check runs once
// per navigation and a loading view is shown until it resolves.
func (a *App) navigate(to route) (tea.Model, tea.Cmd) {
	if to == routeAccount {
		a.pending = routeAccount
		a.route = routeLoading
		return a, a.checkGuard()
	}

	a.route = to
	switch to {
	case routeLogin:
		a.login = newLoginPage()
		return a, a.login.Init()
	case routeRegister:
		a.register = newRegisterPage()
		return a, a.register.Init()
	}
	return a, nil
}

func (a *App) guardResolved(msg guardCheckedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.log.Error("session check failed", "err", msg.err)
		a.route = routeLogin
		a.login = newLoginPage()
		return a, tea.Batch(a.login.Init(), a.toast.show(toastError, "session storage unavailable"))
	}

	if !msg.authorized {
		a.route = routeLogin
		a.login = newLoginPage()
		return a, a.login.Init()
	}

	a.route = a.pending
	a.account = newAccountPage()
	return a, a.account.load(a)
}

// updatePage delegates to the active page model.
func (a *App) updatePage(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.route {
	case routeLogin:
		a.login, cmd = a.login.Update(msg, a)
	case routeRegister:
		a.register, cmd = a.register.Update(msg, a)
	case routeAccount:
		a.account, cmd = a.account.Update(msg, a)
	}
	return a, cmd
}

func (a *App) View() string {
	var body string
	switch a.route {
	case routeLoading:
		body = hintStyle.Render("checking session...")
	case routeLogin:
		body = a.login.View()
	case routeRegister:
		body = a.register.View()
	case routeAccount:
		body = a.account.View()
	}

	page := boxStyle.Render(body)
	if tv := a.toast.view(); tv != "" {
		page = lipgloss.JoinVertical(lipgloss.Left, page, tv)
	}
	if a.width == 0 {
		return page
	}
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, page)
}
