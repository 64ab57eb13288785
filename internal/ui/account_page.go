package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/flow"
	"github.com/cryptolearn/cryptolearn-tui/internal/session"
)

// accountTab selects which pane of the account page is active.
type accountTab uint8

const (
	tabProfile accountTab = iota
	tabPassword
	tabSecurity
)

var tabNames = []string{"Profile", "Password", "Security"}

// tokenInfoMsg carries the decoded access token claims for display.
type tokenInfoMsg struct {
	info api.TokenInfo
	ok   bool
}

type accountPage struct {
	loaded bool
	busy   bool
	errMsg string
	okMsg  string

	tab     accountTab
	account domain.Account
	token   api.TokenInfo
	hasTok  bool

	username  textinput.Model
	email     textinput.Model
	password  textinput.Model
	confirm   textinput.Model
	focus     int
	methodSel int

	enrolling  bool
	material   domain.EnrollmentMaterial
	qr         string
	enrollCode textinput.Model
}

func newAccountPage() accountPage {
	username := textinput.New()
	username.CharLimit = 60

	email := textinput.New()
	email.CharLimit = 120

	password := textinput.New()
	password.Placeholder = "new password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 200

	confirm := textinput.New()
	confirm.Placeholder = "confirm new password"
	confirm.EchoMode = textinput.EchoPassword
	confirm.CharLimit = 200

	enrollCode := textinput.New()
	enrollCode.Placeholder = "6-digit code"
	enrollCode.CharLimit = 6

	return accountPage{
		username:   username,
		email:      email,
		password:   password,
		confirm:    confirm,
		enrollCode: enrollCode,
	}
}

// load fetches the account (served from cache after the first call) and
// decodes the stored access token for display.
func (p accountPage) load(a *App) tea.Cmd {
	controller := a.flows.Account
	store := a.store
	return tea.Batch(
		func() tea.Msg {
			acct, err := controller.Load(context.Background())
			return accountLoadedMsg{account: acct, err: err}
		},
		func() tea.Msg {
			sess, err := store.Get(context.Background())
			if err != nil {
				return tokenInfoMsg{}
			}
			info, err := api.PeekToken(sess.AccessToken)
			if err != nil {
				return tokenInfoMsg{}
			}
			return tokenInfoMsg{info: info, ok: true}
		},
	)
}

func (p accountPage) Update(msg tea.Msg, a *App) (accountPage, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return p.handleKey(msg, a)

	case accountLoadedMsg:
		return p.loadedAccount(msg, a)

	case tokenInfoMsg:
		p.token = msg.info
		p.hasTok = msg.ok
		return p, nil

	case accountUpdatedMsg:
		return p.updated(msg, a)

	case mfaChangedMsg:
		return p.mfaChanged(msg, a)

	case enrollVerifiedMsg:
		return p.enrollResolved(msg.err, a)

	case loggedOutMsg:
		if msg.err != nil {
			return p, a.toast.show(toastError, "sign out failed")
		}
		return p, func() tea.Msg { return navigateMsg{to: routeLogin} }
	}

	return p.updateInputs(msg)
}

func (p accountPage) handleKey(msg tea.KeyMsg, a *App) (accountPage, tea.Cmd) {
	switch msg.String() {
	case "ctrl+l":
		controller := a.flows.Account
		return p, func() tea.Msg {
			return loggedOutMsg{err: controller.Logout(context.Background())}
		}

	case "ctrl+t":
		if !p.enrolling {
			p.switchTab((p.tab + 1) % 3)
		}
		return p, nil

	case "enter":
		if p.busy || !p.loaded {
			return p, nil
		}
		return p.submit(a)

	case "tab", "down":
		p.cycleFocus(1)
		return p, nil

	case "shift+tab", "up":
		p.cycleFocus(-1)
		return p, nil

	case "left", "right":
		if p.tab == tabSecurity && !p.enrolling {
			n := len(methodChoices)
			if msg.String() == "right" {
				p.methodSel = (p.methodSel + 1) % n
			} else {
				p.methodSel = (p.methodSel + n - 1) % n
			}
			return p, nil
		}

	case "esc":
		if p.busy {
			return p, nil
		}
		if p.enrolling {
			a.flows.Enroll.Abandon()
			p.enrolling = false
			p.errMsg = ""
			return p, nil
		}
	}

	return p.updateInputs(msg)
}

func (p *accountPage) switchTab(tab accountTab) {
	p.tab = tab
	p.errMsg = ""
	p.okMsg = ""
	p.focus = 0
	p.syncFocus()
}

func (p *accountPage) cycleFocus(dir int) {
	var n int
	switch {
	case p.enrolling:
		return
	case p.tab == tabProfile, p.tab == tabPassword:
		n = 2
	default:
		return
	}
	p.focus = (p.focus + dir + n) % n
	p.syncFocus()
}

func (p *accountPage) syncFocus() {
	p.username.Blur()
	p.email.Blur()
	p.password.Blur()
	p.confirm.Blur()
	p.enrollCode.Blur()

	switch {
	case p.enrolling:
		p.enrollCode.Focus()
	case p.tab == tabProfile && p.focus == 0:
		p.username.Focus()
	case p.tab == tabProfile:
		p.email.Focus()
	case p.tab == tabPassword && p.focus == 0:
		p.password.Focus()
	case p.tab == tabPassword:
		p.confirm.Focus()
	}
}

func (p accountPage) submit(a *App) (accountPage, tea.Cmd) {
	if p.enrolling {
		return p.submitEnrollCode(a)
	}

	switch p.tab {
	case tabProfile:
		return p.submitProfile(a)
	case tabPassword:
		return p.submitPassword(a)
	case tabSecurity:
		return p.submitMethod(a)
	}
	return p, nil
}

func (p accountPage) submitProfile(a *App) (accountPage, tea.Cmd) {
	username := strings.TrimSpace(p.username.Value())
	email := strings.TrimSpace(p.email.Value())
	if username == "" || email == "" {
		p.errMsg = "username and email are required"
		return p, nil
	}

	// Only changed fields travel.
	var usernamePtr, emailPtr *string
	if username != p.account.Username {
		usernamePtr = &username
	}
	if email != p.account.Email {
		emailPtr = &email
	}
	if usernamePtr == nil && emailPtr == nil {
		p.okMsg = "nothing to save"
		return p, nil
	}

	p.busy = true
	p.errMsg = ""
	p.okMsg = ""
	controller := a.flows.Account
	return p, func() tea.Msg {
		acct, err := controller.UpdateProfile(context.Background(), usernamePtr, emailPtr)
		return accountUpdatedMsg{account: acct, err: err}
	}
}

func (p accountPage) submitPassword(a *App) (accountPage, tea.Cmd) {
	secret := p.password.Value()
	switch {
	case secret == "":
		p.errMsg = "enter a new password"
		return p, nil
	case secret != p.confirm.Value():
		p.errMsg = "passwords do not match"
		return p, nil
	}

	p.busy = true
	p.errMsg = ""
	p.okMsg = ""
	controller := a.flows.Account
	return p, func() tea.Msg {
		acct, err := controller.UpdatePassword(context.Background(), secret)
		return accountUpdatedMsg{account: acct, err: err}
	}
}

func (p accountPage) submitMethod(a *App) (accountPage, tea.Cmd) {
	method := methodChoices[p.methodSel]
	if p.account.MFAMethod == method {
		p.okMsg = "already using " + methodLabel(method)
		return p, nil
	}

	p.busy = true
	p.errMsg = ""
	p.okMsg = ""
	controller := a.flows.Account
	return p, func() tea.Msg {
		material, err := controller.UpdateMFA(context.Background(), method)
		return mfaChangedMsg{material: material, err: err}
	}
}

func (p accountPage) submitEnrollCode(a *App) (accountPage, tea.Cmd) {
	p.busy = true
	p.errMsg = ""
	code := strings.TrimSpace(p.enrollCode.Value())
	enroll := a.flows.Enroll
	return p, func() tea.Msg {
		return enrollVerifiedMsg{err: enroll.Verify(context.Background(), code)}
	}
}

func (p accountPage) loadedAccount(msg accountLoadedMsg, a *App) (accountPage, tea.Cmd) {
	if msg.err != nil {
		return p.authFailure(msg.err, a)
	}

	p.loaded = true
	p.account = msg.account
	p.username.SetValue(msg.account.Username)
	p.email.SetValue(msg.account.Email)
	p.methodSel = methodIndex(msg.account.MFAMethod)
	p.syncFocus()
	return p, nil
}

func (p accountPage) updated(msg accountUpdatedMsg, a *App) (accountPage, tea.Cmd) {
	p.busy = false

	if msg.err != nil {
		return p.mutationFailure(msg.err, a)
	}

	p.account = msg.account
	p.username.SetValue(msg.account.Username)
	p.email.SetValue(msg.account.Email)
	p.password.SetValue("")
	p.confirm.SetValue("")
	p.okMsg = "saved"
	return p, nil
}

func (p accountPage) mfaChanged(msg mfaChangedMsg, a *App) (accountPage, tea.Cmd) {
	p.busy = false

	if msg.err != nil {
		return p.mutationFailure(msg.err, a)
	}

	if acct, ok := a.flows.Account.Cached(); ok {
		p.account = acct
		p.methodSel = methodIndex(acct.MFAMethod)
	}

	if msg.material == nil {
		p.okMsg = "two-factor method updated"
		return p, nil
	}

	a.flows.Enroll.Begin(*msg.material)
	p.enrolling = true
	p.material = *msg.material
	p.enrollCode.SetValue("")
	p.syncFocus()
	if qr, err := renderQR(msg.material.ProvisioningURI); err == nil {
		p.qr = qr
	} else {
		a.log.Warn("qr render failed", "err", err)
		p.qr = ""
	}
	return p, nil
}

func (p accountPage) enrollResolved(err error, a *App) (accountPage, tea.Cmd) {
	p.busy = false

	if err != nil {
		switch {
		case errors.Is(err, flow.ErrStale), errors.Is(err, flow.ErrBusy):
			// Result of an abandoned or duplicate call; nothing to show.
		case api.IsTransport(err):
			p.errMsg = "service unreachable, try again"
		default:
			p.errMsg = "wrong code, try again"
		}
		p.enrollCode.SetValue("")
		return p, nil
	}

	p.enrolling = false
	p.okMsg = "authenticator enrolled"
	a.flows.Account.Invalidate()
	return p, tea.Batch(
		a.toast.show(toastSuccess, "authenticator enrolled"),
		p.load(a),
	)
}

// mutationFailure maps an update error. A refused token means the session is
// already cleared; anything else is shown inline.
func (p accountPage) mutationFailure(err error, a *App) (accountPage, tea.Cmd) {
	if api.IsUnauthorized(err) {
		return p.authFailure(err, a)
	}

	var (
		vErr   *api.ValidationError
		apiErr *api.APIError
	)
	switch {
	case errors.Is(err, session.ErrNoSession):
		return p.authFailure(err, a)
	case api.IsTransport(err):
		p.errMsg = "service unreachable, try again"
	case errors.As(err, &vErr):
		p.errMsg = fmt.Sprintf("%s %s", vErr.Field, vErr.Reason)
	case errors.As(err, &apiErr) && apiErr.Message != "":
		p.errMsg = apiErr.Message
	default:
		p.errMsg = err.Error()
	}
	return p, nil
}

func (p accountPage) authFailure(err error, a *App) (accountPage, tea.Cmd) {
	a.log.Info("account page lost its session", "err", err)
	return p, tea.Batch(
		a.toast.show(toastError, "session expired, sign in again"),
		func() tea.Msg { return navigateMsg{to: routeLogin} },
	)
}

func (p accountPage) updateInputs(msg tea.Msg) (accountPage, tea.Cmd) {
	var cmd tea.Cmd
	if p.enrolling {
		p.enrollCode, cmd = p.enrollCode.Update(msg)
		return p, cmd
	}

	var cmds []tea.Cmd
	for _, in := range []*textinput.Model{&p.username, &p.email, &p.password, &p.confirm} {
		*in, cmd = in.Update(msg)
		cmds = append(cmds, cmd)
	}
	return p, tea.Batch(cmds...)
}

func methodIndex(m domain.Method) int {
	for i, c := range methodChoices {
		if c == m {
			return i
		}
	}
	return 0
}

func (p accountPage) View() string {
	if !p.loaded {
		return hintStyle.Render("loading account...")
	}
	if p.enrolling {
		return p.viewEnroll()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("CryptoLearn · Account"))
	b.WriteString("\n")

	var tabs []string
	for i, name := range tabNames {
		if accountTab(i) == p.tab {
			tabs = append(tabs, selectedStyle.Render("["+name+"]"))
		} else {
			tabs = append(tabs, labelStyle.Render(" "+name+" "))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	switch p.tab {
	case tabProfile:
		b.WriteString(labelStyle.Render("Username"))
		b.WriteString("\n")
		b.WriteString(p.username.View())
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Email"))
		b.WriteString("\n")
		b.WriteString(p.email.View())

	case tabPassword:
		b.WriteString(p.password.View())
		b.WriteString("\n")
		b.WriteString(p.confirm.View())

	case tabSecurity:
		status := "disabled"
		if p.account.MFAEnabled {
			status = "enabled, " + methodLabel(p.account.MFAMethod)
		}
		b.WriteString(labelStyle.Render("Two-factor: "))
		b.WriteString(valueStyle.Render(status))
		b.WriteString("\n\n")
		var choices []string
		for i, m := range methodChoices {
			label := methodLabel(m)
			if i == p.methodSel {
				label = selectedStyle.Render("[" + label + "]")
			} else {
				label = valueStyle.Render(" " + label + " ")
			}
			choices = append(choices, label)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, choices...))
		if p.hasTok {
			b.WriteString("\n\n")
			b.WriteString(hintStyle.Render(fmt.Sprintf(
				"session for %s expires %s",
				p.token.Subject,
				p.token.ExpiresAt.Local().Format(time.Kitchen),
			)))
		}
	}

	if p.busy {
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("saving..."))
	}
	if p.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(p.errMsg))
	}
	if p.okMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(successStyle.Render(p.okMsg))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter save · ctrl+t switch tab · ctrl+l sign out · ctrl+c quit"))
	return b.String()
}

func (p accountPage) viewEnroll() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CryptoLearn · Set up your authenticator"))
	b.WriteString("\n")
	b.WriteString(valueStyle.Render("Scan the QR code, or enter the secret manually."))
	b.WriteString("\n\n")
	if label := provisioningLabel(p.material.ProvisioningURI); label != "" {
		b.WriteString(labelStyle.Render("Authenticator entry: "))
		b.WriteString(valueStyle.Render(label))
		b.WriteString("\n")
	}
	if p.qr != "" {
		b.WriteString(p.qr)
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render("Secret: "))
	b.WriteString(secretStyle.Render(p.material.Secret))
	b.WriteString("\n\n")
	b.WriteString(p.enrollCode.View())

	if p.busy {
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("verifying..."))
	}
	if p.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(p.errMsg))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter verify · esc cancel"))
	return b.String()
}
