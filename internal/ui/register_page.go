package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/flow"
)

// registerPhase splits the page between the account form and the
// authenticator enrollment step that follows a TOTP registration.
type registerPhase uint8

const (
	phaseForm registerPhase = iota
	phaseEnroll
)

// methodChoices is the selection order in the form.
var methodChoices = []domain.Method{domain.MethodNone, domain.MethodTOTP, domain.MethodEmailOTP}

func methodLabel(m domain.Method) string {
	switch m {
	case domain.MethodTOTP:
		return "authenticator app"
	case domain.MethodEmailOTP:
		return "email codes"
	default:
		return "none"
	}
}

type registerPage struct {
	phase  registerPhase
	busy   bool
	errMsg string

	username textinput.Model
	email    textinput.Model
	secret   textinput.Model
	confirm  textinput.Model
	focus    int
	method   int

	qr       string
	material domain.EnrollmentMaterial
	code     textinput.Model
}

func newRegisterPage() registerPage {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 60
	username.Focus()

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 120

	secret := textinput.New()
	secret.Placeholder = "password"
	secret.EchoMode = textinput.EchoPassword
	secret.CharLimit = 200

	confirm := textinput.New()
	confirm.Placeholder = "confirm password"
	confirm.EchoMode = textinput.EchoPassword
	confirm.CharLimit = 200

	code := textinput.New()
	code.Placeholder = "6-digit code"
	code.CharLimit = 6

	return registerPage{
		username: username,
		email:    email,
		secret:   secret,
		confirm:  confirm,
		code:     code,
	}
}

func (p registerPage) Init() tea.Cmd {
	return textinput.Blink
}

func (p registerPage) Update(msg tea.Msg, a *App) (registerPage, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return p.handleKey(msg, a)

	case registerDoneMsg:
		return p.registered(msg, a)

	case enrollVerifiedMsg:
		return p.enrollResolved(msg.err, a)
	}

	return p.updateInputs(msg)
}

func (p registerPage) handleKey(msg tea.KeyMsg, a *App) (registerPage, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if p.busy {
			return p, nil
		}
		if p.phase == phaseEnroll {
			return p.submitEnrollCode(a)
		}
		return p.submitForm(a)

	case "tab", "down":
		if p.phase == phaseForm {
			p.setFocus((p.focus + 1) % 5)
		}
		return p, nil

	case "shift+tab", "up":
		if p.phase == phaseForm {
			p.setFocus((p.focus + 4) % 5)
		}
		return p, nil

	case "left", "right":
		if p.phase == phaseForm && p.focus == 4 {
			if msg.String() == "right" {
				p.method = (p.method + 1) % len(methodChoices)
			} else {
				p.method = (p.method + len(methodChoices) - 1) % len(methodChoices)
			}
			return p, nil
		}

	case "esc":
		if p.busy {
			return p, nil
		}
		if p.phase == phaseEnroll {
			// The account exists with enrollment pending; the server keeps
			// that state and the user can finish from a fresh sign-in.
			a.flows.Enroll.Abandon()
		}
		return p, func() tea.Msg { return navigateMsg{to: routeLogin} }
	}

	return p.updateInputs(msg)
}

func (p *registerPage) setFocus(focus int) {
	p.focus = focus
	inputs := []*textinput.Model{&p.username, &p.email, &p.secret, &p.confirm}
	for i, in := range inputs {
		if i == focus {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

func (p registerPage) submitForm(a *App) (registerPage, tea.Cmd) {
	username := strings.TrimSpace(p.username.Value())
	email := strings.TrimSpace(p.email.Value())
	secret := p.secret.Value()

	switch {
	case username == "" || email == "" || secret == "":
		p.errMsg = "all fields are required"
		return p, nil
	case secret != p.confirm.Value():
		p.errMsg = "passwords do not match"
		return p, nil
	}

	p.busy = true
	p.errMsg = ""
	params := api.RegisterParams{
		Username: username,
		Email:    email,
		Secret:   secret,
		Method:   methodChoices[p.method],
	}
	client := a.client
	return p, func() tea.Msg {
		result, err := client.Register(context.Background(), params)
		if err != nil {
			return registerDoneMsg{err: err}
		}
		return registerDoneMsg{account: result.Account, enrollment: result.Enrollment}
	}
}

func (p registerPage) registered(msg registerDoneMsg, a *App) (registerPage, tea.Cmd) {
	p.busy = false

	if msg.err != nil {
		var apiErr *api.APIError
		switch {
		case api.IsTransport(msg.err):
			p.errMsg = "service unreachable, try again"
		case errors.As(msg.err, &apiErr) && apiErr.Message != "":
			p.errMsg = apiErr.Message
		default:
			p.errMsg = msg.err.Error()
		}
		return p, nil
	}

	if msg.enrollment == nil {
		return p, tea.Batch(
			a.toast.show(toastSuccess, "account created, sign in"),
			func() tea.Msg { return navigateMsg{to: routeLogin} },
		)
	}

	a.flows.Enroll.Begin(*msg.enrollment)
	p.phase = phaseEnroll
	p.material = *msg.enrollment
	p.errMsg = ""
	p.code.SetValue("")
	p.code.Focus()

	// QR rendering is best effort; the secret is always shown for manual
	// entry regardless.
	if qr, err := renderQR(msg.enrollment.ProvisioningURI); err == nil {
		p.qr = qr
	} else {
		a.log.Warn("qr render failed", "err", err)
		p.qr = ""
	}
	return p, nil
}

func (p registerPage) submitEnrollCode(a *App) (registerPage, tea.Cmd) {
	p.busy = true
	p.errMsg = ""
	code := strings.TrimSpace(p.code.Value())
	enroll := a.flows.Enroll
	return p, func() tea.Msg {
		return enrollVerifiedMsg{err: enroll.Verify(context.Background(), code)}
	}
}

func (p registerPage) enrollResolved(err error, a *App) (registerPage, tea.Cmd) {
	p.busy = false

	if err != nil {
		var vErr *api.ValidationError
		switch {
		case errors.Is(err, flow.ErrStale), errors.Is(err, flow.ErrBusy):
			// Result of an abandoned or duplicate call; nothing to show.
		case api.IsTransport(err):
			p.errMsg = "service unreachable, try again"
		case errors.As(err, &vErr):
			p.errMsg = "enter the 6-digit code from your app"
		default:
			p.errMsg = "wrong code, try again"
		}
		p.code.SetValue("")
		return p, nil
	}

	return p, tea.Batch(
		a.toast.show(toastSuccess, "authenticator enrolled, sign in"),
		func() tea.Msg { return navigateMsg{to: routeLogin} },
	)
}

func (p registerPage) updateInputs(msg tea.Msg) (registerPage, tea.Cmd) {
	var cmd tea.Cmd
	if p.phase == phaseEnroll {
		p.code, cmd = p.code.Update(msg)
		return p, cmd
	}

	var cmds []tea.Cmd
	for _, in := range []*textinput.Model{&p.username, &p.email, &p.secret, &p.confirm} {
		*in, cmd = in.Update(msg)
		cmds = append(cmds, cmd)
	}
	return p, tea.Batch(cmds...)
}

func (p registerPage) View() string {
	if p.phase == phaseEnroll {
		return p.viewEnroll()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("CryptoLearn · Create account"))
	b.WriteString("\n")

	fields := []struct {
		label string
		input textinput.Model
	}{
		{"Username", p.username},
		{"Email", p.email},
		{"Password", p.secret},
		{"Confirm", p.confirm},
	}
	for _, f := range fields {
		b.WriteString(labelStyle.Render(f.label))
		b.WriteString("\n")
		b.WriteString(f.input.View())
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render("Two-factor method"))
	b.WriteString("\n")
	var choices []string
	for i, m := range methodChoices {
		label := methodLabel(m)
		if i == p.method {
			label = selectedStyle.Render("[" + label + "]")
		} else {
			label = valueStyle.Render(" " + label + " ")
		}
		choices = append(choices, label)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, choices...))

	if p.busy {
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("creating account..."))
	}
	if p.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(p.errMsg))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter create · tab next field · ←/→ pick method · esc back to sign in"))
	return b.String()
}

func (p registerPage) viewEnroll() string {
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
	b.WriteString(labelStyle.Render("Then confirm with a code from the app:"))
	b.WriteString("\n")
	b.WriteString(p.code.View())

	if p.busy {
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("verifying..."))
	}
	if p.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(p.errMsg))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter verify · esc finish later"))
	return b.String()
}
