package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cryptolearn/cryptolearn-tui/internal/api"
	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
	"github.com/cryptolearn/cryptolearn-tui/internal/flow"
)

// loginPhase splits the page between the credential form and the inline
// one-time code prompt.
type loginPhase uint8

const (
	phaseCredentials loginPhase = iota
	phaseCode
)

type loginPage struct {
	phase  loginPhase
	busy   bool
	errMsg string

	identifier textinput.Model
	secret     textinput.Model
	code       textinput.Model
	focus      int

	challenge domain.PendingChallenge
	otpHint   string
}

func newLoginPage() loginPage {
	identifier := textinput.New()
	identifier.Placeholder = "username or email"
	identifier.CharLimit = 120
	identifier.Focus()

	secret := textinput.New()
	secret.Placeholder = "password"
	secret.EchoMode = textinput.EchoPassword
	secret.CharLimit = 200

	code := textinput.New()
	code.Placeholder = "6-digit code"
	code.CharLimit = 6

	return loginPage{
		identifier: identifier,
		secret:     secret,
		code:       code,
	}
}

func (p loginPage) Init() tea.Cmd {
	return textinput.Blink
}

func (p loginPage) Update(msg tea.Msg, a *App) (loginPage, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return p.handleKey(msg, a)

	case loginOutcomeMsg:
		return p.outcomeResolved(msg.outcome, msg.err, a)

	case verifyOutcomeMsg:
		return p.outcomeResolved(msg.outcome, msg.err, a)
	}

	return p.updateInputs(msg)
}

func (p loginPage) handleKey(msg tea.KeyMsg, a *App) (loginPage, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if p.busy {
			return p, nil
		}
		if p.phase == phaseCode {
			return p.submitCode(a)
		}
		return p.submitCredentials(a)

	case "tab", "shift+tab", "up", "down":
		if p.phase == phaseCredentials {
			p.cycleFocus(msg.String())
		}
		return p, nil

	case "esc":
		if p.phase == phaseCode {
			// Back to credentials; the attempt is abandoned outright.
			a.flows.Login.Abandon()
			p.phase = phaseCredentials
			p.errMsg = ""
			p.code.SetValue("")
			p.identifier.Focus()
			p.focus = 0
			return p, nil
		}

	case "ctrl+r":
		return p, func() tea.Msg { return navigateMsg{to: routeRegister} }
	}

	return p.updateInputs(msg)
}

func (p *loginPage) cycleFocus(string) {
	// Two fields, so forward and backward are the same hop.
	p.focus = (p.focus + 1) % 2
	if p.focus == 0 {
		p.identifier.Focus()
		p.secret.Blur()
	} else {
		p.identifier.Blur()
		p.secret.Focus()
	}
}

func (p loginPage) submitCredentials(a *App) (loginPage, tea.Cmd) {
	p.busy = true
	p.errMsg = ""
	identifier := strings.TrimSpace(p.identifier.Value())
	secret := p.secret.Value()
	login := a.flows.Login
	return p, func() tea.Msg {
		out, err := login.Submit(context.Background(), identifier, secret)
		return loginOutcomeMsg{outcome: out, err: err}
	}
}

func (p loginPage) submitCode(a *App) (loginPage, tea.Cmd) {
	p.busy = true
	p.errMsg = ""
	code := strings.TrimSpace(p.code.Value())
	login := a.flows.Login
	return p, func() tea.Msg {
		out, err := login.SubmitCode(context.Background(), code)
		return verifyOutcomeMsg{outcome: out, err: err}
	}
}

func (p loginPage) outcomeResolved(out flow.Outcome, err error, _ *App) (loginPage, tea.Cmd) {
	p.busy = false

	if err != nil {
		var vErr *api.ValidationError
		switch {
		case errors.Is(err, flow.ErrStale), errors.Is(err, flow.ErrBusy):
			// An abandoned attempt resolved late, or a submit raced one
			// already in flight; nothing to show.
			return p, nil
		case errors.As(err, &vErr):
			p.errMsg = fmt.Sprintf("%s %s", vErr.Field, vErr.Reason)
		case api.IsTransport(err):
			p.errMsg = "service unreachable, try again"
		default:
			p.errMsg = err.Error()
		}
		return p, nil
	}

	switch out := out.(type) {
	case flow.Authenticated:
		return p, func() tea.Msg { return navigateMsg{to: routeAccount} }

	case flow.ChallengeRequired:
		p.phase = phaseCode
		p.challenge = out.Challenge
		p.otpHint = out.OTPHint
		p.code.SetValue("")
		p.code.Focus()
		return p, nil

	case flow.Rejected:
		switch out.Reason {
		case flow.ReasonCredentials:
			p.errMsg = "invalid credentials"
		case flow.ReasonCode:
			p.errMsg = "wrong code, try again"
			p.code.SetValue("")
		case flow.ReasonCodeExpired:
			p.errMsg = "code expired, sign in again"
			p.phase = phaseCredentials
			p.code.SetValue("")
			p.identifier.Focus()
			p.focus = 0
		case flow.ReasonTransport:
			p.errMsg = "service unreachable, try again"
		}
		return p, nil
	}

	return p, nil
}

func (p loginPage) updateInputs(msg tea.Msg) (loginPage, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if p.phase == phaseCode {
		p.code, cmd = p.code.Update(msg)
		return p, cmd
	}
	p.identifier, cmd = p.identifier.Update(msg)
	cmds = append(cmds, cmd)
	p.secret, cmd = p.secret.Update(msg)
	cmds = append(cmds, cmd)
	return p, tea.Batch(cmds...)
}

func (p loginPage) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CryptoLearn · Sign in"))
	b.WriteString("\n")

	if p.phase == phaseCode {
		switch p.challenge.Method {
		case domain.MethodTOTP:
			b.WriteString(valueStyle.Render("Enter the code from your authenticator app."))
		case domain.MethodEmailOTP:
			b.WriteString(valueStyle.Render("Enter the code we emailed you."))
		}
		b.WriteString("\n\n")
		b.WriteString(p.code.View())
		if p.otpHint != "" {
			b.WriteString("\n")
			b.WriteString(hintStyle.Render(fmt.Sprintf("dev code: %s", p.otpHint)))
		}
	} else {
		b.WriteString(labelStyle.Render("Identifier"))
		b.WriteString("\n")
		b.WriteString(p.identifier.View())
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Password"))
		b.WriteString("\n")
		b.WriteString(p.secret.View())
	}

	if p.busy {
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("verifying..."))
	}
	if p.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(p.errMsg))
	}

	b.WriteString("\n")
	if p.phase == phaseCode {
		b.WriteString(helpStyle.Render("enter submit · esc back · ctrl+c quit"))
	} else {
		b.WriteString(helpStyle.Render("enter sign in · tab next field · ctrl+r register · ctrl+c quit"))
	}
	return b.String()
}
