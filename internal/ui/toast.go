package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// toastKind selects the toast colour.
type toastKind uint8

const (
	toastInfo toastKind = iota
	toastError
	toastSuccess
)

const (
	infoToastDuration  = 4 * time.Second
	errorToastDuration = 8 * time.Second
)

// toastExpiredMsg dismisses a toast by id. Stale expiries for replaced
// toasts are ignored.
type toastExpiredMsg struct{ id int }

// toast is a transient one-line notification rendered under the active page.
// It never blocks input.
type toast struct {
	id      int
	message string
	kind    toastKind
	visible bool
}

func (t *toast) show(kind toastKind, message string) tea.Cmd {
	t.id++
	t.message = message
	t.kind = kind
	t.visible = true

	id := t.id
	d := infoToastDuration
	if kind == toastError {
		d = errorToastDuration
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (t *toast) expire(msg toastExpiredMsg) {
	if msg.id == t.id {
		t.visible = false
	}
}

func (t *toast) dismiss() {
	t.visible = false
}

func (t *toast) view() string {
	if !t.visible {
		return ""
	}
	var style lipgloss.Style
	switch t.kind {
	case toastError:
		style = errorStyle
	case toastSuccess:
		style = successStyle
	default:
		style = hintStyle
	}
	return style.Render(t.message)
}
