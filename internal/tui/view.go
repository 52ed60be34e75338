package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/helpchat/internal/model/chat"
)

type panelMsg struct{ visible bool }

type appendMsg struct{ message chat.Message }

type clearInputMsg struct{}

// ProgramView forwards widget updates into a running bubbletea program. It
// must be attached before the widget receives its first event.
type ProgramView struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewProgramView returns a view that drops updates until attached.
func NewProgramView() *ProgramView {
	return &ProgramView{}
}

// Attach routes updates to send, usually (*tea.Program).Send.
func (v *ProgramView) Attach(send func(tea.Msg)) {
	v.mu.Lock()
	v.send = send
	v.mu.Unlock()
}

func (v *ProgramView) SetPanelVisible(visible bool) {
	v.dispatch(panelMsg{visible: visible})
}

func (v *ProgramView) AppendMessage(message chat.Message) {
	v.dispatch(appendMsg{message: message})
}

func (v *ProgramView) ClearInput() {
	v.dispatch(clearInputMsg{})
}

func (v *ProgramView) dispatch(msg tea.Msg) {
	v.mu.RLock()
	send := v.send
	v.mu.RUnlock()

	if send != nil {
		send(msg)
	}
}
