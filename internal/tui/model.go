package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/helpchat/internal/model/chat"
)

// Controller is the widget the terminal forwards its events to.
type Controller interface {
	TogglePanel(ctx context.Context)
	SubmitQuery(ctx context.Context, text string) bool
}

const (
	toggleKey = "ctrl+t"
	maxWidth  = 80
	// rows taken by the border, title, input and help line
	chromeHeight = 6
)

// Model renders the help launcher and, when shown, the chat panel.
type Model struct {
	ctx        context.Context
	controller Controller

	visible  bool
	messages []chat.Message

	log   viewport.Model
	input textinput.Model
	// clearedOnSubmit counts submissions whose input was already cleared
	// locally; the widget's matching ClearInput must not wipe newer typing.
	clearedOnSubmit int
	width           int
	height          int
}

// NewModel builds the terminal surface for controller. Widget calls are made
// from commands, never from Update, since the widget reports back through
// the running program.
func NewModel(ctx context.Context, controller Controller) Model {
	in := textinput.New()
	in.Placeholder = "Ask a cloud security question..."
	in.CharLimit = 2000
	in.Prompt = "> "

	m := Model{
		ctx:        ctx,
		controller: controller,
		log:        viewport.New(maxWidth-4, 10),
		input:      in,
		width:      maxWidth,
		height:     24,
	}
	m.resize()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Visible reports whether the panel is shown.
func (m Model) Visible() bool {
	return m.visible
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case panelMsg:
		m.visible = msg.visible
		if m.visible {
			return m, m.input.Focus()
		}
		m.input.Blur()
		return m, nil

	case appendMsg:
		m.messages = append(m.messages, msg.message)
		m.refreshLog()
		return m, nil

	case clearInputMsg:
		if m.clearedOnSubmit > 0 {
			m.clearedOnSubmit--
			return m, nil
		}
		m.input.SetValue("")
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case toggleKey:
		return m, m.toggle()
	}

	if !m.visible {
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, m.toggle()
	case "enter":
		cmd := m.submit(m.input.Value())
		if cmd != nil {
			m.input.SetValue("")
			m.clearedOnSubmit++
		}
		return m, cmd
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) toggle() tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		controller.TogglePanel(ctx)
		return nil
	}
}

func (m Model) submit(text string) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		controller.SubmitQuery(ctx, text)
		return nil
	}
}

func (m *Model) resize() {
	width := m.panelWidth()
	height := m.height - chromeHeight
	if height < 3 {
		height = 3
	}
	m.log.Width = width
	m.log.Height = height
	m.input.Width = width - 4
	m.refreshLog()
}

func (m Model) panelWidth() int {
	width := m.width - 4
	if width > maxWidth {
		width = maxWidth
	}
	if width < 20 {
		width = 20
	}
	return width
}

func (m *Model) refreshLog() {
	m.log.SetContent(renderMessages(m.messages, m.log.Width))
	m.log.GotoBottom()
}

func renderMessages(messages []chat.Message, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		var label, text string
		switch msg.Origin {
		case chat.Visitor:
			label = visitorStyle.Render("You")
			text = msg.Text
		default:
			label = botStyle.Render("Assistant")
			text = plainText(msg.Text)
		}
		blocks = append(blocks, label+"\n"+wrap.Render(text))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) View() string {
	if !m.visible {
		return launcherStyle.Render("? Help") + "  " +
			helpStyle.Render(toggleKey+": open chat • q: quit")
	}

	title := titleStyle.Render("CloudDefense.AI Assistant")
	input := inputStyle.Width(m.panelWidth()).Render(m.input.View())
	panel := containerStyle.Width(m.panelWidth() + 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, m.log.View(), input),
	)
	help := helpStyle.Render("enter: send • esc/" + toggleKey + ": close • pgup/pgdown: scroll • ctrl+c: quit")
	return panel + "\n" + help
}
