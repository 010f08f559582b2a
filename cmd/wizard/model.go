package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/secret-keeper/backend/internal/model/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/ai"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/wizard"
)

const (
	title       = "Secret Keeper 2.0"
	placeholder = "Type your message to the wizard..."

	headerHeight = 3
	footerHeight = 4
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7C3AED")).
			Padding(0, 1)
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DC2626")).
			Bold(true)
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#6366F1")).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	unlockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
)

type initDoneMsg struct{ err error }

type replyMsg struct {
	result wizard.Result
	err    error
}

type model struct {
	ctx        context.Context
	session    *wizard.Session
	provider   ai.Provider
	credential string

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	snap    chat.Session
	waiting bool
	pending string
	width   int
	height  int
}

func newModel(ctx context.Context, sess *wizard.Session, provider ai.Provider, credential string) model {
	if ctx == nil {
		ctx = context.Background()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "│ "
	ti.CharLimit = 4000
	ti.Width = 76

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	return model{
		ctx:        ctx,
		session:    sess,
		provider:   provider,
		credential: credential,
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		renderer:   renderer,
		snap:       sess.Snapshot(),
		waiting:    true,
		width:      80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initialize())
}

func (m model) initialize() tea.Cmd {
	return func() tea.Msg {
		return initDoneMsg{err: m.session.Initialize(m.ctx, m.provider, m.credential)}
	}
}

func (m model) submit(text string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.session.Submit(m.ctx, text)
		return replyMsg{result: result, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleEnter()
		}
		if m.waiting || !m.snap.CanSubmit {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 20)
		m.height = msg.Height
		m.viewport.Width = m.width - 2
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		m.input.Width = m.width - 4
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(m.width-8),
		)
		m.refresh()
		return m, nil

	case initDoneMsg:
		m.waiting = false
		m.snap = m.session.Snapshot()
		if m.snap.CanSubmit {
			m.input.Focus()
		}
		m.refresh()
		return m, nil

	case replyMsg:
		m.waiting = false
		m.pending = ""
		// 无论成功与否都清空输入框。
		m.input.Reset()
		m.snap = m.session.Snapshot()
		if m.snap.CanSubmit {
			m.input.Focus()
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) handleEnter() (tea.Model, tea.Cmd) {
	if m.waiting || !m.snap.CanSubmit {
		return m, nil
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	m.waiting = true
	m.pending = text
	m.input.Blur()
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.submit(text))
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m model) renderTranscript() string {
	var b strings.Builder
	for _, msg := range m.snap.Transcript {
		b.WriteString(m.renderMessage(msg.Role, msg.Content))
		b.WriteString("\n")
	}
	// 等待回复期间快照尚未刷新，待发送的消息单独渲染。
	if m.pending != "" {
		b.WriteString(m.renderMessage(chat.RoleUser, m.pending))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderMessage(role chat.Role, content string) string {
	if role == chat.RoleUser {
		line := userStyle.Render(content)
		return lipgloss.PlaceHorizontal(m.width-2, lipgloss.Right, line)
	}
	if m.renderer != nil {
		if out, err := m.renderer.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return content
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if m.snap.Banner != "" {
		b.WriteString(bannerStyle.Render("Error: " + m.snap.Banner))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.waiting:
		b.WriteString(m.spinner.View() + " " + statusStyle.Render("Sending..."))
	default:
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")

	status := "enter: send • esc/ctrl+c: quit"
	if m.snap.Reveal.Unlocked {
		b.WriteString(unlockStyle.Render("The wizard has spoken the password."))
		b.WriteString("  ")
	} else if m.snap.Reveal.HintDue {
		b.WriteString(statusStyle.Render("The wizard may offer a hint now."))
		b.WriteString("  ")
	}
	b.WriteString(statusStyle.Render(status))
	return b.String()
}
