package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Peppe37/mask/internal/app"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusChat
	focusSessions
)

type stateMsg struct{}
type spinMsg struct{}

type sendDoneMsg struct{ err error }
type selectDoneMsg struct{ err error }
type sessionOpMsg struct {
	note string
	err  error
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Model is the chat screen: a session sidebar, the conversation viewport and
// the input box. All conversation state lives in the engine; the model only
// holds snapshots and re-reads them whenever the engine signals a change.
type Model struct {
	app   *app.Application
	theme Theme
	help  helpModel

	width  int
	height int
	ready  bool

	focus focusArea

	input  textarea.Model
	chatVP viewport.Model

	messages   []app.Message
	sessions   []app.ChatSession
	sessionSel int
	sessionOff int

	projectFilter string

	history     []string
	historyPos  int
	historyPath string
	draft       string

	sending    bool
	statusText string
	errText    string
	spinnerPos int

	notifyCh chan struct{}
}

func New(application *app.Application) *Model {
	ta := textarea.New()
	ta.Placeholder = "Message mask... Enter sends, Tab switches focus."
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false

	// Keep textarea styling minimal; the container box carries the border.
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()

	historyPath := app.DefaultHistoryPath()
	history, _ := app.LoadPromptHistory(historyPath)

	m := &Model{
		app:         application,
		theme:       NewTheme(),
		help:        newHelpModel(),
		width:       100,
		height:      30,
		focus:       focusInput,
		input:       ta,
		history:     history,
		historyPos:  len(history),
		historyPath: historyPath,
		notifyCh:    make(chan struct{}, 1),
	}

	application.Controller.SetNotify(func() {
		select {
		case m.notifyCh <- struct{}{}:
		default:
		}
	})

	m.refreshSessions()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitState())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(m.width)

		layout := m.computeLayout()
		if !m.ready {
			m.chatVP = viewport.New(layout.ChatW, layout.ChatH)
			m.chatVP.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.chatVP.Width = layout.ChatW
			m.chatVP.Height = layout.ChatH
		}
		m.input.SetWidth(maxInt(10, layout.InputW))
		m.updateChatViewport()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.help.keys.Quit):
			m.saveHistory()
			return m, tea.Quit

		case key.Matches(msg, m.help.keys.FocusNext):
			m.cycleFocus()
			return m, nil

		case key.Matches(msg, m.help.keys.NewChat):
			m.app.Controller.NewSession()
			m.errText = ""
			m.input.Focus()
			m.focus = focusInput
			return m, nil

		case key.Matches(msg, m.help.keys.CycleProject):
			m.cycleProjectFilter()
			return m, nil

		case key.Matches(msg, m.help.keys.DeleteSession):
			if m.focus == focusSessions {
				return m, m.deleteSelected()
			}
			return m, nil

		case key.Matches(msg, m.help.keys.Enter):
			switch m.focus {
			case focusSessions:
				return m, m.openSelected()
			case focusInput:
				return m, m.onEnter()
			}
			return m, nil

		case msg.Type == tea.KeyUp:
			switch m.focus {
			case focusChat:
				m.chatVP.LineUp(1)
				return m, nil
			case focusSessions:
				m.moveSession(-1)
				return m, nil
			case focusInput:
				if m.recallHistory(-1) {
					return m, nil
				}
			}
		case msg.Type == tea.KeyDown:
			switch m.focus {
			case focusChat:
				m.chatVP.LineDown(1)
				return m, nil
			case focusSessions:
				m.moveSession(1)
				return m, nil
			case focusInput:
				if m.recallHistory(1) {
					return m, nil
				}
			}
		case msg.Type == tea.KeyPgUp:
			m.chatVP.ViewUp()
			return m, nil
		case msg.Type == tea.KeyPgDown:
			m.chatVP.ViewDown()
			return m, nil
		}

	case stateMsg:
		m.syncFromEngine()
		cmds = append(cmds, m.waitState())
		return m, tea.Batch(cmds...)

	case sendDoneMsg:
		m.sending = false
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		m.syncFromEngine()
		return m, nil

	case selectDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else {
			m.errText = ""
		}
		m.syncFromEngine()
		return m, nil

	case sessionOpMsg:
		m.syncFromEngine()
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else if msg.note != "" {
			m.errText = ""
			m.statusText = msg.note
		}
		return m, nil

	case spinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if m.sending {
			return m, m.spinTick()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if !m.ready {
		return "…"
	}
	layout := m.computeLayout()
	top := m.renderTopBar()
	main := m.renderMain(layout)
	status := m.renderStatusLine()
	input := m.renderInputArea(layout)
	footer := m.renderFooter()
	return lipgloss.JoinVertical(lipgloss.Left, top, main, status, input, footer)
}

// --- commands ---

func (m *Model) waitState() tea.Cmd {
	ch := m.notifyCh
	return func() tea.Msg {
		<-ch
		return stateMsg{}
	}
}

func (m *Model) onEnter() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return nil
	}
	if m.sending {
		// The engine ignores sends while an exchange runs; keep the draft.
		return nil
	}

	m.history = append(m.history, val)
	m.historyPos = len(m.history)
	m.saveHistory()

	m.input.Reset()
	m.draft = ""
	m.sending = true
	m.errText = ""
	m.spinnerPos = 0

	ctrl := m.app.Controller
	return tea.Batch(
		func() tea.Msg { return sendDoneMsg{err: ctrl.SendMessage(context.Background(), val)} },
		m.spinTick(),
	)
}

func (m *Model) openSelected() tea.Cmd {
	if m.sessionSel < 0 || m.sessionSel >= len(m.sessions) {
		return nil
	}
	id := m.sessions[m.sessionSel].ID
	ctrl := m.app.Controller
	timeout := m.app.Config.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return selectDoneMsg{err: ctrl.SelectSession(ctx, id)}
	}
}

func (m *Model) deleteSelected() tea.Cmd {
	if m.sessionSel < 0 || m.sessionSel >= len(m.sessions) {
		return nil
	}
	sess := m.sessions[m.sessionSel]
	store := m.app.Sessions
	timeout := m.app.Config.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := store.Delete(ctx, sess.ID); err != nil {
			return sessionOpMsg{err: err}
		}
		return sessionOpMsg{note: fmt.Sprintf("deleted %q", sess.Title)}
	}
}

func (m *Model) spinTick() tea.Cmd {
	d := 90 * time.Millisecond
	if os.Getenv("MASK_REDUCE_MOTION") == "1" {
		d = 250 * time.Millisecond
	}
	return tea.Tick(d, func(_ time.Time) tea.Msg { return spinMsg{} })
}

// --- state ---

func (m *Model) syncFromEngine() {
	m.messages = m.app.Controller.Messages()
	m.statusText = m.app.Controller.Status()
	wasSending := m.sending
	m.sending = m.app.Controller.Loading()
	m.refreshSessions()
	m.updateChatViewport()
	if m.sending || wasSending {
		m.chatVP.GotoBottom()
	}
}

func (m *Model) refreshSessions() {
	all := m.app.Sessions.List()
	if m.projectFilter != "" {
		all = m.app.Projects.SessionsIn(m.projectFilter, all)
	}
	m.sessions = all
	if m.sessionSel >= len(m.sessions) {
		m.sessionSel = len(m.sessions) - 1
	}
	if m.sessionSel < 0 {
		m.sessionSel = 0
	}
	m.normalizeSessionScroll()
}

func (m *Model) cycleFocus() {
	next := m.focus + 1
	if next > focusSessions {
		next = focusInput
	}
	if next == focusSessions && !m.sidebarVisible() {
		next = focusInput
	}
	m.focus = next
	if m.focus == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// cycleProjectFilter walks all → each project → all. The filter doubles as
// the active project: sessions created while it is set land in that project
// and its summary is refreshed after each exchange.
func (m *Model) cycleProjectFilter() {
	projects := m.app.Projects.List()
	if len(projects) == 0 {
		return
	}
	next := ""
	if m.projectFilter == "" {
		next = projects[0].ID
	} else {
		for i := range projects {
			if projects[i].ID == m.projectFilter && i+1 < len(projects) {
				next = projects[i+1].ID
				break
			}
		}
	}
	m.projectFilter = next
	m.app.Projects.SetActive(next)
	m.sessionSel = 0
	m.sessionOff = 0
	m.refreshSessions()
}

func (m *Model) moveSession(delta int) {
	if len(m.sessions) == 0 {
		return
	}
	m.sessionSel += delta
	if m.sessionSel < 0 {
		m.sessionSel = 0
	}
	if m.sessionSel >= len(m.sessions) {
		m.sessionSel = len(m.sessions) - 1
	}
	m.normalizeSessionScroll()
}

func (m *Model) normalizeSessionScroll() {
	visible := m.sessionListHeight()
	if visible <= 0 {
		visible = 1
	}
	if m.sessionSel < m.sessionOff {
		m.sessionOff = m.sessionSel
	}
	if m.sessionSel >= m.sessionOff+visible {
		m.sessionOff = m.sessionSel - visible + 1
	}
	if m.sessionOff < 0 {
		m.sessionOff = 0
	}
	maxOff := len(m.sessions) - visible
	if maxOff < 0 {
		maxOff = 0
	}
	if m.sessionOff > maxOff {
		m.sessionOff = maxOff
	}
}

// recallHistory steps through saved prompts; returns false when the key
// should fall through to the textarea (multi-line editing).
func (m *Model) recallHistory(delta int) bool {
	if len(m.history) == 0 || strings.Contains(m.input.Value(), "\n") {
		return false
	}
	pos := m.historyPos + delta
	if pos < 0 {
		return true
	}
	if m.historyPos == len(m.history) && delta < 0 {
		m.draft = m.input.Value()
	}
	if pos >= len(m.history) {
		m.historyPos = len(m.history)
		m.input.SetValue(m.draft)
		m.input.CursorEnd()
		return true
	}
	m.historyPos = pos
	m.input.SetValue(m.history[pos])
	m.input.CursorEnd()
	return true
}

func (m *Model) saveHistory() {
	limit := m.app.Config.HistoryLimit
	_ = app.SavePromptHistory(m.historyPath, m.history, limit)
}

// --- layout and rendering ---

type layoutInfo struct {
	MainH  int
	SideW  int
	ChatW  int
	ChatH  int
	InputW int
}

func (m *Model) sidebarVisible() bool { return m.width >= 80 }

func (m *Model) sessionListHeight() int {
	return maxInt(1, m.computeLayout().MainH-3)
}

func (m *Model) computeLayout() layoutInfo {
	top, foot, status, inputH := 1, 1, 1, 3
	mainH := m.height - top - foot - status - inputH
	if mainH < 3 {
		mainH = 3
	}

	sideW := 0
	chatW := m.width
	if m.sidebarVisible() {
		sideW = 30
		if m.width < 110 {
			sideW = 24
		}
		chatW = m.width - sideW - 1
	}

	return layoutInfo{
		MainH:  mainH,
		SideW:  sideW,
		ChatW:  chatW,
		ChatH:  mainH,
		InputW: maxInt(10, m.width-6),
	}
}

func (m *Model) renderTopBar() string {
	left := m.theme.TopBarTitle.Render("mask")
	if active := m.app.Sessions.Active(); active != nil {
		left += " " + m.theme.TopBarMeta.Render(truncateRunes(active.Title, 40))
	} else {
		left += " " + m.theme.TopBarMeta.Render("new chat")
	}

	badge := ""
	if proj := m.app.Projects.Active(); proj != nil {
		badge = m.theme.TopBarBadge.Render(proj.DisplayIcon() + " " + proj.Name)
	}
	right := m.theme.TopBarMeta.Render(time.Now().Format("15:04"))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	a := gap / 2
	b := gap - a
	return m.theme.TopBar.Render(left + strings.Repeat(" ", a) + badge + strings.Repeat(" ", b) + right)
}

func (m *Model) renderMain(l layoutInfo) string {
	chat := m.renderChatPane(l)
	if l.SideW <= 0 {
		return chat
	}
	side := m.renderSessionPane(l)
	sep := m.theme.PaneDivider.Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, side, sep, chat)
}

func (m *Model) renderChatPane(l layoutInfo) string {
	box := m.theme.Pane
	title := m.theme.PaneTitle.Render("Conversation")
	if m.focus == focusChat {
		box = m.theme.PaneFocused
		title = m.theme.PaneTitleF.Render("Conversation")
	}
	return box.Width(l.ChatW).Height(l.ChatH).Render(title + "\n" + m.chatVP.View())
}

func (m *Model) renderSessionPane(l layoutInfo) string {
	titleText := fmt.Sprintf("Chats (%d)", len(m.sessions))
	if proj := m.app.Projects.Active(); proj != nil {
		titleText = fmt.Sprintf("%s %s (%d)", proj.DisplayIcon(), truncateRunes(proj.Name, 14), len(m.sessions))
	}
	box := m.theme.Pane
	title := m.theme.PaneTitle.Render(titleText)
	if m.focus == focusSessions {
		box = m.theme.PaneFocused
		title = m.theme.PaneTitleF.Render(titleText)
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	if len(m.sessions) == 0 {
		b.WriteString(m.theme.SideMeta.Render("No chats yet."))
	} else {
		activeID := m.app.Sessions.ActiveID()
		visible := m.sessionListHeight()
		end := m.sessionOff + visible
		if end > len(m.sessions) {
			end = len(m.sessions)
		}
		for i := m.sessionOff; i < end; i++ {
			sess := m.sessions[i]
			prefix := "  "
			style := m.theme.SideItem
			if i == m.sessionSel && m.focus == focusSessions {
				prefix = "> "
				style = m.theme.SideSel
			} else if sess.ID == activeID {
				prefix = "• "
				style = m.theme.SideSel
			}
			label := truncateRunes(oneLine(sess.Title), maxInt(8, l.SideW-6))
			if proj := m.app.Projects.Resolve(sess.ProjectID); proj != nil && m.projectFilter == "" {
				label = proj.DisplayIcon() + " " + label
			}
			b.WriteString(style.Render(prefix + label))
			if i != end-1 {
				b.WriteString("\n")
			}
		}
	}
	return box.Width(l.SideW).Height(l.ChatH).Render(b.String())
}

func (m *Model) renderStatusLine() string {
	switch {
	case m.errText != "":
		return m.theme.RoleErr.Render(" " + truncateRunes(m.errText, maxInt(20, m.width-2)))
	case m.sending:
		status := m.statusText
		if status == "" {
			status = "Waiting for reply..."
		}
		return m.theme.Spinner.Render(" " + spinnerFrames[m.spinnerPos] + " " + status)
	case m.statusText != "":
		return m.theme.StatusLine.Render(" " + m.statusText)
	default:
		return ""
	}
}

func (m *Model) renderInputArea(l layoutInfo) string {
	box := m.theme.InputBox
	if m.focus == focusInput {
		box = m.theme.InputBoxF
	}
	return box.Width(maxInt(10, m.width-2)).Render(m.input.View())
}

func (m *Model) renderFooter() string {
	hints := "Tab focus  Ctrl+N new chat  Ctrl+P project  Ctrl+D delete  Ctrl+C quit"
	if m.width < 80 {
		hints = "Tab focus  Ctrl+N new  Ctrl+C quit"
	}
	return m.theme.Footer.Width(m.width).Render(hints)
}

func (m *Model) updateChatViewport() {
	if !m.ready {
		return
	}
	width := m.computeLayout().ChatW - 4
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	if len(m.messages) == 0 {
		b.WriteString(m.theme.RoleSys.Render("Start typing below. Enter sends."))
	}
	for i, msg := range m.messages {
		b.WriteString(m.renderMessage(msg, width))
		if i != len(m.messages)-1 {
			b.WriteString("\n\n")
		}
	}
	m.chatVP.SetContent(b.String())
}

func (m *Model) renderMessage(msg app.Message, width int) string {
	roleStyle := m.theme.RoleAI
	label := "MASK"
	if msg.Role == app.RoleUser {
		roleStyle = m.theme.RoleYou
		label = "YOU"
	}
	header := roleStyle.Render(label)
	if !msg.CreatedAt.IsZero() {
		header += " " + m.theme.TopBarMeta.Render(msg.CreatedAt.Local().Format("15:04"))
	}
	body := lipgloss.NewStyle().Foreground(m.theme.TextPrimary).Width(width).Render(msg.Content)
	return header + "\n" + body
}

// --- small helpers ---

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 1 {
		return string(r[:maxRunes])
	}
	return string(r[:maxRunes-1]) + "…"
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
