package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docassist/internal/app"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusChat
)

type (
	chatDoneMsg struct{ err error }
	healthMsg   app.HealthSnapshot

	uploadSubmittedMsg struct {
		result *app.UploadResult
		err    error
	}
	jobEventMsg struct {
		snap app.JobSnapshot
		done bool
	}
	docsClearedMsg struct{ err error }
)

// MainModel is the top-level bubbletea model: a session sidebar, the chat
// viewport, the input box, and a transient upload panel. All conversation
// state lives in the app layer; the model re-reads it after every event.
type MainModel struct {
	app   *app.Application
	theme Theme
	help  helpModel

	width  int
	height int
	ready  bool
	focus  focusArea

	input    textarea.Model
	chatVP   viewport.Model
	spin     spinner.Model
	markdown *MarkdownRenderer

	health   app.HealthSnapshot
	healthCh chan app.HealthSnapshot

	sending    bool
	statusText string

	batch     *app.UploadBatch
	tracker   *app.UploadTracker
	uploading bool
	clearing  bool
	jobCh     chan jobEventMsg
}

func NewMainModel(application *app.Application) *MainModel {
	ta := textarea.New()
	ta.Placeholder = "Ask about your documents, then press Enter. /help for commands."
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	t := NewTheme()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = t.Spinner

	m := &MainModel{
		app:        application,
		theme:      t,
		help:       newHelpModel(),
		width:      100,
		height:     30,
		focus:      focusInput,
		input:      ta,
		spin:       sp,
		markdown:   NewMarkdownRenderer(),
		health:     application.Health.Snapshot(),
		healthCh:   make(chan app.HealthSnapshot, 8),
		jobCh:      make(chan jobEventMsg, 16),
		statusText: "Ready",
	}

	// Connectivity transitions arrive from the monitor goroutine; forward
	// them into the bubbletea loop. Registered before the monitor starts.
	application.Health.OnChange(func(snap app.HealthSnapshot) {
		select {
		case m.healthCh <- snap:
		default:
		}
	})

	return m
}

func (m *MainModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitHealth())
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(m.width)
		m.applyLayout()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.help.keys.Quit):
			if m.tracker != nil {
				m.tracker.Stop()
			}
			return m, tea.Quit

		case key.Matches(msg, m.help.keys.Help):
			m.help.visible = !m.help.visible
			return m, nil

		case key.Matches(msg, m.help.keys.NewChat):
			m.app.Sessions.Create()
			m.refreshChat()
			return m, nil

		case key.Matches(msg, m.help.keys.PrevSession):
			return m, m.switchSession(m.app.Sessions.ActiveIndex() - 1)

		case key.Matches(msg, m.help.keys.NextSession):
			return m, m.switchSession(m.app.Sessions.ActiveIndex() + 1)

		case key.Matches(msg, m.help.keys.Delete):
			if err := m.app.Sessions.Delete(m.app.Sessions.ActiveIndex()); err != nil {
				m.statusText = deleteFailureText(err)
			} else {
				m.statusText = "session deleted"
			}
			m.refreshChat()
			return m, nil

		case key.Matches(msg, m.help.keys.Enter):
			if m.focus == focusInput {
				return m, m.onEnter()
			}

		case msg.Type == tea.KeyTab:
			m.cycleFocus()
			return m, nil

		case msg.Type == tea.KeyUp && m.focus == focusChat:
			m.chatVP.LineUp(1)
			return m, nil
		case msg.Type == tea.KeyDown && m.focus == focusChat:
			m.chatVP.LineDown(1)
			return m, nil
		case msg.Type == tea.KeyPgUp:
			m.chatVP.ViewUp()
			return m, nil
		case msg.Type == tea.KeyPgDown:
			m.chatVP.ViewDown()
			return m, nil
		}

	case healthMsg:
		m.health = app.HealthSnapshot(msg)
		return m, m.waitHealth()

	case chatDoneMsg:
		m.sending = false
		m.statusText = "Ready"
		m.refreshChat()
		m.chatVP.GotoBottom()
		return m, nil

	case uploadSubmittedMsg:
		return m, m.onUploadSubmitted(msg)

	case jobEventMsg:
		if m.batch != nil {
			m.batch.ApplySnapshot(msg.snap)
		}
		if !msg.done {
			return m, m.waitJob()
		}
		m.uploading = false
		m.tracker = nil
		m.app.Health.Refresh()
		if msg.snap.Status == app.JobCompleted {
			m.statusText = "upload complete"
		} else {
			m.statusText = "upload failed"
			if msg.snap.Error != "" {
				m.statusText = "upload failed: " + msg.snap.Error
			}
		}
		return m, nil

	case docsClearedMsg:
		m.clearing = false
		if msg.err != nil {
			m.statusText = fmt.Sprintf("clear failed: %v", msg.err)
		} else {
			m.statusText = "all documents cleared"
			m.app.Health.Refresh()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.sending || m.uploading || m.clearing {
			// The optimistic user message and polled upload progress land
			// outside the event loop; redraw on every frame while busy.
			m.refreshChat()
			m.chatVP.GotoBottom()
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *MainModel) View() string {
	if !m.ready {
		return "…"
	}
	l := m.computeLayout()

	sections := []string{m.renderTopBar()}
	if m.help.visible {
		sections = append(sections, m.theme.Pane.Width(m.width-2).Height(l.MainH-2).Render(m.help.FullView()))
	} else {
		sections = append(sections, m.renderMain(l))
	}
	if panel := m.renderUploadPanel(l); panel != "" {
		sections = append(sections, panel)
	}
	sections = append(sections, m.renderInput(l), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *MainModel) onEnter() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return nil
	}
	if strings.HasPrefix(val, "/") {
		m.input.Reset()
		return m.runCommand(val)
	}

	if m.sending || m.app.Chat.IsBusy() {
		m.statusText = "still waiting on the previous reply"
		return nil
	}
	if m.health.State == app.StateDisconnected {
		m.statusText = "API unreachable; message not sent"
		return nil
	}

	m.input.Reset()
	m.sending = true
	m.statusText = "Thinking…"

	send := func() tea.Msg {
		_, err := m.app.Chat.Send(context.Background(), val)
		return chatDoneMsg{err: err}
	}
	return tea.Batch(send, m.spin.Tick)
}

func (m *MainModel) runCommand(val string) tea.Cmd {
	fields := strings.Fields(val)
	switch fields[0] {
	case "/help":
		m.help.visible = !m.help.visible
		return nil

	case "/clear-docs":
		if m.app.Demo {
			m.statusText = "document management is disabled in demo mode"
			return nil
		}
		if m.clearing {
			return nil
		}
		m.clearing = true
		m.statusText = "Clearing documents…"
		clear := func() tea.Msg {
			return docsClearedMsg{err: m.app.Client.ClearDocuments(context.Background())}
		}
		return tea.Batch(clear, m.spin.Tick)

	case "/upload":
		if m.app.Demo {
			m.statusText = "uploads are disabled in demo mode"
			return nil
		}
		if len(fields) < 2 {
			m.statusText = "usage: /upload <files...>"
			return nil
		}
		return m.startUpload(fields[1:])

	default:
		m.statusText = "unknown command: " + fields[0]
		return nil
	}
}

func (m *MainModel) startUpload(paths []string) tea.Cmd {
	if m.uploading {
		m.statusText = "an upload is already in progress"
		return nil
	}

	batch := app.NewUploadBatch(paths)
	m.batch = batch
	m.applyLayout()

	pdfs := batch.PDFPaths()
	if len(pdfs) == 0 {
		m.statusText = "only PDF files are supported"
		return nil
	}

	batch.MarkUploading()
	m.uploading = true
	m.statusText = fmt.Sprintf("Uploading %d file(s)…", len(pdfs))

	submit := func() tea.Msg {
		result, err := m.app.Client.Upload(context.Background(), pdfs)
		return uploadSubmittedMsg{result: result, err: err}
	}
	return tea.Batch(submit, m.spin.Tick)
}

func (m *MainModel) onUploadSubmitted(msg uploadSubmittedMsg) tea.Cmd {
	if msg.err != nil {
		m.uploading = false
		if m.batch != nil {
			m.batch.Fail(msg.err.Error())
		}
		m.statusText = fmt.Sprintf("upload failed: %v", msg.err)
		return nil
	}

	if msg.result.JobID == "" {
		// Synchronous ingestion; the response is already final.
		m.uploading = false
		if m.batch != nil {
			m.batch.Complete()
		}
		m.app.Health.Refresh()
		m.statusText = fmt.Sprintf("upload complete (%d documents indexed)", msg.result.TotalDocuments)
		return nil
	}

	tracker := m.app.TrackUpload(msg.result.JobID)
	tracker.OnUpdate(func(snap app.JobSnapshot) {
		select {
		case m.jobCh <- jobEventMsg{snap: snap}:
		default:
		}
	})
	tracker.OnComplete(func(snap app.JobSnapshot) {
		m.jobCh <- jobEventMsg{snap: snap, done: true}
	})
	m.tracker = tracker
	m.statusText = "Processing documents…"
	tracker.Start(context.Background())
	return m.waitJob()
}

func (m *MainModel) waitHealth() tea.Cmd {
	ch := m.healthCh
	return func() tea.Msg { return healthMsg(<-ch) }
}

func (m *MainModel) waitJob() tea.Cmd {
	ch := m.jobCh
	return func() tea.Msg { return <-ch }
}

func (m *MainModel) switchSession(index int) tea.Cmd {
	if _, err := m.app.Sessions.SwitchActive(index); err != nil {
		return nil
	}
	m.refreshChat()
	m.chatVP.GotoBottom()
	return nil
}

func (m *MainModel) cycleFocus() {
	if m.focus == focusInput {
		m.focus = focusChat
		m.input.Blur()
	} else {
		m.focus = focusInput
		m.input.Focus()
	}
}

func deleteFailureText(err error) string {
	if err == app.ErrLastSession {
		return "cannot delete the last session"
	}
	return fmt.Sprintf("delete failed: %v", err)
}

type layoutInfo struct {
	MainH    int
	SidebarW int
	ChatW    int
	UploadH  int
	InputW   int
}

func (m *MainModel) computeLayout() layoutInfo {
	top, foot := 1, 1
	inputH := 3

	uploadH := 0
	if m.batch != nil {
		n := len(m.batch.Files())
		if n > 4 {
			n = 4
		}
		uploadH = n + 2
	}

	mainH := m.height - top - foot - inputH - uploadH
	if mainH < 3 {
		mainH = 3
	}

	sidebarW := 0
	chatW := m.width
	if m.width >= 90 {
		sidebarW = 28
		chatW = m.width - sidebarW - 1
	}

	return layoutInfo{
		MainH:    mainH,
		SidebarW: sidebarW,
		ChatW:    chatW,
		UploadH:  uploadH,
		InputW:   max(10, m.width-6),
	}
}

func (m *MainModel) applyLayout() {
	l := m.computeLayout()
	if !m.ready {
		m.chatVP = viewport.New(l.ChatW-4, l.MainH-2)
		m.ready = true
	} else {
		m.chatVP.Width = l.ChatW - 4
		m.chatVP.Height = l.MainH - 2
	}
	m.input.SetWidth(l.InputW)
	m.refreshChat()
	m.chatVP.GotoBottom()
}

func (m *MainModel) refreshChat() {
	width := m.chatVP.Width
	if width < 20 {
		width = 20
	}

	messages := m.app.Sessions.Active().Messages
	if len(messages) == 0 {
		m.chatVP.SetContent(m.theme.RoleSys.Render(
			"Upload PDF documents with /upload, then ask questions about them."))
		return
	}

	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n\n")
	}
	if m.sending {
		b.WriteString(m.spin.View() + m.theme.RoleSys.Render(" thinking…"))
	}
	m.chatVP.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *MainModel) renderMessage(msg app.Message, width int) string {
	var head string
	switch msg.Role {
	case app.RoleUser:
		head = m.theme.RoleYou.Render("YOU")
	default:
		head = m.theme.RoleAI.Render("DOC")
	}
	meta := m.theme.TopBarMeta.Render(msg.Timestamp.Format("15:04"))

	var body string
	if msg.Role == app.RoleAssistant {
		body = m.markdown.Render(msg.Content, width)
	} else {
		body = lipgloss.NewStyle().Foreground(m.theme.TextPrimary).Width(width).Render(msg.Content)
	}
	return head + " " + meta + "\n" + body
}

func (m *MainModel) renderTopBar() string {
	left := m.theme.TopBarTitle.Render("docassist")
	if m.app.Demo {
		left += " " + m.theme.BadgeWarn.Render("DEMO")
	}

	badge := m.renderHealthBadge()
	right := m.theme.TopBarMeta.Render(time.Now().Format("15:04"))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	a := gap / 2
	return m.theme.TopBar.Render(left + strings.Repeat(" ", a) + badge + strings.Repeat(" ", gap-a) + right)
}

func (m *MainModel) renderHealthBadge() string {
	switch m.health.State {
	case app.StateConnected:
		docs := 0
		if m.health.Status != nil {
			docs = m.health.Status.DocumentCount()
		}
		return m.theme.BadgeOK.Render(fmt.Sprintf("● connected · %d docs", docs))
	case app.StateDisconnected:
		return m.theme.BadgeErr.Render("● disconnected · retrying")
	default:
		return m.theme.BadgeWarn.Render("● connecting…")
	}
}

func (m *MainModel) renderMain(l layoutInfo) string {
	chat := m.renderChatPane(l)
	if l.SidebarW == 0 {
		return chat
	}
	sidebar := m.renderSidebar(l)
	sep := m.theme.PaneDivider.Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, sep, chat)
}

func (m *MainModel) renderSidebar(l layoutInfo) string {
	sessions := m.app.Sessions.Sessions()
	active := m.app.Sessions.ActiveIndex()

	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render(fmt.Sprintf("Sessions (%d)", len(sessions))))
	b.WriteString("\n")

	visible := l.MainH - 3
	if visible < 1 {
		visible = 1
	}
	for i, session := range sessions {
		if i >= visible {
			b.WriteString(m.theme.SessionItem.Render(fmt.Sprintf("  +%d more", len(sessions)-visible)))
			break
		}
		title := truncate.StringWithTail(session.Title, uint(max(8, l.SidebarW-6)), "…")
		if i == active {
			b.WriteString(m.theme.SessionActive.Render("> " + title))
		} else {
			b.WriteString(m.theme.SessionItem.Render("  " + title))
		}
		b.WriteString("\n")
	}
	return m.theme.Pane.Width(l.SidebarW - 2).Height(l.MainH - 2).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *MainModel) renderChatPane(l layoutInfo) string {
	title := m.theme.PaneTitle.Render("Chat")
	box := m.theme.Pane
	if m.focus == focusChat {
		title = m.theme.PaneTitleF.Render("Chat")
		box = m.theme.PaneFocused
	}
	return box.Width(l.ChatW - 2).Height(l.MainH - 2).Render(title + "\n" + m.chatVP.View())
}

func (m *MainModel) renderInput(l layoutInfo) string {
	box := m.theme.InputBox
	if m.focus == focusInput {
		box = m.theme.InputBoxF
	}
	return box.Width(max(10, m.width-2)).Render(m.input.View())
}

func (m *MainModel) renderFooter() string {
	status := m.theme.TopBarMeta.Render(m.statusText)
	if m.sending || m.uploading || m.clearing {
		status = m.spin.View() + status
	}
	hints := m.help.View()
	gap := m.width - lipgloss.Width(status) - lipgloss.Width(hints)
	if gap < 2 {
		return m.theme.Footer.Width(m.width).Render(m.statusText)
	}
	return status + strings.Repeat(" ", gap) + hints
}
