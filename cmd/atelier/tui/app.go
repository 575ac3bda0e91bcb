package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/assistant"
	"github.com/jamesainslie/atelier/pkg/workspace/events"
	"github.com/jamesainslie/atelier/pkg/workspace/shell"
	"github.com/jamesainslie/atelier/pkg/workspace/tabs"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateNormal AppState = iota
	StateInput
	StateConfirm
)

// Focus is the pane receiving keys.
type Focus int

const (
	FocusTree Focus = iota
	FocusEditor
	FocusPanel
)

// Panel is the content of the bottom pane.
type Panel int

const (
	PanelActivity Panel = iota
	PanelLogs
	PanelTerminal
	PanelChat
	PanelHidden
)

var panelNames = map[Panel]string{
	PanelActivity: "Activity",
	PanelLogs:     "Logs",
	PanelTerminal: "Terminal",
	PanelChat:     "Chat",
}

// Options configures the TUI application.
type Options struct {
	Workspace *workspace.Workspace
	// Assistant answers the chat panel; nil hides it.
	Assistant assistant.Responder
	// ChatStyle is the glamour style for replies.
	ChatStyle string
}

// Messages from workspace subscriptions.
type (
	wsEventMsg  events.Event
	activityMsg activity.Entry
	logMsg      logging.Entry
)

// dialog is a pending prompt or confirmation.
type dialog struct {
	title   string
	text    string
	input   textinput.Model
	focused int // confirm only: 0 = cancel, 1 = ok
	action  string
	submit  func(value string) (string, error)
}

// Model is the main Bubble Tea model for the atelier TUI.
type Model struct {
	ws      *workspace.Workspace
	state   AppState
	focus   Focus
	panel   Panel
	options Options

	tree     *TreeView
	editor   *Editor
	terminal *Terminal
	chat     *Chat
	activity *FeedState
	logs     *FeedState

	sub      *events.Subscriber
	entries  <-chan activity.Entry
	logFeed  <-chan logging.Entry
	dialog   *dialog
	status   string
	statusOK bool

	// Window dimensions
	width  int
	height int
}

// NewModel creates a TUI model over the workspace in opts.
func NewModel(opts Options) Model {
	ws := opts.Workspace
	m := Model{
		ws:       ws,
		options:  opts,
		panel:    PanelActivity,
		tree:     NewTreeView(ws.Tree.Flatten()),
		editor:   NewEditor(),
		terminal: NewTerminal(shell.New(ws)),
		chat:     NewChat(opts.Assistant, opts.ChatStyle),
		activity: NewFeedState(),
		logs:     NewFeedState(),
		sub:      ws.Events.Subscribe(""),
		entries:  ws.Activity.Subscribe(),
		width:    80,
		height:   24,
	}
	if logging.Buffer() != nil {
		m.logFeed = logging.Subscribe()
	}
	if sel := ws.Tree.Selected(); sel != "" {
		m.tree.Focus(sel)
	}
	m.syncEditor()
	m.layout()
	return m
}

// Init starts listening to the workspace.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenEvents(), m.listenActivity(), m.listenLogs())
}

func (m Model) listenEvents() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	ch := m.sub.Events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return wsEventMsg(e)
	}
}

func (m Model) listenActivity() tea.Cmd {
	ch := m.entries
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return activityMsg(e)
	}
}

func (m Model) listenLogs() tea.Cmd {
	if m.logFeed == nil {
		return nil
	}
	ch := m.logFeed
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return logMsg(e)
	}
}

// close releases the subscriptions.
func (m Model) close() {
	if m.sub != nil {
		m.ws.Events.Unsubscribe(m.sub.ID)
	}
	m.ws.Activity.Unsubscribe(m.entries)
	if m.logFeed != nil {
		logging.Unsubscribe(m.logFeed)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case wsEventMsg:
		m.refresh()
		return m, m.listenEvents()

	case activityMsg:
		if msg.Severity == activity.Error {
			m.setStatus(msg.Message, false)
		}
		return m, m.listenActivity()

	case logMsg:
		return m, m.listenLogs()

	case chatReplyMsg:
		if m.chat != nil {
			m.chat.Receive(msg)
		}
		return m, nil
	}

	// Cursor blinks and other component messages.
	switch {
	case m.dialog != nil && m.state == StateInput:
		var cmd tea.Cmd
		m.dialog.input, cmd = m.dialog.input.Update(msg)
		return m, cmd
	case m.focus == FocusEditor:
		_, cmd := m.editor.Update(msg)
		return m, cmd
	case m.focus == FocusPanel && m.panel == PanelTerminal:
		return m, m.terminal.Update(msg)
	case m.focus == FocusPanel && m.panel == PanelChat && m.chat != nil:
		return m, m.chat.Update(msg)
	}
	return m, nil
}

// refresh pulls the tree rows and the active buffer from the workspace.
func (m *Model) refresh() {
	m.tree.Refresh(m.ws.Tree.Flatten())
	m.syncEditor()
}

func (m *Model) syncEditor() {
	t, ok := m.ws.Tabs.Active()
	if !ok {
		m.editor.Clear()
		if m.focus == FocusEditor {
			m.setFocus(FocusTree)
		}
		return
	}
	m.editor.Sync(t)
}

func (m *Model) setStatus(s string, ok bool) {
	m.status, m.statusOK = s, ok
}

// report shows err, or ok when err is nil.
func (m *Model) report(err error, ok string) {
	if err != nil {
		m.setStatus(err.Error(), false)
		return
	}
	m.setStatus(ok, true)
}

func (m *Model) setFocus(f Focus) tea.Cmd {
	m.editor.Blur()
	m.terminal.Blur()
	if m.chat != nil {
		m.chat.Blur()
	}
	m.focus = f
	switch f {
	case FocusEditor:
		return m.editor.Focus()
	case FocusPanel:
		switch m.panel {
		case PanelTerminal:
			return m.terminal.Focus()
		case PanelChat:
			if m.chat != nil {
				return m.chat.Focus()
			}
		}
	}
	return nil
}

// following returns the panel after the current one, skipping chat when
// it is disabled.
func (m Model) following() Panel {
	p := (m.panel + 1) % (PanelHidden + 1)
	if p == PanelChat && m.chat == nil {
		p = PanelHidden
	}
	return p
}

func (m *Model) nextPanel() {
	m.panel = m.following()
	m.layout()
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.close()
		return m, tea.Quit
	}

	switch m.state {
	case StateInput:
		return m.handleInputKey(msg)
	case StateConfirm:
		return m.handleConfirmKey(key)
	}
	m.status = ""

	// Global keys
	switch key {
	case "ctrl+s":
		if id := m.ws.Tabs.ActiveID(); id != "" {
			m.report(m.ws.Save(id), "saved")
			m.refresh()
		}
		return m, nil
	case "ctrl+z":
		m.history(m.ws.Undo, "undid", "nothing to undo")
		return m, nil
	case "ctrl+y":
		m.history(m.ws.Redo, "redid", "nothing to redo")
		return m, nil
	case "ctrl+x":
		return m.closeActiveTab()
	case "ctrl+pgdown", "ctrl+pgup":
		delta := 1
		if key == "ctrl+pgup" {
			delta = -1
		}
		if id := neighbourTab(m.ws.Tabs.Tabs(), m.ws.Tabs.ActiveID(), delta); id != "" {
			m.ws.Tabs.SetActiveTab(id)
			m.refresh()
		}
		return m, nil
	case "ctrl+g":
		m.nextPanel()
		if m.panel == PanelHidden {
			cmd := m.setFocus(FocusTree)
			return m, cmd
		}
		cmd := m.setFocus(FocusPanel)
		return m, cmd
	case "esc":
		cmd := m.setFocus(FocusTree)
		return m, cmd
	}

	switch m.focus {
	case FocusEditor:
		changed, cmd := m.editor.Update(msg)
		if changed {
			if err := m.ws.Edit(m.editor.TabID(), m.editor.Value()); err != nil {
				m.setStatus(err.Error(), false)
			}
		}
		return m, cmd
	case FocusPanel:
		return m.handlePanelKey(msg)
	default:
		return m.handleTreeKey(key)
	}
}

func (m *Model) history(fn func() (tabs.Action, bool), verb, empty string) {
	a, ok := fn()
	if !ok {
		m.setStatus(empty, false)
		return
	}
	switch a := a.(type) {
	case tabs.TabClose:
		m.setStatus(fmt.Sprintf("%s close of %s", verb, a.Tab.Name), true)
	default:
		m.setStatus(verb+" edit", true)
	}
	m.refresh()
}

// closeActiveTab closes the active tab, asking first when it has unsaved
// edits.
func (m Model) closeActiveTab() (tea.Model, tea.Cmd) {
	t, ok := m.ws.Tabs.Active()
	if !ok {
		return m, nil
	}
	if !t.IsModified {
		m.ws.CloseTab(t.ID)
		m.refresh()
		return m, nil
	}
	ws := m.ws
	m.confirm("Unsaved Changes", fmt.Sprintf("Close %s without saving?", t.Name), "Close", func(string) (string, error) {
		ws.CloseTab(t.ID)
		return "closed " + t.Name, nil
	})
	return m, nil
}

// handleTreeKey handles keys while the tree has focus.
func (m Model) handleTreeKey(key string) (tea.Model, tea.Cmd) {
	row, hasRow := m.tree.Selected()

	switch key {
	case "q":
		m.close()
		return m, tea.Quit
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "g", "home":
		m.tree.Top()
	case "G", "end":
		m.tree.Bottom()
	case "tab":
		if m.editor.TabID() != "" {
			cmd := m.setFocus(FocusEditor)
		return m, cmd
		}
	case "enter", "l", " ":
		if !hasRow {
			return m, nil
		}
		if err := m.ws.Open(row.Node.ID); err != nil {
			m.setStatus(err.Error(), false)
			return m, nil
		}
		m.refresh()
		if !row.Node.IsFolder() && key == "enter" {
			cmd := m.setFocus(FocusEditor)
		return m, cmd
		}
	case "n", "N":
		kind, create := "file", m.ws.CreateFile
		if key == "N" {
			kind, create = "folder", m.ws.CreateFolder
		}
		parent := m.targetFolder(row, hasRow)
		m.prompt("New "+kind, "in "+parent.Path, "", func(name string) (string, error) {
			id, err := create(parent.Path, name)
			if err != nil {
				return "", err
			}
			m.reveal(id)
			return "created " + name, nil
		})
	case "r":
		if hasRow {
			m.prompt("Rename", row.Node.Path, row.Node.Name, func(name string) (string, error) {
				return "renamed to " + name, m.ws.Rename(row.Node.ID, name)
			})
		}
	case "m":
		if hasRow {
			m.prompt("Move", row.Node.Path+" to folder", "", func(dest string) (string, error) {
				target, err := m.ws.Resolve(dest)
				if err != nil {
					return "", err
				}
				if err := m.ws.Move(row.Node.ID, target.ID); err != nil {
					return "", err
				}
				m.reveal(row.Node.ID)
				return "moved to " + target.Path, nil
			})
		}
	case "d", "delete":
		if hasRow && row.Node.ParentID != "" {
			m.confirm("Confirm Deletion", "Delete "+row.Node.Path+"?", "Delete", func(string) (string, error) {
				return "deleted " + row.Node.Name, m.ws.Delete(row.Node.ID)
			})
		}
	case "/":
		m.prompt("Search", "file or folder name", "", func(q string) (string, error) {
			found := m.ws.Search(q)
			if len(found) == 0 {
				return "", fmt.Errorf("no match for %q", q)
			}
			m.reveal(found[0].ID)
			return fmt.Sprintf("%d matches, showing %s", len(found), found[0].Path), nil
		})
	case "S":
		n := m.ws.SaveAll()
		m.setStatus(fmt.Sprintf("saved %d files", n), true)
		m.refresh()
	}
	return m, nil
}

// targetFolder is where new nodes go: the selected folder, or the parent of
// the selected file.
func (m *Model) targetFolder(row tree.Row, ok bool) tree.Node {
	if !ok {
		return m.ws.Tree.Root()
	}
	if row.Node.IsFolder() {
		return row.Node
	}
	if parent, found := m.ws.Tree.GetNodeByID(row.Node.ParentID); found {
		return parent
	}
	return m.ws.Tree.Root()
}

// reveal opens the folders above id and moves the cursor to it.
func (m *Model) reveal(id string) {
	n, ok := m.ws.Tree.GetNodeByID(id)
	for ok && n.ParentID != "" {
		parent, found := m.ws.Tree.GetNodeByID(n.ParentID)
		if !found {
			break
		}
		if !parent.IsOpen {
			m.ws.Tree.ToggleFolder(parent.ID)
		}
		n, ok = parent, true
	}
	m.ws.Tree.Select(id)
	m.tree.Refresh(m.ws.Tree.Flatten())
	m.tree.Focus(id)
}

// handlePanelKey handles keys while the bottom pane has focus.
func (m Model) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.panel {
	case PanelTerminal:
		switch key {
		case "enter":
			m.terminal.Submit()
			m.refresh()
		case "tab":
			m.terminal.Complete()
		case "up":
			m.terminal.HistoryPrev()
		case "down":
			m.terminal.HistoryNext()
		default:
			return m, m.terminal.Update(msg)
		}
		return m, nil

	case PanelChat:
		if m.chat == nil {
			return m, nil
		}
		switch key {
		case "enter":
			return m, m.chat.Submit()
		case "ctrl+l":
			m.chat.Clear()
			return m, nil
		}
		return m, m.chat.Update(msg)

	case PanelActivity, PanelLogs:
		state, lines := m.feed()
		switch key {
		case "up", "k":
			state.ScrollUp()
		case "down", "j":
			state.ScrollDown(len(filterByRank(lines, state.MinRank)), m.panelRows())
		case "1", "2", "3", "4":
			state.SetFilter(int(key[0] - '1'))
		case "c":
			if m.panel == PanelActivity {
				m.ws.Activity.Clear()
			} else if buf := logging.Buffer(); buf != nil {
				buf.Clear()
			}
		case "x":
			if m.panel == PanelActivity {
				if l, ok := state.Newest(lines); ok {
					m.ws.Activity.Remove(l.ID)
				}
			}
		}
	}
	return m, nil
}

// feed returns the state and lines of the visible feed panel.
func (m *Model) feed() (*FeedState, []feedLine) {
	if m.panel == PanelLogs {
		var entries []logging.Entry
		if buf := logging.Buffer(); buf != nil {
			entries = buf.Entries()
		}
		return m.logs, logLines(entries)
	}
	return m.activity, activityLines(m.ws.Activity.Entries())
}

// prompt opens a text input dialog.
func (m *Model) prompt(title, text, value string, submit func(string) (string, error)) {
	in := textinput.New()
	in.SetValue(value)
	in.CursorEnd()
	in.Width = 40
	in.Focus()
	m.dialog = &dialog{title: title, text: text, input: in, submit: submit}
	m.state = StateInput
}

// confirm opens a yes/no dialog. Cancel is focused by default.
func (m *Model) confirm(title, text, action string, submit func(string) (string, error)) {
	m.dialog = &dialog{title: title, text: text, action: action, submit: submit}
	m.state = StateConfirm
}

func (m Model) finishDialog(value string) (tea.Model, tea.Cmd) {
	d := m.dialog
	m.dialog = nil
	m.state = StateNormal
	ok, err := d.submit(value)
	m.report(err, ok)
	m.refresh()
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.dialog = nil
		m.state = StateNormal
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.dialog.input.Value())
		if value == "" {
			return m, nil
		}
		return m.finishDialog(value)
	}
	var cmd tea.Cmd
	m.dialog.input, cmd = m.dialog.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc", "n":
		m.dialog = nil
		m.state = StateNormal
	case "left", "h":
		m.dialog.focused = 0
	case "right", "l":
		m.dialog.focused = 1
	case "tab":
		m.dialog.focused = (m.dialog.focused + 1) % 2
	case "enter":
		if m.dialog.focused == 1 {
			return m.finishDialog("")
		}
		m.dialog = nil
		m.state = StateNormal
	case "y":
		return m.finishDialog("")
	}
	return m, nil
}

// Layout dimensions derived from the window size.
func (m Model) treeWidth() int {
	return min(max(m.width/4, 24), 40)
}

func (m Model) bottomHeight() int {
	if m.panel == PanelHidden {
		return 0
	}
	return max((m.height-2)/3, 6)
}

func (m Model) topHeight() int {
	return max(m.height-2-m.bottomHeight(), 4)
}

// panelRows is the number of feed lines visible in the bottom pane.
func (m Model) panelRows() int {
	return max(m.bottomHeight()-4, 1)
}

func (m *Model) layout() {
	editorWidth := m.width - m.treeWidth() - 4
	m.editor.SetSize(max(editorWidth, 10), max(m.topHeight()-3, 1))
}

// View renders the whole screen.
func (m Model) View() string {
	main := m.renderMain()
	if m.dialog == nil {
		return main
	}
	return m.overlayDialog(main, m.renderDialog())
}

func (m Model) renderMain() string {
	open := m.ws.Tabs.Tabs()
	unsaved := make(map[string]bool)
	for _, t := range open {
		if t.IsModified {
			unsaved[t.ID] = true
		}
	}

	header := renderAppHeader(m.ws.Tree.Root().Name, m.ws.Tree.Stats(), len(open), len(unsaved), m.ws.HasSession())

	treeW, topH := m.treeWidth(), m.topHeight()
	treePane := m.pane(FocusTree).
		Width(treeW - 2).
		Height(topH - 2).
		Render(m.tree.View(treeW-4, topH-2, unsaved))

	editorW := m.width - treeW
	editorBody := renderTabBar(open, m.ws.Tabs.ActiveID(), editorW-4) + "\n" + m.editor.View()
	editorPane := m.pane(FocusEditor).
		Width(editorW - 2).
		Height(topH - 2).
		Render(editorBody)

	parts := []string{header, lipgloss.JoinHorizontal(lipgloss.Top, treePane, editorPane)}
	if m.panel != PanelHidden {
		bottomH := m.bottomHeight()
		parts = append(parts, m.pane(FocusPanel).
			Width(m.width-2).
			Height(bottomH-2).
			Render(m.renderPanel(m.width-4, bottomH-2)))
	}
	parts = append(parts, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) pane(f Focus) lipgloss.Style {
	if m.focus == f {
		return focusedPaneStyle
	}
	return paneStyle
}

func (m Model) renderPanel(width, height int) string {
	switch m.panel {
	case PanelTerminal:
		return titleStyle.Render(" Terminal ") + "\n" + m.terminal.View(width, height-1)
	case PanelChat:
		if m.chat == nil {
			return ""
		}
		return titleStyle.Render(" Chat ") + mutedTextStyle.Render("[ctrl+l] clear") + "\n" + m.chat.View(width, height-1)
	case PanelLogs:
		state, lines := m.feed()
		return renderFeed("Logs", logRankNames, lines, state, width, height, "[1-4] filter  [c] clear")
	default:
		state, lines := m.feed()
		return renderFeed("Activity", activityRankNames, lines, state, width, height, "[1-4] filter  [x] remove  [c] clear")
	}
}

func (m Model) renderFooter() string {
	if m.status != "" {
		if m.statusOK {
			return " " + successTextStyle.Render(m.status)
		}
		return " " + errorTextStyle.Render(m.status)
	}
	switch m.focus {
	case FocusEditor:
		return " " + keyHint("ctrl+s", "save", "ctrl+z", "undo", "ctrl+y", "redo", "ctrl+x", "close", "esc", "tree")
	case FocusPanel:
		return " " + keyHint("ctrl+g", "next panel", "esc", "tree")
	default:
		next := panelNames[m.following()]
		if next == "" {
			next = "hide"
		}
		return " " + keyHint("enter", "open", "n/N", "new", "r", "rename", "m", "move", "d", "delete",
			"/", "search", "ctrl+g", strings.ToLower(next), "q", "quit")
	}
}

func (m Model) renderDialog() string {
	d := m.dialog
	var b strings.Builder
	b.WriteString(dialogTitleStyle.Render(d.title))
	b.WriteString("\n\n")
	b.WriteString(dialogTextStyle.Render(truncatePath(d.text, 44)))
	b.WriteString("\n\n")

	if m.state == StateInput {
		b.WriteString(d.input.View())
		return dialogBoxStyle.Render(b.String())
	}

	cancelBtn := inactiveButtonStyle.Render("Cancel")
	okBtn := inactiveButtonStyle.Render(d.action)
	if d.focused == 0 {
		cancelBtn = activeButtonStyle.Render("Cancel")
	} else {
		okBtn = activeButtonStyle.Render(d.action)
	}
	b.WriteString(center(lipgloss.JoinHorizontal(lipgloss.Center, cancelBtn, "  ", okBtn), 46))
	return dialogBoxStyle.Render(b.String())
}

// overlayDialog centers a dialog over a background view.
func (m Model) overlayDialog(bg, dialog string) string {
	dialogLines := strings.Split(dialog, "\n")
	bgLines := strings.Split(bg, "\n")

	startRow := max((m.height-len(dialogLines))/2, 0)
	startCol := max((m.width-lipgloss.Width(dialog))/2, 0)
	pad := strings.Repeat(" ", startCol)

	for i, line := range dialogLines {
		row := startRow + i
		for row >= len(bgLines) {
			bgLines = append(bgLines, "")
		}
		bgLines[row] = pad + line
	}
	return strings.Join(bgLines, "\n")
}

// Run starts the TUI application and blocks until it exits.
func Run(opts Options) error {
	if opts.Workspace == nil {
		return fmt.Errorf("tui: no workspace")
	}
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.close()
	}
	return err
}
