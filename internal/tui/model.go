package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/taskboard/internal/client"
	"github.com/ldi/taskboard/internal/ui/components"
	"github.com/ldi/taskboard/pkg/models"
)

var (
	orbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	headerTextStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

type inputMode int

const (
	modeBrowse inputMode = iota
	modeQuery
	modeTag
	modeForm
	modeConfirmDelete
)

// refreshedMsg carries the outcome of a refresh or of a mutation followed
// by a refresh.
type refreshedMsg struct {
	result *client.Result
	err    error
	action string
}

type Model struct {
	ctx       context.Context
	refresher *client.Refresher

	list    *components.TaskList
	detail  *components.DetailPane
	spinner spinner.Model
	query   textinput.Model
	tag     textinput.Model
	form    *taskForm

	mode      inputMode
	loading   bool
	errMsg    string
	notice    string
	stats     *client.Stats
	width     int
	height    int
	ready     bool
	quitting  bool
	listWidth int
}

func New(ctx context.Context, refresher *client.Refresher) *Model {
	query := textinput.New()
	query.Prompt = "/ "
	query.Placeholder = "Search keywords..."

	tag := textinput.New()
	tag.Prompt = "# "
	tag.Placeholder = "Filter by tag..."

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:       ctx,
		refresher: refresher,
		list:      components.NewTaskList(0),
		detail:    components.NewDetailPane(0, 0),
		spinner:   sp,
		query:     query,
		tag:       tag,
	}
}

// Init runs the initial, unfiltered load.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.refresh(models.ListFilter{}, "load"))
}

// filter returns the filter typed into the inputs, applied or not.
func (m *Model) filter() models.ListFilter {
	return models.ListFilter{
		Query: strings.TrimSpace(m.query.Value()),
		Tag:   strings.TrimSpace(m.tag.Value()),
	}
}

func (m *Model) refresh(filter models.ListFilter, action string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.refresher.Refresh(m.ctx, filter)
		return refreshedMsg{result: res, err: err, action: action}
	}
}

func (m *Model) mutate(action string, fn func(ctx context.Context) (*client.Result, error)) tea.Cmd {
	m.loading = true
	m.errMsg = ""
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		res, err := fn(m.ctx)
		return refreshedMsg{result: res, err: err, action: action}
	})
}

func (m *Model) startRefresh(filter models.ListFilter) tea.Cmd {
	m.loading = true
	m.errMsg = ""
	return tea.Batch(m.spinner.Tick, m.refresh(filter, "refresh"))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.recalculateLayout()
		return m, nil

	case refreshedMsg:
		m.loading = false
		if msg.err != nil {
			// The previous list stays; nothing partial is shown.
			m.errMsg = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.list.SetTasks(msg.result.Tasks)
		stats := msg.result.Stats
		m.stats = &stats
		m.renderDetail()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeQuery, modeTag:
			return m, m.updateFilterInput(msg)
		case modeForm:
			return m, m.updateForm(msg)
		case modeConfirmDelete:
			return m, m.updateConfirmDelete(msg)
		default:
			return m, m.updateBrowse(msg)
		}

	case tea.MouseMsg:
		return m, m.detail.Update(msg)
	}

	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	m.notice = ""
	switch msg.String() {
	case "q":
		m.quitting = true
		return tea.Quit
	case "j", "down":
		m.list.Move(1)
		m.renderDetail()
	case "k", "up":
		m.list.Move(-1)
		m.renderDetail()
	case "pgdown", "ctrl+d":
		return m.detail.Update(msg)
	case "pgup", "ctrl+u":
		return m.detail.Update(msg)
	case "/":
		m.mode = modeQuery
		return m.query.Focus()
	case "#":
		m.mode = modeTag
		return m.tag.Focus()
	case "x":
		// Clearing the inputs does not refetch; the next search does.
		m.query.SetValue("")
		m.tag.SetValue("")
	case "t":
		if sel := m.list.Selected(); sel != nil && len(sel.Tags) > 0 {
			m.tag.SetValue(sel.Tags[0].Name)
			m.notice = "tag filter set, press r to search"
		}
	case "r", "enter":
		return m.startRefresh(m.filter())
	case "m":
		mode := m.refresher.ToggleMode()
		m.notice = fmt.Sprintf("fetch mode: %s", mode)
	case "n":
		m.form = newTaskForm()
		m.mode = modeForm
		return textinput.Blink
	case "e":
		if sel := m.list.Selected(); sel != nil {
			m.form = editTaskForm(sel)
			m.mode = modeForm
			return textinput.Blink
		}
	case " ", "space":
		if sel := m.list.Selected(); sel != nil {
			return m.mutate("toggle", func(ctx context.Context) (*client.Result, error) {
				return m.refresher.ToggleStatus(ctx, sel)
			})
		}
	case "d":
		if m.list.Selected() != nil {
			m.mode = modeConfirmDelete
		}
	}
	return nil
}

func (m *Model) updateFilterInput(msg tea.KeyMsg) tea.Cmd {
	input := &m.query
	if m.mode == modeTag {
		input = &m.tag
	}

	switch msg.String() {
	case "esc":
		input.Blur()
		m.mode = modeBrowse
		return nil
	case "enter":
		input.Blur()
		m.mode = modeBrowse
		return m.startRefresh(m.filter())
	}

	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	return cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.form = nil
		m.mode = modeBrowse
		return nil
	case "tab":
		m.form.move(1)
		return nil
	case "shift+tab":
		m.form.move(-1)
		return nil
	case "ctrl+s":
		return m.submitForm()
	}

	// The description takes enter and the arrows as text editing keys.
	if m.form.multiline() {
		return m.form.Update(msg)
	}

	switch msg.String() {
	case "down":
		m.form.move(1)
		return nil
	case "up":
		m.form.move(-1)
		return nil
	case "enter":
		if !m.form.onLastField() {
			m.form.move(1)
			return nil
		}
		return m.submitForm()
	}
	return m.form.Update(msg)
}

func (m *Model) submitForm() tea.Cmd {
	in, err := m.form.Input()
	if err != nil {
		m.errMsg = err.Error()
		return nil
	}

	form := m.form
	m.form = nil
	m.mode = modeBrowse

	if form.isEdit() {
		id := form.editingID
		return m.mutate("update", func(ctx context.Context) (*client.Result, error) {
			return m.refresher.Update(ctx, id, in)
		})
	}
	return m.mutate("create", func(ctx context.Context) (*client.Result, error) {
		return m.refresher.Create(ctx, in)
	})
}

func (m *Model) updateConfirmDelete(msg tea.KeyMsg) tea.Cmd {
	m.mode = modeBrowse
	sel := m.list.Selected()
	if sel == nil || (msg.String() != "y" && msg.String() != "Y") {
		return nil
	}
	id := sel.ID
	return m.mutate("delete", func(ctx context.Context) (*client.Result, error) {
		return m.refresher.Delete(ctx, id)
	})
}

func (m *Model) recalculateLayout() {
	if !m.ready {
		return
	}

	m.listWidth = m.width * 2 / 5
	if m.listWidth < 30 {
		m.listWidth = 30
	}
	detailWidth := m.width - m.listWidth - 1
	if detailWidth < 10 {
		detailWidth = 10
	}

	body := m.bodyHeight()
	m.list.Width = m.listWidth
	m.list.Height = body
	m.detail.SetSize(detailWidth, body)
	m.renderDetail()
}

// bodyHeight is what is left for the list and the detail pane once the
// header, the filter bar, the status line and the help line are drawn.
func (m *Model) bodyHeight() int {
	h := m.height - 5
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) renderDetail() {
	sel := m.list.Selected()
	if sel == nil {
		m.detail.SetContent("")
		return
	}
	m.detail.SetContent(renderMarkdown(taskMarkdown(sel), m.detail.Width()))
}

func taskMarkdown(t *models.TaskDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", t.Title)
	if strings.TrimSpace(t.Description) != "" {
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "- **Status:** %s\n", t.Status)
	if t.DueDate != nil {
		fmt.Fprintf(&b, "- **Due:** %s\n", *t.DueDate)
	}
	if t.Location != nil {
		fmt.Fprintf(&b, "- **Location:** %s\n", *t.Location)
	}
	if names := t.TagNames(); len(names) > 0 {
		fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(names, ", "))
	}
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Updated:** %s\n", t.UpdatedAt.Local().Format(time.DateTime))
	}
	return b.String()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading tasks..."
	}

	header := m.renderHeader()
	filters := lipgloss.JoinHorizontal(lipgloss.Top, m.query.View(), "   ", m.tag.View())

	var body string
	if m.mode == modeForm && m.form != nil {
		body = m.form.View(m.width)
	} else {
		list := lipgloss.NewStyle().
			Width(m.listWidth).
			Height(m.bodyHeight()).
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("240")).
			Render(m.list.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, list, m.detail.View())
	}

	return strings.Join([]string{header, filters, body, m.renderStatus(), m.renderHelp()}, "\n")
}

func (m *Model) renderHeader() string {
	text := fmt.Sprintf("Taskboard | mode: %s", m.refresher.Mode())
	f := m.refresher.Filter()
	if f.Query != "" || f.Tag != "" {
		text += fmt.Sprintf(" | showing q=%q tag=%q", f.Query, f.Tag)
	}
	orb := orbStyle.Render("⬤")
	return headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Center, orb, " ", headerTextStyle.Render(text)))
}

func (m *Model) renderStatus() string {
	var parts []string
	if m.loading {
		parts = append(parts, m.spinner.View()+" loading")
	}
	if m.stats != nil {
		parts = append(parts, statsStyle.Render(fmt.Sprintf("last refresh: %d requests in %s (%s)",
			m.stats.Requests, m.stats.Elapsed.Round(time.Millisecond), m.stats.Mode)))
	}
	switch {
	case m.mode == modeConfirmDelete:
		if sel := m.list.Selected(); sel != nil {
			parts = append(parts, noticeStyle.Render(fmt.Sprintf("Delete %q? (y/n)", sel.Title)))
		}
	case m.errMsg != "":
		parts = append(parts, errorStyle.Render("Error: "+m.errMsg))
	case m.notice != "":
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderHelp() string {
	var help string
	switch m.mode {
	case modeQuery, modeTag:
		help = "enter: search • esc: stop editing"
	case modeForm:
		help = "tab/shift+tab: move • enter: next/save (newline in description) • ctrl+s: save • esc: cancel"
	default:
		help = "j/k: move • /: keyword • #: tag • x: clear • r: search • n: new • e: edit • space: toggle • d: delete • m: mode • q: quit"
	}
	return helpStyle.Render(help)
}

// Run starts the terminal client and blocks until it exits.
func Run(ctx context.Context, refresher *client.Refresher) error {
	applyColorProfile()
	p := tea.NewProgram(New(ctx, refresher), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
