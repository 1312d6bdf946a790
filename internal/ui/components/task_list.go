package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/ldi/taskboard/pkg/models"
)

var (
	completedTaskStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	pendingTaskStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("12")).
				Bold(true)

	listHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	dueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

// TaskList renders the assembled tasks, one row each, with a cursor.
type TaskList struct {
	Tasks  []*models.TaskDetail
	Cursor int
	Width  int
	Height int
	Title  string
	offset int
}

func NewTaskList(width int) *TaskList {
	return &TaskList{
		Width: width,
		Title: "Tasks",
	}
}

// SetTasks replaces the rows, keeping the cursor on the same task id when
// it is still present.
func (l *TaskList) SetTasks(tasks []*models.TaskDetail) {
	var selectedID int64
	if sel := l.Selected(); sel != nil {
		selectedID = sel.ID
	}

	l.Tasks = tasks
	l.Cursor = 0
	for i, t := range tasks {
		if t.ID == selectedID {
			l.Cursor = i
			break
		}
	}
	l.clamp()
}

func (l *TaskList) Selected() *models.TaskDetail {
	if l.Cursor < 0 || l.Cursor >= len(l.Tasks) {
		return nil
	}
	return l.Tasks[l.Cursor]
}

// Move shifts the cursor by delta, stopping at both ends.
func (l *TaskList) Move(delta int) {
	l.Cursor += delta
	l.clamp()
}

func (l *TaskList) clamp() {
	if l.Cursor >= len(l.Tasks) {
		l.Cursor = len(l.Tasks) - 1
	}
	if l.Cursor < 0 {
		l.Cursor = 0
	}

	rows := l.visibleRows()
	if rows <= 0 {
		l.offset = 0
		return
	}
	if l.Cursor < l.offset {
		l.offset = l.Cursor
	} else if l.Cursor >= l.offset+rows {
		l.offset = l.Cursor - rows + 1
	}
}

func (l *TaskList) visibleRows() int {
	if l.Height <= 0 {
		return len(l.Tasks)
	}
	rows := l.Height
	if l.Title != "" {
		rows--
	}
	return rows
}

func (l *TaskList) View() string {
	var content string
	if len(l.Tasks) == 0 {
		content = placeholderStyle.Render("No tasks")
	} else {
		l.clamp()
		end := l.offset + l.visibleRows()
		if end > len(l.Tasks) {
			end = len(l.Tasks)
		}
		lines := make([]string, 0, end-l.offset)
		for i := l.offset; i < end; i++ {
			lines = append(lines, l.renderRow(l.Tasks[i], i == l.Cursor))
		}
		content = strings.Join(lines, "\n")
	}

	if l.Title != "" {
		return listHeaderStyle.Render(fmt.Sprintf("%s (%d)", l.Title, len(l.Tasks))) + "\n" + content
	}
	return content
}

func (l *TaskList) renderRow(t *models.TaskDetail, selected bool) string {
	icon, style := "○", pendingTaskStyle
	if t.Status == models.TaskStatusCompleted {
		icon, style = "✓", completedTaskStyle
	}

	pointer := "  "
	if selected {
		pointer = "> "
		style = selectedRowStyle
	}

	line := pointer + style.Render(icon+" "+t.Title)
	if t.DueDate != nil {
		line += " " + dueStyle.Render(*t.DueDate)
	}
	if names := t.TagNames(); len(names) > 0 {
		line += " " + tagStyle.Render("#"+strings.Join(names, " #"))
	}

	if l.Width > 0 && xansi.StringWidth(line) > l.Width {
		// Terminate any styling left open by the cut.
		line = xansi.Truncate(line, l.Width-1, "…") + "\x1b[0m"
	}
	return line
}
