package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/taskboard/internal/client"
	"github.com/ldi/taskboard/pkg/models"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldDueDate
	fieldLocation
	fieldTags
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Description", "Due date", "Location", "Tags"}

var (
	formTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	formLabelStyle = lipgloss.NewStyle().
			Width(13).
			Foreground(lipgloss.Color("241"))

	formFocusedLabelStyle = formLabelStyle.
				Foreground(lipgloss.Color("12")).
				Bold(true)

	formBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

var errTitleRequired = errors.New("title is required")

// taskForm edits the fields of a new or existing task. The description is
// multi-line and lives in its own textarea; inputs[fieldDescription] is unused.
type taskForm struct {
	inputs      []textinput.Model
	description textarea.Model
	focus       int
	// editingID is zero for a new task.
	editingID int64
	status    models.TaskStatus

	// original holds the stored values of an edited task and loaded what the
	// widgets showed for them. A field the user did not touch is sent back
	// as original, since the widgets normalize tabs and carriage returns.
	original [fieldCount]string
	loaded   [fieldCount]string
}

func newTaskForm() *taskForm {
	f := &taskForm{inputs: make([]textinput.Model, fieldCount)}
	placeholders := [fieldCount]string{"Buy milk", "Details (markdown)", "YYYY-MM-DD", "Where", "comma, separated"}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 0
		ti.Prompt = ""
		f.inputs[i] = ti
	}

	ta := textarea.New()
	ta.Placeholder = placeholders[fieldDescription]
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.SetHeight(4)
	f.description = ta

	f.inputs[fieldTitle].Focus()
	return f
}

func editTaskForm(task *models.TaskDetail) *taskForm {
	f := newTaskForm()
	f.editingID = task.ID
	f.status = task.Status
	f.load(fieldTitle, task.Title)
	f.load(fieldDescription, task.Description)
	if task.DueDate != nil {
		f.load(fieldDueDate, *task.DueDate)
	}
	if task.Location != nil {
		f.load(fieldLocation, *task.Location)
	}
	f.load(fieldTags, strings.Join(task.TagNames(), ", "))
	return f
}

func (f *taskForm) load(field int, v string) {
	f.setValue(field, v)
	f.original[field] = v
	f.loaded[field] = f.value(field)
}

func (f *taskForm) value(field int) string {
	if field == fieldDescription {
		return f.description.Value()
	}
	return f.inputs[field].Value()
}

func (f *taskForm) setValue(field int, v string) {
	if field == fieldDescription {
		f.description.SetValue(v)
		return
	}
	f.inputs[field].SetValue(v)
}

// current returns the field's value, or its stored value when unchanged.
func (f *taskForm) current(field int) string {
	v := f.value(field)
	if f.isEdit() && v == f.loaded[field] {
		return f.original[field]
	}
	return v
}

func (f *taskForm) isEdit() bool {
	return f.editingID != 0
}

func (f *taskForm) multiline() bool {
	return f.focus == fieldDescription
}

func (f *taskForm) move(delta int) {
	if f.multiline() {
		f.description.Blur()
	} else {
		f.inputs[f.focus].Blur()
	}
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	if f.multiline() {
		f.description.Focus()
	} else {
		f.inputs[f.focus].Focus()
	}
}

func (f *taskForm) onLastField() bool {
	return f.focus == fieldCount-1
}

func (f *taskForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.multiline() {
		f.description, cmd = f.description.Update(msg)
		return cmd
	}
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// Input builds the request payload. The title check mirrors the server's
// so that an obviously invalid create never leaves the terminal.
func (f *taskForm) Input() (models.TaskInput, error) {
	in := models.TaskInput{
		Title:       strings.TrimSpace(f.current(fieldTitle)),
		Description: f.current(fieldDescription),
		Tags:        client.ParseTags(f.current(fieldTags)),
	}
	if in.Title == "" {
		return in, errTitleRequired
	}
	if due := strings.TrimSpace(f.current(fieldDueDate)); due != "" {
		in.DueDate = &due
	}
	if loc := strings.TrimSpace(f.current(fieldLocation)); loc != "" {
		in.Location = &loc
	}
	if f.isEdit() {
		in.Status = f.status
	}
	return in, nil
}

func (f *taskForm) View(width int) string {
	title := "New task"
	if f.isEdit() {
		title = "Edit task"
	}

	if width > 24 {
		f.description.SetWidth(width - 20)
	}

	var b strings.Builder
	b.WriteString(formTitleStyle.Render(title))
	b.WriteString("\n")
	for i := 0; i < fieldCount; i++ {
		label := formLabelStyle.Render(fieldLabels[i])
		if i == f.focus {
			label = formFocusedLabelStyle.Render(fieldLabels[i])
		}
		view := f.inputs[i].View()
		if i == fieldDescription {
			view = f.description.View()
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, label, view))
		if i < fieldCount-1 {
			b.WriteString("\n")
		}
	}

	style := formBoxStyle
	if width > 4 {
		style = style.Width(width - 2)
	}
	return style.Render(b.String())
}
