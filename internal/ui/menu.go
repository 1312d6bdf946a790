package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("39")).Bold(true)
	descStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
 ┌┬┐┌─┐┌─┐┬┌─┌┐ ┌─┐┌─┐┬─┐┌┬┐
  │ ├─┤└─┐├┴┐├┴┐│ │├─┤├┬┘ ││
  ┴ ┴ ┴└─┘┴ ┴└─┘└─┘┴ ┴┴└──┴┘
`

// Choice is one entry of the launcher menu. Name matches a subcommand.
type Choice struct {
	Name string
	Desc string
}

var defaultChoices = []Choice{
	{Name: "serve", Desc: "run the task API"},
	{Name: "tui", Desc: "browse tasks in the terminal"},
	{Name: "fetch", Desc: "refresh once and print timings"},
	{Name: "tags", Desc: "list tags with task counts"},
	{Name: "export", Desc: "write a JSONL snapshot"},
	{Name: "mcp", Desc: "serve the task tools over stdio"},
}

type MenuModel struct {
	choices  []Choice
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{choices: defaultChoices}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = len(m.choices) - 1

		case "enter":
			m.selected = m.choices[m.cursor].Name
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n\n")

	width := 0
	for _, c := range m.choices {
		width = max(width, len(c.Name))
	}

	for i, c := range m.choices {
		name := fmt.Sprintf("%-*s", width, c.Name)
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + name))
		} else {
			s.WriteString(itemStyle.Render("  " + name))
		}
		s.WriteString("  ")
		s.WriteString(descStyle.Render(c.Desc))
		s.WriteString("\n")
	}

	s.WriteString("\n(use arrow keys or j/k to navigate, enter to select, q to quit)\n")

	return s.String()
}

// Selected is the chosen subcommand, or "" if the menu was dismissed.
func (m MenuModel) Selected() string {
	return m.selected
}

func RunMenu() (string, error) {
	p := tea.NewProgram(NewMenuModel())
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
