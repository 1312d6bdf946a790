package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// DetailPane shows pre-rendered task details in a scrollable viewport.
type DetailPane struct {
	viewport viewport.Model
	content  string
	ready    bool
}

func NewDetailPane(width, height int) *DetailPane {
	p := &DetailPane{}
	p.SetSize(width, height)
	return p
}

// SetSize resizes the pane. One column is kept for the scrollbar.
func (p *DetailPane) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !p.ready {
		p.viewport = viewport.New(vpWidth, height)
		p.ready = true
	} else {
		p.viewport.Width = vpWidth
		p.viewport.Height = height
	}
	p.viewport.SetContent(p.content)
}

// SetContent replaces the content and scrolls back to the top.
func (p *DetailPane) SetContent(content string) {
	p.content = content
	p.viewport.SetContent(content)
	p.viewport.GotoTop()
}

func (p *DetailPane) Content() string {
	return p.content
}

func (p *DetailPane) Width() int {
	return p.viewport.Width
}

func (p *DetailPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return cmd
}

func (p *DetailPane) View() string {
	if !p.ready {
		return ""
	}

	if p.viewport.TotalLineCount() <= p.viewport.Height {
		return p.viewport.View()
	}

	h := p.viewport.Height
	handlePos := int(float64(h-1) * p.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, p.viewport.View(), sb.String())
}
