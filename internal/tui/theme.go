package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// EnvTheme forces the markdown palette: light, dark or ascii.
const EnvTheme = "TASKBOARD_TUI_THEME"

// applyColorProfile honors NO_COLOR and otherwise follows the terminal.
func applyColorProfile() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.ColorProfile())
}

func markdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvTheme))) {
	case "light":
		return styles.LightStyle
	case "dark":
		return styles.DarkStyle
	case "ascii":
		return styles.AsciiStyle
	}
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return styles.AsciiStyle
	}
	if lipgloss.HasDarkBackground() {
		return styles.DarkStyle
	}
	return styles.LightStyle
}

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. Building a renderer is not free.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// renderMarkdown renders md for a pane width columns wide. On any
// renderer failure the source is returned unchanged.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()

	r := mdRenderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
