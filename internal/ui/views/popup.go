package views

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PopupRenderer handles popup/modal rendering
type PopupRenderer struct {
	styles *Styles
}

// NewPopupRenderer creates a new popup renderer
func NewPopupRenderer(styles *Styles) *PopupRenderer {
	return &PopupRenderer{
		styles: styles,
	}
}

// RenderPopupOverlay centres the styled popup over a greyed-out copy of the
// main content. The main content is only used for sizing when the terminal is
// large enough to show the popup alone.
func (pr *PopupRenderer) RenderPopupOverlay(mainContent, popupContent string, height, width int) string {
	styledPopup := pr.styles.Popup.Render(popupContent)
	if width <= 0 || height <= 0 {
		return styledPopup
	}

	base := strings.Split(Desaturate(mainContent), "\n")
	popupLines := strings.Split(styledPopup, "\n")
	popupW := lipgloss.Width(styledPopup)

	top := (height - len(popupLines)) / 2
	if top < 0 {
		top = 0
	}
	left := (width - popupW) / 2
	if left < 0 {
		left = 0
	}

	for len(base) < top+len(popupLines) {
		base = append(base, "")
	}
	pad := strings.Repeat(" ", left)
	for i, line := range popupLines {
		base[top+i] = pad + line
	}
	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, strings.Join(base, "\n"))
}

// ANSI escape sequence regex to strip styles/colors
var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes color and style codes
func StripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// Desaturate strips ANSI color/style codes and recolors text dim gray
func Desaturate(s string) string {
	lines := strings.Split(StripANSI(s), "\n")
	gray := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	for i, line := range lines {
		lines[i] = gray.Render(line)
	}
	return strings.Join(lines, "\n")
}
