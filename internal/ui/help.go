package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/noborus/ov/oviewer"
)

// HelpRenderer handles help content rendering
type HelpRenderer struct {
	statuses []string
}

// NewHelpRenderer creates a new help renderer. statuses are the AMC status
// values the filter panel cycles through.
func NewHelpRenderer(statuses []string) *HelpRenderer {
	return &HelpRenderer{statuses: statuses}
}

// RenderHelpContent generates the full help text with colors for the pager
func (r *HelpRenderer) RenderHelpContent() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	line := func(b *strings.Builder, key, desc string) {
		fmt.Fprintf(b, "  %s %s\n", keyStyle.Render(key), descStyle.Render(desc))
	}

	var help strings.Builder

	help.WriteString(titleStyle.Render("deskglue Help"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Filter Panel"))
	help.WriteString("\n")
	line(&help, "↑/↓, j/k", "Move between visible filters")
	line(&help, "←/→, h/l", "Change the focused filter")
	line(&help, "Enter, /", "Search customers")
	line(&help, "Backspace", "Clear the focused filter")
	line(&help, "r", "Show the AMC report for the visible filters")
	line(&help, "p", "Set AMC status without a change event (picked up by polling)")
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Customer Search"))
	help.WriteString("\n")
	line(&help, "type", "Search by code, name, address, place or phone")
	line(&help, "↑/↓", "Select a customer")
	line(&help, "Enter", "Use the selected customer")
	line(&help, "Esc", "Close without changing the filter")
	help.WriteString("\n")

	if len(r.statuses) > 0 {
		noteStyle := lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
		help.WriteString(noteStyle.Render("  AMC status values: " + strings.Join(r.statuses, ", ")))
		help.WriteString("\n")
	}

	help.WriteString(sectionStyle.Render("Other"))
	help.WriteString("\n")
	line(&help, "?", "Show this help")
	line(&help, "q, Ctrl+C", "Quit")

	return strings.TrimRight(help.String(), "\n")
}

// HelpOps shows help in the ov pager
type HelpOps struct {
	program *tea.Program // reference to Bubble Tea program for terminal management
}

// NewHelpOps creates a new help operations instance
func NewHelpOps(program *tea.Program) *HelpOps {
	return &HelpOps{
		program: program,
	}
}

// ShowHelpInPager shows help content using ov pager
func (h *HelpOps) ShowHelpInPager(helpContent string) error {
	if h.program == nil {
		return errors.New("program not set")
	}

	// Release terminal control to run ov
	if err := h.program.ReleaseTerminal(); err != nil {
		return err
	}
	defer func() {
		// give ov time to reset the terminal before bubbletea takes it back
		time.Sleep(100 * time.Millisecond)
		_ = h.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(strings.NewReader(helpContent))
	if err != nil {
		return err
	}

	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}
