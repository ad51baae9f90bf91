package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"deskglue/internal/domain"
)

// Validation and state messages shown by the search popup
const (
	MsgNoSelection = "Please select a customer"
	MsgNoResults   = "No customers found"
	MsgTypeToFind  = "Type to search customers"
)

// FieldView is one visible row of the filter panel
type FieldView struct {
	Name        string
	Label       string
	Value       string
	Placeholder string
	Color       string // optional foreground for the value
	Focused     bool
}

// SearchView is what the search popup renders
type SearchView struct {
	Input      string // rendered text input
	Spinner    string
	Snapshot   domain.SearchSnapshot
	Cursor     int
	Validation string
	MaxRows    int
}

// Renderer draws the filter panel, search popup and details box
type Renderer struct {
	styles *Styles
}

// NewRenderer creates a new renderer
func NewRenderer(styles *Styles) *Renderer {
	return &Renderer{styles: styles}
}

// RenderPanel renders the filter fields, one per line
func (r *Renderer) RenderPanel(title string, fields []FieldView) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(title))
	b.WriteString("\n")

	for _, f := range fields {
		marker := "  "
		label := r.styles.Label.Render(f.Label)
		if f.Focused {
			marker = r.styles.Focused.Render("> ")
			label = r.styles.Focused.Width(14).Render(f.Label)
		}

		var value string
		switch {
		case f.Value == "":
			value = r.styles.Placeholder.Render(f.Placeholder)
		case f.Color != "":
			value = lipgloss.NewStyle().Foreground(lipgloss.Color(f.Color)).Render(f.Value)
		default:
			value = r.styles.Value.Render(f.Value)
		}
		b.WriteString(marker + label + value + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderSearch renders the body of the customer search popup
func (r *Renderer) RenderSearch(v SearchView) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render("Search Customer"))
	b.WriteString("\n")
	b.WriteString(v.Input)
	b.WriteString("\n\n")

	snap := v.Snapshot
	switch snap.Status {
	case domain.StatusIdle:
		b.WriteString(r.styles.Dim.Render(MsgTypeToFind))
	case domain.StatusLoading:
		b.WriteString(r.styles.StatusLoading.Render(v.Spinner + " Searching..."))
	case domain.StatusEmpty:
		b.WriteString(r.styles.StatusWarning.Render(MsgNoResults))
	case domain.StatusError:
		b.WriteString(r.styles.StatusError.Render("Error: " + snap.Message))
	case domain.StatusResults:
		b.WriteString(r.renderResults(v))
	}

	if v.Validation != "" {
		b.WriteString("\n\n")
		b.WriteString(r.styles.StatusError.Render(v.Validation))
	}
	return b.String()
}

func (r *Renderer) renderResults(v SearchView) string {
	results := v.Snapshot.Results
	maxRows := v.MaxRows
	if maxRows <= 0 || maxRows > len(results) {
		maxRows = len(results)
	}

	// keep the cursor inside the window
	start := 0
	if v.Cursor >= maxRows {
		start = v.Cursor - maxRows + 1
	}
	end := start + maxRows
	if end > len(results) {
		end = len(results)
	}

	selectedID := ""
	if v.Snapshot.Selected != nil {
		selectedID = v.Snapshot.Selected.ID
	}

	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		res := results[i]
		mark := "  "
		if res.ID == selectedID {
			mark = r.styles.StatusSuccess.Render("✓ ")
		}
		name := res.DisplayName
		if i == v.Cursor {
			name = r.styles.Highlight.Render(name)
		}
		line := mark + name
		if extra := secondaryLine(res); extra != "" {
			line += "  " + r.styles.Secondary.Render(extra)
		}
		if i == v.Cursor {
			line = r.styles.SelectionBg.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, r.styles.Dim.Render(fmt.Sprintf("%d of %d", v.Cursor+1, len(results))))
	return strings.Join(lines, "\n")
}

func secondaryLine(res domain.SearchResult) string {
	var parts []string
	for _, key := range []string{"code", "place", "phone"} {
		if v, ok := res.SecondaryField(key); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " · ")
}

// RenderDetails renders a customer record in an info box
func (r *Renderer) RenderDetails(c *domain.Customer, width int) string {
	if c == nil {
		return ""
	}
	rows := []struct{ label, value string }{
		{"Code", c.Code},
		{"Address", joinNonEmpty(", ", c.Address1, c.Address2)},
		{"Place", c.Place},
		{"District", c.District},
		{"State", joinNonEmpty(", ", c.State, c.Country)},
		{"Contact", c.ContactPerson},
		{"Phone", joinNonEmpty(" / ", c.Phone1, c.Phone2)},
		{"Email", c.Email},
		{"GST No", c.GSTNo},
		{"Product", c.ProductName},
		{"Licences", c.LicenseCount},
		{"AMC Paid", c.AMCLastPaid},
	}

	name := c.CustomerName
	if name == "" {
		name = c.Name
	}

	var b strings.Builder
	b.WriteString(r.styles.Highlight.Render(name))
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(r.styles.Label.Render(row.label) + r.styles.Value.Render(row.value))
	}

	box := r.styles.InfoBox
	if width > 4 {
		box = box.MaxWidth(width)
	}
	return box.Render(b.String())
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
