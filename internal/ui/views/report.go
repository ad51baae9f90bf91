package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"deskglue/internal/domain"
)

// MsgNoReportRows is shown when the AMC report matches nothing
const MsgNoReportRows = "No customers match these filters"

var reportColumns = []table.Column{
	{Title: "Code", Width: 10},
	{Title: "Customer", Width: 24},
	{Title: "AMC End", Width: 10},
	{Title: "Address", Width: 22},
	{Title: "Phone", Width: 12},
	{Title: "Product", Width: 14},
}

// NewReportTable creates the read-only table used for AMC report rows
func NewReportTable(styles *Styles) table.Model {
	s := table.DefaultStyles()
	s.Header = s.Header.Foreground(styles.Title.GetForeground()).Bold(true)
	s.Selected = s.Selected.UnsetForeground().UnsetBackground().UnsetBold()

	return table.New(
		table.WithColumns(reportColumns),
		table.WithFocused(false),
		table.WithHeight(10),
		table.WithStyles(s),
	)
}

// ReportRows converts AMC rows to table rows
func ReportRows(rows []domain.AMCRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		end := r.AMCEndDate
		if end == "" {
			end = "-"
		}
		out = append(out, table.Row{r.CustomerCode, r.CustomerName, end, r.Address, r.Phone, r.Product})
	}
	return out
}

// ReportView is what the report section renders
type ReportView struct {
	Table   string // rendered table
	Rows    int
	Filters domain.ReportFilters
	Loading bool
	Stale   bool // panel filters changed since the report ran
}

// RenderReport renders the AMC report below the filter panel
func (r *Renderer) RenderReport(v ReportView) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render("Customer - AMC Details"))
	b.WriteString("  ")
	b.WriteString(r.styles.Dim.Render(describeFilters(v.Filters)))
	b.WriteString("\n")

	switch {
	case v.Loading:
		b.WriteString(r.styles.StatusLoading.Render("Running report..."))
		return b.String()
	case v.Rows == 0:
		b.WriteString(r.styles.StatusWarning.Render(MsgNoReportRows))
	default:
		b.WriteString(v.Table)
		b.WriteString("\n")
		b.WriteString(r.styles.Dim.Render(fmt.Sprintf("%d customers", v.Rows)))
	}
	if v.Stale {
		b.WriteString("\n")
		b.WriteString(r.styles.StatusWarning.Render("Filters changed, press r to refresh"))
	}
	return b.String()
}

func describeFilters(f domain.ReportFilters) string {
	status := f.AMCStatus
	if status == "" {
		status = domain.AMCAll
	}
	return joinNonEmpty(" · ", f.Customer, status, joinNonEmpty(" ", f.ExpiryMonth, f.ExpiryYear))
}
