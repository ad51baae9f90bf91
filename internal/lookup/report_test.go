package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskglue/internal/domain"
)

func amcCustomers() []domain.Customer {
	return []domain.Customer{
		{Name: "CUST-A", CustomerName: "Anand Stores", Code: "A", AMCLastPaid: "2025-03-31"},
		{Name: "CUST-B", CustomerName: "Bharath Agencies", Code: "B", AMCLastPaid: "2025-07-10"},
		{Name: "CUST-C", CustomerName: "Chandra Medicals", Code: "C", AMCLastPaid: "2026-03-05"},
		{Name: "CUST-D", CustomerName: "Devi Textiles", Code: "D"},
		{Name: "CUST-E", CustomerName: "Eswar Traders", Code: "E", AMCLastPaid: "2025-06-15"},
		{Name: "CUST-F", CustomerName: "Fathima Bakery", Code: "F", AMCLastPaid: "soon"},
	}
}

func rowCodes(rows []domain.AMCRow) []string {
	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.CustomerCode)
	}
	return codes
}

func TestDirectoryAMCReport(t *testing.T) {
	dir := NewDirectory(amcCustomers(), 0)
	dir.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)))

	tests := []struct {
		name    string
		filters domain.ReportFilters
		want    []string
	}{
		{
			name:    "no filters",
			filters: domain.ReportFilters{},
			want:    []string{"D", "A", "E", "B", "C", "F"},
		},
		{
			name:    "all applies no date condition",
			filters: domain.ReportFilters{AMCStatus: domain.AMCAll},
			want:    []string{"D", "A", "E", "B", "C", "F"},
		},
		{
			name:    "expired is before today",
			filters: domain.ReportFilters{AMCStatus: domain.AMCExpired},
			want:    []string{"A"},
		},
		{
			name:    "upcoming includes today",
			filters: domain.ReportFilters{AMCStatus: domain.AMCUpcomingExpiry},
			want:    []string{"E", "B", "C"},
		},
		{
			name:    "upcoming in month",
			filters: domain.ReportFilters{AMCStatus: domain.AMCUpcomingExpiry, ExpiryMonth: "March"},
			want:    []string{"C"},
		},
		{
			name:    "upcoming in year",
			filters: domain.ReportFilters{AMCStatus: domain.AMCUpcomingExpiry, ExpiryYear: "2025"},
			want:    []string{"E", "B"},
		},
		{
			name:    "upcoming in month and year",
			filters: domain.ReportFilters{AMCStatus: domain.AMCUpcomingExpiry, ExpiryMonth: "July", ExpiryYear: "2026"},
			want:    []string{},
		},
		{
			name:    "unparseable year is ignored",
			filters: domain.ReportFilters{AMCStatus: domain.AMCUpcomingExpiry, ExpiryYear: "next"},
			want:    []string{"E", "B", "C"},
		},
		{
			name:    "month does not narrow expired",
			filters: domain.ReportFilters{AMCStatus: domain.AMCExpired, ExpiryMonth: "July"},
			want:    []string{"A"},
		},
		{
			name:    "month and year do not narrow all",
			filters: domain.ReportFilters{AMCStatus: domain.AMCAll, ExpiryMonth: "March", ExpiryYear: "2026"},
			want:    []string{"D", "A", "E", "B", "C", "F"},
		},
		{
			name:    "customer by record name",
			filters: domain.ReportFilters{Customer: "CUST-B"},
			want:    []string{"B"},
		},
		{
			name:    "customer by customer name",
			filters: domain.ReportFilters{Customer: "Anand Stores", AMCStatus: domain.AMCExpired},
			want:    []string{"A"},
		},
		{
			name:    "customer outside status",
			filters: domain.ReportFilters{Customer: "CUST-A", AMCStatus: domain.AMCUpcomingExpiry},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := dir.AMCReport(context.Background(), tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rowCodes(rows))
		})
	}
}

func TestDirectoryAMCReportRowFields(t *testing.T) {
	dir := NewDirectory([]domain.Customer{{
		Name: "CUST-1", CustomerName: "John Traders", Code: "JT001", AMCLastPaid: "2025-03-31",
		Address1: "14 Market Road", Address2: "Ground floor", Phone1: "9847012345", Phone2: "0484", ProductName: "Billing Pro",
	}}, 0)

	rows, err := dir.AMCReport(context.Background(), domain.ReportFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.AMCRow{
		CustomerCode: "JT001",
		CustomerName: "John Traders",
		AMCEndDate:   "2025-03-31",
		Address:      "14 Market Road",
		Phone:        "9847012345",
		Product:      "Billing Pro",
	}, rows[0])
}

func TestDirectoryAMCReportHonoursContext(t *testing.T) {
	dir := NewDirectory(amcCustomers(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := dir.AMCReport(ctx, domain.ReportFilters{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrappeAMCReport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/method/"+reportMethod, r.URL.Path)
		assert.Equal(t, ReportName, r.URL.Query().Get("report_name"))

		var filters map[string]string
		assert.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("filters")), &filters))
		assert.Equal(t, map[string]string{
			"amc_status":   domain.AMCUpcomingExpiry,
			"expiry_month": "March",
		}, filters)

		_, _ = w.Write([]byte(`{"message": {"columns": [], "result": [
			{"customer_code": "C003", "customer_name": "Chandra Medicals", "amc_end_date": "2026-03-05",
			 "address": null, "phone": "9995011122", "product": "Billing Lite"},
			["Total", "", "", "", "", ""]
		]}}`))
	})

	rows, err := client.AMCReport(context.Background(), domain.ReportFilters{
		AMCStatus:   domain.AMCUpcomingExpiry,
		ExpiryMonth: "March",
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.AMCRow{{
		CustomerCode: "C003",
		CustomerName: "Chandra Medicals",
		AMCEndDate:   "2026-03-05",
		Phone:        "9995011122",
		Product:      "Billing Lite",
	}}, rows)
}

func TestFrappeAMCReportUnexpectedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "Report not found"}`))
	})

	_, err := client.AMCReport(context.Background(), domain.ReportFilters{})
	assert.ErrorContains(t, err, "unexpected report response")
}
