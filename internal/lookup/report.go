package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"deskglue/internal/domain"
)

const (
	reportMethod = "frappe.desk.query_report.run"
	// ReportName is the server-side script report behind AMCReport
	ReportName = "Customer - AMC Details"
)

// AMCReport lists customers by AMC end date.
//
// All (or no status) applies no date condition. Any other status needs a
// parseable AMC date; AMC Expired keeps dates before today and Upcoming Expiry
// keeps today onwards, narrowed by the expiry month and year when they are set.
// Customer matches the record name or the customer name exactly.
func (d *Directory) AMCReport(ctx context.Context, f domain.ReportFilters) ([]domain.AMCRow, error) {
	d.mu.RLock()
	today := d.clock.Now().Format(domain.AMCDateLayout)
	var rows []domain.AMCRow
	for _, c := range d.customers {
		if err := ctx.Err(); err != nil {
			d.mu.RUnlock()
			return nil, err
		}
		if f.Customer != "" && c.Name != f.Customer && c.CustomerName != f.Customer {
			continue
		}
		if !amcMatches(c.AMCLastPaid, today, f) {
			continue
		}
		rows = append(rows, amcRow(c))
	}
	d.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AMCEndDate != rows[j].AMCEndDate {
			return rows[i].AMCEndDate < rows[j].AMCEndDate
		}
		return rows[i].CustomerName < rows[j].CustomerName
	})
	return rows, nil
}

func amcMatches(paid, today string, f domain.ReportFilters) bool {
	if f.AMCStatus == "" || f.AMCStatus == domain.AMCAll {
		return true
	}
	if paid == "" {
		return false
	}
	date, err := time.Parse(domain.AMCDateLayout, paid)
	if err != nil {
		return false
	}
	day := date.Format(domain.AMCDateLayout)

	switch f.AMCStatus {
	case domain.AMCExpired:
		return day < today
	case domain.AMCUpcomingExpiry:
		if day < today {
			return false
		}
		if m := domain.MonthNumber(f.ExpiryMonth); m != 0 && int(date.Month()) != m {
			return false
		}
		if y, err := strconv.Atoi(f.ExpiryYear); err == nil && date.Year() != y {
			return false
		}
	}
	return true
}

func amcRow(c domain.Customer) domain.AMCRow {
	return domain.AMCRow{
		CustomerCode: c.Code,
		CustomerName: c.CustomerName,
		AMCEndDate:   c.AMCLastPaid,
		Address:      c.Address1,
		Phone:        c.Phone1,
		Product:      c.ProductName,
	}
}

// AMCReport runs the Customer - AMC Details script report on the server
func (c *FrappeClient) AMCReport(ctx context.Context, f domain.ReportFilters) ([]domain.AMCRow, error) {
	filters := map[string]string{}
	for key, value := range map[string]string{
		"customer_name": f.Customer,
		"amc_status":    f.AMCStatus,
		"expiry_month":  f.ExpiryMonth,
		"expiry_year":   f.ExpiryYear,
	} {
		if value != "" {
			filters[key] = value
		}
	}
	encoded, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report filters: %w", err)
	}

	body, err := c.call(ctx, reportMethod, url.Values{
		"report_name": {ReportName},
		"filters":     {string(encoded)},
	})
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "message.result")
	if !result.IsArray() {
		return nil, fmt.Errorf("unexpected report response: result is %s", result.Type)
	}

	rows := []domain.AMCRow{}
	result.ForEach(func(_, row gjson.Result) bool {
		// total rows come back as plain arrays
		if !row.IsObject() {
			return true
		}
		rows = append(rows, domain.AMCRow{
			CustomerCode: row.Get("customer_code").String(),
			CustomerName: row.Get("customer_name").String(),
			AMCEndDate:   row.Get("amc_end_date").String(),
			Address:      row.Get("address").String(),
			Phone:        row.Get("phone").String(),
			Product:      row.Get("product").String(),
		})
		return true
	})
	return rows, nil
}
