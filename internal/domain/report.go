package domain

import "time"

// AMC status values of the report filter
const (
	AMCAll            = "All"
	AMCExpired        = "AMC Expired"
	AMCUpcomingExpiry = "Upcoming Expiry"
)

// AMCDateLayout is how AMC dates are stored on customer records
const AMCDateLayout = "2006-01-02"

// ReportFilters selects rows of the customer AMC report.
// Empty strings mean "no condition".
type ReportFilters struct {
	Customer    string
	AMCStatus   string
	ExpiryMonth string // January..December
	ExpiryYear  string
}

// AMCRow is one line of the customer AMC report
type AMCRow struct {
	CustomerCode string
	CustomerName string
	AMCEndDate   string
	Address      string
	Phone        string
	Product      string
}

// MonthNumber maps a month name to 1..12, or 0 if unknown
func MonthNumber(name string) int {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return int(m)
		}
	}
	return 0
}
