package domain

import (
	"strings"
	"time"
)

// SearchResult is one matched entity shown in the search popup
type SearchResult struct {
	ID          string
	DisplayName string
	// Secondary holds auxiliary display info (code, place, phone).
	// A missing key means the value is absent.
	Secondary map[string]string
}

// SecondaryField returns an auxiliary field and whether it is present
func (r SearchResult) SecondaryField(key string) (string, bool) {
	v, ok := r.Secondary[key]
	return v, ok
}

// SearchStatus is the discriminator of SearchState
type SearchStatus int

const (
	StatusIdle SearchStatus = iota
	StatusLoading
	StatusResults
	StatusEmpty
	StatusError
)

func (s SearchStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusResults:
		return "Results"
	case StatusEmpty:
		return "Empty"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Customer is the full helpdesk customer record
type Customer struct {
	Name          string    `yaml:"name"`
	CustomerName  string    `yaml:"customer_name"`
	SerialNo      string    `yaml:"sl_no"`
	Code          string    `yaml:"code"`
	Address1      string    `yaml:"address1"`
	Address2      string    `yaml:"address2"`
	Place         string    `yaml:"place"`
	District      string    `yaml:"district"`
	State         string    `yaml:"state"`
	Country       string    `yaml:"country"`
	ContactPerson string    `yaml:"contact_person"`
	Phone1        string    `yaml:"phone1"`
	Phone2        string    `yaml:"phone2"`
	GSTNo         string    `yaml:"gst_no"`
	Email         string    `yaml:"email"`
	ProductName   string    `yaml:"product"`
	LicenseCount  string    `yaml:"licenses"`
	AMCLastPaid   string    `yaml:"amc_last_paid"`
	Modified      time.Time `yaml:"modified"`
}

// SearchText is the concatenation used for word matching
func (c Customer) SearchText() string {
	return strings.Join([]string{
		c.Code, c.CustomerName, c.Address1, c.Address2, c.Place, c.Phone1, c.Phone2,
	}, " ")
}

// AsSearchResult maps a customer onto the popup row shape
func (c Customer) AsSearchResult() SearchResult {
	secondary := make(map[string]string)
	if c.Code != "" {
		secondary["code"] = c.Code
	}
	if c.Place != "" {
		secondary["place"] = c.Place
	}
	if c.Phone1 != "" {
		secondary["phone"] = c.Phone1
	}
	display := c.CustomerName
	if display == "" {
		display = c.Name
	}
	return SearchResult{
		ID:          c.Name,
		DisplayName: display,
		Secondary:   secondary,
	}
}

// FieldVisibilityRule maps one controlling value to the fields visible for it
type FieldVisibilityRule struct {
	ControllingValue string
	VisibleFields    []string
}
