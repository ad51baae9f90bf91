package ui

import (
	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event eventbus.DomainEvent
}

// detailsMsg carries the customer record fetched after a confirmed selection
type detailsMsg struct {
	id       string
	customer *domain.Customer
	err      error
}

// reportMsg carries the rows of one AMC report run
type reportMsg struct {
	seq     uint64
	filters domain.ReportFilters
	rows    []domain.AMCRow
	err     error
}

// helpPagerMsg contains the result of a help pager command
type helpPagerMsg struct {
	err error
}

// clearStatusMsg clears the status line
type clearStatusMsg struct{}

// pauseRenderingMsg signals to pause Bubble Tea rendering
type pauseRenderingMsg struct{}

// resumeRenderingMsg signals to resume Bubble Tea rendering
type resumeRenderingMsg struct{}
