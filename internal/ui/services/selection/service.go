package selection

import (
	"fmt"

	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
)

// Service handles single-selection logic for one search widget.
// It is not safe for concurrent use; the owning widget serialises access.
type Service struct {
	state    *State
	bus      eventbus.EventBus
	widgetID string
}

// NewService creates a new selection service
func NewService(bus eventbus.EventBus, widgetID string) *Service {
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Service{
		state:    &State{},
		bus:      bus,
		widgetID: widgetID,
	}
}

// Select sets the selection to the result with the given id.
// The id must be present in results.
func (s *Service) Select(results []domain.SearchResult, id string) error {
	for i := range results {
		if results[i].ID == id {
			if s.state.Selected != nil && s.state.Selected.ID == id {
				return nil
			}
			r := copyResult(results[i])
			s.state.Selected = &r
			s.publishChanged()
			return nil
		}
	}
	return fmt.Errorf("select %q: %w", id, domain.ErrInvalidSelection)
}

// Retain keeps the selection only if its id is still in results.
// The kept value is refreshed from the new list. Returns true if the selection was cleared.
func (s *Service) Retain(results []domain.SearchResult) bool {
	if s.state.Selected == nil {
		return false
	}
	for i := range results {
		if results[i].ID == s.state.Selected.ID {
			r := copyResult(results[i])
			s.state.Selected = &r
			return false
		}
	}
	s.Clear()
	return true
}

// Clear drops the selection
func (s *Service) Clear() {
	if s.state.Selected == nil {
		return
	}
	s.state.Selected = nil
	s.publishChanged()
}

// Current returns the selection, if any
func (s *Service) Current() (domain.SearchResult, bool) {
	if s.state.Selected == nil {
		return domain.SearchResult{}, false
	}
	return copyResult(*s.state.Selected), true
}

// HasSelection returns true if anything is selected
func (s *Service) HasSelection() bool {
	return s.state.Selected != nil
}

// Confirm returns the selection or ErrNoSelection
func (s *Service) Confirm() (domain.SearchResult, error) {
	r, ok := s.Current()
	if !ok {
		return domain.SearchResult{}, domain.ErrNoSelection
	}
	s.bus.Publish(domain.SelectionConfirmedEvent{WidgetID: s.widgetID, Result: r})
	return r, nil
}

func (s *Service) publishChanged() {
	var selected *domain.SearchResult
	if s.state.Selected != nil {
		r := copyResult(*s.state.Selected)
		selected = &r
	}
	s.bus.Publish(domain.SelectionChangedEvent{WidgetID: s.widgetID, Selected: selected})
}

func copyResult(r domain.SearchResult) domain.SearchResult {
	if r.Secondary != nil {
		secondary := make(map[string]string, len(r.Secondary))
		for k, v := range r.Secondary {
			secondary[k] = v
		}
		r.Secondary = secondary
	}
	return r
}
