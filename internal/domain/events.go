package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventSearchStateChanged     EventType = "SearchStateChanged"
	EventLookupIssued           EventType = "LookupIssued"
	EventSelectionChanged       EventType = "SelectionChanged"
	EventSelectionConfirmed     EventType = "SelectionConfirmed"
	EventFieldVisibilityChanged EventType = "FieldVisibilityChanged"
	EventFieldValueChanged      EventType = "FieldValueChanged"
	EventError                  EventType = "Error"
	EventConfigLoaded           EventType = "ConfigLoaded"
	EventConfigSaved            EventType = "ConfigSaved"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// SearchSnapshot is a copy of one search widget's state at a revision
type SearchSnapshot struct {
	WidgetID string
	Revision uint64
	Query    string
	Status   SearchStatus
	Results  []SearchResult
	Message  string // set for StatusError
	Selected *SearchResult
}

// SearchStateChangedEvent is emitted after every search state transition
type SearchStateChangedEvent struct {
	Snapshot SearchSnapshot
}

func (e SearchStateChangedEvent) Type() EventType { return EventSearchStateChanged }

// LookupIssuedEvent is emitted when a debounced lookup is sent to the backend
type LookupIssuedEvent struct {
	WidgetID string
	Seq      uint64
	Query    string
}

func (e LookupIssuedEvent) Type() EventType { return EventLookupIssued }

// SelectionChangedEvent is emitted when the selection is set, replaced or cleared
type SelectionChangedEvent struct {
	WidgetID string
	Selected *SearchResult // nil when cleared
}

func (e SelectionChangedEvent) Type() EventType { return EventSelectionChanged }

// SelectionConfirmedEvent is emitted when a selection is accepted
type SelectionConfirmedEvent struct {
	WidgetID string
	Result   SearchResult
}

func (e SelectionConfirmedEvent) Type() EventType { return EventSelectionConfirmed }

// FieldVisibilityChangedEvent is emitted when dependent fields were shown or hidden
type FieldVisibilityChangedEvent struct {
	ControllingField string
	Value            string
	Visible          []string // full visible set after the change
	Shown            []string
	Hidden           []string
	Cleared          []string
}

func (e FieldVisibilityChangedEvent) Type() EventType { return EventFieldVisibilityChanged }

// FieldValueChangedEvent is emitted by hosts when a field value is written
type FieldValueChangedEvent struct {
	Field  string
	Value  string
	Silent bool // written without a change notification
}

func (e FieldValueChangedEvent) Type() EventType { return EventFieldValueChanged }

// ErrorEvent is emitted when an error occurs
type ErrorEvent struct {
	Message string
	Err     error
}

func (e ErrorEvent) Type() EventType { return EventError }

// ConfigLoadedEvent is emitted when configuration is loaded
type ConfigLoadedEvent struct {
	Path string
}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// ConfigSavedEvent is emitted when configuration is saved
type ConfigSavedEvent struct {
	Path string
}

func (e ConfigSavedEvent) Type() EventType { return EventConfigSaved }
