// Package host describes the minimal capabilities the search and visibility
// components need from a form or report environment.
package host

// Fields reads and writes named field values
type Fields interface {
	// Value returns the field's current value; ok is false if the field does not exist
	Value(field string) (value string, ok bool)
	SetValue(field, value string) error
}

// Notifier delivers change notifications for a field.
// Hosts are not required to notify for every write path, and may invoke fn
// synchronously, including from within Subscribe.
type Notifier interface {
	Subscribe(field string, fn func(value string)) (unsubscribe func())
}

// Visibility shows and hides fields
type Visibility interface {
	Show(field string) error
	Hide(field string) error
}

// Environment is the full capability surface
type Environment interface {
	Fields
	Notifier
	Visibility
}
