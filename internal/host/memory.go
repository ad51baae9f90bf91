package host

import (
	"fmt"
	"sort"
	"sync"

	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
)

type fieldState struct {
	value   string
	visible bool
}

type listener struct {
	id uint64
	fn func(string)
}

// MemoryForm is an in-memory Environment. It backs the terminal UI and tests.
type MemoryForm struct {
	mu        sync.RWMutex
	fields    map[string]*fieldState
	order     []string
	listeners map[string][]listener
	nextID    uint64
	bus       eventbus.EventBus
}

// NewMemoryForm creates an empty form. bus may be nil.
func NewMemoryForm(bus eventbus.EventBus) *MemoryForm {
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &MemoryForm{
		fields:    make(map[string]*fieldState),
		listeners: make(map[string][]listener),
		bus:       bus,
	}
}

// Define adds a field, or resets it if it exists
func (f *MemoryForm) Define(field, value string, visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.fields[field]; !exists {
		f.order = append(f.order, field)
	}
	f.fields[field] = &fieldState{value: value, visible: visible}
}

// Remove deletes a field. Subscriptions stay registered.
func (f *MemoryForm) Remove(field string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fields, field)
	for i, name := range f.order {
		if name == field {
			f.order = append(f.order[:i:i], f.order[i+1:]...)
			break
		}
	}
}

// Value implements Fields
func (f *MemoryForm) Value(field string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.fields[field]
	if !ok {
		return "", false
	}
	return st.value, true
}

// SetValue writes a value and notifies subscribers of that field
func (f *MemoryForm) SetValue(field, value string) error {
	if err := f.write(field, value); err != nil {
		return err
	}
	f.notify(field, value)
	f.bus.Publish(domain.FieldValueChangedEvent{Field: field, Value: value})
	return nil
}

// Assign writes a value without notifying subscribers, like a programmatic
// write that bypasses the host's input events
func (f *MemoryForm) Assign(field, value string) error {
	if err := f.write(field, value); err != nil {
		return err
	}
	f.bus.Publish(domain.FieldValueChangedEvent{Field: field, Value: value, Silent: true})
	return nil
}

func (f *MemoryForm) write(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.fields[field]
	if !ok {
		return fmt.Errorf("set %s: %w", field, domain.ErrUnknownField)
	}
	st.value = value
	return nil
}

// notify runs listeners outside the lock so they may call back into the form
func (f *MemoryForm) notify(field, value string) {
	f.mu.RLock()
	ls := make([]listener, len(f.listeners[field]))
	copy(ls, f.listeners[field])
	f.mu.RUnlock()

	for _, l := range ls {
		l.fn(value)
	}
}

// Subscribe implements Notifier
func (f *MemoryForm) Subscribe(field string, fn func(string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.listeners[field] = append(f.listeners[field], listener{id: id, fn: fn})

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		ls := f.listeners[field]
		for i, l := range ls {
			if l.id == id {
				f.listeners[field] = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
	}
}

// SubscriberCount reports how many listeners a field has
func (f *MemoryForm) SubscriberCount(field string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners[field])
}

// Show implements Visibility
func (f *MemoryForm) Show(field string) error {
	return f.setVisible(field, true)
}

// Hide implements Visibility
func (f *MemoryForm) Hide(field string) error {
	return f.setVisible(field, false)
}

func (f *MemoryForm) setVisible(field string, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.fields[field]
	if !ok {
		return fmt.Errorf("toggle %s: %w", field, domain.ErrUnknownField)
	}
	st.visible = visible
	return nil
}

// IsVisible reports whether a field exists and is shown
func (f *MemoryForm) IsVisible(field string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.fields[field]
	return ok && st.visible
}

// Fields returns field names in definition order
func (f *MemoryForm) Fields() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// VisibleFields returns the sorted names of shown fields
func (f *MemoryForm) VisibleFields() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []string
	for name, st := range f.fields {
		if st.visible {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
