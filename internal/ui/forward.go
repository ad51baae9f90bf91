package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"deskglue/internal/eventbus"
)

// forwardedEvents are the bus events the UI re-renders on
var forwardedEvents = []eventbus.EventType{
	eventbus.EventSearchStateChanged,
	eventbus.EventFieldVisibilityChanged,
	eventbus.EventFieldValueChanged,
	eventbus.EventError,
}

// Forward delivers UI-relevant bus events to send as EventMsg.
// The returned function removes the subscriptions.
func Forward(bus eventbus.EventBus, send func(tea.Msg)) func() {
	unsubs := make([]func(), 0, len(forwardedEvents))
	for _, t := range forwardedEvents {
		unsubs = append(unsubs, bus.Subscribe(t, func(e eventbus.DomainEvent) {
			send(EventMsg{Event: e})
		}))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
