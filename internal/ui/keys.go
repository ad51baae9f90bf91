package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// panelKeys are active while the filter panel has focus
type panelKeys struct {
	Up     key.Binding
	Down   key.Binding
	Prev   key.Binding
	Next   key.Binding
	Search key.Binding
	Clear  key.Binding
	Silent key.Binding
	Report key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func newPanelKeys() panelKeys {
	return panelKeys{
		Up:     key.NewBinding(key.WithKeys("up", "k", "shift+tab"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j", "tab"), key.WithHelp("↓/j", "down")),
		Prev:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev value")),
		Next:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next value")),
		Search: key.NewBinding(key.WithKeys("enter", "/"), key.WithHelp("enter", "search")),
		Clear:  key.NewBinding(key.WithKeys("backspace", "delete"), key.WithHelp("⌫", "clear")),
		Silent: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "silent status")),
		Report: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "show report")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k panelKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Next, k.Search, k.Report, k.Silent, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k panelKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Prev, k.Next},
		{k.Search, k.Report, k.Clear, k.Silent},
		{k.Help, k.Quit},
	}
}

// popupKeys are active while the search popup is open
type popupKeys struct {
	Up      key.Binding
	Down    key.Binding
	Confirm key.Binding
	Close   key.Binding
}

func newPopupKeys() popupKeys {
	return popupKeys{
		Up:      key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "select prev")),
		Down:    key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "select next")),
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "use customer")),
		Close:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "close")),
	}
}

// ShortHelp implements help.KeyMap
func (k popupKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Confirm, k.Close}
}

// FullHelp implements help.KeyMap
func (k popupKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
