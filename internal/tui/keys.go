package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the browser key bindings.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Back    key.Binding
	Refresh key.Binding
	Sort    key.Binding
	NewLink key.Binding
	Retry   key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default bindings. Back covers both the
// physical back keys and the on-screen back hint.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "l", "right"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace", "h", "left"),
			key.WithHelp("esc", "back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r", "refresh"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort"),
		),
		NewLink: key.NewBinding(
			key.WithKeys("o", "/"),
			key.WithHelp("o", "new link"),
		),
		Retry: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "retry download"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "cancel downloads"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k KeyMap) helpLine() string {
	line := ""
	for i, b := range []key.Binding{k.Open, k.Back, k.Refresh, k.Sort, k.NewLink, k.Retry, k.Cancel, k.Quit} {
		if i > 0 {
			line += " • "
		}
		h := b.Help()
		line += h.Key + " " + h.Desc
	}
	return line
}
