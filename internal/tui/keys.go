package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the conversation view.
type KeyMap struct {
	Open  key.Binding // Open the conversation or pick the highlighted option.
	Pick  key.Binding // Pick an option by its number.
	Up    key.Binding
	Down  key.Binding
	Voice key.Binding
	End   key.Binding
	Quit  key.Binding

	Activity key.Binding // Show or hide the event pane.
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "talk / choose"),
	),
	Pick: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "choose"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Voice: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "voice on/off"),
	),
	End: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "end chat"),
	),
	Activity: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "activity"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Pick, k.Voice, k.End, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Pick, k.Up, k.Down},
		{k.Voice, k.End, k.Activity, k.Quit},
	}
}
