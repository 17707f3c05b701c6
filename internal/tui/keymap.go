package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the browser.
type KeyMap struct {
	// Up moves the row cursor up.
	Up key.Binding

	// Down moves the row cursor down.
	Down key.Binding

	// Toggle selects or deselects the row under the cursor.
	Toggle key.Binding

	// ToggleAll selects or deselects every row on the page.
	ToggleAll key.Binding

	// Next shows the next page.
	Next key.Binding

	// Prev shows the previous page.
	Prev key.Binding

	// Bulk opens the "select N items" overlay.
	Bulk key.Binding

	// Submit confirms the overlay input.
	Submit key.Binding

	// Cancel closes the overlay.
	Cancel key.Binding

	// Clear empties the selection.
	Clear key.Binding

	// Help toggles the full help.
	Help key.Binding

	// Quit exits the browser.
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle row"),
		),
		ToggleAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle page"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l", "n"),
			key.WithHelp("→/n", "next page"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h", "p"),
			key.WithHelp("←/p", "prev page"),
		),
		Bulk: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "select N"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear selection"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Prev, k.Bulk, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.ToggleAll},
		{k.Next, k.Prev},
		{k.Bulk, k.Submit, k.Cancel, k.Clear},
		{k.Help, k.Quit},
	}
}

// OverlayHelp returns the bindings shown while the bulk overlay is open.
func (k *KeyMap) OverlayHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}
