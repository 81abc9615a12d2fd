package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	toggle  key.Binding
	next    key.Binding
	prev    key.Binding
	forward key.Binding
	rewind  key.Binding
	louder  key.Binding
	quieter key.Binding
	mute    key.Binding
	help    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		toggle:  key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		forward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+5s")),
		rewind:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-5s")),
		louder:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		quieter: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		mute:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.toggle, k.next, k.back, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.toggle, k.next, k.prev},
		{k.forward, k.rewind},
		{k.louder, k.quieter, k.mute},
		{k.help, k.quit},
	}
}
