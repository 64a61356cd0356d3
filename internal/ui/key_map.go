package ui

import "github.com/charmbracelet/bubbles/key"

// fetchKeyMap defines the [key.Binding] mapping for the fetch view.
type fetchKeyMap struct {
	cancel key.Binding
	quit   key.Binding
}

func newFetchKeyMap() fetchKeyMap {
	return fetchKeyMap{
		cancel: key.NewBinding(key.WithKeys("c", "esc"), key.WithHelp("c", "cancel")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k fetchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.cancel, k.quit}
}

func (k fetchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// playerKeyMap defines the [key.Binding] mapping for the player view.
type playerKeyMap struct {
	play     key.Binding
	next     key.Binding
	previous key.Binding
	shuffle  key.Binding
	stop     key.Binding
	quit     key.Binding
}

func newPlayerKeyMap() playerKeyMap {
	return playerKeyMap{
		play:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		shuffle:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k playerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.play, k.next, k.previous, k.shuffle, k.quit}
}

func (k playerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.play, k.stop},
		{k.next, k.previous, k.shuffle},
		{k.quit},
	}
}
