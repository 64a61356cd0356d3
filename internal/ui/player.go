package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/player"
)

// PlayerModel is a playlist browser over a [player.Model].
//
// The list mirrors the model's entries; the model stays the source of truth for the selection.
type PlayerModel struct {
	model   *player.Model
	player  player.Player
	list    list.Model
	keys    playerKeyMap
	help    help.Model
	updates chan player.Entry
	unsub   func()
	current player.Entry
	err     error
}

// NewPlayerModel creates a view over model. p may be nil, in which case stop is a no-op.
func NewPlayerModel(title string, model *player.Model, p player.Player) *PlayerModel {
	m := &PlayerModel{
		model:   model,
		player:  p,
		keys:    newPlayerKeyMap(),
		help:    help.New(),
		updates: make(chan player.Entry, 16),
	}

	l := list.New(entryItems(model.Entries()), list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.Filter = m.filter
	l.SetShowHelp(false)
	m.list = l

	m.current, _ = model.CurrentEntry()
	m.unsub = model.Subscribe(func(e player.Entry) {
		select {
		case m.updates <- e:
		default:
		}
	})
	return m
}

// filter ranks list targets with the playlist's own fuzzy search.
func (m *PlayerModel) filter(term string, targets []string) []list.Rank {
	var ranks []list.Rank
	for _, i := range m.model.Find(term) {
		if i < len(targets) {
			ranks = append(ranks, list.Rank{Index: i})
		}
	}
	return ranks
}

func (m *PlayerModel) Init() tea.Cmd {
	return waitForSelection(m.updates)
}

func (m *PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, max(4, msg.Height-6))
		return m, nil

	case selectionMsg:
		m.current = player.Entry(msg)
		if i := m.model.CurrentIndex(); i >= 0 && m.list.FilterState() == list.Unfiltered {
			m.list.Select(i)
		}
		return m, waitForSelection(m.updates)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			m.unsub()
			return m, tea.Quit
		case key.Matches(msg, m.keys.play):
			if item, ok := m.list.SelectedItem().(entryItem); ok {
				m.model.Select(item.index)
			}
			return m, nil
		case key.Matches(msg, m.keys.next):
			m.model.Next()
			return m, nil
		case key.Matches(msg, m.keys.previous):
			m.model.Previous()
			return m, nil
		case key.Matches(msg, m.keys.shuffle):
			m.list.ResetFilter()
			m.model.Shuffle()
			cmd := m.list.SetItems(entryItems(m.model.Entries()))
			m.list.Select(0)
			return m, cmd
		case key.Matches(msg, m.keys.stop):
			if m.player != nil {
				m.err = m.player.Stop()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *PlayerModel) View() string {
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")

	if m.current.Path != "" {
		fmt.Fprintf(&b, "%s %s\n", styles.playing.Render("▶"), m.current.DisplayName)
	} else {
		b.WriteString(styles.help.Render("nothing playing") + "\n")
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(m.err.Error()) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
