package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/player"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// eventMsg carries one pipeline event into the update loop.
type eventMsg tasks.Event

// runClosedMsg signals that the event stream has been closed.
type runClosedMsg struct {
	summary *tasks.Summary
}

// selectionMsg carries the new current entry of the playlist; a zero entry means nothing is selected.
type selectionMsg player.Entry

// waitForEvent reads the next event from run, reporting closure with the final summary.
func waitForEvent(run Run) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-run.Events()
		if !ok {
			return runClosedMsg{summary: run.Wait()}
		}
		return eventMsg(ev)
	}
}

// waitForSelection reads the next selection change published by the playlist.
func waitForSelection(ch <-chan player.Entry) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return selectionMsg(entry)
	}
}
