package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/player"
	"github.com/desertthunder/mixtape/internal/tasks"
)

type fakeRun struct {
	events    chan tasks.Event
	cancelled int
	summary   *tasks.Summary
}

func newFakeRun() *fakeRun {
	return &fakeRun{events: make(chan tasks.Event, 8), summary: &tasks.Summary{State: tasks.StateCompleted}}
}

func (r *fakeRun) Events() <-chan tasks.Event { return r.events }
func (r *fakeRun) Cancel()                    { r.cancelled++ }
func (r *fakeRun) Wait() *tasks.Summary       { return r.summary }

type stopCounter struct{ stops int }

func (s *stopCounter) Play(player.Entry) error { return nil }
func (s *stopCounter) Stop() error             { s.stops++; return nil }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestFetchModel(t *testing.T) {
	playlist := &models.Playlist{ID: "abc", Name: "Road Trip", TrackCount: 2}

	t.Run("Applies Events", func(t *testing.T) {
		m := NewFetchModel(newFakeRun())
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

		ok := models.Succeeded(1, "Song A Artist1", "/music/001-Song A.mp3", "Song A")
		bad := models.Failed(2, "Song B Artist2", "no match")
		events := []tasks.Event{
			{Kind: tasks.EventCatalog, Playlist: playlist, Folder: "/music/Road Trip", Total: 2},
			{Kind: tasks.EventProgress, Index: 1, Total: 2, Label: "Song A Artist1"},
			{Kind: tasks.EventResult, Index: 1, Total: 2, Result: &ok},
			{Kind: tasks.EventProgress, Index: 2, Total: 2, Label: "Song B Artist2"},
			{Kind: tasks.EventResult, Index: 2, Total: 2, Result: &bad},
			{Kind: tasks.EventCompleted, Message: "Acquired 1 of 2 tracks"},
		}
		for _, ev := range events {
			if _, cmd := m.Update(eventMsg(ev)); cmd == nil {
				t.Fatalf("expected a follow-up command after %s", ev.Kind)
			}
		}

		if m.done != 2 || m.total != 2 {
			t.Errorf("expected 2/2, got %d/%d", m.done, m.total)
		}
		if len(m.results.Items()) != 2 {
			t.Errorf("expected 2 result items, got %d", len(m.results.Items()))
		}
		if m.percent() != 1 {
			t.Errorf("expected full progress, got %v", m.percent())
		}

		view := m.View()
		for _, want := range []string{"Road Trip", "2/2", "Acquired 1 of 2 tracks"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("Renders Failure Before Catalog", func(t *testing.T) {
		m := NewFetchModel(newFakeRun())
		m.Update(eventMsg(tasks.Event{Kind: tasks.EventFailed, Error: tasks.ErrorAuth, Message: "token expired"}))

		view := m.View()
		if !strings.Contains(view, "auth") || !strings.Contains(view, "token expired") {
			t.Errorf("expected failure in view, got:\n%s", view)
		}
	})

	t.Run("Reads Until Closed", func(t *testing.T) {
		run := newFakeRun()
		run.events <- tasks.Event{Kind: tasks.EventCancelled}
		close(run.events)

		if msg, ok := waitForEvent(run)().(eventMsg); !ok || msg.Kind != tasks.EventCancelled {
			t.Fatalf("expected cancelled event, got %#v", msg)
		}
		closed, ok := waitForEvent(run)().(runClosedMsg)
		if !ok || closed.summary != run.summary {
			t.Fatalf("expected closed message with summary, got %#v", closed)
		}
	})

	t.Run("Cancel Once", func(t *testing.T) {
		run := newFakeRun()
		m := NewFetchModel(run)

		m.Update(runes("c"))
		m.Update(runes("c"))
		if run.cancelled != 1 {
			t.Errorf("expected one cancel, got %d", run.cancelled)
		}
		if !strings.Contains(m.View(), "Fetching playlist") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})

	t.Run("Quit Waits For Close", func(t *testing.T) {
		run := newFakeRun()
		m := NewFetchModel(run)

		if _, cmd := m.Update(runes("q")); isQuit(cmd) {
			t.Fatal("expected quit to wait for the run to close")
		}
		if run.cancelled != 1 {
			t.Errorf("expected quit to cancel the run, got %d cancels", run.cancelled)
		}

		_, cmd := m.Update(runClosedMsg{summary: run.summary})
		if !isQuit(cmd) {
			t.Error("expected quit once the run closed")
		}
		if m.Summary() != run.summary {
			t.Error("expected summary to be kept")
		}
	})

	t.Run("Quit After Close", func(t *testing.T) {
		run := newFakeRun()
		m := NewFetchModel(run)
		m.Update(runClosedMsg{summary: run.summary})

		if _, cmd := m.Update(runes("q")); !isQuit(cmd) {
			t.Error("expected immediate quit")
		}
		if run.cancelled != 0 {
			t.Errorf("expected no cancel after close, got %d", run.cancelled)
		}
	})
}

func newTestPlaylist() *player.Model {
	m := player.NewModel(nil)
	m.ReplaceAll([]player.Entry{
		player.NewEntry("/music/mix/001-Alpha.mp3"),
		player.NewEntry("/music/mix/002-Beta.mp3"),
		player.NewEntry("/music/mix/003-Gamma.mp3"),
	})
	return m
}

func nextSelection(t *testing.T, m *PlayerModel) selectionMsg {
	t.Helper()
	select {
	case e := <-m.updates:
		return selectionMsg(e)
	default:
		t.Fatal("expected a selection update")
		return selectionMsg{}
	}
}

func TestPlayerModel(t *testing.T) {
	t.Run("Navigation", func(t *testing.T) {
		pl := newTestPlaylist()
		m := NewPlayerModel("mix", pl, nil)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

		m.Update(runes("n"))
		if pl.CurrentIndex() != 1 {
			t.Fatalf("expected index 1, got %d", pl.CurrentIndex())
		}
		if _, cmd := m.Update(nextSelection(t, m)); cmd == nil {
			t.Error("expected to keep listening for selections")
		}
		if m.list.Index() != 1 {
			t.Errorf("expected list cursor to follow selection, got %d", m.list.Index())
		}
		if !strings.Contains(m.View(), "002-Beta") {
			t.Errorf("expected current entry in view:\n%s", m.View())
		}

		m.Update(runes("p"))
		if pl.CurrentIndex() != 0 {
			t.Errorf("expected index 0, got %d", pl.CurrentIndex())
		}
		m.Update(nextSelection(t, m))

		m.list.Select(2)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if pl.CurrentIndex() != 2 {
			t.Errorf("expected enter to select 2, got %d", pl.CurrentIndex())
		}
	})

	t.Run("Shuffle Rebuilds List", func(t *testing.T) {
		pl := newTestPlaylist()
		m := NewPlayerModel("mix", pl, nil)

		m.Update(runes("s"))
		if pl.CurrentIndex() != 0 {
			t.Errorf("expected shuffle to restart at 0, got %d", pl.CurrentIndex())
		}
		entries := pl.Entries()
		items := m.list.Items()
		if len(items) != len(entries) {
			t.Fatalf("expected %d items, got %d", len(entries), len(items))
		}
		for i, item := range items {
			if item.(entryItem).entry != entries[i] {
				t.Errorf("item %d out of sync with playlist", i)
			}
		}
	})

	t.Run("Stop", func(t *testing.T) {
		p := &stopCounter{}
		m := NewPlayerModel("mix", newTestPlaylist(), p)

		m.Update(runes("x"))
		if p.stops != 1 {
			t.Errorf("expected one stop, got %d", p.stops)
		}
	})

	t.Run("Filter Uses Playlist Search", func(t *testing.T) {
		pl := newTestPlaylist()
		m := NewPlayerModel("mix", pl, nil)

		targets := make([]string, pl.Len())
		for i, e := range pl.Entries() {
			targets[i] = e.DisplayName
		}
		ranks := m.filter("gam", targets)
		if len(ranks) != 1 || ranks[0].Index != 2 {
			t.Errorf("expected Gamma only, got %+v", ranks)
		}
	})

	t.Run("Quit Unsubscribes", func(t *testing.T) {
		pl := newTestPlaylist()
		m := NewPlayerModel("mix", pl, nil)

		if _, cmd := m.Update(runes("q")); !isQuit(cmd) {
			t.Fatal("expected quit")
		}
		pl.Next()
		select {
		case e := <-m.updates:
			t.Errorf("unexpected update after quit: %+v", e)
		default:
		}
	})
}
