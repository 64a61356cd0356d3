package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// Run is the part of [tasks.Run] the fetch view observes.
type Run interface {
	Events() <-chan tasks.Event
	Cancel()
	Wait() *tasks.Summary
}

// FetchModel renders a live view of a pipeline run.
type FetchModel struct {
	run      Run
	keys     fetchKeyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	results  list.Model

	playlist   *models.Playlist
	folder     string
	total      int
	done       int
	label      string
	final      *tasks.Event
	summary    *tasks.Summary
	cancelling bool
	quitting   bool
	width      int
	height     int
}

// NewFetchModel creates a view that consumes the events of run.
func NewFetchModel(run Run) *FetchModel {
	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.Title = "Results"
	results.SetShowHelp(false)
	results.SetFilteringEnabled(false)

	return &FetchModel{
		run:      run,
		keys:     newFetchKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		results:  results,
	}
}

// Summary returns the final summary once the event stream has closed.
func (m *FetchModel) Summary() *tasks.Summary {
	return m.summary
}

func (m *FetchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.run))
}

func (m *FetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(10, min(60, msg.Width-20))
		m.results.SetSize(msg.Width-4, max(4, msg.Height-10))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			if m.summary != nil {
				return m, tea.Quit
			}
			m.quitting = true
			m.cancel()
			return m, nil
		case key.Matches(msg, m.keys.cancel):
			m.cancel()
			return m, nil
		}

	case eventMsg:
		m.apply(tasks.Event(msg))
		return m, waitForEvent(m.run)

	case runClosedMsg:
		m.summary = msg.summary
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.summary != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *FetchModel) cancel() {
	if m.summary == nil && !m.cancelling {
		m.cancelling = true
		m.run.Cancel()
	}
}

func (m *FetchModel) apply(ev tasks.Event) {
	switch ev.Kind {
	case tasks.EventCatalog:
		m.playlist = ev.Playlist
		m.folder = ev.Folder
		m.total = ev.Total
	case tasks.EventProgress:
		m.label = ev.Label
	case tasks.EventResult:
		m.done++
		if ev.Result != nil {
			m.results.InsertItem(len(m.results.Items()), resultItem{result: *ev.Result})
		}
	default:
		if ev.Kind.Terminal() {
			m.final = &ev
			m.label = ""
		}
	}
}

func (m *FetchModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m *FetchModel) View() string {
	var b strings.Builder

	if m.playlist == nil {
		if m.final != nil {
			b.WriteString(m.renderFinal())
		} else {
			fmt.Fprintf(&b, "%s Fetching playlist...\n", m.spinner.View())
		}
		b.WriteString("\n" + m.help.View(m.keys))
		return b.String()
	}

	b.WriteString(styles.title.Render(fmt.Sprintf("%s (%d tracks)", m.playlist.Name, m.total)))
	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.folder))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %d/%d\n", m.progress.ViewAs(m.percent()), m.done, m.total)

	switch {
	case m.final != nil:
		b.WriteString(m.renderFinal())
	case m.cancelling:
		b.WriteString(styles.warn.Render("Cancelling after the current track..."))
	case m.label != "":
		fmt.Fprintf(&b, "%s %s", m.spinner.View(), m.label)
	}
	b.WriteString("\n\n")

	if len(m.results.Items()) > 0 {
		b.WriteString(m.results.View())
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *FetchModel) renderFinal() string {
	switch m.final.Kind {
	case tasks.EventCompleted:
		return styles.ok.Render("✓ " + m.final.Message)
	case tasks.EventCancelled:
		return styles.warn.Render(fmt.Sprintf("Cancelled after %d of %d tracks", m.done, m.total))
	default:
		return styles.err.Render(fmt.Sprintf("Failed (%s): %s", m.final.Error, m.final.Message))
	}
}
