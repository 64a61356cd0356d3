package player

import (
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"
)

// Entry is a playable file.
type Entry struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
}

// NewEntry creates an Entry displayed by its file name.
func NewEntry(path string) Entry {
	return Entry{Path: path, DisplayName: filepath.Base(path)}
}

// Model is an ordered playlist with a current position.
//
// The current index is -1 when nothing is selected.
type Model struct {
	mu      sync.Mutex
	entries []Entry
	current int
	rng     *rand.Rand
	subs    map[int]func(Entry)
	nextSub int
}

// NewModel creates an empty Model. A nil rng selects a time-seeded source.
func NewModel(rng *rand.Rand) *Model {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Model{current: -1, rng: rng, subs: make(map[int]func(Entry))}
}

// Subscribe registers fn to receive the new current entry whenever it changes.
//
// fn receives the zero Entry when the selection is cleared. The returned func unsubscribes.
func (m *Model) Subscribe(fn func(Entry)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// ReplaceAll swaps in entries and selects the first one, if any.
func (m *Model) ReplaceAll(entries []Entry) {
	m.mu.Lock()
	m.entries = append([]Entry(nil), entries...)
	m.current = -1
	if len(m.entries) > 0 {
		m.current = 0
	}
	m.unlockAndNotify()
}

// Add appends entry without changing the selection.
func (m *Model) Add(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// Next moves to the following entry. With no selection it selects the first.
//
// It does not wrap and reports whether the selection moved.
func (m *Model) Next() bool {
	m.mu.Lock()
	if m.current+1 >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.current++
	m.unlockAndNotify()
	return true
}

// Previous moves to the preceding entry. It does not wrap and reports whether the selection moved.
func (m *Model) Previous() bool {
	m.mu.Lock()
	if m.current <= 0 {
		m.mu.Unlock()
		return false
	}
	m.current--
	m.unlockAndNotify()
	return true
}

// Shuffle permutes the entries uniformly and restarts at the first one.
func (m *Model) Shuffle() {
	m.mu.Lock()
	if len(m.entries) == 0 {
		m.mu.Unlock()
		return
	}
	m.rng.Shuffle(len(m.entries), func(i, j int) {
		m.entries[i], m.entries[j] = m.entries[j], m.entries[i]
	})
	m.current = 0
	m.unlockAndNotify()
}

// Clear removes every entry.
func (m *Model) Clear() {
	m.mu.Lock()
	hadSelection := m.current >= 0
	m.entries = nil
	m.current = -1
	if !hadSelection {
		m.mu.Unlock()
		return
	}
	m.unlockAndNotify()
}

// Select makes entry i current. Out-of-range indices are ignored.
func (m *Model) Select(i int) bool {
	m.mu.Lock()
	if i < 0 || i >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.current = i
	m.unlockAndNotify()
	return true
}

func (m *Model) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Model) CurrentEntry() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

// Entries returns a copy of the playlist.
func (m *Model) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// entrySource adapts entries to [fuzzy.Source].
type entrySource []Entry

func (s entrySource) String(i int) string { return s[i].DisplayName }
func (s entrySource) Len() int            { return len(s) }

// Find returns the indices of entries whose display name fuzzy-matches query, best match first.
//
// An empty query matches every entry in order.
func (m *Model) Find(query string) []int {
	entries := m.Entries()
	if query == "" {
		idx := make([]int, len(entries))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	matches := fuzzy.FindFrom(query, entrySource(entries))
	idx := make([]int, len(matches))
	for i, match := range matches {
		idx[i] = match.Index
	}
	return idx
}

func (m *Model) currentLocked() (Entry, bool) {
	if m.current < 0 || m.current >= len(m.entries) {
		return Entry{}, false
	}
	return m.entries[m.current], true
}

// unlockAndNotify releases m.mu and then calls every subscriber with the current entry.
func (m *Model) unlockAndNotify() {
	entry, _ := m.currentLocked()
	subs := make([]func(Entry), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
}
