package ui

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/player"
)

var (
	_ list.Item = entryItem{}
	_ list.Item = resultItem{}
)

// entryItem wraps [player.Entry] with its position in the playlist to implement [list.Item].
type entryItem struct {
	index int
	entry player.Entry
}

func (i entryItem) FilterValue() string { return i.entry.DisplayName }
func (i entryItem) Title() string       { return fmt.Sprintf("%3d. %s", i.index+1, i.entry.DisplayName) }
func (i entryItem) Description() string { return filepath.Base(filepath.Dir(i.entry.Path)) }

func entryItems(entries []player.Entry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{index: i, entry: e}
	}
	return items
}

// resultItem wraps [models.AcquisitionResult] to implement [list.Item].
type resultItem struct {
	result models.AcquisitionResult
}

func (i resultItem) FilterValue() string { return i.result.Query }
func (i resultItem) Title() string {
	if i.result.OK() {
		return styles.ok.Render("✓ ") + i.result.ResolvedTitle
	}
	return styles.err.Render("✗ ") + i.result.Query
}
func (i resultItem) Description() string {
	if i.result.OK() {
		return filepath.Base(i.result.Path)
	}
	return i.result.Reason
}
