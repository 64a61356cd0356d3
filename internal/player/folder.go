package player

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/mixtape/internal/shared"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".opus": true,
	".ogg":  true,
	".flac": true,
	".wav":  true,
}

// IsAudioFile reports whether name has a playable extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// LoadFolder lists the audio files in dir, sorted by name. Hidden files and subdirectories are skipped.
func LoadFolder(dir string) ([]Entry, error) {
	dir = shared.ExpandPath(dir)
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}

	var entries []Entry
	for _, item := range items {
		name := item.Name()
		if item.IsDir() || strings.HasPrefix(name, ".") || !IsAudioFile(name) {
			continue
		}
		entries = append(entries, NewEntry(filepath.Join(dir, name)))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].DisplayName < entries[j].DisplayName })
	return entries, nil
}
