package shared

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
)

var playlistRefPattern = regexp.MustCompile(`playlist/([A-Za-z0-9]+)`)

// illegalNameChars are stripped from folder and file names. Control characters are handled separately.
const illegalNameChars = `<>:"/\|?*`

// BuildQuery returns the search string used to locate an audio source for track: "<title> - <artist>".
func BuildQuery(track models.Track) string {
	return track.Title + " - " + track.Artist
}

// SanitizeName removes characters that are illegal in filesystem paths along with ASCII control characters.
//
// All other characters, including internal spacing, are preserved. The result may be empty.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(illegalNameChars, r) {
			return -1
		}
		return r
	}, name)
}

// ExtractPlaylistID pulls the alphanumeric playlist id out of a reference such as a share URL or URI path.
//
// The first "playlist/<id>" occurrence wins.
func ExtractPlaylistID(reference string) (string, error) {
	m := playlistRefPattern.FindStringSubmatch(reference)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, reference)
	}
	return m[1], nil
}

// TrackFileName formats the on-disk name for an acquired track: a 3-digit index, the sanitized title and ext.
func TrackFileName(index int, title, ext string) string {
	return fmt.Sprintf("%03d-%s.%s", index, SanitizeName(title), strings.TrimPrefix(ext, "."))
}

// PlaylistFolderName derives the destination folder name for p.
//
// Names that sanitize to nothing fall back to the playlist id, then to "playlist".
func PlaylistFolderName(p models.Playlist) string {
	if name := strings.TrimSpace(SanitizeName(p.Name)); name != "" && name != "." && name != ".." {
		return SanitizeName(p.Name)
	}
	if id := SanitizeName(p.ID); id != "" {
		return id
	}
	return "playlist"
}
