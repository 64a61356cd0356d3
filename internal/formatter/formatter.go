// package formatter renders playlists and acquisition results (M3U playlists, CSV, plain text, tables)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// ExportToCSV converts a PlaylistExport to CSV format with columns: Index, Title, Artist, Album, Duration, ISRC, Query
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Title", "Artist", "Album", "Duration", "ISRC", "Query"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range export.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Title,
			track.Artist,
			track.Album,
			shared.FormatDuration(track.Duration),
			track.ISRC,
			shared.BuildQuery(track),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText lists the search query each track will be acquired with, one per line.
func ExportToText(export *models.PlaylistExport) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Owner != "" {
		fmt.Fprintf(&buf, "Owner: %s\n", export.Playlist.Owner)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%03d. %s\n", i+1, shared.BuildQuery(track))
	}

	return buf.Bytes()
}

// ExportToM3U renders an extended M3U listing the successful results in order.
//
// Entries are file names relative to the playlist folder.
func ExportToM3U(playlist models.Playlist, results []models.AcquisitionResult) []byte {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	if playlist.Name != "" {
		fmt.Fprintf(&buf, "#PLAYLIST:%s\n", playlist.Name)
	}

	for _, r := range results {
		if !r.OK() {
			continue
		}
		title := r.ResolvedTitle
		if title == "" {
			title = r.Query
		}
		fmt.Fprintf(&buf, "#EXTINF:-1,%s\n%s\n", title, filepath.Base(r.Path))
	}

	return buf.Bytes()
}

// WriteM3U writes ExportToM3U output into dir as <folder name>.m3u and returns its path.
func WriteM3U(dir string, playlist models.Playlist, results []models.AcquisitionResult) (string, error) {
	path := filepath.Join(dir, shared.PlaylistFolderName(playlist)+".m3u")
	if err := os.WriteFile(path, ExportToM3U(playlist, results), 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to write playlist file: %v", shared.ErrFilesystem, err)
	}
	return path, nil
}

// WriteTextExport writes ExportToText output to path.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(export *models.PlaylistExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", export.Playlist.ID)
	}

	if err := os.WriteFile(path, ExportToText(export), 0o644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
