package formatter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/olekukonko/tablewriter"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetRowLine(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// RenderRuns writes a summary table of fetch runs.
func RenderRuns(w io.Writer, runs []*models.FetchRun) {
	table := newTable(w, "#", "ID", "Playlist", "Status", "Tracks", "Failed", "Started")
	for _, r := range runs {
		name := r.PlaylistName()
		if name == "" {
			name = r.PlaylistID()
		}
		table.Append([]string{
			strconv.Itoa(r.Sequence()),
			shortID(r.ID()),
			name,
			r.Status(),
			fmt.Sprintf("%d/%d", r.Acquired(), r.TracksTotal()),
			strconv.Itoa(r.Failed()),
			formatTime(r.StartedAt()),
		})
	}
	table.Render()
}

// RenderResults writes one row per acquisition result.
func RenderResults(w io.Writer, results []models.AcquisitionResult) {
	table := newTable(w, "#", "Status", "Query", "Detail")
	for _, r := range results {
		detail := r.Reason
		if r.OK() {
			detail = r.Path
		}
		table.Append([]string{strconv.Itoa(r.Index), string(r.Status), r.Query, detail})
	}
	table.Render()
}

// RenderTracks writes the catalog listing of export.
func RenderTracks(w io.Writer, export *models.PlaylistExport) {
	table := newTable(w, "#", "Title", "Artist", "Album", "Duration")
	for i, t := range export.Tracks {
		table.Append([]string{strconv.Itoa(i + 1), t.Title, t.Artist, t.Album, shared.FormatDuration(t.Duration)})
	}
	table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
