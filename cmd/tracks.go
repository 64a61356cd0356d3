package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Tracks fetches the catalog for a reference and prints the listing without downloading.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	reference := cmd.StringArg("reference")
	if reference == "" {
		return fmt.Errorf("%w: playlist reference", shared.ErrMissingArgument)
	}

	playlistID, err := shared.ExtractPlaylistID(reference)
	if err != nil {
		return err
	}

	catalog, err := r.Catalog(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("fetching playlist", "id", playlistID)
	export, err := catalog.FetchPlaylist(ctx, cmd.String("owner"), playlistID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, cmd.Bool("pretty"))
	}

	format := strings.ToLower(cmd.String("format"))
	path := cmd.String("output")
	if path != "" && (format == "" || format == "text") {
		written, err := formatter.WriteTextExport(export, path)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
		}
		r.logger.Info("listing written", "path", written, "tracks", len(export.Tracks))
		return r.writePlain("✓ Wrote %d tracks to %s\n", len(export.Tracks), written)
	}

	var buf bytes.Buffer
	switch format {
	case "", "text":
		buf.Write(formatter.ExportToText(export))
	case "table":
		fmt.Fprintf(&buf, "%s (%d tracks)\n", export.Playlist.Name, len(export.Tracks))
		formatter.RenderTracks(&buf, export)
	case "csv":
		data, err := formatter.ExportToCSV(export)
		if err != nil {
			return err
		}
		buf.Write(data)
	default:
		return fmt.Errorf("%w: unknown format %q (text, table or csv)", shared.ErrInvalidArgument, format)
	}

	if path != "" {
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
		}
		r.logger.Info("listing written", "path", path, "tracks", len(export.Tracks))
		return r.writePlain("✓ Wrote %d tracks to %s\n", len(export.Tracks), path)
	}

	_, err = r.output.Write(buf.Bytes())
	return err
}
