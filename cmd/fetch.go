package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// Fetch runs the acquisition pipeline for a playlist reference.
//
// Progress is rendered as a progress bar, JSON event lines (--json) or the fetch TUI (--tui).
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	reference := cmd.StringArg("reference")
	if reference == "" {
		return fmt.Errorf("%w: playlist reference", shared.ErrMissingArgument)
	}
	if _, err := shared.ExtractPlaylistID(reference); err != nil {
		return err
	}

	useTUI := cmd.Bool("tui")
	if useTUI && r.logFile == nil {
		// Keep log lines from tearing the TUI.
		if err := r.logToFile(filepath.Join(os.TempDir(), "mixtape-tui.log")); err != nil {
			return err
		}
	}

	catalog, err := r.Catalog(ctx)
	if err != nil {
		return err
	}

	dl := r.config.Download
	workers := dl.Workers
	if cmd.IsSet("workers") {
		workers = cmd.Int("workers")
	}
	if workers > tasks.MaxWorkers {
		r.logger.Warn("capping workers", "requested", workers, "max", tasks.MaxWorkers)
	}

	outRoot := dl.OutputDir
	if cmd.IsSet("out") {
		outRoot = cmd.String("out")
	}

	opts := tasks.PipelineOptions{
		Workers:   workers,
		RateLimit: dl.RateLimit,
		WriteM3U:  cmd.Bool("m3u") || dl.WriteM3U,
		Logger:    r.logger,
	}
	if !cmd.Bool("no-history") {
		opts.Recorder = r.recorder()
	}

	pipeline := tasks.NewPipeline(catalog, r.Worker(cmd.Duration("timeout")), opts)
	run, err := pipeline.Start(ctx, tasks.Request{
		Reference:  reference,
		OwnerID:    cmd.String("owner"),
		OutputRoot: shared.ExpandPath(outRoot),
	})
	if err != nil {
		return err
	}
	r.logger.Debug("run started", "run", run.ID())

	var summary *tasks.Summary
	switch {
	case useTUI:
		summary, err = r.followTUI(ctx, run)
	case cmd.Bool("json"):
		summary, err = r.followJSON(run)
	default:
		summary = r.followProgress(run)
		r.printSummary(summary)
	}
	if err != nil {
		return err
	}

	switch summary.State {
	case tasks.StateCancelled:
		return shared.ErrCancelled
	case tasks.StateFailed:
		return fmt.Errorf("fetch failed (%s): %s", summary.Error, summary.Message)
	}

	if cmd.Bool("play") {
		if len(summary.Paths) == 0 {
			r.writePlain("⚠ Nothing to play\n")
			return nil
		}
		title := summary.Folder
		if summary.Playlist != nil {
			title = summary.Playlist.Name
		}
		return r.playPaths(title, summary.Paths, false, "")
	}
	return nil
}

// followTUI hands the run to the fetch view and returns the summary once the event stream has closed.
func (r *Runner) followTUI(ctx context.Context, run *tasks.Run) (*tasks.Summary, error) {
	model := ui.NewFetchModel(run)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		run.Cancel()
		if ctx.Err() != nil {
			return run.Wait(), nil
		}
		run.Wait()
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	if s := model.Summary(); s != nil {
		return s, nil
	}
	return run.Wait(), nil
}

// followJSON prints every event as one JSON line.
func (r *Runner) followJSON(run *tasks.Run) (*tasks.Summary, error) {
	var writeErr error
	for ev := range run.Events() {
		if writeErr != nil {
			continue
		}
		if err := r.writeJSON(ev, false); err != nil {
			writeErr = err
			run.Cancel()
		}
	}
	return run.Wait(), writeErr
}

// followProgress renders a progress bar on the error stream while the run is active.
func (r *Runner) followProgress(run *tasks.Run) *tasks.Summary {
	var bar *progressbar.ProgressBar
	for ev := range run.Events() {
		switch ev.Kind {
		case tasks.EventCatalog:
			r.writePlain("→ %s\n", ev.Message)
			r.writePlain("→ Saving to %s\n", ev.Folder)
			bar = r.newProgressBar(ev.Total)
		case tasks.EventProgress:
			if bar != nil {
				bar.Describe(truncate(ev.Label, 40))
			}
		case tasks.EventResult:
			if bar != nil {
				bar.Add(1)
			}
			if ev.Result != nil && !ev.Result.OK() {
				r.logger.Warn("track failed", "index", ev.Index, "query", ev.Result.Query, "reason", ev.Result.Reason)
			}
		default:
			if bar != nil {
				bar.Finish()
			}
		}
	}
	return run.Wait()
}

func (r *Runner) newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.errOutput),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// printSummary prints the outcome of a run in plain text.
func (r *Runner) printSummary(s *tasks.Summary) {
	switch s.State {
	case tasks.StateFailed:
		r.writePlain("✗ Failed (%s): %s\n", s.Error, s.Message)
		return
	case tasks.StateCancelled:
		r.writePlain("⚠ Cancelled after %d tracks (%d acquired)\n", len(s.Results), s.Succeeded)
	default:
		r.writePlain("✓ Acquired %d of %d tracks into %s\n", s.Succeeded, len(s.Results), s.Folder)
	}

	if s.Failed > 0 {
		var failed []models.AcquisitionResult
		for _, res := range s.Results {
			if !res.OK() {
				failed = append(failed, res)
			}
		}
		r.writePlainln("Failed tracks:")
		formatter.RenderResults(r.output, failed)
	}
	if s.PlaylistFile != "" {
		r.writePlain("✓ Playlist written to %s\n", s.PlaylistFile)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
