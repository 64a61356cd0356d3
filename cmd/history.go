package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// runView is the JSON shape of a recorded run.
type runView struct {
	ID           string                     `json:"id"`
	Sequence     int                        `json:"sequence"`
	Reference    string                     `json:"reference"`
	PlaylistID   string                     `json:"playlist_id"`
	PlaylistName string                     `json:"playlist_name,omitempty"`
	Folder       string                     `json:"folder,omitempty"`
	Status       string                     `json:"status"`
	TracksTotal  int                        `json:"tracks_total"`
	Acquired     int                        `json:"acquired"`
	Failed       int                        `json:"failed"`
	Error        string                     `json:"error,omitempty"`
	StartedAt    *time.Time                 `json:"started_at,omitempty"`
	CompletedAt  *time.Time                 `json:"completed_at,omitempty"`
	Tracks       []models.AcquisitionResult `json:"tracks,omitempty"`
}

func newRunView(run *models.FetchRun) runView {
	return runView{
		ID:           run.ID(),
		Sequence:     run.Sequence(),
		Reference:    run.Reference(),
		PlaylistID:   run.PlaylistID(),
		PlaylistName: run.PlaylistName(),
		Folder:       run.Folder(),
		Status:       run.Status(),
		TracksTotal:  run.TracksTotal(),
		Acquired:     run.Acquired(),
		Failed:       run.Failed(),
		Error:        run.ErrorMessage(),
		StartedAt:    run.StartedAt(),
		CompletedAt:  run.CompletedAt(),
	}
}

func (r *Runner) runRepository() (*repositories.RunRepository, error) {
	db, err := r.Database()
	if err != nil {
		return nil, err
	}
	return repositories.NewRunRepository(db), nil
}

// HistoryList lists recorded runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	runs, err := repo.List(map[string]any{"limit": cmd.Int("limit"), "status": cmd.String("status")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, len(runs))
		for i, run := range runs {
			views[i] = newRunView(run)
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet\n")
	}
	formatter.RenderRuns(r.output, runs)
	return nil
}

// HistoryShow prints one run with its per-track outcomes.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	run, err := resolveRun(repo, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	db, _ := r.Database()
	tracks, err := repositories.NewRunTrackRepository(db).ListByRun(run.ID())
	if err != nil {
		return err
	}

	view := newRunView(run)
	for _, t := range tracks {
		view.Tracks = append(view.Tracks, t.Result())
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Run #%d: %s", view.Sequence, view.PlaylistName))
	r.writePlain("ID:        %s\n", view.ID)
	r.writePlain("Reference: %s\n", view.Reference)
	r.writePlain("Status:    %s\n", view.Status)
	r.writePlain("Tracks:    %d acquired, %d failed, %d total\n", view.Acquired, view.Failed, view.TracksTotal)
	if view.Folder != "" {
		r.writePlain("Folder:    %s\n", view.Folder)
	}
	if view.StartedAt != nil && view.CompletedAt != nil {
		r.writePlain("Duration:  %s\n", shared.FormatDuration(view.CompletedAt.Sub(*view.StartedAt)))
	}
	if view.Error != "" {
		r.writePlain("Error:     %s\n", view.Error)
	}

	if len(view.Tracks) > 0 {
		r.writePlain("\n")
		formatter.RenderResults(r.output, view.Tracks)
	}
	return nil
}

// HistoryDelete removes a run from history.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	run, err := resolveRun(repo, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if err := repo.Delete(run.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted run #%d (%s)\n", run.Sequence(), run.ID())
}

// resolveRun finds a run by full ID, sequence number or unique ID prefix.
func resolveRun(repo *repositories.RunRepository, ref string) (*models.FetchRun, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	run, err := repo.Get(ref)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, shared.ErrRecordNotFound) {
		return nil, err
	}

	if seq, convErr := strconv.Atoi(ref); convErr == nil {
		return repo.GetBySequence(seq)
	}

	runs, err := repo.List(nil)
	if err != nil {
		return nil, err
	}

	var match *models.FetchRun
	for _, candidate := range runs {
		if !strings.HasPrefix(candidate.ID(), ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %q matches more than one run", shared.ErrInvalidArgument, ref)
		}
		match = candidate
	}
	if match == nil {
		return nil, fmt.Errorf("%w: run %q", shared.ErrRecordNotFound, ref)
	}
	return match, nil
}
