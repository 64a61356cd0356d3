package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// RunRecorder persists pipeline runs and their track outcomes. It implements [tasks.RunRecorder].
type RunRecorder struct {
	runs   *RunRepository
	tracks *RunTrackRepository
}

// NewRunRecorder creates a RunRecorder writing to db.
func NewRunRecorder(db *sql.DB) *RunRecorder {
	return &RunRecorder{runs: NewRunRepository(db), tracks: NewRunTrackRepository(db)}
}

var _ tasks.RunRecorder = (*RunRecorder)(nil)

// Begin inserts a run in the fetching state.
func (r *RunRecorder) Begin(ctx context.Context, runID, reference, playlistID string) error {
	now := time.Now()
	run := models.NewFetchRun(0, reference, playlistID)
	run.SetID(runID)
	run.SetStatus(models.RunStatusFetching)
	run.SetStartedAt(&now)
	return r.runs.Create(run)
}

// Track stores one outcome and bumps the run's counters.
func (r *RunRecorder) Track(ctx context.Context, runID string, result models.AcquisitionResult) error {
	if err := r.tracks.Create(models.NewFetchRunTrack(runID, result)); err != nil {
		return err
	}

	run, err := r.runs.Get(runID)
	if err != nil {
		return err
	}
	run.SetStatus(models.RunStatusDownloading)
	if result.OK() {
		run.SetAcquired(run.Acquired() + 1)
	} else {
		run.SetFailed(run.Failed() + 1)
	}
	if run.TracksTotal() < run.Attempted() {
		run.SetTracksTotal(run.Attempted())
	}
	return r.runs.Update(run)
}

// Finish stores the terminal state and final counters of summary.
func (r *RunRecorder) Finish(ctx context.Context, runID string, summary *tasks.Summary) error {
	run, err := r.runs.Get(runID)
	if err != nil {
		return err
	}

	now := time.Now()
	run.SetStatus(runStatus(summary.State))
	run.SetAcquired(summary.Succeeded)
	run.SetFailed(summary.Failed)
	run.SetErrorMessage(summary.Message)
	run.SetFolder(summary.Folder)
	run.SetCompletedAt(&now)
	if summary.Playlist != nil {
		run.SetPlaylistName(summary.Playlist.Name)
		run.SetTracksTotal(max(summary.Playlist.TrackCount, run.Attempted()))
	}
	return r.runs.Update(run)
}

// Runs exposes the run repository for history queries.
func (r *RunRecorder) Runs() *RunRepository { return r.runs }

// Tracks exposes the run track repository for history queries.
func (r *RunRecorder) Tracks() *RunTrackRepository { return r.tracks }

func runStatus(s tasks.State) string {
	switch s {
	case tasks.StateFetchingCatalog:
		return models.RunStatusFetching
	case tasks.StateDownloading:
		return models.RunStatusDownloading
	case tasks.StateCompleted:
		return models.RunStatusCompleted
	case tasks.StateFailed:
		return models.RunStatusFailed
	case tasks.StateCancelled:
		return models.RunStatusCancelled
	default:
		return models.RunStatusPending
	}
}
