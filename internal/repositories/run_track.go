package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// RunTrackRepository stores per-track outcomes of fetch runs.
type RunTrackRepository struct {
	db *sql.DB
}

// NewRunTrackRepository creates a new RunTrackRepository with the given database connection
func NewRunTrackRepository(db *sql.DB) *RunTrackRepository {
	return &RunTrackRepository{db: db}
}

// Create inserts track with a generated ID. A second outcome for the same run position replaces the first.
func (r *RunTrackRepository) Create(track *models.FetchRunTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	track.SetID(shared.GenerateID())
	res := track.Result()

	query := `
		INSERT OR REPLACE INTO fetch_run_tracks (id, run_id, position, query, status, path, resolved_title, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		track.ID(),
		track.RunID(),
		res.Index,
		res.Query,
		string(res.Status),
		res.Path,
		res.ResolvedTitle,
		res.Reason,
		track.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert run track: %v", shared.ErrDatabase, err)
	}

	return nil
}

// ListByRun returns the tracks recorded for runID in catalog order
func (r *RunTrackRepository) ListByRun(runID string) ([]*models.FetchRunTrack, error) {
	query := `
		SELECT id, run_id, position, query, status, path, resolved_title, reason, created_at
		FROM fetch_run_tracks
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query run tracks: %v", shared.ErrDatabase, err)
	}
	defer rows.Close()

	var tracks []*models.FetchRunTrack
	for rows.Next() {
		var (
			id, run, query, status      string
			position                    int
			path, resolvedTitle, reason sql.NullString
			createdAt                   time.Time
		)
		if err := rows.Scan(&id, &run, &position, &query, &status, &path, &resolvedTitle, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan run track: %v", shared.ErrDatabase, err)
		}

		result := models.AcquisitionResult{
			Index:         position,
			Query:         query,
			Status:        models.AcquisitionStatus(status),
			Path:          path.String,
			ResolvedTitle: resolvedTitle.String,
			Reason:        reason.String,
		}
		track := models.NewFetchRunTrack(run, result)
		track.SetID(id)
		track.SetCreatedAt(createdAt)
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrDatabase, err)
	}

	return tracks, nil
}
