package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const runColumns = `id, sequence, reference, playlist_id, playlist_name, folder, status, tracks_total, tracks_acquired,
	tracks_failed, error_message, started_at, completed_at, created_at, updated_at, deleted_at`

var _ models.Repository[*models.FetchRun] = (*RunRepository)(nil)

// RunRepository implements models.Repository[*models.FetchRun] for fetch run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run with a fresh sequence. Runs without an ID get a generated one.
func (r *RunRepository) Create(run *models.FetchRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "fetch_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	run.SetSequence(sequence)
	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}

	query := `
		INSERT INTO fetch_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		sequence,
		run.Reference(),
		run.PlaylistID(),
		run.PlaylistName(),
		run.Folder(),
		run.Status(),
		run.TracksTotal(),
		run.Acquired(),
		run.Failed(),
		run.ErrorMessage(),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert run: %v", shared.ErrDatabase, err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.FetchRun, error) {
	query := `SELECT ` + runColumns + ` FROM fetch_runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a run by its sequence number
func (r *RunRepository) GetBySequence(sequence int) (*models.FetchRun, error) {
	query := `SELECT ` + runColumns + ` FROM fetch_runs WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence))
}

// Update writes the mutable fields of run (name, folder, status, counters, timestamps)
func (r *RunRepository) Update(run *models.FetchRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE fetch_runs
		SET playlist_name = ?, folder = ?, status = ?, tracks_total = ?, tracks_acquired = ?, tracks_failed = ?,
			error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.PlaylistName(),
		run.Folder(),
		run.Status(),
		run.TracksTotal(),
		run.Acquired(),
		run.Failed(),
		run.ErrorMessage(),
		run.StartedAt(),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update run: %v", shared.ErrDatabase, err)
	}

	return expectRow(result, "run", run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `UPDATE fetch_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete run: %v", shared.ErrDatabase, err)
	}

	return expectRow(result, "run", id)
}

// List retrieves runs, newest first, excluding soft-deleted runs.
//
// Supported criteria: "status" (string), "playlist_id" (string) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.FetchRun, error) {
	query := `SELECT ` + runColumns + ` FROM fetch_runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query runs: %v", shared.ErrDatabase, err)
	}
	defer rows.Close()

	var runs []*models.FetchRun
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrDatabase, err)
	}

	return runs, nil
}

// scan reads one row into a [models.FetchRun]
func (r *RunRepository) scan(row scanner) (*models.FetchRun, error) {
	var (
		id                         string
		sequence                   int
		reference, playlistID      string
		name, folder, errorMessage sql.NullString
		status                     string
		total, acquired, failed    int
		startedAt, completedAt     sql.NullTime
		createdAt, updatedAt       time.Time
		deletedAt                  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &reference, &playlistID, &name, &folder, &status, &total, &acquired,
		&failed, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run", shared.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan run: %v", shared.ErrDatabase, err)
	}

	run := models.NewFetchRun(sequence, reference, playlistID)
	run.SetID(id)
	run.SetPlaylistName(name.String)
	run.SetFolder(folder.String)
	run.SetStatus(status)
	run.SetTracksTotal(total)
	run.SetAcquired(acquired)
	run.SetFailed(failed)
	run.SetErrorMessage(errorMessage.String)
	run.SetStartedAt(nullTime(&startedAt))
	run.SetCompletedAt(nullTime(&completedAt))
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	run.SetDeletedAt(nullTime(&deletedAt))

	return run, nil
}

func expectRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrDatabase, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted: %s", shared.ErrRecordNotFound, kind, id)
	}
	return nil
}
