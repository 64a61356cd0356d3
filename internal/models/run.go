package models

import (
	"fmt"
	"time"
)

// Run statuses mirror the terminal and in-flight states of a fetch pipeline run.
const (
	RunStatusPending     = "pending"
	RunStatusFetching    = "fetching"
	RunStatusDownloading = "downloading"
	RunStatusCompleted   = "completed"
	RunStatusFailed      = "failed"
	RunStatusCancelled   = "cancelled"
)

var runStatuses = map[string]bool{
	RunStatusPending:     true,
	RunStatusFetching:    true,
	RunStatusDownloading: true,
	RunStatusCompleted:   true,
	RunStatusFailed:      true,
	RunStatusCancelled:   true,
}

// FetchRun records one invocation of the fetch pipeline.
type FetchRun struct {
	id           string
	sequence     int
	reference    string
	playlistID   string
	playlistName string
	folder       string
	status       string
	tracksTotal  int
	acquired     int
	failed       int
	errorMessage string
	startedAt    *time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewFetchRun creates a pending run for the given reference and resolved playlist id.
func NewFetchRun(sequence int, reference, playlistID string) *FetchRun {
	now := time.Now()
	return &FetchRun{
		sequence:   sequence,
		reference:  reference,
		playlistID: playlistID,
		status:     RunStatusPending,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (r *FetchRun) ID() string              { return r.id }
func (r *FetchRun) Sequence() int           { return r.sequence }
func (r *FetchRun) Reference() string       { return r.reference }
func (r *FetchRun) PlaylistID() string      { return r.playlistID }
func (r *FetchRun) PlaylistName() string    { return r.playlistName }
func (r *FetchRun) Folder() string          { return r.folder }
func (r *FetchRun) Status() string          { return r.status }
func (r *FetchRun) TracksTotal() int        { return r.tracksTotal }
func (r *FetchRun) Acquired() int           { return r.acquired }
func (r *FetchRun) Failed() int             { return r.failed }
func (r *FetchRun) ErrorMessage() string    { return r.errorMessage }
func (r *FetchRun) StartedAt() *time.Time   { return r.startedAt }
func (r *FetchRun) CompletedAt() *time.Time { return r.completedAt }
func (r *FetchRun) CreatedAt() time.Time    { return r.createdAt }
func (r *FetchRun) UpdatedAt() time.Time    { return r.updatedAt }
func (r *FetchRun) DeletedAt() *time.Time   { return r.deletedAt }

func (r *FetchRun) SetID(id string)                { r.id = id }
func (r *FetchRun) SetSequence(seq int)            { r.sequence = seq }
func (r *FetchRun) SetPlaylistName(name string)    { r.playlistName = name }
func (r *FetchRun) SetFolder(folder string)        { r.folder = folder }
func (r *FetchRun) SetStatus(status string)        { r.status = status }
func (r *FetchRun) SetTracksTotal(n int)           { r.tracksTotal = n }
func (r *FetchRun) SetAcquired(n int)              { r.acquired = n }
func (r *FetchRun) SetFailed(n int)                { r.failed = n }
func (r *FetchRun) SetErrorMessage(msg string)     { r.errorMessage = msg }
func (r *FetchRun) SetStartedAt(t *time.Time)      { r.startedAt = t }
func (r *FetchRun) SetCompletedAt(t *time.Time)    { r.completedAt = t }
func (r *FetchRun) SetCreatedAt(t time.Time)       { r.createdAt = t }
func (r *FetchRun) SetUpdatedAt(t time.Time)       { r.updatedAt = t }
func (r *FetchRun) SetDeletedAt(t *time.Time)      { r.deletedAt = t }
func (r *FetchRun) IsTerminal() bool               { return r.completedAt != nil }
func (r *FetchRun) Attempted() int                 { return r.acquired + r.failed }

// Validate checks required fields and counter consistency.
func (r *FetchRun) Validate() error {
	if r.playlistID == "" {
		return fmt.Errorf("%w: playlist_id", ErrMissingField)
	}
	if !runStatuses[r.status] {
		return fmt.Errorf("%w: status %q", ErrInvalidValue, r.status)
	}
	if r.tracksTotal < 0 || r.acquired < 0 || r.failed < 0 {
		return fmt.Errorf("%w: negative track counter", ErrInvalidValue)
	}
	if r.tracksTotal > 0 && r.Attempted() > r.tracksTotal {
		return fmt.Errorf("%w: %d attempted of %d tracks", ErrInvalidValue, r.Attempted(), r.tracksTotal)
	}
	return nil
}

// FetchRunTrack is the persisted outcome of one track within a [FetchRun].
type FetchRunTrack struct {
	id        string
	runID     string
	result    AcquisitionResult
	createdAt time.Time
}

// NewFetchRunTrack wraps an acquisition result for storage under runID.
func NewFetchRunTrack(runID string, result AcquisitionResult) *FetchRunTrack {
	return &FetchRunTrack{runID: runID, result: result, createdAt: time.Now()}
}

func (t *FetchRunTrack) ID() string                { return t.id }
func (t *FetchRunTrack) RunID() string             { return t.runID }
func (t *FetchRunTrack) Result() AcquisitionResult { return t.result }
func (t *FetchRunTrack) CreatedAt() time.Time      { return t.createdAt }
func (t *FetchRunTrack) UpdatedAt() time.Time      { return t.createdAt }
func (t *FetchRunTrack) SetID(id string)           { t.id = id }
func (t *FetchRunTrack) SetCreatedAt(ts time.Time) { t.createdAt = ts }

// Validate checks that the track belongs to a run and carries a tagged result.
func (t *FetchRunTrack) Validate() error {
	if t.runID == "" {
		return fmt.Errorf("%w: run_id", ErrMissingField)
	}
	if t.result.Index < 1 {
		return fmt.Errorf("%w: index %d", ErrInvalidValue, t.result.Index)
	}
	switch t.result.Status {
	case AcquisitionSucceeded, AcquisitionFailed:
		return nil
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidValue, t.result.Status)
	}
}
