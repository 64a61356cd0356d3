package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// State is the lifecycle position of a pipeline run.
type State int32

const (
	StateIdle State = iota
	StateFetchingCatalog
	StateDownloading
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingCatalog:
		return "fetching_catalog"
	case StateDownloading:
		return "downloading"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// Terminal reports whether no further events follow this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventKind enumerates pipeline events.
type EventKind int

const (
	EventCatalog EventKind = iota
	EventProgress
	EventResult
	EventCompleted
	EventFailed
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventCatalog:
		return "catalog"
	case EventProgress:
		return "progress"
	case EventResult:
		return "result"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return ""
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Terminal reports whether k ends the event stream.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventFailed || k == EventCancelled
}

// ErrorKind classifies pipeline-fatal errors.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorInvalidReference
	ErrorAuth
	ErrorCatalogFetch
	ErrorTrackAcquisition
	ErrorFilesystem
	ErrorCancelled
	ErrorUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return ""
	case ErrorInvalidReference:
		return "invalid_reference"
	case ErrorAuth:
		return "auth"
	case ErrorCatalogFetch:
		return "catalog_fetch"
	case ErrorTrackAcquisition:
		return "track_acquisition"
	case ErrorFilesystem:
		return "filesystem"
	case ErrorCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classify maps err onto an [ErrorKind] by its sentinel.
//
// Auth is checked before catalog errors since catalog auth failures wrap both.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, context.Canceled), errors.Is(err, shared.ErrCancelled):
		return ErrorCancelled
	case errors.Is(err, shared.ErrInvalidReference):
		return ErrorInvalidReference
	case errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrMissingCredentials),
		errors.Is(err, shared.ErrNoRefreshToken):
		return ErrorAuth
	case errors.Is(err, shared.ErrFilesystem):
		return ErrorFilesystem
	case errors.Is(err, shared.ErrCatalogFetch),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrTransient):
		return ErrorCatalogFetch
	case errors.Is(err, shared.ErrTrackAcquisition):
		return ErrorTrackAcquisition
	default:
		return ErrorUnknown
	}
}

// Event is a single message on a run's event stream.
//
// Fields are populated according to Kind:
//   - Catalog: Playlist, Folder, Total
//   - Progress: Index, Total, Label
//   - Result: Index, Total, Result
//   - Completed / Cancelled: Playlist, Folder, Paths, Results
//   - Failed: Error, Message
type Event struct {
	Kind     EventKind                  `json:"kind"`
	Index    int                        `json:"index,omitempty"`
	Total    int                        `json:"total,omitempty"`
	Label    string                     `json:"label,omitempty"`
	Playlist *models.Playlist           `json:"playlist,omitempty"`
	Folder   string                     `json:"folder,omitempty"`
	Result   *models.AcquisitionResult  `json:"result,omitempty"`
	Paths    []string                   `json:"paths,omitempty"`
	Results  []models.AcquisitionResult `json:"results,omitempty"`
	Error    ErrorKind                  `json:"error,omitempty"`
	Message  string                     `json:"message,omitempty"`
}

// Summary is the final outcome of a run.
type Summary struct {
	RunID        string                     `json:"run_id"`
	State        State                      `json:"state"`
	Playlist     *models.Playlist           `json:"playlist,omitempty"`
	Folder       string                     `json:"folder,omitempty"`
	Paths        []string                   `json:"paths"`
	Results      []models.AcquisitionResult `json:"results"`
	Succeeded    int                        `json:"succeeded"`
	Failed       int                        `json:"failed"`
	Error        ErrorKind                  `json:"error,omitempty"`
	Message      string                     `json:"message,omitempty"`
	PlaylistFile string                     `json:"playlist_file,omitempty"`
}

func (s *Summary) add(r models.AcquisitionResult) {
	s.Results = append(s.Results, r)
	if r.OK() {
		s.Succeeded++
		s.Paths = append(s.Paths, r.Path)
	} else {
		s.Failed++
	}
}

func catalogEvent(pl *models.Playlist, folder string, total int) Event {
	return Event{
		Kind:     EventCatalog,
		Total:    total,
		Playlist: pl,
		Folder:   folder,
		Message:  fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, total),
	}
}

func progressEvent(index, total int, query string) Event {
	return Event{Kind: EventProgress, Index: index, Total: total, Label: query}
}

func resultEvent(total int, r models.AcquisitionResult) Event {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", r.Index, total, r.ResolvedTitle)
	if !r.OK() {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", r.Index, total, r.Query, r.Reason)
	}
	return Event{Kind: EventResult, Index: r.Index, Total: total, Result: &r, Message: msg}
}

func completedEvent(s *Summary) Event {
	return Event{
		Kind:     EventCompleted,
		Playlist: s.Playlist,
		Folder:   s.Folder,
		Paths:    append([]string(nil), s.Paths...),
		Results:  append([]models.AcquisitionResult(nil), s.Results...),
		Message:  fmt.Sprintf("Acquired %d of %d tracks", s.Succeeded, len(s.Results)),
	}
}

func cancelledEvent(s *Summary) Event {
	return Event{
		Kind:     EventCancelled,
		Playlist: s.Playlist,
		Folder:   s.Folder,
		Paths:    append([]string(nil), s.Paths...),
		Results:  append([]models.AcquisitionResult(nil), s.Results...),
		Error:    ErrorCancelled,
		Message:  shared.ErrCancelled.Error(),
	}
}

func failedEvent(kind ErrorKind, err error) Event {
	return Event{Kind: EventFailed, Error: kind, Message: err.Error()}
}
