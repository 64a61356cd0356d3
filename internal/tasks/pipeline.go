package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	DefaultEventBuffer = 64
	MaxWorkers         = 10
)

// Acquirer turns a search query into a file in dir. It reports every failure through the result.
type Acquirer interface {
	Acquire(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult
}

// RunRecorder persists run history. Errors are logged and never change the outcome of a run.
type RunRecorder interface {
	Begin(ctx context.Context, runID, reference, playlistID string) error
	Track(ctx context.Context, runID string, result models.AcquisitionResult) error
	Finish(ctx context.Context, runID string, summary *Summary) error
}

// PipelineOptions configures a [Pipeline]. Zero values select sequential, unrecorded runs.
type PipelineOptions struct {
	Workers     int     // concurrent acquisitions; values above 1 enable the worker pool
	RateLimit   float64 // pool dispatches per second; <= 0 disables limiting
	EventBuffer int     // capacity of [Run.Events]
	WriteM3U    bool    // write <folder>/<name>.m3u on completion
	Recorder    RunRecorder
	Logger      *log.Logger
}

// Request identifies the playlist to fetch and where to put it.
type Request struct {
	Reference  string // playlist URL or URI
	OwnerID    string // optional; rejects playlists owned by someone else
	OutputRoot string // parent of the playlist folder
}

// Pipeline fetches a playlist's catalog and acquires every track into a folder named after it.
type Pipeline struct {
	catalog  services.Catalog
	acquirer Acquirer
	opts     PipelineOptions
	logger   *log.Logger
}

// NewPipeline creates a Pipeline reading from catalog and downloading through acquirer.
func NewPipeline(catalog services.Catalog, acquirer Acquirer, opts PipelineOptions) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
	return &Pipeline{catalog: catalog, acquirer: acquirer, opts: opts, logger: opts.Logger}
}

// runState is the shared, concurrently readable state of one execution.
type runState struct {
	id    string
	state atomic.Int32
	stop  atomic.Bool
}

func (s *runState) set(st State) { s.state.Store(int32(st)) }

// Run is a pipeline execution in progress.
type Run struct {
	runState
	events  chan Event
	done    chan struct{}
	summary *Summary
}

// ID returns the run identifier (a v4 UUID).
func (r *Run) ID() string { return r.id }

// Events returns the run's event stream. It is closed after the terminal event.
//
// Sends block until received, so the consumer must drain the channel.
func (r *Run) Events() <-chan Event { return r.events }

// Cancel requests cooperative cancellation; the run stops before the next track.
func (r *Run) Cancel() { r.stop.Store(true) }

// State returns the current lifecycle state.
func (r *Run) State() State { return State(r.state.Load()) }

// Wait blocks until the run has finished and returns its summary.
func (r *Run) Wait() *Summary {
	<-r.done
	return r.summary
}

// Start validates req and runs the pipeline in a new goroutine.
//
// An invalid reference is reported synchronously and starts nothing.
func (p *Pipeline) Start(ctx context.Context, req Request) (*Run, error) {
	playlistID, err := shared.ExtractPlaylistID(req.Reference)
	if err != nil {
		return nil, err
	}

	run := &Run{
		events: make(chan Event, p.opts.EventBuffer),
		done:   make(chan struct{}),
	}
	run.id = shared.GenerateID()

	go func() {
		defer close(run.done)
		defer close(run.events)
		run.summary = p.execute(ctx, &run.runState, req, playlistID, run.events)
	}()

	return run, nil
}

// Execute runs the pipeline on the calling goroutine, sending events to events (which may be nil).
//
// The channel is not closed. Cancellation is through ctx only.
func (p *Pipeline) Execute(ctx context.Context, req Request, events chan<- Event) (*Summary, error) {
	playlistID, err := shared.ExtractPlaylistID(req.Reference)
	if err != nil {
		return nil, err
	}

	st := &runState{id: shared.GenerateID()}
	return p.execute(ctx, st, req, playlistID, events), nil
}

// execution carries the per-run collaborators through the pipeline stages.
type execution struct {
	*runState
	ctx     context.Context
	events  chan<- Event
	summary *Summary
	logger  *log.Logger
}

func (e *execution) emit(ev Event) {
	if e.events != nil {
		e.events <- ev
	}
}

func (e *execution) stopped() bool {
	return e.stop.Load() || e.ctx.Err() != nil
}

func (p *Pipeline) execute(ctx context.Context, st *runState, req Request, playlistID string, events chan<- Event) *Summary {
	x := &execution{
		runState: st,
		ctx:      ctx,
		events:   events,
		summary:  &Summary{RunID: st.id, Paths: []string{}, Results: []models.AcquisitionResult{}},
		logger:   p.logger.With("run", st.id),
	}

	p.recordBegin(x, req.Reference, playlistID)
	x.set(StateFetchingCatalog)
	x.logger.Info("fetching catalog", "playlist", playlistID)

	export, err := p.catalog.FetchPlaylist(ctx, req.OwnerID, playlistID)
	if err == nil && export == nil {
		err = fmt.Errorf("%w: empty response for %s", shared.ErrCatalogFetch, playlistID)
	}
	if x.stopped() {
		return p.cancel(x)
	}
	if err != nil {
		return p.fail(x, err)
	}

	playlist := export.Playlist
	total := len(export.Tracks)
	folder := filepath.Join(req.OutputRoot, shared.PlaylistFolderName(playlist))
	x.summary.Playlist = &playlist
	x.summary.Folder = folder

	x.emit(catalogEvent(&playlist, folder, total))

	if err := prepareFolder(folder); err != nil {
		return p.fail(x, err)
	}

	x.set(StateDownloading)
	x.logger.Info("downloading tracks", "playlist", playlist.Name, "tracks", total, "folder", folder)

	var interrupted bool
	if p.opts.Workers > 1 && total > 1 {
		interrupted = p.downloadPool(x, export.Tracks, folder)
	} else {
		interrupted = p.downloadSequential(x, export.Tracks, folder)
	}
	if interrupted || ctx.Err() != nil {
		return p.cancel(x)
	}

	if p.opts.WriteM3U && x.summary.Succeeded > 0 {
		path, err := formatter.WriteM3U(folder, playlist, x.summary.Results)
		if err != nil {
			x.logger.Warn("failed to write playlist file", "error", err)
		} else {
			x.summary.PlaylistFile = path
		}
	}

	x.summary.State = StateCompleted
	x.set(StateCompleted)
	x.logger.Info("run completed", "acquired", x.summary.Succeeded, "failed", x.summary.Failed)
	p.recordFinish(x)
	x.emit(completedEvent(x.summary))
	return x.summary
}

func (p *Pipeline) downloadSequential(x *execution, tracks []models.Track, folder string) bool {
	total := len(tracks)
	for i, track := range tracks {
		if x.stopped() {
			return true
		}

		index := i + 1
		query := shared.BuildQuery(track)
		x.emit(progressEvent(index, total, query))
		p.collect(x, p.acquire(x.ctx, query, folder, index, total), total)
	}
	return false
}

// acquire calls the acquirer, holding it to the index and query it was given.
func (p *Pipeline) acquire(ctx context.Context, query, folder string, index, total int) (res models.AcquisitionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.Failed(index, query, fmt.Sprintf("%v: panic: %v", shared.ErrTrackAcquisition, r))
		}
	}()

	res = p.acquirer.Acquire(ctx, query, folder, index, total)
	res.Index, res.Query = index, query
	if res.Status != models.AcquisitionSucceeded && res.Status != models.AcquisitionFailed {
		res = models.Failed(index, query, fmt.Sprintf("%v: unknown status %q", shared.ErrTrackAcquisition, res.Status))
	}
	return res
}

func (p *Pipeline) collect(x *execution, res models.AcquisitionResult, total int) {
	x.summary.add(res)
	if !res.OK() {
		x.logger.Warn("track failed", "index", res.Index, "query", res.Query, "reason", res.Reason)
	}
	p.recordTrack(x, res)
	x.emit(resultEvent(total, res))
}

func (p *Pipeline) fail(x *execution, err error) *Summary {
	kind := Classify(err)
	x.summary.State = StateFailed
	x.summary.Error = kind
	x.summary.Message = err.Error()
	x.set(StateFailed)
	x.logger.Error("run failed", "kind", kind, "error", err)
	p.recordFinish(x)
	x.emit(failedEvent(kind, err))
	return x.summary
}

func (p *Pipeline) cancel(x *execution) *Summary {
	x.summary.State = StateCancelled
	x.summary.Error = ErrorCancelled
	x.summary.Message = shared.ErrCancelled.Error()
	x.set(StateCancelled)
	x.logger.Warn("run cancelled", "acquired", x.summary.Succeeded)
	p.recordFinish(x)
	x.emit(cancelledEvent(x.summary))
	return x.summary
}

func (p *Pipeline) recordBegin(x *execution, reference, playlistID string) {
	if p.opts.Recorder == nil {
		return
	}
	if err := p.opts.Recorder.Begin(context.WithoutCancel(x.ctx), x.id, reference, playlistID); err != nil {
		x.logger.Warn("failed to record run", "error", err)
	}
}

func (p *Pipeline) recordTrack(x *execution, res models.AcquisitionResult) {
	if p.opts.Recorder == nil {
		return
	}
	if err := p.opts.Recorder.Track(context.WithoutCancel(x.ctx), x.id, res); err != nil {
		x.logger.Warn("failed to record track", "index", res.Index, "error", err)
	}
}

func (p *Pipeline) recordFinish(x *execution) {
	if p.opts.Recorder == nil {
		return
	}
	if err := p.opts.Recorder.Finish(context.WithoutCancel(x.ctx), x.id, x.summary); err != nil {
		x.logger.Warn("failed to record run result", "error", err)
	}
}

// prepareFolder creates dir (reusing an existing one) and checks that it accepts new files.
func prepareFolder(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}

	probe, err := os.CreateTemp(dir, ".mixtape-probe-*")
	if err != nil {
		return fmt.Errorf("%w: folder %s is not writable: %v", shared.ErrFilesystem, dir, err)
	}
	name := probe.Name()
	closeErr := probe.Close()
	if err := errors.Join(closeErr, os.Remove(name)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}
	return nil
}
