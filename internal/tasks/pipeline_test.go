package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/acquire"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	th "github.com/desertthunder/mixtape/internal/testing"
)

const scenarioReference = "https://open.service/playlist/abc123XYZ"

type acquirerFunc func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult

func (f acquirerFunc) Acquire(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
	return f(ctx, query, dir, index, total)
}

// touchAcquirer writes NNN-<query>.mp3 for every query.
func touchAcquirer(t *testing.T) acquirerFunc {
	return func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
		path := filepath.Join(dir, shared.TrackFileName(index, query, "mp3"))
		if err := os.WriteFile(path, []byte(query), 0o644); err != nil {
			t.Errorf("failed to write %s: %v", path, err)
		}
		return models.Succeeded(index, query, path, query)
	}
}

type recorderCall struct {
	method string
	runID  string
	index  int
	state  State
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recorderCall
	err   error
}

func (r *fakeRecorder) Begin(ctx context.Context, runID, reference, playlistID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorderCall{method: "begin", runID: runID})
	return r.err
}

func (r *fakeRecorder) Track(ctx context.Context, runID string, result models.AcquisitionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorderCall{method: "track", runID: runID, index: result.Index})
	return r.err
}

func (r *fakeRecorder) Finish(ctx context.Context, runID string, summary *Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorderCall{method: "finish", runID: runID, state: summary.State})
	return r.err
}

func scenarioExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{ID: "abc123XYZ", Name: "My:Mix/2024", Owner: "alice", TrackCount: 2},
		Tracks: []models.Track{
			{Title: "Song A", Artist: "Artist1"},
			{Title: "Song B", Artist: "Artist2"},
		},
	}
}

func exportWithTracks(n int) *models.PlaylistExport {
	export := &models.PlaylistExport{Playlist: models.Playlist{ID: "abc123XYZ", Name: "Big Mix"}}
	for i := range n {
		export.Tracks = append(export.Tracks, models.Track{
			Title:  fmt.Sprintf("Song %d", i+1),
			Artist: fmt.Sprintf("Artist %d", i+1),
		})
	}
	export.Playlist.TrackCount = n
	return export
}

func quietOptions(opts PipelineOptions) PipelineOptions {
	opts.Logger = shared.NewLogger(io.Discard)
	return opts
}

func newTestWorker(d acquire.Downloader) *acquire.Worker {
	return acquire.NewWorker(d, acquire.WorkerOptions{
		Retries: -1,
		Backoff: time.Millisecond,
		Logger:  shared.NewLogger(io.Discard),
	})
}

func drain(t *testing.T, run *Run) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-run.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out draining events, got %d so far", len(events))
			return events
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

// assertProtocol checks catalog first, in-order progress and results, and a single terminal event last.
func assertProtocol(t *testing.T, events []Event, total int) {
	t.Helper()

	if len(events) == 0 {
		t.Fatal("expected events")
	}
	if events[0].Kind != EventCatalog || events[0].Total != total {
		t.Errorf("expected catalog event with total %d first, got %+v", total, events[0])
	}

	var progress, results []int
	seenProgress := map[int]bool{}
	terminals := 0
	for i, ev := range events {
		switch ev.Kind {
		case EventProgress:
			progress = append(progress, ev.Index)
			seenProgress[ev.Index] = true
			if ev.Total != total {
				t.Errorf("progress %d carries total %d, want %d", ev.Index, ev.Total, total)
			}
		case EventResult:
			results = append(results, ev.Index)
			if !seenProgress[ev.Index] {
				t.Errorf("result %d arrived before its progress event", ev.Index)
			}
		case EventCompleted, EventFailed, EventCancelled:
			terminals++
			if i != len(events)-1 {
				t.Errorf("terminal event %s at position %d of %d", ev.Kind, i, len(events))
			}
		}
	}

	if terminals != 1 {
		t.Errorf("expected exactly one terminal event, got %d", terminals)
	}
	for i, idx := range progress {
		if idx != i+1 {
			t.Fatalf("progress indices not 1..N in order: %v", progress)
		}
	}
	for i, idx := range results {
		if idx != i+1 {
			t.Fatalf("result indices not 1..N in order: %v", results)
		}
	}
}

func TestPipelineScenario(t *testing.T) {
	root := t.TempDir()
	catalog := th.NewFakeCatalog(scenarioExport())
	downloader := th.NewFakeDownloader()
	downloader.Titles["Song A - Artist1"] = "Song A (Official Audio)"
	downloader.Fail["Song B - Artist2"] = fmt.Errorf("%w: no results", shared.ErrNoMatch)

	pipeline := NewPipeline(catalog, newTestWorker(downloader), quietOptions(PipelineOptions{}))

	run, err := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: root})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	events := drain(t, run)
	summary := run.Wait()

	want := []EventKind{EventCatalog, EventProgress, EventResult, EventProgress, EventResult, EventCompleted}
	if !slices.Equal(kinds(events), want) {
		t.Fatalf("expected %v, got %v", want, kinds(events))
	}
	assertProtocol(t, events, 2)

	folder := filepath.Join(root, "MyMix2024")
	if events[0].Folder != folder || events[0].Playlist.Name != "My:Mix/2024" {
		t.Errorf("unexpected catalog event %+v", events[0])
	}
	if events[1].Label != "Song A - Artist1" || events[3].Label != "Song B - Artist2" {
		t.Errorf("unexpected progress labels %q, %q", events[1].Label, events[3].Label)
	}

	completed := events[len(events)-1]
	wantPath := filepath.Join(folder, "001-Song A (Official Audio).mp3")
	if !slices.Equal(completed.Paths, []string{wantPath}) {
		t.Errorf("expected paths [%s], got %v", wantPath, completed.Paths)
	}
	if len(completed.Results) != 2 || completed.Results[1].OK() {
		t.Errorf("expected two results with the second failed, got %+v", completed.Results)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		t.Fatalf("failed to read folder: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "001-Song A (Official Audio).mp3" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected one audio file, got %v", names)
	}

	if run.State() != StateCompleted || summary.State != StateCompleted {
		t.Errorf("expected completed, got run=%s summary=%s", run.State(), summary.State)
	}
	if summary.Succeeded != 1 || summary.Failed != 1 || summary.RunID != run.ID() {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestPipelineStart(t *testing.T) {
	t.Run("Invalid Reference Fails Fast", func(t *testing.T) {
		catalog := th.NewFakeCatalog(scenarioExport())
		pipeline := NewPipeline(catalog, touchAcquirer(t), quietOptions(PipelineOptions{}))

		for _, ref := range []string{"", "not a url", "https://open.service/album/abc"} {
			run, err := pipeline.Start(context.Background(), Request{Reference: ref, OutputRoot: t.TempDir()})
			if !errors.Is(err, shared.ErrInvalidReference) {
				t.Errorf("Start(%q): expected ErrInvalidReference, got %v", ref, err)
			}
			if run != nil {
				t.Errorf("Start(%q): expected no run", ref)
			}
		}
		if len(catalog.Calls) != 0 {
			t.Errorf("catalog should not be called, got %v", catalog.Calls)
		}
	})

	t.Run("Execute Runs Synchronously", func(t *testing.T) {
		root := t.TempDir()
		pipeline := NewPipeline(th.NewFakeCatalog(scenarioExport()), touchAcquirer(t), quietOptions(PipelineOptions{}))

		summary, err := pipeline.Execute(context.Background(), Request{Reference: scenarioReference, OutputRoot: root}, nil)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if summary.State != StateCompleted || len(summary.Paths) != 2 {
			t.Errorf("unexpected summary %+v", summary)
		}
		th.AssertFileExists(t, filepath.Join(root, "MyMix2024", "002-Song B - Artist2.mp3"))
	})

	t.Run("Execute Rejects Invalid Reference", func(t *testing.T) {
		pipeline := NewPipeline(th.NewFakeCatalog(), touchAcquirer(t), quietOptions(PipelineOptions{}))

		if _, err := pipeline.Execute(context.Background(), Request{Reference: "nope"}, nil); !errors.Is(err, shared.ErrInvalidReference) {
			t.Errorf("expected ErrInvalidReference, got %v", err)
		}
	})
}

func TestPipelineProgressProtocol(t *testing.T) {
	for _, workers := range []int{1, 4} {
		for _, n := range []int{0, 1, 5, 20} {
			t.Run(fmt.Sprintf("%d Tracks %d Workers", n, workers), func(t *testing.T) {
				catalog := th.NewFakeCatalog(exportWithTracks(n))
				pipeline := NewPipeline(catalog, touchAcquirer(t), quietOptions(PipelineOptions{Workers: workers}))

				run, err := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})
				if err != nil {
					t.Fatalf("Start failed: %v", err)
				}

				events := drain(t, run)
				assertProtocol(t, events, n)

				last := events[len(events)-1]
				if last.Kind != EventCompleted || len(last.Paths) != n || len(last.Results) != n {
					t.Errorf("expected completion with %d paths, got %s with %d", n, last.Kind, len(last.Paths))
				}
				for i, r := range last.Results {
					if r.Index != i+1 {
						t.Errorf("results out of order: %d at %d", r.Index, i)
					}
				}
			})
		}
	}
}

func TestPipelineFailureIsolation(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("%d Workers", workers), func(t *testing.T) {
			downloader := th.NewFakeDownloader()
			downloader.Fail["Song 2 - Artist 2"] = errors.New("HTTP Error 403: Forbidden")
			downloader.Fail["Song 4 - Artist 4"] = fmt.Errorf("%w: nothing found", shared.ErrNoMatch)

			pipeline := NewPipeline(
				th.NewFakeCatalog(exportWithTracks(5)),
				newTestWorker(downloader),
				quietOptions(PipelineOptions{Workers: workers}),
			)

			run, err := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})
			if err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			events := drain(t, run)
			summary := run.Wait()

			if got := len(downloader.Seen()); got != 5 {
				t.Errorf("expected all 5 tracks attempted, got %d", got)
			}
			last := events[len(events)-1]
			if last.Kind != EventCompleted {
				t.Fatalf("expected completion, got %s", last.Kind)
			}
			if len(last.Paths) != 3 || summary.Succeeded != 3 || summary.Failed != 2 {
				t.Errorf("expected 3 successes and 2 failures, got %+v", summary)
			}
			for _, p := range last.Paths {
				th.AssertFileExists(t, p)
			}
			if summary.Results[1].Reason == "" || summary.Results[3].Reason == "" {
				t.Error("failed results should carry a reason")
			}
		})
	}
}

func TestPipelineFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"Auth Error", fmt.Errorf("%w: %w", shared.ErrCatalogFetch, shared.ErrTokenExpired), ErrorAuth},
		{"Missing Credentials", shared.ErrMissingCredentials, ErrorAuth},
		{"Not Found", fmt.Errorf("%w: %w", shared.ErrCatalogFetch, shared.ErrPlaylistNotFound), ErrorCatalogFetch},
		{"Transient", fmt.Errorf("%w: %w: status 503", shared.ErrCatalogFetch, shared.ErrTransient), ErrorCatalogFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			catalog := th.NewFakeCatalog(scenarioExport())
			catalog.Err = tt.err
			var attempts atomic.Int32
			acquirer := acquirerFunc(func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
				attempts.Add(1)
				return models.Failed(index, query, "unexpected")
			})

			pipeline := NewPipeline(catalog, acquirer, quietOptions(PipelineOptions{}))
			run, err := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: root})
			if err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			events := drain(t, run)

			if len(events) != 1 || events[0].Kind != EventFailed {
				t.Fatalf("expected a single failed event, got %v", kinds(events))
			}
			if events[0].Error != tt.want || events[0].Message == "" {
				t.Errorf("expected kind %s with message, got %s %q", tt.want, events[0].Error, events[0].Message)
			}
			if attempts.Load() != 0 {
				t.Error("no downloads should be attempted")
			}
			if entries, _ := os.ReadDir(root); len(entries) != 0 {
				t.Error("no folder should be created")
			}
			if run.State() != StateFailed {
				t.Errorf("expected failed state, got %s", run.State())
			}
		})
	}

	t.Run("Owner Mismatch", func(t *testing.T) {
		pipeline := NewPipeline(th.NewFakeCatalog(scenarioExport()), touchAcquirer(t), quietOptions(PipelineOptions{}))

		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OwnerID: "bob", OutputRoot: t.TempDir()})
		events := drain(t, run)

		if last := events[len(events)-1]; last.Kind != EventFailed || last.Error != ErrorCatalogFetch {
			t.Errorf("expected catalog failure, got %+v", last)
		}
	})

	t.Run("Unwritable Folder", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(root, []byte("not a dir"), 0o644); err != nil {
			t.Fatal(err)
		}
		var attempts atomic.Int32
		acquirer := acquirerFunc(func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
			attempts.Add(1)
			return models.Failed(index, query, "unexpected")
		})

		pipeline := NewPipeline(th.NewFakeCatalog(scenarioExport()), acquirer, quietOptions(PipelineOptions{}))
		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: root})
		events := drain(t, run)

		if !slices.Equal(kinds(events), []EventKind{EventCatalog, EventFailed}) {
			t.Fatalf("expected catalog then failed, got %v", kinds(events))
		}
		if events[1].Error != ErrorFilesystem {
			t.Errorf("expected filesystem error, got %s", events[1].Error)
		}
		if attempts.Load() != 0 {
			t.Error("no downloads should be attempted")
		}
	})
}

func TestPipelineCancellation(t *testing.T) {
	t.Run("Cancel Stops Before Next Track", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		touch := touchAcquirer(t)
		var attempts atomic.Int32
		acquirer := acquirerFunc(func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
			attempts.Add(1)
			if index == 1 {
				close(started)
				<-release
			}
			return touch(ctx, query, dir, index, total)
		})

		pipeline := NewPipeline(th.NewFakeCatalog(exportWithTracks(3)), acquirer, quietOptions(PipelineOptions{}))
		run, err := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		<-started
		if run.State() != StateDownloading {
			t.Errorf("expected downloading state, got %s", run.State())
		}
		run.Cancel()
		close(release)

		events := drain(t, run)
		want := []EventKind{EventCatalog, EventProgress, EventResult, EventCancelled}
		if !slices.Equal(kinds(events), want) {
			t.Fatalf("expected %v, got %v", want, kinds(events))
		}

		cancelled := events[len(events)-1]
		if len(cancelled.Paths) != 1 || cancelled.Folder == "" {
			t.Errorf("expected the first path and folder, got %+v", cancelled)
		}
		th.AssertFileExists(t, cancelled.Paths[0])
		if attempts.Load() != 1 {
			t.Errorf("expected one attempt, got %d", attempts.Load())
		}
		if run.State() != StateCancelled || run.Wait().State != StateCancelled {
			t.Errorf("expected cancelled state, got %s", run.State())
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		started := make(chan struct{})
		acquirer := acquirerFunc(func(actx context.Context, query, dir string, index, total int) models.AcquisitionResult {
			close(started)
			<-actx.Done()
			return models.Failed(index, query, shared.ErrCancelled.Error())
		})

		pipeline := NewPipeline(th.NewFakeCatalog(exportWithTracks(3)), acquirer, quietOptions(PipelineOptions{}))
		run, _ := pipeline.Start(ctx, Request{Reference: scenarioReference, OutputRoot: t.TempDir()})

		<-started
		cancel()

		events := drain(t, run)
		assertProtocol(t, events, 3)
		if last := events[len(events)-1]; last.Kind != EventCancelled {
			t.Errorf("expected cancelled, got %s", last.Kind)
		}
	})

	t.Run("Cancel During Catalog Fetch", func(t *testing.T) {
		catalog := th.NewFakeCatalog(scenarioExport())
		catalog.Delay = 50 * time.Millisecond
		var attempts atomic.Int32
		acquirer := acquirerFunc(func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
			attempts.Add(1)
			return models.Failed(index, query, "unexpected")
		})

		pipeline := NewPipeline(catalog, acquirer, quietOptions(PipelineOptions{}))
		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})
		run.Cancel()

		events := drain(t, run)
		if !slices.Equal(kinds(events), []EventKind{EventCancelled}) {
			t.Errorf("expected only a cancelled event, got %v", kinds(events))
		}
		if attempts.Load() != 0 {
			t.Error("no downloads should be attempted")
		}
	})

	t.Run("Pool Cancel", func(t *testing.T) {
		started := make(chan struct{})
		var once sync.Once
		touch := touchAcquirer(t)
		acquirer := acquirerFunc(func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
			once.Do(func() { close(started) })
			time.Sleep(5 * time.Millisecond)
			return touch(ctx, query, dir, index, total)
		})

		pipeline := NewPipeline(
			th.NewFakeCatalog(exportWithTracks(50)),
			acquirer,
			quietOptions(PipelineOptions{Workers: 2, RateLimit: 100}),
		)
		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})

		<-started
		run.Cancel()

		events := drain(t, run)
		assertProtocol(t, events, 50)

		last := events[len(events)-1]
		if last.Kind != EventCancelled {
			t.Fatalf("expected cancelled, got %s", last.Kind)
		}
		var progress int
		for _, ev := range events {
			if ev.Kind == EventProgress {
				progress++
			}
		}
		if progress == 50 || len(last.Results) != progress {
			t.Errorf("expected a partial run with one result per dispatched track, got %d progress and %d results", progress, len(last.Results))
		}
	})
}

func TestPipelinePool(t *testing.T) {
	t.Run("Results Are Reordered", func(t *testing.T) {
		const n = 12
		var inFlight, peak atomic.Int32
		touch := touchAcquirer(t)
		acquirer := acquirerFunc(func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
			cur := inFlight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(time.Duration(n-index) * 2 * time.Millisecond)
			inFlight.Add(-1)
			return touch(ctx, query, dir, index, total)
		})

		pipeline := NewPipeline(th.NewFakeCatalog(exportWithTracks(n)), acquirer, quietOptions(PipelineOptions{Workers: 4}))
		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})

		events := drain(t, run)
		assertProtocol(t, events, n)

		last := events[len(events)-1]
		for i, p := range last.Paths {
			if filepath.Base(p) != shared.TrackFileName(i+1, fmt.Sprintf("Song %d - Artist %d", i+1, i+1), "mp3") {
				t.Errorf("path %d out of order: %s", i, p)
			}
		}
		if peak.Load() < 2 {
			t.Errorf("expected concurrent acquisitions, peak was %d", peak.Load())
		}
	})

	t.Run("Workers Are Capped", func(t *testing.T) {
		pipeline := NewPipeline(th.NewFakeCatalog(), touchAcquirer(t), PipelineOptions{Workers: 100})
		if pipeline.opts.Workers != MaxWorkers {
			t.Errorf("expected %d workers, got %d", MaxWorkers, pipeline.opts.Workers)
		}
	})
}

func TestPipelineOptions(t *testing.T) {
	t.Run("Recorder", func(t *testing.T) {
		recorder := &fakeRecorder{}
		pipeline := NewPipeline(th.NewFakeCatalog(scenarioExport()), touchAcquirer(t), quietOptions(PipelineOptions{Recorder: recorder}))

		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})
		drain(t, run)

		var methods []string
		for _, c := range recorder.calls {
			methods = append(methods, c.method)
			if c.runID != run.ID() {
				t.Errorf("recorder got run id %s, want %s", c.runID, run.ID())
			}
		}
		if !slices.Equal(methods, []string{"begin", "track", "track", "finish"}) {
			t.Errorf("unexpected recorder calls %v", methods)
		}
		if recorder.calls[3].state != StateCompleted {
			t.Errorf("expected completed state on finish, got %s", recorder.calls[3].state)
		}
	})

	t.Run("Recorder Errors Are Ignored", func(t *testing.T) {
		recorder := &fakeRecorder{err: errors.New("database is locked")}
		pipeline := NewPipeline(th.NewFakeCatalog(scenarioExport()), touchAcquirer(t), quietOptions(PipelineOptions{Recorder: recorder}))

		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})
		events := drain(t, run)

		if last := events[len(events)-1]; last.Kind != EventCompleted || len(last.Paths) != 2 {
			t.Errorf("expected completion despite recorder errors, got %+v", last)
		}
	})

	t.Run("Writes M3U", func(t *testing.T) {
		root := t.TempDir()
		pipeline := NewPipeline(th.NewFakeCatalog(scenarioExport()), touchAcquirer(t), quietOptions(PipelineOptions{WriteM3U: true}))

		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: root})
		drain(t, run)
		summary := run.Wait()

		want := filepath.Join(root, "MyMix2024", "MyMix2024.m3u")
		if summary.PlaylistFile != want {
			t.Errorf("expected playlist file %s, got %s", want, summary.PlaylistFile)
		}
		content := th.MustReadFile(t, want)
		if !strings.HasPrefix(content, "#EXTM3U\n") || !strings.Contains(content, "001-Song A - Artist1.mp3") {
			t.Errorf("unexpected playlist content %q", content)
		}
	})

	t.Run("Folder Reuse", func(t *testing.T) {
		root := t.TempDir()
		pipeline := NewPipeline(th.NewFakeCatalog(scenarioExport()), touchAcquirer(t), quietOptions(PipelineOptions{}))

		for range 2 {
			run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: root})
			events := drain(t, run)
			if last := events[len(events)-1]; last.Kind != EventCompleted {
				t.Fatalf("expected completion, got %+v", last)
			}
		}
		th.AssertDirExists(t, filepath.Join(root, "MyMix2024"))
	})

	t.Run("Panicking Acquirer", func(t *testing.T) {
		acquirer := acquirerFunc(func(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
			panic("boom")
		})
		pipeline := NewPipeline(th.NewFakeCatalog(scenarioExport()), acquirer, quietOptions(PipelineOptions{}))

		run, _ := pipeline.Start(context.Background(), Request{Reference: scenarioReference, OutputRoot: t.TempDir()})
		events := drain(t, run)
		assertProtocol(t, events, 2)

		last := events[len(events)-1]
		if last.Kind != EventCompleted || len(last.Paths) != 0 || len(last.Results) != 2 {
			t.Errorf("expected completion with two failures, got %+v", last)
		}
	})
}
