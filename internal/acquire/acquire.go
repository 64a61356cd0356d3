package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	DefaultRetries = 1
	DefaultBackoff = 2 * time.Second
	DefaultFormat  = "mp3"

	stagingPrefix = ".mixtape-"
)

// Request describes one download: resolve Query, and write Dir/Stem.<ext>.
type Request struct {
	Query  string
	Dir    string
	Stem   string
	Format string
}

// Download is a staged file produced by a [Downloader].
type Download struct {
	Path  string
	Title string
}

// Downloader resolves the top search match for a query and saves it as audio.
type Downloader interface {
	Download(ctx context.Context, req Request) (*Download, error)
}

// Metadata is written into acquired files by a [Tagger].
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Track  int
	Total  int
}

// Tagger writes metadata into an audio file.
type Tagger interface {
	Tag(path string, meta Metadata) error
}

// WorkerOptions configures a [Worker]. Zero values select defaults.
type WorkerOptions struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	Format  string
	Tagger  Tagger
	Logger  *log.Logger
}

// Worker acquires tracks one query at a time.
type Worker struct {
	downloader Downloader
	tagger     Tagger
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	format     string
	logger     *log.Logger
}

// NewWorker creates a Worker around d.
//
// A negative Retries disables retrying.
func NewWorker(d Downloader, opts WorkerOptions) *Worker {
	if opts.Timeout <= 0 {
		opts.Timeout = shared.DefaultTrackTimeout
	}
	if opts.Retries == 0 {
		opts.Retries = DefaultRetries
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Worker{
		downloader: d,
		tagger:     opts.Tagger,
		timeout:    opts.Timeout,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		format:     strings.TrimPrefix(opts.Format, "."),
		logger:     opts.Logger,
	}
}

// Acquire downloads the best match for query into dir as NNN-<resolved title>.<ext>.
//
// It always returns a result: failures (no match, download or transcode errors, timeouts) are reported
// as [models.AcquisitionFailed] and staged artifacts are removed.
func (w *Worker) Acquire(ctx context.Context, query, dir string, index, total int) models.AcquisitionResult {
	stem := fmt.Sprintf("%s%03d", stagingPrefix, index)
	logger := w.logger.With("index", index, "total", total)

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	dl, err := w.downloadWithRetry(ctx, Request{Query: query, Dir: dir, Stem: stem, Format: w.format}, logger)
	if err != nil {
		removeStaged(dir, stem)
		reason := w.reason(ctx, err)
		logger.Warn("acquisition failed", "query", query, "reason", reason)
		return models.Failed(index, query, reason)
	}

	title := strings.TrimSpace(dl.Title)
	if strings.TrimSpace(shared.SanitizeName(title)) == "" {
		title = query
	}

	ext := strings.TrimPrefix(filepath.Ext(dl.Path), ".")
	if ext == "" {
		ext = w.format
	}

	final := filepath.Join(dir, shared.TrackFileName(index, title, ext))
	if err := os.Rename(dl.Path, final); err != nil {
		removeStaged(dir, stem)
		reason := fmt.Sprintf("%v: %v", shared.ErrFilesystem, err)
		logger.Warn("acquisition failed", "query", query, "reason", reason)
		return models.Failed(index, query, reason)
	}
	removeStaged(dir, stem)

	if w.tagger != nil {
		_, artist := splitQuery(query)
		meta := Metadata{Title: title, Artist: artist, Album: filepath.Base(dir), Track: index, Total: total}
		if err := w.tagger.Tag(final, meta); err != nil {
			logger.Warn("failed to tag track", "path", final, "error", err)
		}
	}

	logger.Info("acquired track", "title", title, "path", final)
	return models.Succeeded(index, query, final, title)
}

func (w *Worker) downloadWithRetry(ctx context.Context, req Request, logger *log.Logger) (*Download, error) {
	var lastErr error

	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(w.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			logger.Debug("retrying download", "query", req.Query, "attempt", attempt+1)
		}

		dl, err := w.attempt(ctx, req)
		if err == nil {
			return dl, nil
		}

		lastErr = err
		removeStaged(req.Dir, req.Stem)
		logger.Debug("download attempt failed", "attempt", attempt+1, "error", err)

		if ctx.Err() != nil || errors.Is(err, shared.ErrNoMatch) {
			return nil, err
		}
	}

	return nil, lastErr
}

// attempt runs the downloader once, converting panics into errors.
func (w *Worker) attempt(ctx context.Context, req Request) (dl *Download, err error) {
	defer func() {
		if r := recover(); r != nil {
			dl, err = nil, fmt.Errorf("%w: downloader panic: %v", shared.ErrTrackAcquisition, r)
		}
	}()

	dl, err = w.downloader.Download(ctx, req)
	if err != nil {
		return nil, err
	}
	if dl == nil || dl.Path == "" {
		return nil, fmt.Errorf("%w: downloader produced no file", shared.ErrTrackAcquisition)
	}
	if _, statErr := os.Stat(dl.Path); statErr != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTrackAcquisition, statErr)
	}
	return dl, nil
}

func (w *Worker) reason(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("%v after %s", shared.ErrTimeout, w.timeout)
	}
	if errors.Is(err, context.Canceled) {
		return shared.ErrCancelled.Error()
	}
	return err.Error()
}

// removeStaged deletes every staging artifact for stem in dir (including yt-dlp .part and intermediate files).
func removeStaged(dir, stem string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), stem+".") {
			os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

// splitQuery reverses shared.BuildQuery on the last " - " separator.
func splitQuery(query string) (title, artist string) {
	idx := strings.LastIndex(query, " - ")
	if idx < 0 {
		return query, ""
	}
	return query[:idx], query[idx+3:]
}
