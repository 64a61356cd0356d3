// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/acquire"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// FakeCatalog is a test double for [services.Catalog] serving playlists from memory.
type FakeCatalog struct {
	mu        sync.Mutex
	Playlists map[string]*models.PlaylistExport
	Err       error         // returned by every fetch when set
	Delay     time.Duration // simulated latency, interrupted by ctx
	Calls     []string
}

// NewFakeCatalog returns a catalog holding exports keyed by playlist ID.
func NewFakeCatalog(exports ...*models.PlaylistExport) *FakeCatalog {
	c := &FakeCatalog{Playlists: make(map[string]*models.PlaylistExport)}
	for _, e := range exports {
		c.Playlists[e.Playlist.ID] = e
	}
	return c
}

func (c *FakeCatalog) Name() string { return "fake" }

func (c *FakeCatalog) FetchPlaylist(ctx context.Context, ownerID, playlistID string) (*models.PlaylistExport, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, playlistID)
	c.mu.Unlock()

	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", shared.ErrCatalogFetch, ctx.Err())
		}
	}
	if c.Err != nil {
		return nil, c.Err
	}

	export, ok := c.Playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", shared.ErrCatalogFetch, shared.ErrPlaylistNotFound, playlistID)
	}
	if ownerID != "" && export.Playlist.Owner != ownerID {
		return nil, fmt.Errorf("%w: %w: %s", shared.ErrCatalogFetch, shared.ErrPlaylistNotFound, playlistID)
	}

	copied := *export
	copied.Tracks = append([]models.Track(nil), export.Tracks...)
	return &copied, nil
}

// FakeDownloader is a test double for [acquire.Downloader] that writes small files into the staging directory.
//
// Queries listed in Fail return their error; Titles overrides the resolved title per query (default: the query).
type FakeDownloader struct {
	mu      sync.Mutex
	Fail    map[string]error
	Titles  map[string]string
	Delay   time.Duration
	Queries []string
}

func NewFakeDownloader() *FakeDownloader {
	return &FakeDownloader{Fail: make(map[string]error), Titles: make(map[string]string)}
}

func (d *FakeDownloader) Download(ctx context.Context, req acquire.Request) (*acquire.Download, error) {
	d.mu.Lock()
	d.Queries = append(d.Queries, req.Query)
	failErr, fail := d.Fail[req.Query]
	title, ok := d.Titles[req.Query]
	d.mu.Unlock()

	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, failErr
	}
	if !ok {
		title = req.Query
	}

	format := req.Format
	if format == "" {
		format = "mp3"
	}
	path := filepath.Join(req.Dir, req.Stem+"."+format)
	if err := os.WriteFile(path, []byte("ID3fake:"+req.Query), 0o644); err != nil {
		return nil, err
	}
	return &acquire.Download{Path: path, Title: title}, nil
}

// Seen returns a copy of the queries received so far.
func (d *FakeDownloader) Seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Queries...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// WriteAudioFixture creates an empty-ish audio file named name in dir and returns its path.
func WriteAudioFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fixture"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
