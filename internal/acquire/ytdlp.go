package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

// YTDLPOptions configures a [YTDLPDownloader].
type YTDLPOptions struct {
	// Executable overrides the yt-dlp binary; empty uses the one on PATH or in the go-ytdlp cache.
	Executable string
	// SearchPrefix selects the yt-dlp search extractor; defaults to "ytsearch1:".
	SearchPrefix string
	Logger       *log.Logger
}

// YTDLPDownloader resolves queries with a yt-dlp top-1 search and extracts the audio track.
type YTDLPDownloader struct {
	executable   string
	searchPrefix string
	logger       *log.Logger
}

// NewYTDLPDownloader creates a downloader. ffmpeg must be available for audio extraction.
func NewYTDLPDownloader(opts YTDLPOptions) *YTDLPDownloader {
	if opts.SearchPrefix == "" {
		opts.SearchPrefix = "ytsearch1:"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &YTDLPDownloader{executable: opts.Executable, searchPrefix: opts.SearchPrefix, logger: opts.Logger}
}

// command builds the yt-dlp invocation for req.
func (d *YTDLPDownloader) command(req Request) *ytdlp.Command {
	dl := ytdlp.New().
		NoPlaylist().
		ExtractAudio().
		AudioFormat(req.Format).
		AudioQuality("0").
		ForceOverwrites().
		DumpJSON().
		NoSimulate().
		Output(filepath.Join(req.Dir, req.Stem+".%(ext)s"))

	if d.executable != "" {
		dl.SetExecutable(d.executable)
	}
	return dl
}

// Download runs yt-dlp for req and returns the extracted audio file.
func (d *YTDLPDownloader) Download(ctx context.Context, req Request) (*Download, error) {
	if req.Format == "" {
		req.Format = DefaultFormat
	}

	dl := d.command(req)
	dl.ProgressFunc(500*time.Millisecond, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			d.logger.Debug("downloading", "query", req.Query,
				"percent", fmt.Sprintf("%.0f%%", float64(update.DownloadedBytes)/float64(update.TotalBytes)*100))
		}
	})

	res, err := dl.Run(ctx, d.searchPrefix+req.Query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: yt-dlp: %v", shared.ErrTrackAcquisition, err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: reading yt-dlp output: %v", shared.ErrTrackAcquisition, err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrNoMatch, req.Query)
	}

	path, err := findStaged(req.Dir, req.Stem, req.Format)
	if err != nil {
		return nil, err
	}

	title := req.Query
	if infos[0].Title != nil && strings.TrimSpace(*infos[0].Title) != "" {
		title = *infos[0].Title
	}

	return &Download{Path: path, Title: title}, nil
}

// findStaged locates the finished file for stem, preferring the requested format.
func findStaged(dir, stem, format string) (string, error) {
	want := filepath.Join(dir, stem+"."+format)
	if _, err := os.Stat(want); err == nil {
		return want, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, stem+".") || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		return filepath.Join(dir, name), nil
	}

	return "", fmt.Errorf("%w: yt-dlp reported success but wrote no %s file", shared.ErrTrackAcquisition, format)
}

// InstallYTDLP downloads a yt-dlp binary into the go-ytdlp cache if none is available and returns its path.
func InstallYTDLP(ctx context.Context) (string, error) {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: installing yt-dlp: %v", shared.ErrServiceUnavailable, err)
	}
	return resolved.Executable, nil
}
