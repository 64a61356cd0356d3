package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/acquire"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultConfigPath = "config.toml"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies left nil are built lazily from the config the first time a command needs them.
type Runner struct {
	config     *shared.Config
	configPath string
	configured bool
	catalog    services.Catalog
	downloader acquire.Downloader
	db         *sql.DB
	ownsDB     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	errOutput  io.Writer
	logFile    *os.File
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Downloader acquire.Downloader
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	ErrOutput  io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// A Runner built with an explicit Config skips loading the config file.
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = defaultConfigPath
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		configured: configured,
		catalog:    opts.Catalog,
		downloader: opts.Downloader,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		errOutput:  opts.ErrOutput,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, tracksCommand, fetchCommand, playCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config named by --config, overlays the environment and applies logging settings.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}

	if !r.configured {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
		r.config.ApplyEnv()
		r.configured = true
	}

	level := r.config.Logging.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	if err := shared.SetLogLevel(r.logger, level); err != nil {
		return ctx, err
	}

	if path := r.config.Logging.File; path != "" {
		if err := r.logToFile(path); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

// After releases resources opened by commands.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close closes the database (when opened by the runner) and the log file.
func (r *Runner) Close() error {
	var err error
	if r.db != nil && r.ownsDB {
		err = r.db.Close()
		r.db = nil
	}
	if r.logFile != nil {
		r.logFile.Close()
		r.logFile = nil
	}
	return err
}

// logToFile redirects logging to path, keeping the current level.
func (r *Runner) logToFile(path string) error {
	fileLogger, f, err := shared.NewFileLogger(path)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	if r.logFile != nil {
		r.logFile.Close()
	}
	r.logFile = f
	r.SetLogger(fileLogger)
	return nil
}

// SetLogger replaces the logger used by the runner and the services it builds.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Catalog returns the configured catalog, building and authenticating a Spotify client on first use.
//
// Stored user tokens are preferred; without them the client-credentials grant is used. Refreshed tokens
// are written back to the config file.
func (r *Runner) Catalog(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in %s or MIXTAPE_SPOTIFY_CLIENT_ID/SECRET",
			shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(),
		services.WithHTTPClient(r.httpClient),
		services.WithLogger(shared.WithLogger(r.logger, "service", "spotify")),
	)
	if err != nil {
		return nil, err
	}

	if creds.AccessToken != "" {
		svc.SetTokenRefreshCallback(r.saveToken)
	}

	if err := svc.Authenticate(ctx, nil); err != nil {
		return nil, err
	}

	r.catalog = svc
	return svc, nil
}

// saveToken persists a refreshed user token.
func (r *Runner) saveToken(token *oauth2.Token) {
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("ignoring refreshed token", "error", err)
		return
	}
	if _, err := os.Stat(r.configPath); err != nil {
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Debug("saved refreshed token", "path", r.configPath)
}

// Database opens the configured SQLite database and applies pending migrations.
func (r *Runner) Database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	path := shared.ExpandPath(r.config.Database.Path)
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDatabase, err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if applied, err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	} else if len(applied) > 0 {
		r.logger.Debug("applied migrations", "versions", applied)
	}

	r.db = db
	r.ownsDB = true
	return db, nil
}

// recorder returns a run recorder, or nil when history is unavailable.
func (r *Runner) recorder() tasks.RunRecorder {
	db, err := r.Database()
	if err != nil {
		r.logger.Warn("run history disabled", "error", err)
		return nil
	}
	return repositories.NewRunRecorder(db)
}

// Worker builds the track acquisition worker from the download config.
func (r *Runner) Worker(timeout time.Duration) *acquire.Worker {
	dl := r.config.Download
	downloader := r.downloader
	if downloader == nil {
		downloader = acquire.NewYTDLPDownloader(acquire.YTDLPOptions{
			Executable: shared.ExpandPath(dl.YTDLPPath),
			Logger:     shared.WithLogger(r.logger, "component", "yt-dlp"),
		})
	}

	var tagger acquire.Tagger
	if dl.WriteTags {
		tagger = acquire.ID3Tagger{}
	}

	if timeout <= 0 {
		timeout = dl.TimeoutDuration()
	}

	retries := dl.Retries
	if retries == 0 {
		retries = -1
	}

	return acquire.NewWorker(downloader, acquire.WorkerOptions{
		Timeout: timeout,
		Retries: retries,
		Format:  dl.AudioFormat,
		Tagger:  tagger,
		Logger:  r.logger,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
