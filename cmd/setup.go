package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/desertthunder/mixtape/internal/acquire"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the config file if missing, runs database migrations and reports external tools.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", r.configPath)
	} else {
		r.writePlain("✓ Using %s\n", r.configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.Database(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)

	if cmd.Bool("ytdlp") {
		r.writePlain("→ Checking yt-dlp...\n")
		path, err := acquire.InstallYTDLP(ctx)
		if err != nil {
			return err
		}
		r.writePlain("✓ yt-dlp available at %s\n", path)
	} else if r.config.Download.YTDLPPath == "" {
		r.reportTool("yt-dlp", "run 'mixtape setup --ytdlp' to install it")
	}

	r.reportTool("ffmpeg", "required to extract audio")
	r.reportTool(r.playerCommand(""), "required by 'mixtape play'")

	if r.config.Credentials.Spotify.ClientID == "" {
		r.writePlainln("Next steps:")
		r.writePlain("1. Add your Spotify client_id and client_secret to %s\n", r.configPath)
		r.writePlain("2. Run 'mixtape auth spotify' to read private playlists\n")
	}
	return nil
}

func (r *Runner) reportTool(name, hint string) {
	if path, err := exec.LookPath(name); err == nil {
		r.writePlain("✓ %s found at %s\n", name, path)
		return
	}
	r.writePlain("⚠ %s not found on PATH: %s\n", name, hint)
}
