package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/player"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// Play opens the player view over the audio files of a folder.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	folder := cmd.StringArg("folder")
	if folder == "" {
		return fmt.Errorf("%w: folder", shared.ErrMissingArgument)
	}

	entries, err := player.LoadFolder(folder)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no audio files in %s", shared.ErrInvalidArgument, folder)
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	title := filepath.Base(filepath.Clean(shared.ExpandPath(folder)))
	return r.playPaths(title, paths, cmd.Bool("shuffle"), cmd.String("player"))
}

// playerCommand resolves the external player program: the flag, then the config, then [player.DefaultCommand].
func (r *Runner) playerCommand(flag string) string {
	switch {
	case flag != "":
		return flag
	case r.config.Player.Command != "":
		return r.config.Player.Command
	default:
		return player.DefaultCommand
	}
}

// newPlaylist builds the playlist model for paths, shuffled when requested.
func newPlaylist(paths []string, shuffle bool) *player.Model {
	entries := make([]player.Entry, len(paths))
	for i, p := range paths {
		entries[i] = player.NewEntry(p)
	}

	model := player.NewModel(nil)
	model.ReplaceAll(entries)
	if shuffle {
		model.Shuffle()
	}
	return model
}

// playPaths runs the player TUI over paths until the user quits.
func (r *Runner) playPaths(title string, paths []string, shuffle bool, command string) error {
	if r.logFile == nil {
		if err := r.logToFile(filepath.Join(os.TempDir(), "mixtape-player.log")); err != nil {
			return err
		}
	}

	command = r.playerCommand(command)
	var args []string
	if command == r.config.Player.Command {
		args = r.config.Player.Args
	}

	model := newPlaylist(paths, shuffle)
	cp := player.NewCommandPlayer(command, args, shared.WithLogger(r.logger, "component", "player"))

	view := ui.NewPlayerModel(title, model, cp)
	detach := cp.Attach(model)
	defer detach()

	model.Select(max(model.CurrentIndex(), 0))

	if _, err := tea.NewProgram(view, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
