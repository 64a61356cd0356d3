// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// setupCommand writes the config file, prepares the database and optionally installs yt-dlp.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml, run database migrations and check dependencies",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "ytdlp",
				Usage: "Download a yt-dlp binary if none is available",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles catalog authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authorize access to private playlists using OAuth2",
				Action: r.AuthSpotify,
			},
			{
				Name:   "status",
				Usage:  "Show the credential mode and verify it with a token request",
				Flags:  jsonFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

// tracksCommand lists a playlist without downloading anything.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tracks",
		Aliases: []string{"ls"},
		Usage:   "List the search queries a fetch would use (dry run)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "reference", UsageText: "playlist URL, URI or ID"},
		},
		Flags: append(jsonFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, table or csv",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the listing to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Only accept playlists owned by this user ID",
			},
		),
		Action: r.Tracks,
	}
}

// fetchCommand runs the acquisition pipeline.
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "fetch",
		Aliases: []string{"get"},
		Usage:   "Download every track of a playlist into a local folder",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "reference", UsageText: "playlist URL, URI or ID"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output root directory (default: download.output_dir)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent downloads (default: download.workers)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-track timeout including retries (default: download.timeout)",
			},
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Only accept playlists owned by this user ID",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print events as JSON lines",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Follow progress in the interactive terminal UI",
			},
			&cli.BoolFlag{
				Name:  "m3u",
				Usage: "Write an M3U playlist next to the tracks (default: download.write_m3u)",
			},
			&cli.BoolFlag{
				Name:  "play",
				Usage: "Open the player on the downloaded tracks when done",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the run in the database",
			},
		},
		Action: r.Fetch,
	}
}

// playCommand opens the player over a folder of audio files.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a downloaded playlist folder",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "folder"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "shuffle",
				Usage: "Shuffle before playing",
			},
			&cli.StringFlag{
				Name:  "player",
				Usage: "Player command (default: player.command)",
			},
		},
		Action: r.Play,
	}
}

// historyCommand inspects recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect past fetch runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs, newest first",
				Flags: append(jsonFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status",
					},
				),
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show a run and its per-track results",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id", UsageText: "run ID, ID prefix or sequence number"},
				},
				Flags:  jsonFlags(),
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a run from history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}
