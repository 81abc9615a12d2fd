// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Owner username (default: server.default_user)",
	}
}

// setupCommand handles setup operations for the configuration file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand runs the REST API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and serve uploaded files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "memory",
				Usage: "Keep all data in memory instead of the configured database",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// usersCommand handles user administration.
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage users",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a user",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Password for the new user",
						Required: true,
					},
					jsonFlag(),
				},
				Action: r.UsersCreate,
			},
			{
				Name:   "list",
				Usage:  "List users",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.UsersList,
			},
		},
	}
}

// songsCommand handles song administration against the database.
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Manage songs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List songs",
				Flags:  []cli.Flag{userFlag(), jsonFlag()},
				Action: r.SongsList,
			},
			{
				Name:      "search",
				Usage:     "Search songs by title or artist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.SongsSearch,
			},
			{
				Name:      "show",
				Usage:     "Show a song",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.SongsShow,
			},
			{
				Name:  "upload",
				Usage: "Upload an audio file as a new song",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Song title (default: parsed from the file name)",
					},
					&cli.StringFlag{
						Name:    "artist",
						Aliases: []string{"a"},
						Usage:   "Song artist (default: parsed from the file name)",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Cover image file",
					},
					userFlag(),
					jsonFlag(),
				},
				Action: r.SongsUpload,
			},
			{
				Name:      "delete",
				Usage:     "Delete a song and its files",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.SongsDelete,
			},
		},
	}
}

// playlistsCommand handles playlist administration against the database.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  []cli.Flag{userFlag(), jsonFlag()},
				Action: r.PlaylistsList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its songs",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, json, csv, markdown",
						Value:   "txt",
					},
				},
				Action: r.PlaylistsShow,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Cover image file",
					},
					userFlag(),
					jsonFlag(),
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:  "add",
				Usage: "Add a song to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "song"},
				},
				Action: r.PlaylistsAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a song from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "song"},
				},
				Action: r.PlaylistsRemove,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistsDelete,
			},
			{
				Name:  "export",
				Usage: "Export playlists to files",
				Flags: []cli.Flag{
					&cli.Int64SliceFlag{
						Name:  "id",
						Usage: "Playlist ID to export (repeatable, default: all)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: tunebox_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Playlists started per second",
						Value: 5,
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// importCommand bulk-imports a directory of audio files.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import every audio file in a directory",
		Arguments: []cli.Argument{&cli.StringArg{Name: "dir"}},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Collect the imported songs into a new playlist",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Artist for files named without one",
				Value: "Unknown Artist",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent import workers",
				Value: 4,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Files started per second",
				Value: 10,
			},
			userFlag(),
			jsonFlag(),
		},
		Action: r.Import,
	}
}

// playCommand launches the terminal player.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"player", "ui"},
		Usage:   "Launch the terminal player against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Server URL (default: player.server_url)",
			},
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Open this playlist ID directly",
			},
			&cli.IntFlag{
				Name:  "volume",
				Usage: "Initial volume 0-100 (default: player.volume)",
				Value: -1,
			},
		},
		Action: r.Play,
	}
}
