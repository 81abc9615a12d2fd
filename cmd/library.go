package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunebox/internal/formatter"
	"github.com/desertthunder/tunebox/internal/media"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/tasks"
	"github.com/urfave/cli/v3"
)

// UsersCreate registers a user with a bcrypt-hashed password.
func (r *Runner) UsersCreate(ctx context.Context, cmd *cli.Command) error {
	username := cmd.StringArg("username")
	if username == "" {
		return fmt.Errorf("%w: username is required", shared.ErrMissingArgument)
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	user, err := models.NewUser(username, cmd.String("password"))
	if err != nil {
		return err
	}
	created, err := store.CreateUser(ctx, *user)
	if err != nil {
		return err
	}

	r.logger.Info("user created", "id", created.ID, "username", created.Username)
	if cmd.Bool("json") {
		return r.writeJSON(created, true)
	}
	return r.writePlain("✓ Created user %s (ID: %d)\n", created.Username, created.ID)
}

// UsersList prints every user.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(users, true)
	}

	for _, u := range users {
		r.writePlain("%d\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

// SongsList prints the whole library, or one user's songs with --user.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	var songs []*models.Song
	if username := cmd.String("user"); username != "" {
		user, err := store.GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		songs, err = store.ListSongsByUser(ctx, user.ID)
		if err != nil {
			return err
		}
	} else if songs, err = store.ListSongs(ctx); err != nil {
		return err
	}

	return r.writeSongs(songs, cmd.Bool("json"))
}

// SongsSearch prints songs whose title or artist matches the query.
func (r *Runner) SongsSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	songs, err := store.SearchSongs(ctx, query)
	if err != nil {
		return err
	}
	return r.writeSongs(songs, cmd.Bool("json"))
}

// SongsShow prints one song as JSON.
func (r *Runner) SongsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "song")
	if err != nil {
		return err
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	song, err := store.GetSong(ctx, id)
	if err != nil {
		return err
	}
	return r.writeJSON(song, true)
}

// SongsUpload stores an audio file (and optional cover) and records the song.
//
// Title and artist default to what the file name encodes ("Artist - Title.mp3").
func (r *Runner) SongsUpload(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: audio file is required", shared.ErrMissingArgument)
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	owner, err := r.owner(ctx, cmd, store)
	if err != nil {
		return err
	}
	uploads, err := r.uploads()
	if err != nil {
		return err
	}

	title, artist := tasks.ParseFilename(path, tasks.DefaultArtist)
	if v := cmd.String("title"); v != "" {
		title = v
	}
	if v := cmd.String("artist"); v != "" {
		artist = v
	}

	audio, err := uploads.SaveFile(ctx, media.Audio, path)
	if err != nil {
		return err
	}
	stored := []string{audio.URL}
	discard := func() {
		for _, url := range stored {
			if err := uploads.Remove(url); err != nil {
				r.logger.Warn("failed to discard upload", "url", url, "error", err)
			}
		}
	}

	var coverURL string
	if cover := cmd.String("cover"); cover != "" {
		asset, err := uploads.SaveFile(ctx, media.Image, cover)
		if err != nil {
			discard()
			return err
		}
		coverURL = asset.URL
		stored = append(stored, coverURL)
	}

	song, err := store.CreateSong(ctx, *models.NewSong(title, artist, owner.ID, audio.URL, coverURL, audio.Seconds()))
	if err != nil {
		discard()
		return err
	}

	r.logger.Info("song uploaded", "id", song.ID, "title", song.Title, "audio", song.AudioURL)
	if cmd.Bool("json") {
		return r.writeJSON(song, true)
	}
	return r.writePlain("✓ Uploaded %s - %s (ID: %d, %s)\n", song.Artist, song.Title, song.ID, shared.FormatDuration(song.Duration))
}

// SongsDelete removes a song, its playlist entries and its files.
func (r *Runner) SongsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "song")
	if err != nil {
		return err
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	song, err := store.GetSong(ctx, id)
	if err != nil {
		return err
	}
	if err := store.DeleteSong(ctx, id); err != nil {
		return err
	}

	if uploads, err := r.uploads(); err == nil {
		for _, url := range []string{song.AudioURL, song.CoverURL} {
			if err := uploads.Remove(url); err != nil {
				r.logger.Warn("failed to remove file", "url", url, "error", err)
			}
		}
	}

	return r.writePlain("✓ Deleted song %d (%s)\n", song.ID, song.Title)
}

// PlaylistsList prints every playlist, or one user's playlists with --user.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	var playlists []*models.Playlist
	if username := cmd.String("user"); username != "" {
		user, err := store.GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		playlists, err = store.ListPlaylistsByUser(ctx, user.ID)
		if err != nil {
			return err
		}
	} else if playlists, err = store.ListPlaylists(ctx); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}
	return formatter.PlaylistTable(r.output, playlists)
}

// PlaylistsShow renders a playlist with its songs in the requested format.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "playlist")
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	export, err := tasks.NewLibraryEngine(store, nil, r.logger).ExportPlaylist(ctx, id)
	if err != nil {
		return err
	}
	return formatter.Write(r.output, export, format)
}

// PlaylistsCreate creates an empty playlist.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	owner, err := r.owner(ctx, cmd, store)
	if err != nil {
		return err
	}

	var coverURL string
	if cover := cmd.String("cover"); cover != "" {
		uploads, err := r.uploads()
		if err != nil {
			return err
		}
		asset, err := uploads.SaveFile(ctx, media.Image, cover)
		if err != nil {
			return err
		}
		coverURL = asset.URL
	}

	playlist, err := store.CreatePlaylist(ctx, *models.NewPlaylist(name, owner.ID, coverURL))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}
	return r.writePlain("✓ Created playlist %s (ID: %d)\n", playlist.Name, playlist.ID)
}

// PlaylistsAdd appends a song to a playlist. Adding a song twice is a no-op.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID, songID, err := playlistSongArgs(cmd)
	if err != nil {
		return err
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	link, err := store.AddSongToPlaylist(ctx, playlistID, songID)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Song %d is in playlist %d (added %s)\n", link.SongID, link.PlaylistID, link.AddedAt.Format("2006-01-02 15:04"))
}

// PlaylistsRemove drops a song from a playlist. Removing a song that is not there succeeds.
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	playlistID, songID, err := playlistSongArgs(cmd)
	if err != nil {
		return err
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	if err := store.RemoveSongFromPlaylist(ctx, playlistID, songID); err != nil {
		return err
	}
	return r.writePlain("✓ Song %d removed from playlist %d\n", songID, playlistID)
}

// PlaylistsDelete removes a playlist and its song entries. The songs are kept.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "playlist")
	if err != nil {
		return err
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	if err := store.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %d\n", id)
}

// PlaylistsExport writes playlists to files, concurrently, along with a manifest.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	engine, err := r.engine(store)
	if err != nil {
		return err
	}

	ids := cmd.Int64Slice("id")
	if len(ids) == 0 {
		if ids, err = engine.AllPlaylistIDs(ctx); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: no playlists to export", shared.ErrInvalidArgument)
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	finished := r.printProgress(progressCh, true)

	result, err := engine.BulkExport(ctx, progressCh, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	})
	close(progressCh)
	<-finished

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Exported: %d/%d playlists\n", result.SuccessfulExports, result.TotalPlaylists)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d playlist exports failed", result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

// Import bulk-imports a directory of audio files.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg("dir")
	if dir == "" {
		return fmt.Errorf("%w: directory is required", shared.ErrMissingArgument)
	}

	store, done, err := r.openStore()
	if err != nil {
		return err
	}
	defer done()

	owner, err := r.owner(ctx, cmd, store)
	if err != nil {
		return err
	}
	engine, err := r.engine(store)
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	progressCh := make(chan tasks.ProgressUpdate, 50)
	finished := r.printProgress(progressCh, !useJSON)

	result, err := engine.Import(ctx, progressCh, dir, tasks.ImportOpts{
		Owner:         owner,
		Playlist:      cmd.String("playlist"),
		NumWorkers:    cmd.Int("workers"),
		RateLimit:     cmd.Float("rate"),
		DefaultArtist: cmd.String("artist"),
	})
	close(progressCh)
	<-finished

	if err != nil {
		return err
	}
	if useJSON {
		return r.writeJSON(result, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	r.writePlain("Directory: %s\n", result.Directory)
	r.writePlain("Imported: %d/%d files\n", result.Imported, result.Total)
	if result.Playlist != nil {
		r.writePlain("Playlist: %s (ID: %d)\n", result.Playlist.Name, result.Playlist.ID)
	}
	if result.Failed > 0 {
		r.writePlain("\nFailed to import %d files:\n", result.Failed)
		for _, f := range result.Failures {
			r.writePlain("  - %s: %s\n", f.Path, f.Error)
		}
	}
	return nil
}

// printProgress consumes progress messages until the channel is closed, echoing them when echo is set.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate, echo bool) chan struct{} {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for update := range progressCh {
			if !echo {
				continue
			}
			switch update.Phase {
			case tasks.ScanFiles:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.CreatePlaylist, tasks.WriteManifest:
				r.writePlain("📝 %s\n", update.Message)
			default:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()
	return finished
}

func (r *Runner) writeSongs(songs []*models.Song, useJSON bool) error {
	if useJSON {
		if songs == nil {
			songs = []*models.Song{}
		}
		return r.writeJSON(songs, true)
	}
	return formatter.SongTable(r.output, songs)
}

func playlistSongArgs(cmd *cli.Command) (int64, int64, error) {
	playlistID, err := parseID(cmd.StringArg("playlist"), "playlist")
	if err != nil {
		return 0, 0, err
	}
	songID, err := parseID(cmd.StringArg("song"), "song")
	if err != nil {
		return 0, 0, err
	}
	return playlistID, songID, nil
}
