package tasks

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/tunebox/internal/media"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultArtist is used for files whose name carries no artist.
const DefaultArtist = "Unknown Artist"

var (
	audioExts = []string{".mp3", ".wav", ".flac", ".ogg", ".m4a"}
	coverExts = []string{".png", ".jpg", ".jpeg", ".webp"}
)

// ImportOpts contains configuration for directory imports.
type ImportOpts struct {
	Owner         *models.User // Owner of the imported songs (required)
	Playlist      string       // Name of a playlist to collect the songs into (optional)
	NumWorkers    int          // Concurrent workers (default: 4, max: 10)
	RateLimit     float64      // Files started per second (default: 10)
	DefaultArtist string       // Artist for files named without one
}

// ImportFailure records a file that could not be imported.
type ImportFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ImportResult summarises a directory import.
type ImportResult struct {
	Directory string           `json:"directory"`
	Total     int              `json:"total"`
	Imported  int              `json:"imported"`
	Failed    int              `json:"failed"`
	Songs     []*models.Song   `json:"songs"`
	Failures  []ImportFailure  `json:"failures,omitempty"`
	Playlist  *models.Playlist `json:"playlist,omitempty"`
}

type importJob struct {
	index int
	path  string
}

type importOutcome struct {
	importJob
	song *models.Song
	err  error
}

// Import stores every audio file under dir as a song owned by opts.Owner.
//
// Files are imported concurrently; the returned songs and the optional playlist keep
// the sorted file order. Individual failures are reported in the result, not as an error.
func (e *LibraryEngine) Import(ctx context.Context, prog chan<- ProgressUpdate, dir string, opts ImportOpts) (*ImportResult, error) {
	if e.uploads == nil {
		return nil, fmt.Errorf("%w: upload directory not configured", shared.ErrServiceUnavailable)
	}
	if opts.Owner == nil {
		return nil, fmt.Errorf("%w: import owner is required", shared.ErrMissingArgument)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.DefaultArtist == "" {
		opts.DefaultArtist = DefaultArtist
	}

	e.sendProgress(prog, scanUpdate(dir))
	files, err := ScanAudio(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no audio files found in %s", shared.ErrInvalidArgument, dir)
	}

	total := len(files)
	result := &ImportResult{Directory: dir, Total: total}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan importJob, total)
	outcomes := make(chan importOutcome, total)

	var wg sync.WaitGroup
	for range workers(opts.NumWorkers) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				song, err := e.importFile(ctx, job.path, opts)
				outcomes <- importOutcome{importJob: job, song: song, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- importJob{index: i, path: path}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	collected := make([]importOutcome, 0, total)
	for out := range outcomes {
		collected = append(collected, out)
		rel := relative(dir, out.path)

		if out.err != nil {
			e.logger.Warn("import failed", "file", rel, "error", out.err)
			e.sendProgress(prog, importFailedUpdate(len(collected), total, rel, out.err))
			continue
		}
		e.sendProgress(prog, importedUpdate(len(collected), total, out.song))
	}

	slices.SortFunc(collected, func(a, b importOutcome) int { return a.index - b.index })
	for _, out := range collected {
		if out.err != nil {
			result.Failures = append(result.Failures, ImportFailure{Path: out.path, Error: out.err.Error()})
			continue
		}
		result.Songs = append(result.Songs, out.song)
	}
	result.Imported = len(result.Songs)
	result.Failed = len(result.Failures)

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if opts.Playlist != "" && len(result.Songs) > 0 {
		playlist, err := e.collect(ctx, prog, opts, result.Songs)
		if err != nil {
			return result, err
		}
		result.Playlist = playlist
	}

	e.logger.Info("import finished", "dir", dir, "imported", result.Imported, "failed", result.Failed)
	return result, nil
}

// importFile stores one audio file, its cover if one sits next to it, and the song record.
func (e *LibraryEngine) importFile(ctx context.Context, path string, opts ImportOpts) (*models.Song, error) {
	audio, err := e.uploads.SaveFile(ctx, media.Audio, path)
	if err != nil {
		return nil, err
	}

	var coverURL string
	if cover := FindCover(path); cover != "" {
		asset, err := e.uploads.SaveFile(ctx, media.Image, cover)
		if err != nil {
			e.logger.Warn("skipping cover", "file", cover, "error", err)
		} else {
			coverURL = asset.URL
		}
	}

	title, artist := ParseFilename(path, opts.DefaultArtist)
	song := models.NewSong(title, artist, opts.Owner.ID, audio.URL, coverURL, audio.Seconds())

	created, err := e.store.CreateSong(ctx, *song)
	if err != nil {
		e.uploads.Remove(audio.URL)
		e.uploads.Remove(coverURL)
		return nil, err
	}
	return created, nil
}

func (e *LibraryEngine) collect(ctx context.Context, prog chan<- ProgressUpdate, opts ImportOpts, songs []*models.Song) (*models.Playlist, error) {
	playlist, err := e.store.CreatePlaylist(ctx, *models.NewPlaylist(opts.Playlist, opts.Owner.ID, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	for _, song := range songs {
		if _, err := e.store.AddSongToPlaylist(ctx, playlist.ID, song.ID); err != nil {
			return playlist, fmt.Errorf("failed to add %q to playlist: %w", song.Title, err)
		}
	}

	e.sendProgress(prog, createPlaylistUpdate(playlist, len(songs)))
	return playlist, nil
}

// ScanAudio returns the audio files under dir, sorted by path. Hidden entries are skipped.
func ScanAudio(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && hasExt(path, audioExts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	slices.Sort(files)
	return files, nil
}

// ParseFilename derives a title and artist from "Artist - Title.ext".
//
// Underscores become spaces and a leading track number ("01 ", "01. ", "01 - ") is dropped.
// Names without a separator use defaultArtist.
func ParseFilename(path, defaultArtist string) (title, artist string) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " ")
	name = trimTrackNumber(name)

	if a, t, ok := strings.Cut(name, " - "); ok && strings.TrimSpace(a) != "" && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t), strings.TrimSpace(a)
	}
	return name, defaultArtist
}

func trimTrackNumber(name string) string {
	i := 0
	for i < len(name) && i < 3 && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 0 || i == len(name) {
		return name
	}

	rest := strings.TrimLeft(name[i:], ".")
	if !strings.HasPrefix(rest, " ") {
		return name
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "-"))
}

// FindCover returns an image next to the audio file: same base name first, then cover.* or folder.*.
func FindCover(audioPath string) string {
	dir := filepath.Dir(audioPath)
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))

	for _, name := range []string{base, "cover", "folder"} {
		for _, ext := range coverExts {
			candidate := filepath.Join(dir, name+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

func hasExt(path string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

func relative(dir, path string) string {
	if rel, err := filepath.Rel(dir, path); err == nil {
		return rel
	}
	return path
}
