package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/tunebox/internal/formatter"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestName is the summary file written by [LibraryEngine.BulkExport].
const ManifestName = "export_manifest.json"

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format: json, csv, markdown, txt
	OutputDir  string           // Base output directory (default: tunebox_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 10)
	RateLimit  float64          // Playlists started per second (default: 5)
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   int64    `json:"playlistId"`
	PlaylistName string   `json:"playlistName"`
	Songs        int      `json:"songs"`
	Files        []string `json:"files,omitempty"`
	Success      bool     `json:"success"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

// BulkExportResult summarises a bulk export and doubles as its manifest.
type BulkExportResult struct {
	Format            formatter.Format       `json:"format"`
	TotalPlaylists    int                    `json:"totalPlaylists"`
	SuccessfulExports int                    `json:"successfulExports"`
	FailedExports     int                    `json:"failedExports"`
	OutputDirectory   string                 `json:"outputDirectory"`
	ManifestPath      string                 `json:"-"`
	ExportedAt        time.Time              `json:"exportedAt"`
	Results           []PlaylistExportResult `json:"results"`
}

// ExportPlaylist loads a playlist with its songs in playlist order.
func (e *LibraryEngine) ExportPlaylist(ctx context.Context, id int64) (*models.PlaylistExport, error) {
	playlist, err := e.store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	songs, err := e.store.PlaylistSongs(ctx, id)
	if err != nil {
		return nil, err
	}

	export := &models.PlaylistExport{
		Playlist:   *playlist,
		Songs:      make([]models.Song, 0, len(songs)),
		ExportedAt: time.Now().UTC(),
	}
	for _, s := range songs {
		export.Songs = append(export.Songs, *s)
	}
	return export, nil
}

// BulkExport exports multiple playlists concurrently with rate limiting and progress tracking.
//
// Failed playlists are recorded in the result; the manifest is written either way.
func (e *LibraryEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []int64, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("tunebox_export_%d", time.Now().Unix())
	}
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		ExportedAt:      time.Now().UTC(),
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan int64, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range workers(opts.NumWorkers) {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- id
			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), id))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}

	slices.SortFunc(result.Results, func(a, b PlaylistExportResult) int { return int(a.PlaylistID - b.PlaylistID) })

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	e.sendProgress(prog, manifestUpdate(manifestPath))
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *LibraryEngine) exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan int64, results chan<- PlaylistExportResult, opts BulkExportOpts) {
	defer wg.Done()

	for id := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.exportSinglePlaylist(ctx, id, opts)
	}
}

func (e *LibraryEngine) exportSinglePlaylist(ctx context.Context, id int64, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   id,
		PlaylistName: fmt.Sprintf("Unknown (%d)", id),
	}

	export, err := e.ExportPlaylist(ctx, id)
	if err != nil {
		return failed(result, fmt.Errorf("failed to fetch playlist: %w", err))
	}
	result.PlaylistName = export.Playlist.Name
	result.Songs = len(export.Songs)

	var cover string
	if e.uploads != nil && export.Playlist.CoverURL != "" {
		cover, _ = e.uploads.Path(export.Playlist.CoverURL)
	}

	files, err := formatter.WriteExport(export, opts.Format, opts.OutputDir, cover)
	if err != nil {
		return failed(result, fmt.Errorf("%s export failed: %w", opts.Format, err))
	}

	result.Files = files
	result.Success = true
	return result
}

func failed(r PlaylistExportResult, err error) PlaylistExportResult {
	r.Success = false
	r.Error = err
	r.ErrorMessage = err.Error()
	return r
}

// AllPlaylistIDs lists the ids of every stored playlist.
func (e *LibraryEngine) AllPlaylistIDs(ctx context.Context) ([]int64, error) {
	playlists, err := e.store.ListPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list playlists: %v", shared.ErrInternal, err)
	}
	ids := make([]int64, len(playlists))
	for i, p := range playlists {
		ids[i] = p.ID
	}
	return ids, nil
}
