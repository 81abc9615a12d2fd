package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/media"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"golang.org/x/time/rate"
)

// multipartMemory is how much of a multipart body is held in memory before spilling to disk.
const multipartMemory = 8 << 20

// Options configures an [API].
type Options struct {
	Store   models.Store
	Uploads *media.Uploads
	// Owner is the account uploads and new playlists are attributed to.
	Owner     *models.User
	Limiter   *rate.Limiter
	MaxUpload int64
	Logger    *log.Logger
}

// API serves the /api routes.
type API struct {
	store     models.Store
	uploads   *media.Uploads
	owner     *models.User
	limiter   *rate.Limiter
	maxUpload int64
	logger    *log.Logger
}

// NewAPI creates an [API] from opts.
func NewAPI(opts Options) (*API, error) {
	if opts.Store == nil || opts.Uploads == nil {
		return nil, fmt.Errorf("%w: store and uploads are required", shared.ErrInvalidConfig)
	}
	if opts.Owner == nil || opts.Owner.ID == 0 {
		return nil, fmt.Errorf("%w: a stored owner is required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = shared.ServerConfig{}.MaxUploadBytes()
	}

	return &API{
		store:     opts.Store,
		uploads:   opts.Uploads,
		owner:     opts.Owner,
		limiter:   opts.Limiter,
		maxUpload: opts.MaxUpload,
		logger:    opts.Logger,
	}, nil
}

// Register adds the API routes to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(a.health))

	r.Handle(http.MethodGet, "/api/songs", http.HandlerFunc(a.listSongs))
	r.Handle(http.MethodGet, "/api/songs/{id}", http.HandlerFunc(a.getSong))
	r.Handle(http.MethodPost, "/api/songs", Throttle(a.limiter, a.logger)(http.HandlerFunc(a.uploadSong)))
	r.Handle(http.MethodDelete, "/api/songs/{id}", http.HandlerFunc(a.deleteSong))

	r.Handle(http.MethodGet, "/api/playlists", http.HandlerFunc(a.listPlaylists))
	r.Handle(http.MethodGet, "/api/playlists/{id}", http.HandlerFunc(a.getPlaylist))
	r.Handle(http.MethodPost, "/api/playlists", http.HandlerFunc(a.createPlaylist))
	r.Handle(http.MethodDelete, "/api/playlists/{id}", http.HandlerFunc(a.deletePlaylist))

	r.Handle(http.MethodGet, "/api/playlists/{id}/songs", http.HandlerFunc(a.playlistSongs))
	r.Handle(http.MethodPost, "/api/playlists/{id}/songs", http.HandlerFunc(a.addPlaylistSong))
	r.Handle(http.MethodDelete, "/api/playlists/{playlistId}/songs/{songId}", http.HandlerFunc(a.removePlaylistSong))

	r.Handle(http.MethodPost, "/api/users", http.HandlerFunc(a.createUser))
	r.Handle(http.MethodGet, "/api/users/{id}/songs", http.HandlerFunc(a.userSongs))
	r.Handle(http.MethodGet, "/api/users/{id}/playlists", http.HandlerFunc(a.userPlaylists))
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, a.logger, err)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		a.fail(w, r, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) listSongs(w http.ResponseWriter, r *http.Request) {
	var (
		songs []*models.Song
		err   error
	)
	if query := r.URL.Query(); query.Has("q") {
		songs, err = a.store.SearchSongs(r.Context(), query.Get("q"))
	} else {
		songs, err = a.store.ListSongs(r.Context())
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(songs))
}

func (a *API) getSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "song")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	song, err := a.store.GetSong(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// uploadSong stores the audio and cover parts, then records the song.
//
// Stored files are removed again when a later step fails.
func (a *API) uploadSong(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.fail(w, r, fmt.Errorf("%w: upload exceeds %d MB", shared.ErrValidation, tooLarge.Limit>>20))
			return
		}
		a.fail(w, r, fmt.Errorf("%w: expected a multipart form: %v", shared.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	title := strings.TrimSpace(r.FormValue("title"))
	artist := strings.TrimSpace(r.FormValue("artist"))
	switch {
	case title == "":
		a.fail(w, r, fmt.Errorf("%w: title is required", shared.ErrValidation))
		return
	case artist == "":
		a.fail(w, r, fmt.Errorf("%w: artist is required", shared.ErrValidation))
		return
	}

	audio, err := a.saveAsset(r, "audio", media.Audio)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	cover, err := a.saveAsset(r, "cover", media.Image)
	if err != nil {
		a.discard(audio.URL)
		a.fail(w, r, err)
		return
	}

	song := models.NewSong(title, artist, a.owner.ID, audio.URL, cover.URL, audio.Seconds())
	created, err := a.store.CreateSong(r.Context(), *song)
	if err != nil {
		a.discard(audio.URL, cover.URL)
		a.fail(w, r, err)
		return
	}

	a.logger.Info("song uploaded", "id", created.ID, "title", created.Title, "duration", created.Duration)
	writeJSON(w, http.StatusOK, created)
}

func (a *API) saveAsset(r *http.Request, field string, kind media.Kind) (*media.Asset, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, fmt.Errorf("%w: %s file is required", shared.ErrValidation, field)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrValidation, field, err)
	}
	defer file.Close()

	return a.uploads.Save(r.Context(), kind, file)
}

func (a *API) discard(urls ...string) {
	for _, url := range urls {
		if err := a.uploads.Remove(url); err != nil {
			a.logger.Warn("could not remove upload", "url", url, "error", err)
		}
	}
}

func (a *API) deleteSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "song")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	song, err := a.store.GetSong(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.store.DeleteSong(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}

	a.discard(song.AudioURL, song.CoverURL)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.store.ListPlaylists(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(playlists))
}

func (a *API) getPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "playlist")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	playlist, err := a.store.GetPlaylist(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// CreatePlaylistRequest is the body of POST /api/playlists.
type CreatePlaylistRequest struct {
	Name     string `json:"name"`
	CoverURL string `json:"coverUrl"`
}

func (a *API) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaylistRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	playlist := models.NewPlaylist(req.Name, a.owner.ID, req.CoverURL)
	created, err := a.store.CreatePlaylist(r.Context(), *playlist)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "playlist")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.store.DeletePlaylist(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) playlistSongs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "playlist")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	songs, err := a.store.PlaylistSongs(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(songs))
}

// AddSongRequest is the body of POST /api/playlists/{id}/songs.
type AddSongRequest struct {
	SongID int64 `json:"songId"`
}

func (a *API) addPlaylistSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "playlist")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var req AddSongRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.SongID <= 0 {
		a.fail(w, r, fmt.Errorf("%w: songId is required", shared.ErrValidation))
		return
	}

	link, err := a.store.AddSongToPlaylist(r.Context(), id, req.SongID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (a *API) removePlaylistSong(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "playlistId", "playlist")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	songID, err := pathID(r, "songId", "song")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.store.RemoveSongFromPlaylist(r.Context(), playlistID, songID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	user, err := models.NewUser(req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created, err := a.store.CreateUser(r.Context(), *user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) userSongs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	songs, err := a.store.ListSongsByUser(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(songs))
}

func (a *API) userPlaylists(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	playlists, err := a.store.ListPlaylistsByUser(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(playlists))
}

// pathID parses the positive integer wildcard name.
func pathID(r *http.Request, name, entity string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id %q", shared.ErrValidation, entity, raw)
	}
	return id, nil
}

// decode reads a JSON request body of at most 1 MB into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", shared.ErrValidation, err)
	}
	return nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
