// API client for the tunebox REST server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

// DefaultBaseURL is used when no server URL is configured.
const DefaultBaseURL = "http://localhost:5000"

// APIService provides methods for calling the tunebox REST API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the server at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Name returns the server base URL.
func (a *APIService) Name() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err converts a failed response into an error wrapping the matching sentinel, or nil for 2xx.
func (r *APIResponse) Err() error {
	if r.OK() {
		return nil
	}

	var body struct {
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	}
	message := strings.TrimSpace(string(r.Body))
	if err := json.Unmarshal(r.Body, &body); err == nil && body.Message != "" {
		message = body.Message
	}
	if message == "" {
		message = http.StatusText(r.StatusCode)
	}

	var sentinel error
	switch r.StatusCode {
	case http.StatusBadRequest:
		sentinel = shared.ErrValidation
	case http.StatusNotFound:
		sentinel = shared.ErrNotFound
	case http.StatusTooManyRequests:
		sentinel = shared.ErrTooManyRequests
	case http.StatusServiceUnavailable:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}

	if body.RequestID != "" {
		return fmt.Errorf("%w: %s (status %d, request %s)", sentinel, message, r.StatusCode, body.RequestID)
	}
	return fmt.Errorf("%w: %s (status %d)", sentinel, message, r.StatusCode)
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil, "")
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, nil, "")
}

func (a *APIService) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// decode checks the response status, then unmarshals its body into a T.
func decode[T any](resp *APIResponse, err error) (T, error) {
	var v T
	if err != nil {
		return v, err
	}
	if err := resp.Err(); err != nil {
		return v, err
	}
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return v, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return v, nil
}

func empty(resp *APIResponse, err error) error {
	if err != nil {
		return err
	}
	return resp.Err()
}

func (a *APIService) postJSON(ctx context.Context, path string, v any) (*APIResponse, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return a.Post(ctx, path, data)
}

// Health checks the server's /healthz endpoint.
func (a *APIService) Health(ctx context.Context) error {
	return empty(a.Get(ctx, "/healthz"))
}

func (a *APIService) ListSongs(ctx context.Context) ([]*models.Song, error) {
	return decode[[]*models.Song](a.Get(ctx, "/api/songs"))
}

func (a *APIService) SearchSongs(ctx context.Context, query string) ([]*models.Song, error) {
	return decode[[]*models.Song](a.Get(ctx, "/api/songs?q="+url.QueryEscape(query)))
}

func (a *APIService) GetSong(ctx context.Context, id int64) (*models.Song, error) {
	return decode[*models.Song](a.Get(ctx, "/api/songs/"+strconv.FormatInt(id, 10)))
}

func (a *APIService) DeleteSong(ctx context.Context, id int64) error {
	return empty(a.Delete(ctx, "/api/songs/"+strconv.FormatInt(id, 10)))
}

// UploadSong sends the audio and cover files at the given paths with the song's metadata.
func (a *APIService) UploadSong(ctx context.Context, title, artist, audioPath, coverPath string) (*models.Song, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("title", title); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}
	if err := w.WriteField("artist", artist); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}
	for field, path := range map[string]string{"audio": audioPath, "cover": coverPath} {
		if err := attach(w, field, path); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}

	return decode[*models.Song](a.do(ctx, http.MethodPost, "/api/songs", body, w.FormDataContentType()))
}

func attach(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s file: %w", field, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to write form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s file: %w", field, err)
	}
	return nil
}

func (a *APIService) ListPlaylists(ctx context.Context) ([]*models.Playlist, error) {
	return decode[[]*models.Playlist](a.Get(ctx, "/api/playlists"))
}

func (a *APIService) GetPlaylist(ctx context.Context, id int64) (*models.Playlist, error) {
	return decode[*models.Playlist](a.Get(ctx, "/api/playlists/"+strconv.FormatInt(id, 10)))
}

func (a *APIService) CreatePlaylist(ctx context.Context, name, coverURL string) (*models.Playlist, error) {
	req := map[string]string{"name": name, "coverUrl": coverURL}
	return decode[*models.Playlist](a.postJSON(ctx, "/api/playlists", req))
}

func (a *APIService) DeletePlaylist(ctx context.Context, id int64) error {
	return empty(a.Delete(ctx, "/api/playlists/"+strconv.FormatInt(id, 10)))
}

func (a *APIService) PlaylistSongs(ctx context.Context, playlistID int64) ([]*models.Song, error) {
	return decode[[]*models.Song](a.Get(ctx, fmt.Sprintf("/api/playlists/%d/songs", playlistID)))
}

func (a *APIService) AddSongToPlaylist(ctx context.Context, playlistID, songID int64) (*models.PlaylistSong, error) {
	req := map[string]int64{"songId": songID}
	return decode[*models.PlaylistSong](a.postJSON(ctx, fmt.Sprintf("/api/playlists/%d/songs", playlistID), req))
}

func (a *APIService) RemoveSongFromPlaylist(ctx context.Context, playlistID, songID int64) error {
	return empty(a.Delete(ctx, fmt.Sprintf("/api/playlists/%d/songs/%d", playlistID, songID)))
}

func (a *APIService) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	req := map[string]string{"username": username, "password": password}
	return decode[*models.User](a.postJSON(ctx, "/api/users", req))
}
