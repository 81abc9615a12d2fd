package services

import (
	"context"

	"github.com/desertthunder/tunebox/internal/models"
)

// Library is the read side of a song catalogue.
type Library interface {
	// ListSongs returns every song in creation order.
	ListSongs(ctx context.Context) ([]*models.Song, error)

	// SearchSongs returns songs whose title or artist contains query, case-insensitively.
	SearchSongs(ctx context.Context, query string) ([]*models.Song, error)

	// ListPlaylists returns every playlist.
	ListPlaylists(ctx context.Context) ([]*models.Playlist, error)

	// PlaylistSongs returns a playlist's songs in the order they were added.
	PlaylistSongs(ctx context.Context, playlistID int64) ([]*models.Song, error)

	// Name describes where the library lives, e.g. the server URL.
	Name() string
}

// StoreLibrary exposes a [models.Store] as a [Library].
type StoreLibrary struct {
	models.Store
	Label string
}

// Name returns the label, or "local".
func (s StoreLibrary) Name() string {
	if s.Label == "" {
		return "local"
	}
	return s.Label
}

var (
	_ Library = (*APIService)(nil)
	_ Library = StoreLibrary{}
)
