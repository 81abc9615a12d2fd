package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = songItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item]. A nil playlist is the whole library.
type playlistItem struct {
	playlist *models.Playlist
}

func (i playlistItem) FilterValue() string { return i.Title() }

func (i playlistItem) Title() string {
	if i.playlist == nil {
		return "All songs"
	}
	return i.playlist.Name
}

func (i playlistItem) Description() string {
	if i.playlist == nil {
		return "Every song in the library"
	}
	return fmt.Sprintf("Created %s", i.playlist.CreatedAt.Format("Jan 2, 2006"))
}

// songItem wraps [models.Song] to implement [list.Item]. index is the song's queue position.
type songItem struct {
	song  *models.Song
	index int
}

func (i songItem) FilterValue() string { return i.song.Title + " " + i.song.Artist }
func (i songItem) Title() string       { return i.song.Title }
func (i songItem) Description() string {
	if i.song.Duration == 0 {
		return i.song.Artist
	}
	return fmt.Sprintf("%s • %s", i.song.Artist, shared.FormatDuration(i.song.Duration))
}
