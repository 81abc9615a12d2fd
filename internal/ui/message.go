package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/playback"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgSongsFetched
	MsgNotice
	MsgSongEnded
	MsgTick
)

type playlistsFetched struct {
	playlists []*models.Playlist
	err       error
}

type songsFetched struct {
	title string
	songs []*models.Song
	err   error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []*models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// songsFetchedMsg is the constructor for [MsgSongsFetched]
func songsFetchedMsg(title string, songs []*models.Song, err error) Msg {
	return Msg{kind: MsgSongsFetched, data: songsFetched{title, songs, err}}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(n playback.Notice) Msg {
	return Msg{kind: MsgNotice, data: n}
}

// songEndedMsg is the constructor for [MsgSongEnded]
func songEndedMsg(song models.Song) Msg {
	return Msg{kind: MsgSongEnded, data: song}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
