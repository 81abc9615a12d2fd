package models

import "context"

// UserStore persists [User] records.
type UserStore interface {
	CreateUser(ctx context.Context, user User) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
}

// SongStore persists [Song] records.
type SongStore interface {
	CreateSong(ctx context.Context, song Song) (*Song, error)
	GetSong(ctx context.Context, id int64) (*Song, error)
	ListSongs(ctx context.Context) ([]*Song, error)
	ListSongsByUser(ctx context.Context, userID int64) ([]*Song, error)
	SearchSongs(ctx context.Context, query string) ([]*Song, error)
	DeleteSong(ctx context.Context, id int64) error
}

// PlaylistStore persists [Playlist] records and their song associations.
type PlaylistStore interface {
	CreatePlaylist(ctx context.Context, playlist Playlist) (*Playlist, error)
	GetPlaylist(ctx context.Context, id int64) (*Playlist, error)
	ListPlaylists(ctx context.Context) ([]*Playlist, error)
	ListPlaylistsByUser(ctx context.Context, userID int64) ([]*Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) error

	PlaylistSongs(ctx context.Context, playlistID int64) ([]*Song, error)
	AddSongToPlaylist(ctx context.Context, playlistID, songID int64) (*PlaylistSong, error)
	RemoveSongFromPlaylist(ctx context.Context, playlistID, songID int64) error
}

// Store is the entity store backing the API and CLI.
//
// Create methods assign the id and timestamp and return the stored record.
// Lookups of missing ids return an error wrapping [shared.ErrNotFound].
// Writes referencing unknown ids return an error wrapping [shared.ErrValidation].
// Deleting a song or playlist removes its associations atomically.
type Store interface {
	UserStore
	SongStore
	PlaylistStore

	Ping(ctx context.Context) error
	Close() error
}
