// Package models defines domain entities and persistence interfaces for the tunebox music library.
//
// Persistent entities:
//   - [User] : account owning songs and playlists; the password is stored as a bcrypt hash
//   - [Song] : uploaded audio with title, artist and asset locators
//   - [Playlist] : named, owned collection of songs
//   - [PlaylistSong] : association placing a song in a playlist, ordered by insertion time
//
// Every entity exposes Validate, which reports malformed fields wrapped in [shared.ErrValidation].
// Referential checks (owner exists, song exists) belong to the [Store] write path.
//
// The [Store] interface is implemented by the SQLite and in-memory stores in package repositories.
package models
