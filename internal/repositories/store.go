package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

// SQLStore implements [models.Store] on SQLite.
//
// Writes are serialized by mu and run in a single transaction each, so a cascade and its
// parent delete are never observed half-applied. Reads go straight to the database.
type SQLStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLStore wraps an already migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLStore opens the configured database, applies migrations and returns a store over it.
func OpenSQLStore(cfg shared.DatabaseConfig) (*SQLStore, error) {
	db, err := shared.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db), nil
}

// DB exposes the underlying connection pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// withTx runs fn in a write transaction while holding the writer lock.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return NewUserRepository(tx).Create(ctx, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return NewUserRepository(s.db).Get(ctx, id)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return NewUserRepository(s.db).GetByUsername(ctx, username)
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return NewUserRepository(s.db).List(ctx)
}

// CreateSong inserts song after checking that its owner exists.
func (s *SQLStore) CreateSong(ctx context.Context, song models.Song) (*models.Song, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireUser(ctx, tx, song.UserID); err != nil {
			return err
		}
		return NewSongRepository(tx).Create(ctx, &song)
	})
	if err != nil {
		return nil, err
	}
	return &song, nil
}

func (s *SQLStore) GetSong(ctx context.Context, id int64) (*models.Song, error) {
	return NewSongRepository(s.db).Get(ctx, id)
}

func (s *SQLStore) ListSongs(ctx context.Context) ([]*models.Song, error) {
	return NewSongRepository(s.db).List(ctx, nil)
}

func (s *SQLStore) ListSongsByUser(ctx context.Context, userID int64) ([]*models.Song, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return NewSongRepository(s.db).List(ctx, map[string]any{"user_id": userID})
}

func (s *SQLStore) SearchSongs(ctx context.Context, query string) ([]*models.Song, error) {
	return NewSongRepository(s.db).List(ctx, map[string]any{"query": query})
}

// DeleteSong removes the song and every association referencing it in one transaction.
func (s *SQLStore) DeleteSong(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := NewPlaylistSongRepository(tx).DeleteBySong(ctx, id); err != nil {
			return err
		}
		return NewSongRepository(tx).Delete(ctx, id)
	})
}

// CreatePlaylist inserts playlist after checking that its owner exists.
func (s *SQLStore) CreatePlaylist(ctx context.Context, playlist models.Playlist) (*models.Playlist, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireUser(ctx, tx, playlist.UserID); err != nil {
			return err
		}
		return NewPlaylistRepository(tx).Create(ctx, &playlist)
	})
	if err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (s *SQLStore) GetPlaylist(ctx context.Context, id int64) (*models.Playlist, error) {
	return NewPlaylistRepository(s.db).Get(ctx, id)
}

func (s *SQLStore) ListPlaylists(ctx context.Context) ([]*models.Playlist, error) {
	return NewPlaylistRepository(s.db).List(ctx, nil)
}

func (s *SQLStore) ListPlaylistsByUser(ctx context.Context, userID int64) ([]*models.Playlist, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return NewPlaylistRepository(s.db).List(ctx, map[string]any{"user_id": userID})
}

// DeletePlaylist removes the playlist and its associations in one transaction.
func (s *SQLStore) DeletePlaylist(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := NewPlaylistSongRepository(tx).DeleteByPlaylist(ctx, id); err != nil {
			return err
		}
		return NewPlaylistRepository(tx).Delete(ctx, id)
	})
}

// PlaylistSongs returns the playlist's songs in insertion order, or [shared.ErrNotFound] for an unknown playlist.
func (s *SQLStore) PlaylistSongs(ctx context.Context, playlistID int64) ([]*models.Song, error) {
	if _, err := s.GetPlaylist(ctx, playlistID); err != nil {
		return nil, err
	}
	return NewPlaylistSongRepository(s.db).Songs(ctx, playlistID)
}

// AddSongToPlaylist links a song to a playlist.
//
// Unknown ids fail with [shared.ErrValidation]. Adding a pair that already exists returns
// the existing association without inserting a row.
func (s *SQLStore) AddSongToPlaylist(ctx context.Context, playlistID, songID int64) (*models.PlaylistSong, error) {
	var link *models.PlaylistSong
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := NewPlaylistRepository(tx).Get(ctx, playlistID); err != nil {
			return asValidation(err)
		}

		exists, err := NewSongRepository(tx).Exists(ctx, songID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: song %d does not exist", shared.ErrValidation, songID)
		}

		links := NewPlaylistSongRepository(tx)
		existing, err := links.Get(ctx, playlistID, songID)
		if err == nil {
			link = existing
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		link = &models.PlaylistSong{PlaylistID: playlistID, SongID: songID}
		return links.Create(ctx, link)
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RemoveSongFromPlaylist unlinks a song from a playlist. Absent pairs are a no-op.
func (s *SQLStore) RemoveSongFromPlaylist(ctx context.Context, playlistID, songID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return NewPlaylistSongRepository(tx).Remove(ctx, playlistID, songID)
	})
}

func requireUser(ctx context.Context, q querier, userID int64) error {
	exists, err := NewUserRepository(q).Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: user %d does not exist", shared.ErrValidation, userID)
	}
	return nil
}

// asValidation turns a not-found lookup of a referenced id into a validation failure.
func asValidation(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return err
}

// EnsureUser returns the user named username, creating it with a random password when missing.
func EnsureUser(ctx context.Context, store models.UserStore, username string) (*models.User, error) {
	user, err := store.GetUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	created, err := models.NewUser(username, shared.GenerateID())
	if err != nil {
		return nil, err
	}
	return store.CreateUser(ctx, *created)
}

var (
	_ models.Store = (*SQLStore)(nil)
	_ models.Store = (*MemoryStore)(nil)
)
