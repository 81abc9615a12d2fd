package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

// PlaylistSongRepository manages the playlist_songs junction table.
type PlaylistSongRepository struct {
	db querier
}

// NewPlaylistSongRepository creates a new [PlaylistSongRepository] over a database or transaction
func NewPlaylistSongRepository(db querier) *PlaylistSongRepository {
	return &PlaylistSongRepository{db: db}
}

// Create inserts an association. The (playlist, song) pair must not already exist.
func (r *PlaylistSongRepository) Create(ctx context.Context, link *models.PlaylistSong) error {
	if err := link.Validate(); err != nil {
		return err
	}

	id, err := NextSequence(ctx, r.db, "playlist_songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	addedAt := time.Now().UTC()
	query := `INSERT INTO playlist_songs (id, playlist_id, song_id, added_at) VALUES (?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query, id, link.PlaylistID, link.SongID, addedAt)
	if err != nil {
		return fmt.Errorf("failed to insert playlist song: %w", err)
	}

	link.ID = id
	link.AddedAt = addedAt
	return nil
}

// Get retrieves the association for a (playlist, song) pair
func (r *PlaylistSongRepository) Get(ctx context.Context, playlistID, songID int64) (*models.PlaylistSong, error) {
	query := `
		SELECT id, playlist_id, song_id, added_at
		FROM playlist_songs
		WHERE playlist_id = ? AND song_id = ?
	`

	var link models.PlaylistSong
	err := r.db.QueryRowContext(ctx, query, playlistID, songID).Scan(&link.ID, &link.PlaylistID, &link.SongID, &link.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: song %d in playlist %d", shared.ErrNotFound, songID, playlistID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist song: %w", err)
	}

	return &link, nil
}

// Remove deletes the association for a (playlist, song) pair. Missing pairs are not an error.
func (r *PlaylistSongRepository) Remove(ctx context.Context, playlistID, songID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`, playlistID, songID)
	if err != nil {
		return fmt.Errorf("failed to remove playlist song: %w", err)
	}
	return nil
}

// DeleteBySong removes every association referencing the song.
func (r *PlaylistSongRepository) DeleteBySong(ctx context.Context, songID int64) (int64, error) {
	return r.deleteWhere(ctx, "song_id", songID)
}

// DeleteByPlaylist removes every association of the playlist.
func (r *PlaylistSongRepository) DeleteByPlaylist(ctx context.Context, playlistID int64) (int64, error) {
	return r.deleteWhere(ctx, "playlist_id", playlistID)
}

func (r *PlaylistSongRepository) deleteWhere(ctx context.Context, column string, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM playlist_songs WHERE %s = ?", column), id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete playlist songs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// Songs returns the songs of a playlist ordered by insertion time, then association id.
func (r *PlaylistSongRepository) Songs(ctx context.Context, playlistID int64) ([]*models.Song, error) {
	query := `
		SELECT ` + songColumns + `
		FROM playlist_songs
		JOIN songs ON songs.id = playlist_songs.song_id
		WHERE playlist_songs.playlist_id = ?
		ORDER BY playlist_songs.added_at ASC, playlist_songs.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist songs: %w", err)
	}
	defer rows.Close()

	return (&SongRepository{db: r.db}).collect(rows)
}

// Count returns the number of associations referencing the playlist.
func (r *PlaylistSongRepository) Count(ctx context.Context, playlistID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = ?`, playlistID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlist songs: %w", err)
	}
	return count, nil
}
