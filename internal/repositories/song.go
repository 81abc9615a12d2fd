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

const songColumns = `songs.id, songs.title, songs.artist, songs.user_id, songs.audio_url, songs.cover_url, songs.duration, songs.created_at`

// SongRepository persists [models.Song] rows.
type SongRepository struct {
	db querier
}

// NewSongRepository creates a new [SongRepository] over a database or transaction
func NewSongRepository(db querier) *SongRepository {
	return &SongRepository{db: db}
}

// Create assigns the song's id and creation time and inserts it.
//
// The caller checks that the owning user exists.
func (r *SongRepository) Create(ctx context.Context, song *models.Song) error {
	if err := song.Validate(); err != nil {
		return err
	}

	id, err := NextSequence(ctx, r.db, "songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	createdAt := time.Now().UTC()
	query := `
		INSERT INTO songs (id, title, artist, user_id, audio_url, cover_url, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		id,
		song.Title,
		song.Artist,
		song.UserID,
		song.AudioURL,
		song.CoverURL,
		song.Duration,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	song.ID = id
	song.CreatedAt = createdAt
	return nil
}

// Get retrieves a song by id
func (r *SongRepository) Get(ctx context.Context, id int64) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE songs.id = ?`

	song, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: song %d", shared.ErrNotFound, id)
	}
	return song, err
}

// List retrieves songs matching the given criteria in insertion order.
//
// Supported criteria:
//   - "user_id" (int64): songs owned by the user
//   - "query" (string): case-insensitive substring of title or artist
func (r *SongRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE 1 = 1`
	args := []any{}

	if userID, ok := criteria["user_id"].(int64); ok && userID > 0 {
		query += " AND songs.user_id = ?"
		args = append(args, userID)
	}

	if q, ok := criteria["query"].(string); ok {
		if q = shared.NormalizeQuery(q); q != "" {
			query += ` AND (instr(unicode_lower(songs.title), ?) > 0 OR instr(unicode_lower(songs.artist), ?) > 0)`
			args = append(args, q, q)
		}
	}

	query += " ORDER BY songs.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// Delete removes a song by id, returning [shared.ErrNotFound] when no row matched.
//
// Associations must be removed first, in the same transaction.
func (r *SongRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: song %d", shared.ErrNotFound, id)
	}

	return nil
}

// Exists reports whether a song with id exists.
func (r *SongRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM songs WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check song: %w", err)
	}
	return exists, nil
}

func (r *SongRepository) collect(rows *sql.Rows) ([]*models.Song, error) {
	songs := []*models.Song{}
	for rows.Next() {
		song, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

// scanOne scans a single row into a [models.Song]
func (r *SongRepository) scanOne(row *sql.Row) (*models.Song, error) {
	song, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return song, err
}

// scanRow scans the current row into a [models.Song]
func (r *SongRepository) scanRow(s scanner) (*models.Song, error) {
	var song models.Song
	err := s.Scan(
		&song.ID,
		&song.Title,
		&song.Artist,
		&song.UserID,
		&song.AudioURL,
		&song.CoverURL,
		&song.Duration,
		&song.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	return &song, nil
}
