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

// PlaylistRepository persists [models.Playlist] rows.
type PlaylistRepository struct {
	db querier
}

// NewPlaylistRepository creates a new PlaylistRepository over a database or transaction
func NewPlaylistRepository(db querier) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create assigns the playlist's id and creation time and inserts it.
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return err
	}

	id, err := NextSequence(ctx, r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	createdAt := time.Now().UTC()
	query := `INSERT INTO playlists (id, name, user_id, cover_url, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query, id, playlist.Name, playlist.UserID, playlist.CoverURL, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	playlist.ID = id
	playlist.CreatedAt = createdAt
	return nil
}

// Get retrieves a playlist by id
func (r *PlaylistRepository) Get(ctx context.Context, id int64) (*models.Playlist, error) {
	query := `SELECT id, name, user_id, cover_url, created_at FROM playlists WHERE id = ?`

	playlist, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
	}
	return playlist, err
}

// List retrieves all playlists matching the given criteria in insertion order.
//
// Supported criteria: "user_id" (int64).
func (r *PlaylistRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Playlist, error) {
	query := `SELECT id, name, user_id, cover_url, created_at FROM playlists WHERE 1 = 1`
	args := []any{}

	if userID, ok := criteria["user_id"].(int64); ok && userID > 0 {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []*models.Playlist{}
	for rows.Next() {
		playlist, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Delete removes a playlist by id, returning [shared.ErrNotFound] when no row matched.
func (r *PlaylistRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
	}

	return nil
}

// scanOne scans a single row into a [models.Playlist]
func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.Playlist, error) {
	playlist, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return playlist, err
}

// scanRow scans the current row into a [models.Playlist]
func (r *PlaylistRepository) scanRow(s scanner) (*models.Playlist, error) {
	var playlist models.Playlist
	err := s.Scan(&playlist.ID, &playlist.Name, &playlist.UserID, &playlist.CoverURL, &playlist.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return &playlist, nil
}
