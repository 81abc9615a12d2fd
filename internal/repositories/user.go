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

// UserRepository persists [models.User] rows.
type UserRepository struct {
	db querier
}

// NewUserRepository creates a new [UserRepository] over a database or transaction
func NewUserRepository(db querier) *UserRepository {
	return &UserRepository{db: db}
}

// Create validates user, assigns its id and creation time, and inserts it.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	id, err := NextSequence(ctx, r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	createdAt := time.Now().UTC()
	query := `INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query, id, user.Username, user.PasswordHash, createdAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q is taken", shared.ErrValidation, user.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = id
	user.CreatedAt = createdAt
	return nil
}

// Get retrieves a user by id
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`
	user, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return user, err
}

// GetByUsername retrieves a user by its unique username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`
	user, err := r.scanOne(r.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %q", shared.ErrNotFound, username)
	}
	return user, err
}

// List retrieves all users in insertion order
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, password_hash, created_at FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// Exists reports whether a user with id exists.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// scanOne scans a single row into a [models.User]
func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	user, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return user, err
}

// scanRow scans the current row into a [models.User]
func (r *UserRepository) scanRow(s scanner) (*models.User, error) {
	var user models.User
	err := s.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
