package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	models.PasswordCost = bcrypt.MinCost
}

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: shared.MemoryPath})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// mustUser creates a user directly through the repository
func mustUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()

	user, err := models.NewUser(username, "password123")
	if err != nil {
		t.Fatalf("failed to build user: %v", err)
	}
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seq1, err := NextSequence(ctx, db, "users")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}
	if seq1 != 1 {
		t.Errorf("expected first sequence to be 1, got %d", seq1)
	}

	seq2, err := NextSequence(ctx, db, "users")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}
	if seq2 != 2 {
		t.Errorf("expected second sequence to be 2, got %d", seq2)
	}

	songSeq, err := NextSequence(ctx, db, "songs")
	if err != nil {
		t.Fatalf("failed to get songs sequence: %v", err)
	}
	if songSeq != 1 {
		t.Errorf("expected songs sequence to start at 1, got %d", songSeq)
	}

	if _, err := NextSequence(ctx, db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create & Get", func(t *testing.T) {
		db := setupTestDB(t)
		user := mustUser(t, db, "listener")

		if user.ID != 1 {
			t.Errorf("expected id 1, got %d", user.ID)
		}

		repo := NewUserRepository(db)
		retrieved, err := repo.Get(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.Username != "listener" {
			t.Errorf("expected username listener, got %s", retrieved.Username)
		}
		if !retrieved.CheckPassword("password123") {
			t.Error("stored hash should verify the original password")
		}
	})

	t.Run("GetByUsername", func(t *testing.T) {
		db := setupTestDB(t)
		mustUser(t, db, "listener")

		repo := NewUserRepository(db)
		if _, err := repo.GetByUsername(ctx, "listener"); err != nil {
			t.Errorf("expected to find user: %v", err)
		}
		if _, err := repo.GetByUsername(ctx, "nobody"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		db := setupTestDB(t)
		user := mustUser(t, db, "listener")

		repo := NewUserRepository(db)
		if ok, _ := repo.Exists(ctx, user.ID); !ok {
			t.Error("expected user to exist")
		}
		if ok, _ := repo.Exists(ctx, 42); ok {
			t.Error("expected unknown user not to exist")
		}
	})
}

func TestSongRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("List criteria", func(t *testing.T) {
		db := setupTestDB(t)
		alice := mustUser(t, db, "alice")
		bob := mustUser(t, db, "bob")

		repo := NewSongRepository(db)
		for _, s := range []*models.Song{
			models.NewSong("100% Pure", "Alice Band", alice.ID, "/uploads/1.mp3", "", 0),
			models.NewSong("Ordinary", "Bob Trio", bob.ID, "/uploads/2.mp3", "", 0),
			models.NewSong("Under_score", "Bob Trio", bob.ID, "/uploads/3.mp3", "", 0),
		} {
			if err := repo.Create(ctx, s); err != nil {
				t.Fatalf("failed to create song: %v", err)
			}
		}

		byBob, err := repo.List(ctx, map[string]any{"user_id": bob.ID})
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(byBob) != 2 {
			t.Errorf("expected 2 songs for bob, got %d", len(byBob))
		}

		percent, err := repo.List(ctx, map[string]any{"query": "100%"})
		if err != nil {
			t.Fatalf("failed to search songs: %v", err)
		}
		if len(percent) != 1 || percent[0].Title != "100% Pure" {
			t.Errorf("expected literal %% match only, got %+v", percent)
		}

		underscore, err := repo.List(ctx, map[string]any{"query": "r_s"})
		if err != nil {
			t.Fatalf("failed to search songs: %v", err)
		}
		if len(underscore) != 1 || underscore[0].Title != "Under_score" {
			t.Errorf("expected literal _ match only, got %+v", underscore)
		}
	})

	t.Run("Delete NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		if err := NewSongRepository(db).Delete(ctx, 7); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSQLStoreIntegrity(t *testing.T) {
	ctx := context.Background()

	t.Run("cascade leaves no orphaned rows", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewSQLStore(db)
		user := mustUser(t, db, "listener")

		song, err := store.CreateSong(ctx, *models.NewSong("Highway", "Drivers", user.ID, "/uploads/a.mp3", "", 180))
		if err != nil {
			t.Fatalf("failed to create song: %v", err)
		}

		for _, name := range []string{"Road Trip", "Morning", "Gym"} {
			pl, err := store.CreatePlaylist(ctx, *models.NewPlaylist(name, user.ID, ""))
			if err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
			if _, err := store.AddSongToPlaylist(ctx, pl.ID, song.ID); err != nil {
				t.Fatalf("failed to add song: %v", err)
			}
		}

		if err := store.DeleteSong(ctx, song.ID); err != nil {
			t.Fatalf("failed to delete song: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM playlist_songs WHERE song_id = ?", song.ID).Scan(&count); err != nil {
			t.Fatalf("failed to count associations: %v", err)
		}
		if count != 0 {
			t.Errorf("expected no associations after delete, got %d", count)
		}
	})

	t.Run("duplicate pair rejected by schema", func(t *testing.T) {
		db := setupTestDB(t)
		user := mustUser(t, db, "listener")
		store := NewSQLStore(db)

		song, _ := store.CreateSong(ctx, *models.NewSong("Highway", "Drivers", user.ID, "/uploads/a.mp3", "", 0))
		pl, _ := store.CreatePlaylist(ctx, *models.NewPlaylist("Road Trip", user.ID, ""))

		links := NewPlaylistSongRepository(db)
		if err := links.Create(ctx, &models.PlaylistSong{PlaylistID: pl.ID, SongID: song.ID}); err != nil {
			t.Fatalf("failed to insert association: %v", err)
		}
		err := links.Create(ctx, &models.PlaylistSong{PlaylistID: pl.ID, SongID: song.ID})
		if !isUniqueViolation(err) {
			t.Errorf("expected unique violation, got %v", err)
		}
	})

	t.Run("failed insert does not consume an id", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewSQLStore(db)
		user := mustUser(t, db, "listener")

		if _, err := store.CreateSong(ctx, *models.NewSong("Orphan", "Nobody", 99, "/uploads/x.mp3", "", 0)); !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}

		song, err := store.CreateSong(ctx, *models.NewSong("Highway", "Drivers", user.ID, "/uploads/a.mp3", "", 0))
		if err != nil {
			t.Fatalf("failed to create song: %v", err)
		}
		if song.ID != 1 {
			t.Errorf("expected id 1 after rolled back insert, got %d", song.ID)
		}
	})
}

func TestSQLStoreErrors(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := NewSQLStore(db)
	db.Close()

	t.Run("Ping", func(t *testing.T) {
		if err := store.Ping(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("GetSong on closed database is not a not-found", func(t *testing.T) {
		_, err := store.GetSong(ctx, 1)
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, shared.ErrNotFound) {
			t.Errorf("closed database should not report not found: %v", err)
		}
	})

	t.Run("ListSongs", func(t *testing.T) {
		if _, err := store.ListSongs(ctx); err == nil {
			t.Error("expected error listing songs on closed database")
		}
	})

	t.Run("DeletePlaylist", func(t *testing.T) {
		if err := store.DeletePlaylist(ctx, 1); err == nil {
			t.Error("expected error deleting on closed database")
		}
	})
}
