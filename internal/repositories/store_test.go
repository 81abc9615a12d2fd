package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

// eachStore runs fn against every [models.Store] implementation.
func eachStore(t *testing.T, fn func(t *testing.T, store models.Store)) {
	t.Helper()

	t.Run("SQLStore", func(t *testing.T) {
		fn(t, NewSQLStore(setupTestDB(t)))
	})

	t.Run("MemoryStore", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
}

type fixture struct {
	store models.Store
	user  *models.User
}

func newFixture(t *testing.T, store models.Store) *fixture {
	t.Helper()

	user, err := EnsureUser(context.Background(), store, "guest")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &fixture{store: store, user: user}
}

func (f *fixture) song(t *testing.T, title, artist string) *models.Song {
	t.Helper()

	song, err := f.store.CreateSong(context.Background(), *models.NewSong(title, artist, f.user.ID, "/uploads/"+title+".mp3", "/uploads/"+title+".png", 180))
	if err != nil {
		t.Fatalf("failed to create song %s: %v", title, err)
	}
	return song
}

func (f *fixture) playlist(t *testing.T, name string) *models.Playlist {
	t.Helper()

	playlist, err := f.store.CreatePlaylist(context.Background(), *models.NewPlaylist(name, f.user.ID, ""))
	if err != nil {
		t.Fatalf("failed to create playlist %s: %v", name, err)
	}
	return playlist
}

func (f *fixture) add(t *testing.T, playlistID, songID int64) *models.PlaylistSong {
	t.Helper()

	link, err := f.store.AddSongToPlaylist(context.Background(), playlistID, songID)
	if err != nil {
		t.Fatalf("failed to add song %d to playlist %d: %v", songID, playlistID, err)
	}
	return link
}

func titles(songs []*models.Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.Title
	}
	return out
}

func TestStoreUsers(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, store models.Store) {
		t.Run("duplicate username", func(t *testing.T) {
			user, _ := models.NewUser("djay", "password123")
			if _, err := store.CreateUser(ctx, *user); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
			if _, err := store.CreateUser(ctx, *user); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})

		t.Run("EnsureUser is idempotent", func(t *testing.T) {
			first, err := EnsureUser(ctx, store, "guest")
			if err != nil {
				t.Fatalf("failed to ensure user: %v", err)
			}
			second, err := EnsureUser(ctx, store, "guest")
			if err != nil {
				t.Fatalf("failed to ensure user again: %v", err)
			}
			if first.ID != second.ID {
				t.Errorf("expected same user, got ids %d and %d", first.ID, second.ID)
			}
		})

		t.Run("ListUsers insertion order", func(t *testing.T) {
			users, err := store.ListUsers(ctx)
			if err != nil {
				t.Fatalf("failed to list users: %v", err)
			}
			if len(users) != 2 || users[0].Username != "djay" || users[1].Username != "guest" {
				t.Errorf("unexpected users %+v", users)
			}
		})

		t.Run("GetUser NotFound", func(t *testing.T) {
			if _, err := store.GetUser(ctx, 404); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	})
}

func TestStoreSongs(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, store models.Store) {
		f := newFixture(t, store)

		t.Run("create then get returns equal record", func(t *testing.T) {
			input := models.NewSong("Highway", "The Drivers", f.user.ID, "/uploads/h.mp3", "/uploads/h.png", 212)
			created, err := store.CreateSong(ctx, *input)
			if err != nil {
				t.Fatalf("failed to create song: %v", err)
			}
			if created.ID == 0 {
				t.Fatal("expected id to be assigned")
			}

			got, err := store.GetSong(ctx, created.ID)
			if err != nil {
				t.Fatalf("failed to get song: %v", err)
			}
			if got.Title != input.Title || got.Artist != input.Artist || got.UserID != input.UserID ||
				got.AudioURL != input.AudioURL || got.CoverURL != input.CoverURL || got.Duration != input.Duration {
				t.Errorf("expected %+v, got %+v", input, got)
			}
			if !got.CreatedAt.Equal(created.CreatedAt) {
				t.Errorf("expected created_at %v, got %v", created.CreatedAt, got.CreatedAt)
			}
		})

		t.Run("ids are never reused", func(t *testing.T) {
			a := f.song(t, "Alpha", "A")
			if err := store.DeleteSong(ctx, a.ID); err != nil {
				t.Fatalf("failed to delete song: %v", err)
			}
			b := f.song(t, "Beta", "B")
			if b.ID <= a.ID {
				t.Errorf("expected id greater than %d, got %d", a.ID, b.ID)
			}
		})

		t.Run("unknown owner", func(t *testing.T) {
			_, err := store.CreateSong(ctx, *models.NewSong("Lost", "Nobody", 999, "/uploads/l.mp3", "", 0))
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})

		t.Run("missing title", func(t *testing.T) {
			_, err := store.CreateSong(ctx, *models.NewSong("", "Nobody", f.user.ID, "/uploads/l.mp3", "", 0))
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})

		t.Run("GetSong NotFound", func(t *testing.T) {
			if _, err := store.GetSong(ctx, 999); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("DeleteSong NotFound", func(t *testing.T) {
			if err := store.DeleteSong(ctx, 999); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("SearchSongs", func(t *testing.T) {
			f.song(t, "Midnight Drive", "Neon Lights")
			f.song(t, "Sunrise", "MIDNIGHT Choir")

			found, err := store.SearchSongs(ctx, "midnight")
			if err != nil {
				t.Fatalf("failed to search: %v", err)
			}
			got := titles(found)
			if len(got) != 2 || got[0] != "Midnight Drive" || got[1] != "Sunrise" {
				t.Errorf("expected [Midnight Drive Sunrise], got %v", got)
			}

			f.song(t, "ÉTÉ Indien", "Joe Dassin")
			f.song(t, "Road  Trip", "Öresund Band")
			for query, want := range map[string]string{
				"été":        "ÉTÉ Indien",
				"öresund":    "Road  Trip",
				"road  trip": "Road  Trip",
			} {
				found, err := store.SearchSongs(ctx, query)
				if err != nil {
					t.Fatalf("failed to search %q: %v", query, err)
				}
				if got := titles(found); len(got) != 1 || got[0] != want {
					t.Errorf("SearchSongs(%q) = %v, want [%s]", query, got, want)
				}
			}
			if found, _ := store.SearchSongs(ctx, "road trip"); len(found) != 0 {
				t.Errorf("single-space query should not match a double-spaced title, got %v", titles(found))
			}

			all, _ := store.ListSongs(ctx)
			everything, err := store.SearchSongs(ctx, "  ")
			if err != nil {
				t.Fatalf("failed to search: %v", err)
			}
			if len(everything) != len(all) {
				t.Errorf("blank query should list all %d songs, got %d", len(all), len(everything))
			}
		})

		t.Run("ListSongsByUser", func(t *testing.T) {
			other, err := EnsureUser(ctx, store, "other")
			if err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
			if _, err := store.CreateSong(ctx, *models.NewSong("Theirs", "Them", other.ID, "/uploads/t.mp3", "", 0)); err != nil {
				t.Fatalf("failed to create song: %v", err)
			}

			songs, err := store.ListSongsByUser(ctx, other.ID)
			if err != nil {
				t.Fatalf("failed to list: %v", err)
			}
			if got := titles(songs); len(got) != 1 || got[0] != "Theirs" {
				t.Errorf("expected [Theirs], got %v", got)
			}

			if _, err := store.ListSongsByUser(ctx, 999); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound for unknown user, got %v", err)
			}
		})
	})
}

func TestStorePlaylists(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, store models.Store) {
		t.Run("songs ordered by insertion", func(t *testing.T) {
			f := newFixture(t, store)
			a := f.song(t, "A", "x")
			b := f.song(t, "B", "x")
			c := f.song(t, "C", "x")
			pl := f.playlist(t, "Ordered")

			f.add(t, pl.ID, b.ID)
			f.add(t, pl.ID, a.ID)
			f.add(t, pl.ID, c.ID)

			songs, err := store.PlaylistSongs(ctx, pl.ID)
			if err != nil {
				t.Fatalf("failed to get playlist songs: %v", err)
			}
			got := titles(songs)
			if fmt.Sprint(got) != "[B A C]" {
				t.Errorf("expected [B A C], got %v", got)
			}
		})

		t.Run("empty playlist", func(t *testing.T) {
			f := newFixture(t, store)
			pl := f.playlist(t, "Empty")

			songs, err := store.PlaylistSongs(ctx, pl.ID)
			if err != nil {
				t.Fatalf("failed to get playlist songs: %v", err)
			}
			if songs == nil || len(songs) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", songs)
			}
		})

		t.Run("unknown playlist", func(t *testing.T) {
			if _, err := store.PlaylistSongs(ctx, 999); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if _, err := store.GetPlaylist(ctx, 999); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if err := store.DeletePlaylist(ctx, 999); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("add is idempotent", func(t *testing.T) {
			f := newFixture(t, store)
			song := f.song(t, "Repeat", "x")
			pl := f.playlist(t, "Dupes")

			first := f.add(t, pl.ID, song.ID)
			second := f.add(t, pl.ID, song.ID)
			if first.ID != second.ID {
				t.Errorf("expected existing association %d, got %d", first.ID, second.ID)
			}

			songs, _ := store.PlaylistSongs(ctx, pl.ID)
			if len(songs) != 1 {
				t.Errorf("expected one song after duplicate add, got %d", len(songs))
			}
		})

		t.Run("add with unknown ids", func(t *testing.T) {
			f := newFixture(t, store)
			song := f.song(t, "Known", "x")
			pl := f.playlist(t, "Known")

			if _, err := store.AddSongToPlaylist(ctx, pl.ID, 999); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation for unknown song, got %v", err)
			}
			if _, err := store.AddSongToPlaylist(ctx, 999, song.ID); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation for unknown playlist, got %v", err)
			}
		})

		t.Run("remove absent pair is a no-op", func(t *testing.T) {
			f := newFixture(t, store)
			song := f.song(t, "Stay", "x")
			pl := f.playlist(t, "Keep")
			f.add(t, pl.ID, song.ID)

			if err := store.RemoveSongFromPlaylist(ctx, pl.ID, 999); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if err := store.RemoveSongFromPlaylist(ctx, 999, song.ID); err != nil {
				t.Errorf("expected no error, got %v", err)
			}

			songs, _ := store.PlaylistSongs(ctx, pl.ID)
			if len(songs) != 1 {
				t.Errorf("expected playlist unchanged, got %d songs", len(songs))
			}
		})

		t.Run("deleting a song removes it from every playlist", func(t *testing.T) {
			f := newFixture(t, store)
			doomed := f.song(t, "Doomed", "x")
			keeper := f.song(t, "Keeper", "x")

			var playlists []*models.Playlist
			for i := range 3 {
				pl := f.playlist(t, fmt.Sprintf("List %d", i))
				f.add(t, pl.ID, doomed.ID)
				f.add(t, pl.ID, keeper.ID)
				playlists = append(playlists, pl)
			}

			if err := store.DeleteSong(ctx, doomed.ID); err != nil {
				t.Fatalf("failed to delete song: %v", err)
			}

			for _, pl := range playlists {
				songs, err := store.PlaylistSongs(ctx, pl.ID)
				if err != nil {
					t.Fatalf("failed to get playlist songs: %v", err)
				}
				if got := titles(songs); len(got) != 1 || got[0] != "Keeper" {
					t.Errorf("playlist %d: expected [Keeper], got %v", pl.ID, got)
				}
			}
		})

		t.Run("deleting a playlist keeps its songs", func(t *testing.T) {
			f := newFixture(t, store)
			song := f.song(t, "Survivor", "x")
			pl := f.playlist(t, "Gone")
			f.add(t, pl.ID, song.ID)

			if err := store.DeletePlaylist(ctx, pl.ID); err != nil {
				t.Fatalf("failed to delete playlist: %v", err)
			}
			if _, err := store.GetSong(ctx, song.ID); err != nil {
				t.Errorf("song should survive playlist deletion: %v", err)
			}
			if _, err := store.PlaylistSongs(ctx, pl.ID); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("ListPlaylistsByUser", func(t *testing.T) {
			f := newFixture(t, store)
			owner, _ := EnsureUser(ctx, store, "owner")
			if _, err := store.CreatePlaylist(ctx, *models.NewPlaylist("Mine", owner.ID, "")); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
			f.playlist(t, "Guest List")

			playlists, err := store.ListPlaylistsByUser(ctx, owner.ID)
			if err != nil {
				t.Fatalf("failed to list: %v", err)
			}
			if len(playlists) != 1 || playlists[0].Name != "Mine" {
				t.Errorf("expected [Mine], got %+v", playlists)
			}
		})

		t.Run("unknown owner", func(t *testing.T) {
			_, err := store.CreatePlaylist(ctx, *models.NewPlaylist("Nobody's", 999, ""))
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	})
}

func TestStoreConcurrentCascade(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, store models.Store) {
		f := newFixture(t, store)
		pl := f.playlist(t, "Busy")

		var songs []*models.Song
		for i := range 20 {
			songs = append(songs, f.song(t, fmt.Sprintf("Song %d", i), "x"))
		}

		var wg sync.WaitGroup
		for _, song := range songs {
			wg.Add(2)
			go func() {
				defer wg.Done()
				store.AddSongToPlaylist(ctx, pl.ID, song.ID)
			}()
			go func() {
				defer wg.Done()
				store.DeleteSong(ctx, song.ID)
			}()
		}
		wg.Wait()

		remaining, err := store.PlaylistSongs(ctx, pl.ID)
		if err != nil {
			t.Fatalf("failed to get playlist songs: %v", err)
		}
		if len(remaining) != 0 {
			t.Errorf("expected no songs to survive deletion, got %v", titles(remaining))
		}
	})
}
