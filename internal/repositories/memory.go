package repositories

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/samber/lo"
)

// MemoryStore implements [models.Store] in process memory.
//
// A single RWMutex guards all four collections, so cascades are atomic with respect to
// readers. Records are copied in and out; callers never share memory with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[int64]models.User
	songs     map[int64]models.Song
	playlists map[int64]models.Playlist
	links     map[int64]models.PlaylistSong
	seq       struct{ users, songs, playlists, links int64 }
	now       func() time.Time
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]models.User),
		songs:     make(map[int64]models.Song),
		playlists: make(map[int64]models.Playlist),
		links:     make(map[int64]models.PlaylistSong),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := lo.FindKeyBy(m.users, func(_ int64, u models.User) bool { return u.Username == user.Username }); taken {
		return nil, fmt.Errorf("%w: username %q is taken", shared.ErrValidation, user.Username)
	}

	m.seq.users++
	user.ID = m.seq.users
	user.CreatedAt = m.now()
	m.users[user.ID] = user
	return &user, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return &user, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := lo.Find(lo.Values(m.users), func(u models.User) bool { return u.Username == username })
	if !ok {
		return nil, fmt.Errorf("%w: user %q", shared.ErrNotFound, username)
	}
	return &user, nil
}

func (m *MemoryStore) ListUsers(context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedByID(m.users, func(u models.User) int64 { return u.ID }, nil), nil
}

func (m *MemoryStore) CreateSong(_ context.Context, song models.Song) (*models.Song, error) {
	if err := song.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[song.UserID]; !ok {
		return nil, fmt.Errorf("%w: user %d does not exist", shared.ErrValidation, song.UserID)
	}

	m.seq.songs++
	song.ID = m.seq.songs
	song.CreatedAt = m.now()
	m.songs[song.ID] = song
	return &song, nil
}

func (m *MemoryStore) GetSong(_ context.Context, id int64) (*models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	song, ok := m.songs[id]
	if !ok {
		return nil, fmt.Errorf("%w: song %d", shared.ErrNotFound, id)
	}
	return &song, nil
}

func (m *MemoryStore) ListSongs(context.Context) ([]*models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedByID(m.songs, songKey, nil), nil
}

func (m *MemoryStore) ListSongsByUser(_ context.Context, userID int64) ([]*models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.users[userID]; !ok {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, userID)
	}
	return sortedByID(m.songs, songKey, func(s models.Song) bool { return s.UserID == userID }), nil
}

func (m *MemoryStore) SearchSongs(_ context.Context, query string) ([]*models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedByID(m.songs, songKey, func(s models.Song) bool { return s.Matches(query) }), nil
}

func (m *MemoryStore) DeleteSong(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.songs[id]; !ok {
		return fmt.Errorf("%w: song %d", shared.ErrNotFound, id)
	}

	m.deleteLinks(func(l models.PlaylistSong) bool { return l.SongID == id })
	delete(m.songs, id)
	return nil
}

func (m *MemoryStore) CreatePlaylist(_ context.Context, playlist models.Playlist) (*models.Playlist, error) {
	if err := playlist.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[playlist.UserID]; !ok {
		return nil, fmt.Errorf("%w: user %d does not exist", shared.ErrValidation, playlist.UserID)
	}

	m.seq.playlists++
	playlist.ID = m.seq.playlists
	playlist.CreatedAt = m.now()
	m.playlists[playlist.ID] = playlist
	return &playlist, nil
}

func (m *MemoryStore) GetPlaylist(_ context.Context, id int64) (*models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	playlist, ok := m.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
	}
	return &playlist, nil
}

func (m *MemoryStore) ListPlaylists(context.Context) ([]*models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedByID(m.playlists, playlistKey, nil), nil
}

func (m *MemoryStore) ListPlaylistsByUser(_ context.Context, userID int64) ([]*models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.users[userID]; !ok {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, userID)
	}
	return sortedByID(m.playlists, playlistKey, func(p models.Playlist) bool { return p.UserID == userID }), nil
}

func (m *MemoryStore) DeletePlaylist(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.playlists[id]; !ok {
		return fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
	}

	m.deleteLinks(func(l models.PlaylistSong) bool { return l.PlaylistID == id })
	delete(m.playlists, id)
	return nil
}

func (m *MemoryStore) PlaylistSongs(_ context.Context, id int64) ([]*models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.playlists[id]; !ok {
		return nil, fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
	}

	links := lo.Filter(lo.Values(m.links), func(l models.PlaylistSong, _ int) bool { return l.PlaylistID == id })
	slices.SortFunc(links, func(a, b models.PlaylistSong) int {
		if c := a.AddedAt.Compare(b.AddedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return lo.Map(links, func(l models.PlaylistSong, _ int) *models.Song {
		song := m.songs[l.SongID]
		return &song
	}), nil
}

func (m *MemoryStore) AddSongToPlaylist(_ context.Context, playlistID, songID int64) (*models.PlaylistSong, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.playlists[playlistID]; !ok {
		return nil, fmt.Errorf("%w: playlist %d does not exist", shared.ErrValidation, playlistID)
	}
	if _, ok := m.songs[songID]; !ok {
		return nil, fmt.Errorf("%w: song %d does not exist", shared.ErrValidation, songID)
	}

	if existing, ok := lo.Find(lo.Values(m.links), func(l models.PlaylistSong) bool {
		return l.PlaylistID == playlistID && l.SongID == songID
	}); ok {
		return &existing, nil
	}

	m.seq.links++
	link := models.PlaylistSong{ID: m.seq.links, PlaylistID: playlistID, SongID: songID, AddedAt: m.now()}
	m.links[link.ID] = link
	return &link, nil
}

func (m *MemoryStore) RemoveSongFromPlaylist(_ context.Context, playlistID, songID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLinks(func(l models.PlaylistSong) bool { return l.PlaylistID == playlistID && l.SongID == songID })
	return nil
}

// deleteLinks removes matching associations. Callers hold the write lock.
func (m *MemoryStore) deleteLinks(match func(models.PlaylistSong) bool) {
	for id, link := range m.links {
		if match(link) {
			delete(m.links, id)
		}
	}
}

func songKey(s models.Song) int64 { return s.ID }

func playlistKey(p models.Playlist) int64 { return p.ID }

// sortedByID copies the records accepted by keep, ordered by id. A nil keep accepts all.
func sortedByID[T any](records map[int64]T, id func(T) int64, keep func(T) bool) []*T {
	values := lo.Values(records)
	if keep != nil {
		values = lo.Filter(values, func(v T, _ int) bool { return keep(v) })
	}
	slices.SortFunc(values, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return lo.Map(values, func(v T, _ int) *T { return &v })
}
