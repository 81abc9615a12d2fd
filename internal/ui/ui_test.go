package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/playback"
	"github.com/desertthunder/tunebox/internal/shared"
)

// stubMedia records loads. Tests complete them by calling ready.
type stubMedia struct {
	mu      sync.Mutex
	srcs    []string
	ticket  playback.Ticket
	events  playback.Events
	playing bool
	volume  float64
}

func (m *stubMedia) Load(t playback.Ticket, src string, events playback.Events) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.srcs = append(m.srcs, src)
	m.ticket, m.events = t, events
	m.playing = false
}

func (m *stubMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
	return nil
}

func (m *stubMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *stubMedia) Seek(time.Duration) {}

func (m *stubMedia) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = level
}

func (m *stubMedia) Position() time.Duration { return 0 }
func (m *stubMedia) Duration() time.Duration { return 0 }

func (m *stubMedia) ready() {
	m.mu.Lock()
	t, events := m.ticket, m.events
	m.mu.Unlock()
	events.MediaReady(t)
}

func (m *stubMedia) lastSrc() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.srcs) == 0 {
		return ""
	}
	return m.srcs[len(m.srcs)-1]
}

type stubLibrary struct {
	songs     []*models.Song
	playlists []*models.Playlist
	err       error
}

func (l stubLibrary) ListSongs(context.Context) ([]*models.Song, error) { return l.songs, l.err }

func (l stubLibrary) SearchSongs(context.Context, string) ([]*models.Song, error) {
	return l.songs, l.err
}

func (l stubLibrary) ListPlaylists(context.Context) ([]*models.Playlist, error) {
	return l.playlists, l.err
}

func (l stubLibrary) PlaylistSongs(_ context.Context, id int64) ([]*models.Song, error) {
	if id != 1 {
		return nil, shared.ErrNotFound
	}
	return l.songs[:1], l.err
}

func (l stubLibrary) Name() string { return "stub" }

func newLibrary() stubLibrary {
	return stubLibrary{
		songs: []*models.Song{
			{ID: 1, Title: "First", Artist: "A", AudioURL: "/uploads/first.mp3", Duration: 120},
			{ID: 2, Title: "Second", Artist: "B", AudioURL: "/uploads/second.mp3", Duration: 90},
			{ID: 3, Title: "Third", Artist: "C", AudioURL: "/uploads/third.mp3"},
		},
		playlists: []*models.Playlist{{ID: 1, Name: "Mix", UserID: 1, CreatedAt: time.Now()}},
	}
}

func newTestModel(t *testing.T, library stubLibrary) (*Model, *stubMedia) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	media := &stubMedia{}
	m := NewModel(ctx, library, media, nil)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(m.fetchPlaylists()())
	return m, media
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	downKey  = tea.KeyMsg{Type: tea.KeyDown}
	spaceKey = keyRunes(" ")
)

// open selects the highlighted playlist entry and delivers the fetched songs.
func open(t *testing.T, m *Model) {
	t.Helper()
	_, cmd := m.Update(enterKey)
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	m.Update(cmd())
	if m.view != SongListView {
		t.Fatalf("expected song list view, got %d", m.view)
	}
}

func TestModel(t *testing.T) {
	t.Run("Playlists Include Whole Library", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())

		items := m.playlistList.Items()
		if len(items) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(items))
		}
		if got := items[0].(playlistItem).Title(); got != "All songs" {
			t.Errorf("expected All songs first, got %q", got)
		}
		if got := items[1].(playlistItem).Title(); got != "Mix" {
			t.Errorf("expected Mix, got %q", got)
		}
	})

	t.Run("Fetch Error", func(t *testing.T) {
		lib := newLibrary()
		lib.err = errors.New("connection refused")
		m, _ := newTestModel(t, lib)

		if m.Err() == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(m.View(), "connection refused") {
			t.Errorf("expected error in view, got %q", m.View())
		}
	})

	t.Run("Open Library", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())
		open(t, m)

		if m.queue.Len() != 3 {
			t.Errorf("expected 3 queued songs, got %d", m.queue.Len())
		}
	})

	t.Run("Open Playlist", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())
		m.Update(downKey)
		open(t, m)

		if m.queue.Len() != 1 {
			t.Errorf("expected 1 queued song, got %d", m.queue.Len())
		}
		if m.songList.Title != "Mix" {
			t.Errorf("expected title Mix, got %q", m.songList.Title)
		}
	})

	t.Run("Select Plays Song", func(t *testing.T) {
		m, media := newTestModel(t, newLibrary())
		open(t, m)

		m.Update(downKey)
		m.Update(enterKey)

		if got := m.controller.State(); got != playback.Loading {
			t.Fatalf("expected loading, got %s", got)
		}
		if media.lastSrc() != "/uploads/second.mp3" {
			t.Errorf("expected second song to load, got %q", media.lastSrc())
		}

		media.ready()
		if got := m.controller.State(); got != playback.Playing {
			t.Errorf("expected playing once ready, got %s", got)
		}
		if m.queue.Index() != 1 {
			t.Errorf("expected queue index 1, got %d", m.queue.Index())
		}
	})

	t.Run("Toggle Pauses", func(t *testing.T) {
		m, media := newTestModel(t, newLibrary())
		open(t, m)
		m.Update(enterKey)
		media.ready()

		m.Update(spaceKey)
		if got := m.controller.State(); got != playback.ReadyPaused {
			t.Errorf("expected paused, got %s", got)
		}

		m.Update(spaceKey)
		if got := m.controller.State(); got != playback.Playing {
			t.Errorf("expected playing, got %s", got)
		}
	})

	t.Run("Toggle Without Song", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())
		open(t, m)

		m.Update(spaceKey)
		if m.notice == "" {
			t.Error("expected a notice")
		}
		if got := m.controller.State(); got != playback.Idle {
			t.Errorf("expected idle, got %s", got)
		}
	})

	t.Run("Song End Advances Queue", func(t *testing.T) {
		m, media := newTestModel(t, newLibrary())
		open(t, m)
		m.Update(enterKey)
		media.ready()

		first, _ := m.queue.Current()
		m.Update(songEndedMsg(first))

		if m.queue.Index() != 1 {
			t.Errorf("expected queue index 1, got %d", m.queue.Index())
		}
		if media.lastSrc() != "/uploads/second.mp3" {
			t.Errorf("expected second song to load, got %q", media.lastSrc())
		}
		media.ready()
		if got := m.controller.State(); got != playback.Playing {
			t.Errorf("expected playing, got %s", got)
		}
	})

	t.Run("Next And Previous", func(t *testing.T) {
		m, media := newTestModel(t, newLibrary())
		open(t, m)

		m.Update(keyRunes("p"))
		if media.lastSrc() != "/uploads/third.mp3" {
			t.Errorf("expected previous to wrap to third, got %q", media.lastSrc())
		}

		m.Update(keyRunes("n"))
		if media.lastSrc() != "/uploads/first.mp3" {
			t.Errorf("expected next to wrap to first, got %q", media.lastSrc())
		}
	})

	t.Run("Volume And Mute", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())
		open(t, m)

		m.Update(keyRunes("-"))
		if got := m.controller.Volume(); got != 90 {
			t.Errorf("expected volume 90, got %d", got)
		}

		m.Update(keyRunes("m"))
		if got := m.controller.Volume(); got != 0 {
			t.Errorf("expected muted, got %d", got)
		}
		if !strings.Contains(m.View(), "Muted") {
			t.Error("expected view to show muted")
		}

		m.Update(keyRunes("m"))
		if got := m.controller.Volume(); got != 90 {
			t.Errorf("expected volume restored to 90, got %d", got)
		}
	})

	t.Run("Notice", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())
		song := *newLibrary().songs[0]

		m.Update(noticeMsg(playback.Notice{Song: &song, Err: errors.New("unsupported codec")}))
		if !strings.Contains(m.notice, "unsupported codec") {
			t.Errorf("expected notice text, got %q", m.notice)
		}
		if !m.noticeErr {
			t.Error("expected error notice")
		}
	})

	t.Run("Back", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())
		open(t, m)

		m.Update(escKey)
		if m.view != PlaylistListView {
			t.Errorf("expected playlist view, got %d", m.view)
		}
	})

	t.Run("Quit", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())

		_, cmd := m.Update(keyRunes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("Idle View", func(t *testing.T) {
		m, _ := newTestModel(t, newLibrary())

		if !strings.Contains(m.View(), "Nothing playing") {
			t.Errorf("expected idle panel, got %q", m.View())
		}
	})
}

func TestClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{65 * time.Second, "1:05"},
		{3*time.Minute + 999*time.Millisecond, "3:00"},
	}

	for _, tt := range tests {
		if got := clock(tt.in); got != tt.want {
			t.Errorf("clock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
